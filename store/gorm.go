package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"worldroom/models"
)

// GormStore expects a *gorm.DB opened with TranslateError enabled so unique
// violations surface as gorm.ErrDuplicatedKey.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	if db == nil {
		panic("store: nil *gorm.DB")
	}
	return &GormStore{db: db}
}

// AutoMigrate creates or updates the tables for all entities.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Room{},
		&models.Player{},
		&models.Round{},
		&models.Game{},
		&models.Guess{},
		&models.Event{},
	)
}

func wrap(err error, format string, args ...any) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return fmt.Errorf("gorm: "+format+": %w", append(args, err)...)
}

func (s *GormStore) CreateRoom(ctx context.Context, room *models.Room) error {
	room.Code = strings.ToUpper(room.Code)
	return wrap(s.db.WithContext(ctx).Omit(clause.Associations).Create(room).Error, "create room %s", room.Code)
}

func (s *GormStore) GetRoom(ctx context.Context, id uint) (*models.Room, error) {
	var room models.Room
	if err := s.db.WithContext(ctx).First(&room, id).Error; err != nil {
		return nil, wrap(err, "get room %d", id)
	}
	return &room, nil
}

func (s *GormStore) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	var room models.Room
	err := s.db.WithContext(ctx).Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).First(&room).Error
	if err != nil {
		return nil, wrap(err, "get room by code %s", code)
	}
	return &room, nil
}

func (s *GormStore) UpdateRoom(ctx context.Context, room *models.Room) error {
	res := s.db.WithContext(ctx).Model(&models.Room{}).Where("id = ?", room.ID).Updates(map[string]interface{}{
		"name":            room.Name,
		"status":          room.Status,
		"active_round_id": room.ActiveRoundID,
		"updated_at":      time.Now(),
	})
	if res.Error != nil {
		return wrap(res.Error, "update room %d", room.ID)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) CreatePlayer(ctx context.Context, player *models.Player) error {
	return wrap(s.db.WithContext(ctx).Create(player).Error, "create player %q", player.Name)
}

func (s *GormStore) GetPlayer(ctx context.Context, id uint) (*models.Player, error) {
	var player models.Player
	if err := s.db.WithContext(ctx).First(&player, id).Error; err != nil {
		return nil, wrap(err, "get player %d", id)
	}
	return &player, nil
}

func (s *GormStore) ListPlayers(ctx context.Context, roomID uint) ([]models.Player, error) {
	var players []models.Player
	err := s.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("total_score DESC").Order("joined_at ASC").Order("id ASC").
		Find(&players).Error
	if err != nil {
		return nil, wrap(err, "list players of room %d", roomID)
	}
	return players, nil
}

// IncrementPlayerScore adds delta in a single UPDATE so concurrent correct
// guesses never lose an increment.
func (s *GormStore) IncrementPlayerScore(ctx context.Context, playerID uint, delta int) error {
	res := s.db.WithContext(ctx).Model(&models.Player{}).
		Where("id = ?", playerID).
		UpdateColumn("total_score", gorm.Expr("total_score + ?", delta))
	if res.Error != nil {
		return wrap(res.Error, "increment score of player %d", playerID)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) CreateRound(ctx context.Context, round *models.Round) error {
	return wrap(s.db.WithContext(ctx).Omit(clause.Associations).Create(round).Error, "create round %d of room %d", round.Number, round.RoomID)
}

func (s *GormStore) GetRound(ctx context.Context, id uint) (*models.Round, error) {
	var round models.Round
	if err := s.db.WithContext(ctx).First(&round, id).Error; err != nil {
		return nil, wrap(err, "get round %d", id)
	}
	return &round, nil
}

func (s *GormStore) ListRounds(ctx context.Context, roomID uint) ([]models.Round, error) {
	var rounds []models.Round
	if err := s.db.WithContext(ctx).Where("room_id = ?", roomID).Order("number ASC").Find(&rounds).Error; err != nil {
		return nil, wrap(err, "list rounds of room %d", roomID)
	}
	return rounds, nil
}

func (s *GormStore) UpdateRound(ctx context.Context, round *models.Round, fromStatus models.RoundStatus, fromGame int) error {
	res := s.db.WithContext(ctx).Model(&models.Round{}).
		Where("id = ? AND status = ? AND current_game = ?", round.ID, fromStatus, fromGame).
		Updates(map[string]interface{}{
			"status":       round.Status,
			"current_game": round.CurrentGame,
			"started_at":   round.StartedAt,
			"completed_at": round.CompletedAt,
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return wrap(res.Error, "update round %d", round.ID)
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetRound(ctx, round.ID); err != nil {
			return err
		}
		return ErrStale
	}
	return nil
}

func (s *GormStore) CreateGame(ctx context.Context, game *models.Game) error {
	return wrap(s.db.WithContext(ctx).Omit(clause.Associations).Create(game).Error, "create game %d of round %d", game.Number, game.RoundID)
}

func (s *GormStore) GetGame(ctx context.Context, id uint) (*models.Game, error) {
	var game models.Game
	if err := s.db.WithContext(ctx).First(&game, id).Error; err != nil {
		return nil, wrap(err, "get game %d", id)
	}
	return &game, nil
}

func (s *GormStore) GetGameByNumber(ctx context.Context, roundID uint, number int) (*models.Game, error) {
	var game models.Game
	err := s.db.WithContext(ctx).Where("round_id = ? AND number = ?", roundID, number).First(&game).Error
	if err != nil {
		return nil, wrap(err, "get game %d of round %d", number, roundID)
	}
	return &game, nil
}

func (s *GormStore) ListGames(ctx context.Context, roundID uint) ([]models.Game, error) {
	var games []models.Game
	if err := s.db.WithContext(ctx).Where("round_id = ?", roundID).Order("number ASC").Find(&games).Error; err != nil {
		return nil, wrap(err, "list games of round %d", roundID)
	}
	return games, nil
}

func (s *GormStore) UpdateGame(ctx context.Context, game *models.Game) error {
	res := s.db.WithContext(ctx).Model(&models.Game{}).Where("id = ?", game.ID).Updates(map[string]interface{}{
		"ended_at":   game.EndedAt,
		"updated_at": time.Now(),
	})
	if res.Error != nil {
		return wrap(res.Error, "update game %d", game.ID)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) CreateGuess(ctx context.Context, guess *models.Guess) error {
	return wrap(s.db.WithContext(ctx).Create(guess).Error, "create guess %d for game %d", guess.AttemptNumber, guess.GameID)
}

func (s *GormStore) ListGuesses(ctx context.Context, gameID uint) ([]models.Guess, error) {
	var guesses []models.Guess
	err := s.db.WithContext(ctx).Where("game_id = ?", gameID).Order("submitted_at ASC").Order("id ASC").Find(&guesses).Error
	if err != nil {
		return nil, wrap(err, "list guesses of game %d", gameID)
	}
	return guesses, nil
}

func (s *GormStore) ListPlayerGuesses(ctx context.Context, gameID, playerID uint) ([]models.Guess, error) {
	var guesses []models.Guess
	err := s.db.WithContext(ctx).
		Where("game_id = ? AND player_id = ?", gameID, playerID).
		Order("attempt_number ASC").
		Find(&guesses).Error
	if err != nil {
		return nil, wrap(err, "list guesses of player %d in game %d", playerID, gameID)
	}
	return guesses, nil
}

func (s *GormStore) AppendEvent(ctx context.Context, event *models.Event) error {
	return wrap(s.db.WithContext(ctx).Create(event).Error, "append %s event", event.Type)
}

func (s *GormStore) ListEvents(ctx context.Context, roomID uint, limit int) ([]models.Event, error) {
	var events []models.Event
	q := s.db.WithContext(ctx).Where("room_id = ?", roomID).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&events).Error; err != nil {
		return nil, wrap(err, "list events of room %d", roomID)
	}
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

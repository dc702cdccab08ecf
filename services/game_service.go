package services

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"worldroom/catalog"
	"worldroom/geo"
	"worldroom/models"
	"worldroom/realtime"
	"worldroom/store"
)

const (
	roomCodeLength   = 6
	roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCodeAttempts  = 5
	maxNameLength    = 64
)

type GameService struct {
	store    store.Store
	catalog  *catalog.Catalog
	notifier realtime.Notifier
	cache    *StateCache
	timers   *gameTimers
	now      func() time.Time
}

type Option func(*GameService)

func WithStateCache(cache *StateCache) Option {
	return func(s *GameService) { s.cache = cache }
}

// WithTimerPolicy enables forced advancement when policy is TimerAdvance.
func WithTimerPolicy(policy TimerPolicy) Option {
	return func(s *GameService) {
		if policy == TimerAdvance {
			s.timers = newGameTimers(s.onGameExpired)
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *GameService) { s.now = now }
}

func NewGameService(st store.Store, cat *catalog.Catalog, notifier realtime.Notifier, opts ...Option) *GameService {
	if notifier == nil {
		notifier = realtime.NewBroker()
	}
	s := &GameService{
		store:    st,
		catalog:  cat,
		notifier: notifier,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close stops pending game timers.
func (s *GameService) Close() {
	if s.timers != nil {
		s.timers.stop()
	}
}

type CreateRoomRequest struct {
	HostName string `json:"host_name" binding:"required"`
	Name     string `json:"name"`
}

type JoinRoomRequest struct {
	Name string `json:"name" binding:"required"`
}

type CreateRoundRequest struct {
	Name               string `json:"name"`
	GamesPerRound      *int   `json:"games_per_round"`
	TimeLimitSeconds   *int   `json:"time_limit_seconds"`
	MaxAttemptsPerGame *int   `json:"max_attempts_per_game"`
}

// Config fills omitted fields with defaults. Explicit values, zero included,
// are kept so that validation sees them.
func (r *CreateRoundRequest) Config() models.RoundConfig {
	pick := func(v *int, def int) int {
		if v == nil {
			return def
		}
		return *v
	}
	return models.RoundConfig{
		Name:               strings.TrimSpace(r.Name),
		GamesPerRound:      pick(r.GamesPerRound, models.DefaultGamesPerRound),
		TimeLimitSeconds:   pick(r.TimeLimitSeconds, models.DefaultTimeLimitSeconds),
		MaxAttemptsPerGame: pick(r.MaxAttemptsPerGame, models.DefaultAttemptsPerGame),
	}
}

type SubmitGuessRequest struct {
	Guess string `json:"guess" binding:"required"`
}

type GuessResult struct {
	Guess          models.Guess            `json:"guess"`
	Arrow          string                  `json:"arrow"`
	Compass        string                  `json:"compass"`
	Status         models.PlayerGameStatus `json:"status"`
	AllPlayersDone bool                    `json:"all_players_done"`
}

func generateRoomCode() (string, error) {
	b := make([]byte, roomCodeLength)
	size := big.NewInt(int64(len(roomCodeAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		b[i] = roomCodeAlphabet[n.Int64()]
	}
	return string(b), nil
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", validationError("name must be at most %d characters", maxNameLength)
	}
	return name, nil
}

func idPtr(id uint) *uint { return &id }

func newEvent(roomID uint, typ string, payload map[string]interface{}) *models.Event {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte("{}")
	}
	return &models.Event{RoomID: roomID, Type: typ, Payload: datatypes.JSON(data), CreatedAt: time.Now()}
}

// changed drops the cached snapshot of room and wakes subscribers of the
// room topic and of any extra topics.
func (s *GameService) changed(ctx context.Context, room *models.Room, typ string, topics ...realtime.Topic) {
	s.cache.Invalidate(ctx, room.Code)
	now := s.now()
	for _, topic := range append([]realtime.Topic{realtime.RoomTopic(room.ID)}, topics...) {
		event := realtime.Event{Topic: topic, Type: typ, RoomID: room.ID, At: now}
		if err := s.notifier.Publish(ctx, event); err != nil {
			logrus.WithFields(logrus.Fields{
				"room_id": room.ID,
				"topic":   topic.String(),
				"event":   typ,
			}).WithError(err).Warn("Failed to publish change notification")
		}
	}
}

func (s *GameService) requireHost(ctx context.Context, st store.Store, room *models.Room, actorID uint) error {
	actor, err := st.GetPlayer(ctx, actorID)
	if err != nil {
		return storeError(err, ErrPlayerNotFound)
	}
	if actor.RoomID != room.ID {
		return ErrNotInRoom
	}
	if !actor.IsHost {
		return ErrNotHost
	}
	return nil
}

func (s *GameService) CreateRoom(ctx context.Context, hostName, roomName string) (*models.Room, *models.Player, error) {
	hostName, err := cleanName(hostName)
	if err != nil {
		return nil, nil, err
	}
	roomName = strings.TrimSpace(roomName)
	if roomName == "" {
		roomName = hostName + "'s room"
	}

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := generateRoomCode()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: generate room code: %v", ErrTransient, err)
		}
		now := s.now()
		room := &models.Room{Code: code, HostName: hostName, Name: roomName, Status: models.RoomWaiting}
		host := &models.Player{Name: hostName, IsHost: true, JoinedAt: now}

		err = s.store.Transaction(ctx, func(tx store.Store) error {
			if err := tx.CreateRoom(ctx, room); err != nil {
				return err
			}
			host.RoomID = room.ID
			if err := tx.CreatePlayer(ctx, host); err != nil {
				return err
			}
			return tx.AppendEvent(ctx, newEvent(room.ID, models.EventRoomCreated, map[string]interface{}{
				"code": room.Code,
				"host": host.Name,
			}))
		})
		if errors.Is(err, store.ErrDuplicate) {
			logrus.WithField("attempt", attempt).Warn("Room code collision, retrying")
			continue
		}
		if err != nil {
			return nil, nil, storeError(err, ErrRoomNotFound)
		}

		logrus.WithFields(logrus.Fields{
			"room_id":   room.ID,
			"room_code": room.Code,
			"player_id": host.ID,
		}).Info("Room created")
		return room, host, nil
	}
	return nil, nil, fmt.Errorf("%w: could not allocate a unique room code", ErrTransient)
}

func (s *GameService) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	room, err := s.store.GetRoomByCode(ctx, code)
	if err != nil {
		return nil, storeError(err, ErrRoomNotFound)
	}
	return room, nil
}

func (s *GameService) GetPlayer(ctx context.Context, playerID uint) (*models.Player, error) {
	player, err := s.store.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, storeError(err, ErrPlayerNotFound)
	}
	return player, nil
}

func (s *GameService) JoinRoom(ctx context.Context, code, name string) (*models.Room, *models.Player, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, nil, err
	}
	room, err := s.GetRoomByCode(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	if room.Status == models.RoomFinished {
		return nil, nil, ErrRoomFinished
	}

	player := &models.Player{RoomID: room.ID, Name: name, JoinedAt: s.now()}
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		if err := tx.CreatePlayer(ctx, player); err != nil {
			return err
		}
		e := newEvent(room.ID, models.EventPlayerJoined, map[string]interface{}{"name": name})
		e.PlayerID = idPtr(player.ID)
		return tx.AppendEvent(ctx, e)
	})
	if errors.Is(err, store.ErrDuplicate) {
		return nil, nil, ErrNameTaken
	}
	if err != nil {
		return nil, nil, storeError(err, ErrRoomNotFound)
	}

	logrus.WithFields(logrus.Fields{
		"room_id":   room.ID,
		"player_id": player.ID,
		"name":      name,
	}).Info("Player joined room")
	s.changed(ctx, room, models.EventPlayerJoined)
	return room, player, nil
}

func (s *GameService) CreateRound(ctx context.Context, roomID, actorID uint, cfg models.RoundConfig) (*models.Round, error) {
	cfg.Name = strings.TrimSpace(cfg.Name)
	if err := cfg.Validate(); err != nil {
		return nil, newError(ErrValidation, err.Error())
	}

	var room *models.Room
	round := &models.Round{
		RoomID:             roomID,
		Name:               cfg.Name,
		GamesPerRound:      cfg.GamesPerRound,
		TimeLimitSeconds:   cfg.TimeLimitSeconds,
		MaxAttemptsPerGame: cfg.MaxAttemptsPerGame,
		Status:             models.RoundWaiting,
	}
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		var err error
		if room, err = tx.GetRoom(ctx, roomID); err != nil {
			return storeError(err, ErrRoomNotFound)
		}
		if err := s.requireHost(ctx, tx, room, actorID); err != nil {
			return err
		}
		if room.Status == models.RoomFinished {
			return ErrRoomFinished
		}
		rounds, err := tx.ListRounds(ctx, roomID)
		if err != nil {
			return err
		}
		round.Number = 1
		if n := len(rounds); n > 0 {
			round.Number = rounds[n-1].Number + 1
		}
		if round.Name == "" {
			round.Name = fmt.Sprintf("Round %d", round.Number)
		}
		if err := tx.CreateRound(ctx, round); err != nil {
			return err
		}
		e := newEvent(roomID, models.EventRoundCreated, map[string]interface{}{
			"number":                round.Number,
			"games_per_round":       round.GamesPerRound,
			"time_limit_seconds":    round.TimeLimitSeconds,
			"max_attempts_per_game": round.MaxAttemptsPerGame,
		})
		e.RoundID = idPtr(round.ID)
		return tx.AppendEvent(ctx, e)
	})
	if err != nil {
		return nil, storeError(err, ErrRoomNotFound)
	}

	logrus.WithFields(logrus.Fields{
		"room_id":  roomID,
		"round_id": round.ID,
		"number":   round.Number,
	}).Info("Round created")
	s.changed(ctx, room, models.EventRoundCreated)
	return round, nil
}

// usedCountryCodes lists every target already drawn in the room.
func usedCountryCodes(ctx context.Context, st store.Store, roomID uint) ([]string, error) {
	rounds, err := st.ListRounds(ctx, roomID)
	if err != nil {
		return nil, err
	}
	var codes []string
	for _, r := range rounds {
		games, err := st.ListGames(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		for _, g := range games {
			codes = append(codes, g.CountryCode)
		}
	}
	return codes, nil
}

// drawGame creates game number of round with a target not yet used in the
// room.
func (s *GameService) drawGame(ctx context.Context, st store.Store, round *models.Round, number int, now time.Time) (*models.Game, error) {
	used, err := usedCountryCodes(ctx, st, round.RoomID)
	if err != nil {
		return nil, err
	}
	picks := s.catalog.RandomCountries(1, used...)
	if len(picks) == 0 {
		return nil, ErrCatalogExhausted
	}
	c := picks[0]
	game := &models.Game{
		RoundID:           round.ID,
		Number:            number,
		CountryCode:       c.Code,
		CountryName:       c.Name,
		CountryCapital:    c.Capital,
		CountryPopulation: c.Population,
		CountryArea:       c.Area,
		CountryContinent:  c.Continent,
		CountryLat:        c.Lat,
		CountryLon:        c.Lon,
		MaxAttempts:       round.MaxAttemptsPerGame,
		TimeLimitSeconds:  round.TimeLimitSeconds,
		StartedAt:         now,
	}
	if err := st.CreateGame(ctx, game); err != nil {
		return nil, err
	}
	e := newEvent(round.RoomID, models.EventGameStarted, map[string]interface{}{"number": number})
	e.RoundID, e.GameID = idPtr(round.ID), idPtr(game.ID)
	if err := st.AppendEvent(ctx, e); err != nil {
		return nil, err
	}
	return game, nil
}

func (s *GameService) StartRound(ctx context.Context, roundID, actorID uint) (*models.Round, error) {
	var (
		round *models.Round
		room  *models.Room
		first *models.Game
	)
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		var err error
		if round, err = tx.GetRound(ctx, roundID); err != nil {
			return storeError(err, ErrRoundNotFound)
		}
		if room, err = tx.GetRoom(ctx, round.RoomID); err != nil {
			return storeError(err, ErrRoomNotFound)
		}
		if err := s.requireHost(ctx, tx, room, actorID); err != nil {
			return err
		}
		if room.Status == models.RoomFinished {
			return ErrRoomFinished
		}
		if room.ActiveRoundID != nil && *room.ActiveRoundID != round.ID {
			return ErrRoundInProgress
		}

		now := s.now()
		next, err := round.Start(now)
		if err != nil {
			return err
		}
		if err := tx.UpdateRound(ctx, round, models.RoundWaiting, 0); err != nil {
			return err
		}

		started := newEvent(room.ID, models.EventRoundStarted, map[string]interface{}{"number": round.Number})
		started.RoundID = idPtr(round.ID)
		if err := tx.AppendEvent(ctx, started); err != nil {
			return err
		}

		switch next.(type) {
		case models.Active:
			if first, err = s.drawGame(ctx, tx, round, 1, now); err != nil {
				return err
			}
			room.ActiveRoundID = idPtr(round.ID)
			room.Status = models.RoomPlaying
			if err := tx.UpdateRoom(ctx, room); err != nil {
				return err
			}
		case models.Completed:
			done := newEvent(room.ID, models.EventRoundCompleted, map[string]interface{}{"number": round.Number, "games": 0})
			done.RoundID = idPtr(round.ID)
			if err := tx.AppendEvent(ctx, done); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err, ErrRoundNotFound)
	}

	logCtx := logrus.WithFields(logrus.Fields{
		"room_id":  room.ID,
		"round_id": round.ID,
		"status":   round.Status,
	})
	logCtx.Info("Round started")
	if first != nil {
		s.scheduleTimer(round.ID, first)
	}
	s.changed(ctx, room, models.EventRoundStarted, realtime.RoundTopic(round.ID))
	return round, nil
}

func playerStatus(playerID uint, guesses []models.Guess, maxAttempts int) models.PlayerGameStatus {
	st := models.PlayerGameStatus{PlayerID: playerID, Attempts: len(guesses)}
	for _, g := range guesses {
		if g.IsCorrect {
			st.Won = true
		}
	}
	st.Completed = st.Won || st.Attempts >= maxAttempts
	return st
}

func groupByPlayer(guesses []models.Guess) map[uint][]models.Guess {
	out := make(map[uint][]models.Guess)
	for _, g := range guesses {
		out[g.PlayerID] = append(out[g.PlayerID], g)
	}
	return out
}

// completionFlags reports for every player in the room whether they are done
// with game. Players who have not guessed yet count as not done.
func completionFlags(players []models.Player, guesses []models.Guess, maxAttempts int) (map[uint]bool, bool) {
	byPlayer := groupByPlayer(guesses)
	flags := make(map[uint]bool, len(players))
	all := true
	for _, p := range players {
		done := playerStatus(p.ID, byPlayer[p.ID], maxAttempts).Completed
		flags[p.ID] = done
		all = all && done
	}
	return flags, all
}

func (s *GameService) SubmitGuess(ctx context.Context, gameID, playerID uint, guessText string) (*GuessResult, error) {
	guessText = strings.TrimSpace(guessText)
	if guessText == "" {
		return nil, ErrEmptyGuess
	}
	country, ok := s.catalog.LookupByName(guessText)
	if !ok {
		return nil, ErrUnknownCountry
	}

	var (
		game   *models.Game
		round  *models.Round
		guess  *models.Guess
		status models.PlayerGameStatus
	)
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		var err error
		if game, err = tx.GetGame(ctx, gameID); err != nil {
			return storeError(err, ErrGameNotFound)
		}
		if round, err = tx.GetRound(ctx, game.RoundID); err != nil {
			return storeError(err, ErrRoundNotFound)
		}
		player, err := tx.GetPlayer(ctx, playerID)
		if err != nil {
			return storeError(err, ErrPlayerNotFound)
		}
		if player.RoomID != round.RoomID {
			return ErrNotInRoom
		}
		active, ok := round.State().(models.Active)
		if !ok || active.CurrentGame != game.Number || game.Ended() {
			return ErrGameNotCurrent
		}

		prior, err := tx.ListPlayerGuesses(ctx, game.ID, player.ID)
		if err != nil {
			return err
		}
		if playerStatus(player.ID, prior, game.MaxAttempts).Completed {
			return ErrAlreadyCompleted
		}
		for _, g := range prior {
			if g.CountryCode == country.Code {
				return ErrAlreadyGuessed
			}
		}

		attempt := len(prior) + 1
		result := geo.EvaluateGuess(country.Place(), game.Target())
		guess = &models.Guess{
			GameID:        game.ID,
			PlayerID:      player.ID,
			AttemptNumber: attempt,
			Guess:         country.Name,
			CountryCode:   country.Code,
			IsCorrect:     result.IsCorrect,
			Score:         geo.ComputeScore(attempt, result.IsCorrect),
			Distance:      result.Distance,
			Direction:     result.Direction,
			Proximity:     result.Proximity,
			SubmittedAt:   s.now(),
		}
		if err := tx.CreateGuess(ctx, guess); err != nil {
			return err
		}
		if guess.IsCorrect {
			if err := tx.IncrementPlayerScore(ctx, player.ID, guess.Score); err != nil {
				return err
			}
		}
		e := newEvent(round.RoomID, models.EventGuessSubmitted, map[string]interface{}{
			"attempt":    attempt,
			"is_correct": guess.IsCorrect,
			"score":      guess.Score,
		})
		e.RoundID, e.GameID, e.PlayerID = idPtr(round.ID), idPtr(game.ID), idPtr(player.ID)
		if err := tx.AppendEvent(ctx, e); err != nil {
			return err
		}
		status = playerStatus(player.ID, append(prior, *guess), game.MaxAttempts)
		return nil
	})
	if err != nil {
		err = storeError(err, ErrGameNotFound)
		if errors.Is(err, ErrConflict) {
			logrus.WithFields(logrus.Fields{
				"game_id":   gameID,
				"player_id": playerID,
			}).WithError(err).Warn("Guess rejected")
		}
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"game_id":    game.ID,
		"player_id":  playerID,
		"attempt":    guess.AttemptNumber,
		"is_correct": guess.IsCorrect,
	}).Info("Guess submitted")

	res := &GuessResult{
		Guess:   *guess,
		Arrow:   geo.DirectionArrow(guess.Direction),
		Compass: geo.Compass(guess.Direction),
		Status:  status,
	}
	if room, err := s.store.GetRoom(ctx, round.RoomID); err == nil {
		s.changed(ctx, room, models.EventGuessSubmitted, realtime.GameTopic(game.ID))
	}
	if _, all, err := s.allPlayersStatus(ctx, s.store, round.RoomID, game); err == nil {
		res.AllPlayersDone = all
	}
	return res, nil
}

func (s *GameService) allPlayersStatus(ctx context.Context, st store.Store, roomID uint, game *models.Game) (map[uint]bool, bool, error) {
	players, err := st.ListPlayers(ctx, roomID)
	if err != nil {
		return nil, false, err
	}
	guesses, err := st.ListGuesses(ctx, game.ID)
	if err != nil {
		return nil, false, err
	}
	flags, all := completionFlags(players, guesses, game.MaxAttempts)
	return flags, all, nil
}

// AdvanceGame ends the current game of an active round. The host may only
// advance once every player in the room is done with it.
func (s *GameService) AdvanceGame(ctx context.Context, roundID, actorID uint) (*models.Round, error) {
	return s.advance(ctx, roundID, actorID, 0, false)
}

// advance moves round past its current game. A forced advance skips the host
// and completion checks; expectGame, when non-zero, must still be current.
func (s *GameService) advance(ctx context.Context, roundID, actorID uint, expectGame int, force bool) (*models.Round, error) {
	var (
		round    *models.Round
		room     *models.Room
		ended    *models.Game
		nextGame *models.Game
	)
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		var err error
		if round, err = tx.GetRound(ctx, roundID); err != nil {
			return storeError(err, ErrRoundNotFound)
		}
		if room, err = tx.GetRoom(ctx, round.RoomID); err != nil {
			return storeError(err, ErrRoomNotFound)
		}
		if !force {
			if err := s.requireHost(ctx, tx, room, actorID); err != nil {
				return err
			}
		}
		active, ok := round.State().(models.Active)
		if !ok {
			return ErrRoundNotActive
		}
		if expectGame != 0 && active.CurrentGame != expectGame {
			return ErrStaleState
		}
		if ended, err = tx.GetGameByNumber(ctx, round.ID, active.CurrentGame); err != nil {
			return storeError(err, ErrGameNotFound)
		}
		if !force {
			_, all, err := s.allPlayersStatus(ctx, tx, room.ID, ended)
			if err != nil {
				return err
			}
			if !all {
				return ErrPlayersNotDone
			}
		}

		now := s.now()
		ended.EndedAt = &now
		if err := tx.UpdateGame(ctx, ended); err != nil {
			return err
		}
		next, err := round.Advance(now)
		if err != nil {
			return err
		}
		if err := tx.UpdateRound(ctx, round, models.RoundActive, active.CurrentGame); err != nil {
			return err
		}
		e := newEvent(room.ID, models.EventGameAdvanced, map[string]interface{}{
			"from":   active.CurrentGame,
			"forced": force,
		})
		e.RoundID, e.GameID = idPtr(round.ID), idPtr(ended.ID)
		if err := tx.AppendEvent(ctx, e); err != nil {
			return err
		}

		switch st := next.(type) {
		case models.Active:
			if nextGame, err = s.drawGame(ctx, tx, round, st.CurrentGame, now); err != nil {
				return err
			}
		case models.Completed:
			room.ActiveRoundID = nil
			room.Status = models.RoomWaiting
			if err := tx.UpdateRoom(ctx, room); err != nil {
				return err
			}
			done := newEvent(room.ID, models.EventRoundCompleted, map[string]interface{}{"number": round.Number})
			done.RoundID = idPtr(round.ID)
			if err := tx.AppendEvent(ctx, done); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err, ErrRoundNotFound)
	}

	logCtx := logrus.WithFields(logrus.Fields{
		"room_id":  room.ID,
		"round_id": round.ID,
		"game_id":  ended.ID,
		"forced":   force,
	})
	if nextGame != nil {
		logCtx.WithField("current_game", round.CurrentGame).Info("Advanced to next game")
		s.scheduleTimer(round.ID, nextGame)
	} else {
		logCtx.Info("Round completed")
		if s.timers != nil {
			s.timers.cancel(round.ID)
		}
	}
	s.changed(ctx, room, models.EventGameAdvanced, realtime.RoundTopic(round.ID), realtime.GameTopic(ended.ID))
	return round, nil
}

func (s *GameService) scheduleTimer(roundID uint, game *models.Game) {
	if s.timers == nil {
		return
	}
	s.timers.schedule(roundID, game.Number, time.Duration(game.TimeLimitSeconds)*time.Second)
}

func (s *GameService) onGameExpired(roundID uint, gameNumber int) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logCtx := logrus.WithFields(logrus.Fields{"round_id": roundID, "game_number": gameNumber})
	if _, err := s.advance(ctx, roundID, 0, gameNumber, true); err != nil {
		if errors.Is(err, ErrConflict) {
			logCtx.Debug("Game timer fired after the game had moved on")
			return
		}
		logCtx.WithError(err).Error("Failed to advance game on time limit")
		return
	}
	logCtx.Info("Game time limit reached, advanced")
}

func (s *GameService) FinishRoom(ctx context.Context, roomID, actorID uint) (*models.Room, error) {
	var room *models.Room
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		var err error
		if room, err = tx.GetRoom(ctx, roomID); err != nil {
			return storeError(err, ErrRoomNotFound)
		}
		if err := s.requireHost(ctx, tx, room, actorID); err != nil {
			return err
		}
		if room.Status == models.RoomFinished {
			return ErrRoomFinished
		}
		if room.ActiveRoundID != nil {
			return ErrRoundInProgress
		}
		room.Status = models.RoomFinished
		if err := tx.UpdateRoom(ctx, room); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, newEvent(room.ID, models.EventRoomFinished, nil))
	})
	if err != nil {
		return nil, storeError(err, ErrRoomNotFound)
	}

	logrus.WithField("room_id", room.ID).Info("Room finished")
	s.changed(ctx, room, models.EventRoomFinished)
	return room, nil
}

func (s *GameService) ListEvents(ctx context.Context, roomID uint, limit int) ([]models.Event, error) {
	events, err := s.store.ListEvents(ctx, roomID, limit)
	if err != nil {
		return nil, storeError(err, ErrRoomNotFound)
	}
	return events, nil
}

func (s *GameService) SearchCountries(query string, excludeNames []string) []catalog.Country {
	return s.catalog.Search(query, excludeNames)
}

// Package store is the datastore behind the game: CRUD per entity, ordered
// listings, an atomic score increment and transactional grouping.
package store

import (
	"context"
	"errors"

	"worldroom/models"
)

var (
	ErrNotFound  = errors.New("store: record not found")
	ErrDuplicate = errors.New("store: duplicate entry")
	// ErrStale is returned by conditional updates when the row no longer
	// matches the state the caller read.
	ErrStale = errors.New("store: row changed concurrently")
)

type Store interface {
	CreateRoom(ctx context.Context, room *models.Room) error
	GetRoom(ctx context.Context, id uint) (*models.Room, error)
	GetRoomByCode(ctx context.Context, code string) (*models.Room, error)
	UpdateRoom(ctx context.Context, room *models.Room) error

	CreatePlayer(ctx context.Context, player *models.Player) error
	GetPlayer(ctx context.Context, id uint) (*models.Player, error)
	// ListPlayers orders by total score, highest first, then by join time.
	ListPlayers(ctx context.Context, roomID uint) ([]models.Player, error)
	IncrementPlayerScore(ctx context.Context, playerID uint, delta int) error

	CreateRound(ctx context.Context, round *models.Round) error
	GetRound(ctx context.Context, id uint) (*models.Round, error)
	ListRounds(ctx context.Context, roomID uint) ([]models.Round, error)
	// UpdateRound writes round only if the stored row is still in
	// (fromStatus, fromGame); otherwise it returns ErrStale.
	UpdateRound(ctx context.Context, round *models.Round, fromStatus models.RoundStatus, fromGame int) error

	CreateGame(ctx context.Context, game *models.Game) error
	GetGame(ctx context.Context, id uint) (*models.Game, error)
	GetGameByNumber(ctx context.Context, roundID uint, number int) (*models.Game, error)
	ListGames(ctx context.Context, roundID uint) ([]models.Game, error)
	UpdateGame(ctx context.Context, game *models.Game) error

	CreateGuess(ctx context.Context, guess *models.Guess) error
	// ListGuesses returns a game's guesses in submission order.
	ListGuesses(ctx context.Context, gameID uint) ([]models.Guess, error)
	// ListPlayerGuesses returns one player's guesses ordered by attempt.
	ListPlayerGuesses(ctx context.Context, gameID, playerID uint) ([]models.Guess, error)

	AppendEvent(ctx context.Context, event *models.Event) error
	// ListEvents returns the newest limit events of a room, oldest first.
	ListEvents(ctx context.Context, roomID uint, limit int) ([]models.Event, error)

	// Transaction runs fn against a Store whose writes commit together, or
	// not at all when fn returns an error.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

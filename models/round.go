package models

import (
	"errors"
	"fmt"
	"time"
)

type RoundStatus string

const (
	RoundWaiting   RoundStatus = "waiting"
	RoundActive    RoundStatus = "active"
	RoundCompleted RoundStatus = "completed"
)

const (
	MinGamesPerRound    = 1
	MaxGamesPerRound    = 20
	MinAttemptsPerGame  = 1
	MaxAttemptsPerGame  = 10
	MinTimeLimitSeconds = 30
	MaxTimeLimitSeconds = 300

	DefaultGamesPerRound    = 5
	DefaultAttemptsPerGame  = 5
	DefaultTimeLimitSeconds = 120
)

var (
	ErrRoundNotWaiting = errors.New("round is not waiting")
	ErrRoundNotActive  = errors.New("round is not active")
)

// RoundConfig is fixed once the round is created.
type RoundConfig struct {
	Name               string `json:"name"`
	GamesPerRound      int    `json:"games_per_round"`
	TimeLimitSeconds   int    `json:"time_limit_seconds"`
	MaxAttemptsPerGame int    `json:"max_attempts_per_game"`
}

func (c RoundConfig) Validate() error {
	switch {
	case c.GamesPerRound < MinGamesPerRound || c.GamesPerRound > MaxGamesPerRound:
		return fmt.Errorf("games_per_round must be between %d and %d", MinGamesPerRound, MaxGamesPerRound)
	case c.MaxAttemptsPerGame < MinAttemptsPerGame || c.MaxAttemptsPerGame > MaxAttemptsPerGame:
		return fmt.Errorf("max_attempts_per_game must be between %d and %d", MinAttemptsPerGame, MaxAttemptsPerGame)
	case c.TimeLimitSeconds < MinTimeLimitSeconds || c.TimeLimitSeconds > MaxTimeLimitSeconds:
		return fmt.Errorf("time_limit_seconds must be between %d and %d", MinTimeLimitSeconds, MaxTimeLimitSeconds)
	}
	return nil
}

type Round struct {
	ID                 uint        `json:"id" gorm:"primaryKey"`
	RoomID             uint        `json:"room_id" gorm:"not null;uniqueIndex:idx_rounds_room_number"`
	Number             int         `json:"round_number" gorm:"not null;uniqueIndex:idx_rounds_room_number"`
	Name               string      `json:"name" gorm:"size:128"`
	GamesPerRound      int         `json:"games_per_round" gorm:"not null"`
	TimeLimitSeconds   int         `json:"time_limit_seconds" gorm:"not null"`
	MaxAttemptsPerGame int         `json:"max_attempts_per_game" gorm:"not null"`
	Status             RoundStatus `json:"status" gorm:"size:16;not null;default:'waiting'"`
	// CurrentGame is 1-based and only meaningful while active.
	CurrentGame int        `json:"current_game" gorm:"not null;default:0"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Relationships
	Games []Game `json:"games,omitempty" gorm:"foreignKey:RoundID"`
}

func (r *Round) Config() RoundConfig {
	return RoundConfig{
		Name:               r.Name,
		GamesPerRound:      r.GamesPerRound,
		TimeLimitSeconds:   r.TimeLimitSeconds,
		MaxAttemptsPerGame: r.MaxAttemptsPerGame,
	}
}

// RoundState is the lifecycle of a round. Exactly one of Waiting, Active or
// Completed; each carries only the fields valid in that state.
type RoundState interface {
	Status() RoundStatus
}

type Waiting struct{}

type Active struct {
	CurrentGame int
	StartedAt   time.Time
}

type Completed struct {
	StartedAt   time.Time
	CompletedAt time.Time
}

func (Waiting) Status() RoundStatus   { return RoundWaiting }
func (Active) Status() RoundStatus    { return RoundActive }
func (Completed) Status() RoundStatus { return RoundCompleted }

// State decodes the persisted columns.
func (r *Round) State() RoundState {
	var started, completed time.Time
	if r.StartedAt != nil {
		started = *r.StartedAt
	}
	if r.CompletedAt != nil {
		completed = *r.CompletedAt
	}
	switch r.Status {
	case RoundActive:
		return Active{CurrentGame: r.CurrentGame, StartedAt: started}
	case RoundCompleted:
		return Completed{StartedAt: started, CompletedAt: completed}
	default:
		return Waiting{}
	}
}

func (r *Round) setState(s RoundState) {
	switch st := s.(type) {
	case Waiting:
		r.Status = RoundWaiting
		r.CurrentGame = 0
		r.StartedAt = nil
		r.CompletedAt = nil
	case Active:
		started := st.StartedAt
		r.Status = RoundActive
		r.CurrentGame = st.CurrentGame
		r.StartedAt = &started
		r.CompletedAt = nil
	case Completed:
		started, completed := st.StartedAt, st.CompletedAt
		r.Status = RoundCompleted
		r.CurrentGame = 0
		r.StartedAt = &started
		r.CompletedAt = &completed
	}
}

// Start moves a waiting round to Active at game 1, or straight to Completed
// when the round has no games.
func (r *Round) Start(now time.Time) (RoundState, error) {
	if _, ok := r.State().(Waiting); !ok {
		return nil, ErrRoundNotWaiting
	}
	var next RoundState = Active{CurrentGame: 1, StartedAt: now}
	if r.GamesPerRound <= 0 {
		next = Completed{StartedAt: now, CompletedAt: now}
	}
	r.setState(next)
	return next, nil
}

// Advance moves an active round to its next game, or to Completed after the
// last one.
func (r *Round) Advance(now time.Time) (RoundState, error) {
	active, ok := r.State().(Active)
	if !ok {
		return nil, ErrRoundNotActive
	}
	var next RoundState = Active{CurrentGame: active.CurrentGame + 1, StartedAt: active.StartedAt}
	if active.CurrentGame >= r.GamesPerRound {
		next = Completed{StartedAt: active.StartedAt, CompletedAt: now}
	}
	r.setState(next)
	return next, nil
}

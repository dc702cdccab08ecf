package models

import (
	"time"
)

// PlayerGameStatus is one player's progress on one game.
type PlayerGameStatus struct {
	PlayerID  uint `json:"player_id"`
	Completed bool `json:"completed"`
	Won       bool `json:"won"`
	Attempts  int  `json:"attempts"`
}

// TargetCountry is only exposed once a game has ended.
type TargetCountry struct {
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	Capital    string  `json:"capital"`
	Population int64   `json:"population"`
	Area       float64 `json:"area"`
}

// GameView is a Game as seen by players.
type GameView struct {
	ID               uint           `json:"id"`
	RoundID          uint           `json:"round_id"`
	Number           int            `json:"game_number"`
	MaxAttempts      int            `json:"max_attempts"`
	TimeLimitSeconds int            `json:"time_limit_seconds"`
	StartedAt        time.Time      `json:"started_at"`
	EndedAt          *time.Time     `json:"ended_at,omitempty"`
	Target           *TargetCountry `json:"target,omitempty"`
}

func NewGameView(g *Game) *GameView {
	v := &GameView{
		ID:               g.ID,
		RoundID:          g.RoundID,
		Number:           g.Number,
		MaxAttempts:      g.MaxAttempts,
		TimeLimitSeconds: g.TimeLimitSeconds,
		StartedAt:        g.StartedAt,
		EndedAt:          g.EndedAt,
	}
	if g.Ended() {
		v.Target = &TargetCountry{
			Code:       g.CountryCode,
			Name:       g.CountryName,
			Capital:    g.CountryCapital,
			Population: g.CountryPopulation,
			Area:       g.CountryArea,
		}
	}
	return v
}

// RoomState is the full snapshot a client reloads.
type RoomState struct {
	Room             Room              `json:"room"`
	Players          []Player          `json:"players"`
	Rounds           []Round           `json:"rounds"`
	ActiveRound      *Round            `json:"active_round,omitempty"`
	CurrentGame      *GameView         `json:"current_game,omitempty"`
	MyGuesses        []Guess           `json:"my_guesses,omitempty"`
	MyStatus         *PlayerGameStatus `json:"my_status,omitempty"`
	AllPlayersStatus map[uint]bool     `json:"all_players_status,omitempty"`
	AllPlayersDone   bool              `json:"all_players_done"`
	FetchedAt        time.Time         `json:"fetched_at"`
}

// RoundStanding aggregates one player's results over one round.
type RoundStanding struct {
	RoundID        uint   `json:"round_id"`
	PlayerID       uint   `json:"player_id"`
	PlayerName     string `json:"player_name"`
	RoundScore     int    `json:"round_score"`
	GamesCompleted int    `json:"games_completed"`
	GamesWon       int    `json:"games_won"`
	TotalAttempts  int    `json:"total_attempts"`
	Rank           int    `json:"rank"`
}

type LeaderboardEntry struct {
	PlayerID   uint   `json:"player_id"`
	Name       string `json:"name"`
	TotalScore int    `json:"total_score"`
	IsHost     bool   `json:"is_host"`
	Rank       int    `json:"rank"`
}

package models

import (
	"time"

	"worldroom/geo"
)

// Game is one target country inside a round. The country fields are a
// snapshot taken when the game was created.
type Game struct {
	ID                uint       `json:"id" gorm:"primaryKey"`
	RoundID           uint       `json:"round_id" gorm:"not null;uniqueIndex:idx_games_round_number"`
	Number            int        `json:"game_number" gorm:"not null;uniqueIndex:idx_games_round_number"`
	CountryCode       string     `json:"country_code" gorm:"size:2;not null"`
	CountryName       string     `json:"country_name" gorm:"size:128;not null"`
	CountryCapital    string     `json:"country_capital" gorm:"size:128"`
	CountryPopulation int64      `json:"country_population"`
	CountryArea       float64    `json:"country_area"`
	CountryContinent  string     `json:"country_continent" gorm:"size:32"`
	CountryLat        float64    `json:"country_latitude"`
	CountryLon        float64    `json:"country_longitude"`
	MaxAttempts       int        `json:"max_attempts" gorm:"not null"`
	TimeLimitSeconds  int        `json:"time_limit_seconds"`
	StartedAt         time.Time  `json:"started_at" gorm:"not null"`
	EndedAt           *time.Time `json:"ended_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	// Relationships
	Guesses []Guess `json:"guesses,omitempty" gorm:"foreignKey:GameID"`
}

func (g *Game) Target() geo.Place {
	return geo.Place{Code: g.CountryCode, Point: geo.Point{Lat: g.CountryLat, Lon: g.CountryLon}}
}

func (g *Game) Ended() bool { return g.EndedAt != nil }

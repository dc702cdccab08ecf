package models

import (
	"time"
)

// Guess is an append-only record. (GameID, PlayerID, AttemptNumber) is unique.
type Guess struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	GameID        uint      `json:"game_id" gorm:"not null;uniqueIndex:idx_guesses_attempt"`
	PlayerID      uint      `json:"player_id" gorm:"not null;uniqueIndex:idx_guesses_attempt;index"`
	AttemptNumber int       `json:"attempt_number" gorm:"not null;uniqueIndex:idx_guesses_attempt"`
	Guess         string    `json:"guess" gorm:"size:128;not null"`
	CountryCode   string    `json:"country_code" gorm:"size:2;not null"`
	IsCorrect     bool      `json:"is_correct" gorm:"not null"`
	Score         int       `json:"score" gorm:"not null"`
	Distance      int       `json:"distance" gorm:"not null"`
	Direction     float64   `json:"direction" gorm:"not null"`
	Proximity     int       `json:"proximity" gorm:"not null"`
	SubmittedAt   time.Time `json:"submitted_at" gorm:"not null"`
}

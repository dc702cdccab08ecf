package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	EventRoomCreated    = "room_created"
	EventPlayerJoined   = "player_joined"
	EventRoundCreated   = "round_created"
	EventRoundStarted   = "round_started"
	EventGameStarted    = "game_started"
	EventGuessSubmitted = "guess_submitted"
	EventGameAdvanced   = "game_advanced"
	EventRoundCompleted = "round_completed"
	EventRoomFinished   = "room_finished"
)

// Event is the audit trail of room transitions.
type Event struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	RoomID    uint           `json:"room_id" gorm:"index;not null"`
	RoundID   *uint          `json:"round_id,omitempty" gorm:"index"`
	GameID    *uint          `json:"game_id,omitempty" gorm:"index"`
	PlayerID  *uint          `json:"player_id,omitempty" gorm:"index"`
	Type      string         `json:"type" gorm:"size:64;not null"`
	Payload   datatypes.JSON `json:"payload"`
	CreatedAt time.Time      `json:"created_at" gorm:"not null"`
}

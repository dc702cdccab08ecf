package models

import (
	"time"
)

type Player struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	RoomID     uint      `json:"room_id" gorm:"not null;uniqueIndex:idx_players_room_name"`
	Name       string    `json:"name" gorm:"size:64;not null;uniqueIndex:idx_players_room_name"`
	TotalScore int       `json:"total_score" gorm:"not null;default:0"`
	IsHost     bool      `json:"is_host" gorm:"not null;default:false"`
	JoinedAt   time.Time `json:"joined_at" gorm:"not null"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

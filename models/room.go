package models

import (
	"time"

	"gorm.io/gorm"
)

type RoomStatus string

const (
	RoomWaiting  RoomStatus = "waiting"
	RoomPlaying  RoomStatus = "playing"
	RoomFinished RoomStatus = "finished"
)

type Room struct {
	ID       uint       `json:"id" gorm:"primaryKey"`
	Code     string     `json:"code" gorm:"size:12;uniqueIndex;not null"`
	HostName string     `json:"host_name" gorm:"size:64;not null"`
	Name     string     `json:"name" gorm:"size:128"`
	Status   RoomStatus `json:"status" gorm:"size:16;not null;default:'waiting'"`
	// ActiveRoundID is a lookup shortcut, not ownership.
	ActiveRoundID *uint          `json:"active_round_id,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Players []Player `json:"players,omitempty" gorm:"foreignKey:RoomID"`
	Rounds  []Round  `json:"rounds,omitempty" gorm:"foreignKey:RoomID"`
}

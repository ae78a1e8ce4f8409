package domain

import "time"

// RoomID is the externally chosen namespace of a room.
type RoomID string

const MaxRoomIDLen = 64

// SessionSummary is what gets recorded to the analytics sink when a
// discussion ends. Fire-and-forget; nothing in the live path reads it back.
type SessionSummary struct {
	RoomID       RoomID    `json:"roomId"`
	Topic        string    `json:"topic"`
	Rounds       int       `json:"rounds"`
	Participants int       `json:"participants"`
	StartedAt    time.Time `json:"startedAt"`
	EndedAt      time.Time `json:"endedAt"`
	Duration     int64     `json:"durationSeconds"`
}

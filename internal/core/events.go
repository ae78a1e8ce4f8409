package core

import (
	"encoding/json"

	"github.com/dkeye/roundtable/internal/domain"
	"github.com/rs/zerolog/log"
)

// Outbound event envelopes. Every server→client message carries a "type"
// discriminator, same shape the gateway uses for inbound dispatch.

type RosterChanged struct {
	Type         string               `json:"type"`
	Participants []domain.Participant `json:"participants"`
}

type DiscussionStarted struct {
	Type     string             `json:"type"`
	Topic    domain.Topic       `json:"topic"`
	Speaker  domain.Participant `json:"speaker"`
	Duration int                `json:"turnDurationSeconds"`
}

type SpeakerChanged struct {
	Type          string             `json:"type"`
	Speaker       domain.Participant `json:"speaker"`
	TimeRemaining int                `json:"timeRemaining"`
	Round         int                `json:"round"`
}

type TickEvent struct {
	Type          string `json:"type"`
	TimeRemaining int    `json:"timeRemaining"`
}

type DiscussionEnded struct {
	Type string `json:"type"`
}

type RoleChanged struct {
	Type         string               `json:"type"`
	Identity     domain.Identity      `json:"identity"`
	Role         domain.Role          `json:"newRole"`
	Participants []domain.Participant `json:"participants"`
}

const (
	EvRosterChanged     = "roster-changed"
	EvDiscussionStarted = "discussion-started"
	EvSpeakerChanged    = "speaker-changed"
	EvTick              = "tick"
	EvDiscussionEnded   = "discussion-ended"
	EvRoleChanged       = "role-changed"
)

func encode(v any) (Frame, bool) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "core").Msg("event marshal")
		return nil, false
	}
	return Frame(b), true
}

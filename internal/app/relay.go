package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/roundtable/internal/core"
	"github.com/dkeye/roundtable/internal/domain"
)

// Signaling kinds relayed between peers. The payload is opaque; this
// server never interprets SDP or ICE content.
const (
	KindOffer     = "offer"
	KindAnswer    = "answer"
	KindCandidate = "candidate"
)

// SignalRelayed is the envelope a relayed message arrives in, tagged with
// the sender's transport address so the recipient can answer.
type SignalRelayed struct {
	Type    string          `json:"type"`
	Kind    string          `json:"kind"`
	From    domain.Addr     `json:"from"`
	Payload json.RawMessage `json:"payload"`
}

const EvSignalRelayed = "signal-relayed"

// Relay forwards a signaling payload to the destination transport, if it
// is currently connected. An absent destination drops the message
// silently: retry and timeout live on the sender side, which suits
// ephemeral audio setup. No room state is consulted or held.
func (o *Orchestrator) Relay(from domain.Addr, kind string, to domain.Addr, payload json.RawMessage) {
	conn, ok := o.Registry.Conn(to)
	if !ok {
		log.Debug().Str("module", "app.relay").Str("kind", kind).
			Str("to", string(to)).Msg("destination not connected, dropped")
		return
	}
	frame, err := json.Marshal(SignalRelayed{
		Type:    EvSignalRelayed,
		Kind:    kind,
		From:    from,
		Payload: payload,
	})
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Msg("relay marshal")
		return
	}
	if err := conn.TrySend(core.Frame(frame)); err != nil {
		log.Debug().Str("module", "app.relay").Str("to", string(to)).Msg("relay backpressure, dropped")
	}
}

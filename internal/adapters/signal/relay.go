package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/roundtable/internal/domain"
)

// handleRelay forwards offer/answer/candidate payloads. The payload stays
// opaque end to end; only the destination address is looked at here. No
// reply on the happy path and none on a missing destination either.
func (ctl *Controller) handleRelay(addr domain.Addr, kind string, data []byte) {
	var p struct {
		Type    string          `json:"type"`
		To      string          `json:"to" validate:"required,max=64"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("kind", kind).Msg("bad signal payload")
		return
	}
	if err := ctl.validate.Struct(&p); err != nil {
		log.Warn().Str("module", "signal").Str("kind", kind).Msg("signal without destination")
		return
	}
	ctl.Orch.Relay(addr, kind, domain.Addr(p.To), p.Payload)
}

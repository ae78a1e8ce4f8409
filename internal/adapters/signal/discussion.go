package signal

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/roundtable/internal/core"
	"github.com/dkeye/roundtable/internal/domain"
)

// handleAdvance ends the current turn early. Deliberately not restricted
// to the current speaker.
func (ctl *Controller) handleAdvance(addr domain.Addr, conn *WsSignalConn) {
	log.Info().Str("module", "signal").Str("addr", string(addr)).Msg("advance turn")
	err := ctl.Orch.Advance(addr)
	switch {
	case err == nil:
	case errors.Is(err, core.ErrNotActive):
		ctl.sendError(conn, "NOT_ACTIVE", err.Error())
	case errors.Is(err, core.ErrNotInRoom):
		ctl.sendError(conn, "NOT_IN_ROOM", err.Error())
	default:
		ctl.sendError(conn, "BAD_PAYLOAD", err.Error())
	}
}

package signal

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/roundtable/internal/core"
	"github.com/dkeye/roundtable/internal/domain"
)

func (ctl *Controller) handleSetReady(addr domain.Addr, conn *WsSignalConn, data []byte) {
	var p struct {
		Type  string `json:"type"`
		Ready *bool  `json:"ready"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad set-ready payload")
		ctl.sendError(conn, "BAD_PAYLOAD", "malformed set-ready")
		return
	}
	ready := true
	if p.Ready != nil {
		ready = *p.Ready
	}
	if err := ctl.Orch.SetReady(addr, ready); err != nil {
		ctl.sendError(conn, "NOT_IN_ROOM", err.Error())
	}
}

func (ctl *Controller) handleChangeRole(addr domain.Addr, conn *WsSignalConn, data []byte) {
	var p struct {
		Type     string `json:"type"`
		Identity string `json:"identity" validate:"omitempty,max=64"`
		Role     string `json:"role" validate:"required"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad change-role payload")
		ctl.sendErrorAs(conn, "role-error", "BAD_PAYLOAD", "malformed change-role")
		return
	}
	if err := ctl.validate.Struct(&p); err != nil {
		ctl.sendErrorAs(conn, "role-error", "INVALID_ROLE", "role required")
		return
	}
	role, err := domain.ParseRole(p.Role)
	if err != nil {
		ctl.sendErrorAs(conn, "role-error", "INVALID_ROLE", err.Error())
		return
	}

	err = ctl.Orch.ChangeRole(addr, domain.Identity(p.Identity), role)
	switch {
	case err == nil:
		// Success is announced by the role-changed broadcast.
	case errors.Is(err, core.ErrCapacity):
		ctl.sendErrorAs(conn, "role-error", "CAPACITY_EXCEEDED", err.Error())
	case errors.Is(err, core.ErrNotInRoom):
		ctl.sendErrorAs(conn, "role-error", "NOT_IN_ROOM", err.Error())
	default:
		ctl.sendErrorAs(conn, "role-error", "BAD_PAYLOAD", err.Error())
	}
}

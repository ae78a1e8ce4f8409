package signal

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/roundtable/internal/domain"
)

func (ctl *Controller) handleHello(addr domain.Addr, conn *WsSignalConn, data []byte) {
	var p struct {
		Type     string `json:"type"`
		Identity string `json:"identity" validate:"required,max=64"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad hello payload")
		ctl.sendError(conn, "BAD_PAYLOAD", "malformed hello")
		return
	}
	if err := ctl.validate.Struct(&p); err != nil {
		ctl.sendError(conn, "BAD_PAYLOAD", "invalid identity")
		return
	}
	if err := ctl.Orch.Hello(addr, domain.Identity(p.Identity)); err != nil {
		ctl.sendError(conn, "BAD_PAYLOAD", err.Error())
		return
	}
	ctl.handleWhoAmI(addr, conn)
}

func (ctl *Controller) handleJoin(addr domain.Addr, conn *WsSignalConn, data []byte) {
	var p struct {
		Type     string `json:"type"`
		Room     string `json:"room" validate:"required,max=64"`
		Identity string `json:"identity" validate:"omitempty,max=64"`
		Name     string `json:"name" validate:"omitempty,max=36"`
		Role     string `json:"role" validate:"omitempty,oneof=speaker listener"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendErrorAs(conn, "join-error", "BAD_PAYLOAD", "malformed join")
		return
	}
	if err := ctl.validate.Struct(&p); err != nil {
		ctl.sendErrorAs(conn, "join-error", "BAD_PAYLOAD", "invalid join fields")
		return
	}

	role := domain.RoleListener
	if p.Role != "" {
		role, _ = domain.ParseRole(p.Role)
	}

	log.Info().Str("module", "signal").Str("addr", string(addr)).Str("room", p.Room).Msg("join")
	_, err := ctl.Orch.Join(addr, domain.RoomID(p.Room), domain.Identity(p.Identity), p.Name, role)
	if err != nil {
		code := "BAD_PAYLOAD"
		if errors.Is(err, domain.ErrIdentityEmpty) {
			code = "INVALID_IDENTITY"
		}
		ctl.sendErrorAs(conn, "join-error", code, err.Error())
		return
	}
	// The roster broadcast from the room reaches the joiner too; no
	// separate ack needed.
}

func (ctl *Controller) handleLeave(addr domain.Addr, conn *WsSignalConn) {
	log.Info().Str("module", "signal").Str("addr", string(addr)).Msg("leave")
	ctl.Orch.Leave(addr)
	ctl.sendJSON(conn, map[string]any{"type": "left"})
}

func (ctl *Controller) handleWhoAmI(addr domain.Addr, conn *WsSignalConn) {
	resp := struct {
		Type     string          `json:"type"`
		Addr     domain.Addr     `json:"addr"`
		Identity domain.Identity `json:"identity,omitempty"`
		Room     domain.RoomID   `json:"room,omitempty"`
	}{
		Type: "whoami",
		Addr: addr,
	}
	if id, ok := ctl.Orch.Registry.Identity(addr); ok {
		resp.Identity = id
	}
	if roomID, ok := ctl.Orch.Registry.RoomOf(addr); ok {
		resp.Room = roomID
	}
	ctl.sendJSON(conn, resp)
}

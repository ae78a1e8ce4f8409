// Package signal is the event gateway: one WebSocket per participant,
// JSON envelopes dispatched by type into the orchestrator.
package signal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/roundtable/internal/app"
	"github.com/dkeye/roundtable/internal/config"
	"github.com/dkeye/roundtable/internal/core"
	"github.com/dkeye/roundtable/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

type Controller struct {
	Orch     *app.Orchestrator
	Cfg      *config.Config
	validate *validator.Validate
}

func NewController(orch *app.Orchestrator, cfg *config.Config) *Controller {
	return &Controller{
		Orch:     orch,
		Cfg:      cfg,
		validate: validator.New(),
	}
}

// WsSignalConn wraps one websocket with a buffered send channel. Sends
// never block: a full channel drops the frame with ErrBackpressure.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the connection and binds a fresh transport
// address. The address is per-connection; a reconnect gets a new one and
// re-claims its identity through the hello handshake (or the client-token
// cookie as fallback).
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	addr := domain.Addr(uuid.NewString())
	log.Info().Str("module", "signal").Str("addr", string(addr)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}

	ctx, cancel := context.WithCancel(ctx)
	ctl.Orch.Registry.Bind(addr, conn, cancel)
	if token := c.GetString("client_token"); token != "" {
		ctl.Orch.Registry.SetIdentity(addr, domain.Identity(token))
	}

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, addr, conn)
}

func (ctl *Controller) handleEvent(addr domain.Addr, c *WsSignalConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendError(c, "BAD_PAYLOAD", "malformed event")
		return
	}

	switch env.Type {
	case "hello":
		ctl.handleHello(addr, c, data)
	case "join":
		ctl.handleJoin(addr, c, data)
	case "leave":
		ctl.handleLeave(addr, c)
	case "set-ready":
		ctl.handleSetReady(addr, c, data)
	case "change-role":
		ctl.handleChangeRole(addr, c, data)
	case "advance-turn":
		ctl.handleAdvance(addr, c)
	case app.KindOffer, app.KindAnswer, app.KindCandidate:
		ctl.handleRelay(addr, env.Type, data)
	case "ping":
		ctl.handlePing(c)
	case "whoami":
		ctl.handleWhoAmI(addr, c)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown event")
	}
}

func (ctl *Controller) sendJSON(c *WsSignalConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(core.Frame(b))
}

type errorEvent struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// sendError replies to the sender only; validation and capacity errors are
// never broadcast.
func (ctl *Controller) sendError(c *WsSignalConn, code, msg string) {
	ctl.sendJSON(c, errorEvent{Type: "error", Code: code, Message: msg})
}

func (ctl *Controller) sendErrorAs(c *WsSignalConn, event, code, msg string) {
	ctl.sendJSON(c, errorEvent{Type: event, Code: code, Message: msg})
}

// Package protocol implements the control-plane codec and the router that
// dispatches inbound frames against a registry.Registry according to each
// connection's current state, which the router reads from the registry
// itself rather than tracking a parallel copy.
package protocol

import (
	"errors"
	"io"
	"log/slog"

	"github.com/vldr/Relay/internal/registry"
)

// Router is the behavioral heart of the relay: it validates and dispatches
// every inbound frame from a connection against the Registry, and emits
// frames back through the affected connections' Handles.
type Router struct {
	reg *registry.Registry
	log *slog.Logger
}

// New builds a Router over reg. log may be nil, in which case diagnostics
// are discarded.
func New(reg *registry.Registry, log *slog.Logger) *Router {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Router{reg: reg, log: log}
}

// HandleText dispatches one text frame. conn's state (Outside vs. Inside a
// room) is read directly from the registry: control frames are only
// meaningful from Outside, and are silently dropped while Inside.
func (rt *Router) HandleText(conn registry.Handle, data []byte) {
	if _, _, inside := rt.reg.Lookup(conn); inside {
		// create/join while already in a room: silent drop, reference behavior.
		return
	}

	kind, err := parseEnvelope(data)
	if err != nil {
		return
	}

	switch kind {
	case "create":
		rt.handleCreate(conn, data)
	case "join":
		rt.handleJoin(conn, data)
	default:
		// unknown type: silent drop.
	}
}

func (rt *Router) handleCreate(conn registry.Handle, data []byte) {
	req, err := parseCreate(data, registry.DefaultCapacity)
	if err != nil {
		return
	}

	id, err := rt.reg.CreateRoom(conn, req.Size)
	if err != nil {
		rt.sendError(conn, err)
		return
	}
	conn.SendText(encodeCreateAck(id))
}

func (rt *Router) handleJoin(conn registry.Handle, data []byte) {
	req, ok := parseJoin(data)
	if !ok {
		return
	}

	_, priorSize, notify, err := rt.reg.JoinRoom(conn, req.ID)
	if err != nil {
		rt.sendError(conn, err)
		return
	}

	conn.SendText(encodeJoinAck(priorSize))
	frame := encodeJoinNotify()
	for _, peer := range notify {
		peer.SendText(frame)
	}
}

// sendError translates a registry error into the wire error code, if one
// exists. ErrAlreadyInRoom has no wire representation: it is always a
// silent drop.
func (rt *Router) sendError(conn registry.Handle, err error) {
	var code string
	switch {
	case errors.Is(err, registry.ErrInvalidSize):
		code = "InvalidSize"
	case errors.Is(err, registry.ErrAlreadyExists):
		code = "AlreadyExists"
	case errors.Is(err, registry.ErrDoesNotExist):
		code = "DoesNotExist"
	case errors.Is(err, registry.ErrIsFull):
		code = "IsFull"
	default:
		return
	}
	rt.log.Debug("protocol error", "code", code)
	conn.SendText(encodeError(code))
}

// HandleBinary routes one binary frame per the data-plane spec: byte 0 is
// the routing header, bytes 1..N are opaque payload. A connection outside
// any room, a zero-length frame, or an out-of-range unicast index are all
// silent drops.
func (rt *Router) HandleBinary(conn registry.Handle, data []byte) {
	if len(data) == 0 {
		return
	}

	senderIndex, recipients, ok := rt.reg.ResolveRoute(conn, data[0])
	if !ok {
		return
	}

	data[0] = byte(senderIndex)
	for _, peer := range recipients {
		peer.SendBinary(data)
	}
}

// HandleClose runs disconnect reconciliation for conn. If conn was in a room
// that survives (did not become empty), every remaining member is sent a
// leave notification carrying conn's former index.
func (rt *Router) HandleClose(conn registry.Handle) {
	_, index, remaining, ok := rt.reg.HandleDisconnect(conn)
	if !ok {
		return
	}
	if len(remaining) == 0 {
		return
	}

	frame := encodeLeave(index)
	for _, peer := range remaining {
		peer.SendText(frame)
	}
}

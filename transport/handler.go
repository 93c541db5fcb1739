// Package transport implements pouch's per-connection request pipeline
// (spec.md §4.F): decode a frame into a message.Command, dispatch it
// through core.Engine, and encode the resulting message.Response back onto
// the wire. Handler is framing-agnostic; TCPServer and WSServer each
// supply their own framing and share the same Handler.
package transport

import (
	"encoding/json"

	"github.com/mshaverdo/pouch/core"
	"github.com/mshaverdo/pouch/message"
)

// Handler decodes one frame, applies it to an Engine, and encodes the
// response. Grounded on
// original_source/server/src/handlers/{tcp,ws}.rs's shared
// Command::from_json -> db.cmd -> Response::to_json sequence.
type Handler struct {
	engine *core.Engine
	wal    core.WALWriter
}

// NewHandler returns a Handler dispatching through engine, logging
// mutating commands to wal before they are applied.
func NewHandler(engine *core.Engine, wal core.WALWriter) *Handler {
	return &Handler{engine: engine, wal: wal}
}

// Handle decodes frame as a message.Command, applies it, and returns the
// encoded message.Response along with whether the caller must now tear the
// connection down (spec.md §4.F: a WAL write failure is fatal). A frame
// that fails to decode as a command yields an UnknownCommand response
// rather than a fatal error, matching the original handlers' behavior of
// logging the parse error and replying instead of dropping the
// connection.
func (h *Handler) Handle(frame []byte) (encoded []byte, fatal bool) {
	var cmd message.Command
	if err := json.Unmarshal(frame, &cmd); err != nil {
		return encodeResponse(message.NewErrorResponse(message.ErrUnknownCommand)), false
	}

	resp := h.engine.Apply(cmd, h.wal)
	return encodeResponse(resp), resp.IsFatal()
}

func encodeResponse(resp message.Response) []byte {
	encoded, err := json.Marshal(resp)
	if err != nil {
		// Response.MarshalJSON only fails on a kind this package never
		// constructs; surfacing it as UnknownCommand keeps the wire
		// contract rather than panicking mid-connection.
		encoded, _ = json.Marshal(message.NewErrorResponse(message.ErrUnknownCommand))
	}
	return encoded
}

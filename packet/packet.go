// Package packet holds the contracts shared between the bridge's dispatch
// layer and the per-kind wire decoders: the Packet and ModulePacket
// interfaces, the span reader/writer, the unknown-kind fallbacks, and a small
// builtin codec covering the packet kinds the bridge itself forwards into
// higher-level events.
package packet

import (
	"github.com/terralith-games/bridge/types"
)

// DecodeContext carries the direction flag every decode needs: some payload
// fields exist only when the engine is the sender, others only when it is the
// receiver.
type DecodeContext struct {
	From types.Direction
}

// Packet is a decoded primary-kind payload. ReadBody reads the body starting
// one byte past the kind identifier and must consume the reader exactly; the
// dispatch layer treats leftover bytes as an invariant violation, not user
// error.
type Packet interface {
	Kind() types.PacketKind
	ReadBody(r *SpanReader, ctx DecodeContext) error
}

// ModulePacket is a decoded secondary-kind payload carried inside the
// extended container packet. ReadBody starts after the 2-byte module id.
type ModulePacket interface {
	Module() types.ModuleKind
	ReadBody(r *SpanReader, ctx DecodeContext) error
}

// Unknown preserves the raw bytes and kind id of a primary kind with no
// declared decoder. It is the one payload type built directly from the raw
// span instead of through ReadBody, so undeclared traffic passes through
// without crashing.
type Unknown struct {
	KindID types.PacketKind
	Body   []byte
}

// NewUnknown captures span, which begins at the kind byte.
func NewUnknown(kind types.PacketKind, span []byte) *Unknown {
	body := make([]byte, 0)
	if len(span) > 1 {
		body = append(body, span[1:]...)
	}
	return &Unknown{KindID: kind, Body: body}
}

func (u *Unknown) Kind() types.PacketKind { return u.KindID }

func (u *Unknown) ReadBody(r *SpanReader, _ DecodeContext) error {
	u.Body = r.Rest()
	return r.Err()
}

// UnknownModule is the secondary-space analog of Unknown.
type UnknownModule struct {
	ModuleID types.ModuleKind
	Body     []byte
}

// NewUnknownModule captures span, which begins at the 2-byte module id.
func NewUnknownModule(module types.ModuleKind, span []byte) *UnknownModule {
	body := make([]byte, 0)
	if len(span) > 2 {
		body = append(body, span[2:]...)
	}
	return &UnknownModule{ModuleID: module, Body: body}
}

func (u *UnknownModule) Module() types.ModuleKind { return u.ModuleID }

func (u *UnknownModule) ReadBody(r *SpanReader, _ DecodeContext) error {
	u.Body = r.Rest()
	return r.Err()
}

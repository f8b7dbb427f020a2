// Package dispatch builds the dense handler tables that route raw frames to
// typed decoders. All table construction happens once at startup; per-frame
// lookup is a direct array index with no type inspection.
package dispatch

import (
	"github.com/rotisserie/eris"

	"github.com/terralith-games/bridge/packet"
	"github.com/terralith-games/bridge/types"
)

const (
	// PrimaryTableSize covers the full 8-bit primary kind space.
	PrimaryTableSize = 256

	// SecondaryTableSize bounds the dense module-kind tables. Module kinds are
	// nominally 16-bit but the engine declares only a few dozen; wire values at
	// or beyond this bound resolve to the unknown fallback without a table hit.
	SecondaryTableSize = 1024
)

// ErrLengthMismatch marks a decode that did not consume its span exactly. It
// indicates the codec and the dispatch tables are out of sync with the engine,
// never a runtime user error.
var ErrLengthMismatch = eris.New("decoded body length mismatch")

// Handler routes one raw span: decode, publish, report the listeners'
// cancellation verdict. For primary kinds the span begins at the kind byte;
// for secondary kinds it begins at the 2-byte module id.
type Handler func(origin int, span []byte) (cancelled bool, err error)

// Sink receives decoded payloads from handlers and reports whether listeners
// cancelled the resulting event. The bridge implements it by publishing
// structured events.
type Sink interface {
	InboundPacket(origin int, p packet.Packet) bool
	OutboundPacket(remote int, p packet.Packet) bool
	InboundModule(origin int, m packet.ModulePacket) bool
	OutboundModule(remote int, m packet.ModulePacket) bool
}

// Tables holds the four dense dispatch tables. Immutable after Build; lookups
// are lock-free.
type Tables struct {
	inPrimary    [PrimaryTableSize]Handler
	outPrimary   [PrimaryTableSize]Handler
	inSecondary  [SecondaryTableSize]Handler
	outSecondary [SecondaryTableSize]Handler

	declaredPrimary   [PrimaryTableSize]bool
	declaredSecondary [SecondaryTableSize]bool

	unknownInSecondary  Handler
	unknownOutSecondary Handler
}

// Build constructs the tables from the codec's declared enumerators. Every
// undeclared offset is filled with the unknown-kind fallback first, then each
// declared kind gets a monomorphic handler bound to its constructor and
// direction. A declared kind whose constructor yields nil, a duplicate
// declaration, or a module kind outside the table bound is a fatal
// configuration error.
func Build(codec packet.Codec, sink Sink) (*Tables, error) {
	if codec == nil {
		return nil, eris.New("codec must not be nil")
	}
	if sink == nil {
		return nil, eris.New("sink must not be nil")
	}

	t := &Tables{}
	for k := 0; k < PrimaryTableSize; k++ {
		kind := types.PacketKind(k)
		t.inPrimary[k] = unknownPrimaryHandler(kind, sink.InboundPacket)
		t.outPrimary[k] = unknownPrimaryHandler(kind, sink.OutboundPacket)
	}
	t.unknownInSecondary = unknownSecondaryHandler(sink.InboundModule)
	t.unknownOutSecondary = unknownSecondaryHandler(sink.OutboundModule)
	for m := 0; m < SecondaryTableSize; m++ {
		t.inSecondary[m] = t.unknownInSecondary
		t.outSecondary[m] = t.unknownOutSecondary
	}

	for _, kind := range codec.PrimaryKinds() {
		if t.declaredPrimary[kind] {
			return nil, eris.Errorf("primary kind %d declared twice", kind)
		}
		if codec.NewPrimary(kind) == nil {
			return nil, eris.Errorf("primary kind %d has no payload constructor", kind)
		}
		kind := kind
		newFn := func() packet.Packet { return codec.NewPrimary(kind) }
		t.inPrimary[kind] = primaryHandler(kind, newFn, types.FromClient, sink.InboundPacket)
		t.outPrimary[kind] = primaryHandler(kind, newFn, types.FromServer, sink.OutboundPacket)
		t.declaredPrimary[kind] = true
	}

	for _, mod := range codec.SecondaryKinds() {
		if int(mod) >= SecondaryTableSize {
			return nil, eris.Errorf("module kind %d exceeds table bound %d", mod, SecondaryTableSize)
		}
		if t.declaredSecondary[mod] {
			return nil, eris.Errorf("module kind %d declared twice", mod)
		}
		if codec.NewSecondary(mod) == nil {
			return nil, eris.Errorf("module kind %d has no payload constructor", mod)
		}
		mod := mod
		newFn := func() packet.ModulePacket { return codec.NewSecondary(mod) }
		t.inSecondary[mod] = secondaryHandler(mod, newFn, types.FromClient, sink.InboundModule)
		t.outSecondary[mod] = secondaryHandler(mod, newFn, types.FromServer, sink.OutboundModule)
		t.declaredSecondary[mod] = true
	}

	return t, nil
}

// InboundPrimary returns the handler for kind k in the inbound table.
func (t *Tables) InboundPrimary(k types.PacketKind) Handler { return t.inPrimary[k] }

// OutboundPrimary returns the handler for kind k in the outbound table.
func (t *Tables) OutboundPrimary(k types.PacketKind) Handler { return t.outPrimary[k] }

// InboundSecondary returns the handler for module kind m, falling back to the
// unknown handler for out-of-bound wire values.
func (t *Tables) InboundSecondary(m types.ModuleKind) Handler {
	if int(m) >= SecondaryTableSize {
		return t.unknownInSecondary
	}
	return t.inSecondary[m]
}

// OutboundSecondary is the outbound analog of InboundSecondary.
func (t *Tables) OutboundSecondary(m types.ModuleKind) Handler {
	if int(m) >= SecondaryTableSize {
		return t.unknownOutSecondary
	}
	return t.outSecondary[m]
}

// DeclaredPrimary reports whether kind k has a real (non-fallback) entry.
func (t *Tables) DeclaredPrimary(k types.PacketKind) bool { return t.declaredPrimary[k] }

// DeclaredSecondary reports whether module kind m has a real entry.
func (t *Tables) DeclaredSecondary(m types.ModuleKind) bool {
	return int(m) < SecondaryTableSize && t.declaredSecondary[m]
}

// DeclaredPrimaryKinds lists every primary kind with a real entry, ascending.
func (t *Tables) DeclaredPrimaryKinds() []types.PacketKind {
	kinds := make([]types.PacketKind, 0)
	for k := 0; k < PrimaryTableSize; k++ {
		if t.declaredPrimary[k] {
			kinds = append(kinds, types.PacketKind(k))
		}
	}
	return kinds
}

// DeclaredSecondaryKinds lists every module kind with a real entry, ascending.
func (t *Tables) DeclaredSecondaryKinds() []types.ModuleKind {
	modules := make([]types.ModuleKind, 0)
	for m := 0; m < SecondaryTableSize; m++ {
		if t.declaredSecondary[m] {
			modules = append(modules, types.ModuleKind(m))
		}
	}
	return modules
}

func primaryHandler(
	kind types.PacketKind,
	newFn func() packet.Packet,
	from types.Direction,
	emit func(int, packet.Packet) bool,
) Handler {
	ctx := packet.DecodeContext{From: from}
	return func(origin int, span []byte) (bool, error) {
		p := newFn()
		r := packet.NewSpanReader(span[1:])
		if err := p.ReadBody(r, ctx); err != nil {
			return false, eris.Wrapf(err, "decode primary kind %d", kind)
		}
		if r.Remaining() != 0 {
			return false, eris.Wrapf(ErrLengthMismatch, "primary kind %d left %d bytes", kind, r.Remaining())
		}
		return emit(origin, p), nil
	}
}

func secondaryHandler(
	mod types.ModuleKind,
	newFn func() packet.ModulePacket,
	from types.Direction,
	emit func(int, packet.ModulePacket) bool,
) Handler {
	ctx := packet.DecodeContext{From: from}
	return func(origin int, span []byte) (bool, error) {
		m := newFn()
		r := packet.NewSpanReader(span[2:])
		if err := m.ReadBody(r, ctx); err != nil {
			return false, eris.Wrapf(err, "decode module kind %d", mod)
		}
		if r.Remaining() != 0 {
			return false, eris.Wrapf(ErrLengthMismatch, "module kind %d left %d bytes", mod, r.Remaining())
		}
		return emit(origin, m), nil
	}
}

// unknownPrimaryHandler preserves raw bytes and kind id for pass-through. It
// is the one path that skips body decoding entirely.
func unknownPrimaryHandler(kind types.PacketKind, emit func(int, packet.Packet) bool) Handler {
	return func(origin int, span []byte) (bool, error) {
		return emit(origin, packet.NewUnknown(kind, span)), nil
	}
}

func unknownSecondaryHandler(emit func(int, packet.ModulePacket) bool) Handler {
	return func(origin int, span []byte) (bool, error) {
		mod := types.ModuleKind(0)
		if len(span) >= 2 {
			mod = types.ModuleKind(uint16(span[0]) | uint16(span[1])<<8)
		}
		return emit(origin, packet.NewUnknownModule(mod, span)), nil
	}
}

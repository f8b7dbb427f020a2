package bridge

import (
	"github.com/terralith-games/bridge/engine"
	"github.com/terralith-games/bridge/events"
	"github.com/terralith-games/bridge/packet"
	"github.com/terralith-games/bridge/statsd"
	"github.com/terralith-games/bridge/types"
)

// moduleKindAt reads the little-endian 16-bit module kind from span, which
// must start at the module id.
func moduleKindAt(span []byte) types.ModuleKind {
	return types.ModuleKind(uint16(span[0]) | uint16(span[1])<<8)
}

// OnFrameReceived is the inbound-frame hook. span starts at the kind byte.
// The bridge always substitutes its own dispatch for the engine's: it returns
// true whenever it consumed the frame, replaying uncancelled frames through
// the engine's receive path under the replay guard. It returns false only
// when the engine should process the frame itself (replay re-entry, empty
// frame).
func (b *Bridge) OnFrameReceived(origin int, span []byte) bool {
	if origin < 0 || origin >= len(b.conns) {
		b.invariant(nil, "receive hook fired for out-of-range connection")
	}
	st := &b.conns[origin]
	if st.replaying {
		// Our own synthetic traffic; let the engine interpret it.
		return false
	}
	if len(span) == 0 {
		return false
	}

	kind := types.PacketKind(span[0])
	var cancelled bool
	var err error
	if kind == packet.KindExtended {
		if len(span) < 3 {
			// Too short to attribute to any module kind; suppress locally
			// without an event.
			b.log.Warn().Int("origin", origin).Int("len", len(span)).
				Msg("malformed extended frame dropped")
			return true
		}
		mod := moduleKindAt(span[1:])
		statsd.EmitDispatchStat("inbound_secondary", b.tables.DeclaredSecondary(mod))
		cancelled, err = b.tables.InboundSecondary(mod)(origin, span[1:])
	} else {
		statsd.EmitDispatchStat("inbound_primary", b.tables.DeclaredPrimary(kind))
		cancelled, err = b.tables.InboundPrimary(kind)(origin, span)
	}
	if err != nil {
		b.invariant(err, "inbound dispatch failed")
	}
	st.seen = true

	if !cancelled {
		st.replaying = true
		err := b.eng.ProcessBytes(origin, span)
		st.replaying = false
		if err != nil {
			b.log.Error().Err(err).Int("origin", origin).Msg("replay into engine failed")
		}
	}
	return true
}

// OnSendBytes is the outbound hook for non-extended frames. buf is the full
// wire frame including its 2-byte length prefix. Extended frames are handled
// by OnSendModule and pass through here untouched.
func (b *Bridge) OnSendBytes(remote int, buf []byte) bool {
	if remote < 0 || remote >= len(b.conns) {
		b.invariant(nil, "send hook fired for out-of-range connection")
	}
	st := &b.conns[remote]
	if st.sending {
		return false
	}
	if len(buf) < 3 {
		return false
	}

	span := buf[2:]
	kind := types.PacketKind(span[0])
	if kind == packet.KindExtended {
		return false
	}

	statsd.EmitDispatchStat("outbound_primary", b.tables.DeclaredPrimary(kind))
	cancelled, err := b.tables.OutboundPrimary(kind)(remote, span)
	if err != nil {
		b.invariant(err, "outbound dispatch failed")
	}

	if !cancelled {
		st.sending = true
		err := b.eng.TransmitBytes(remote, buf)
		st.sending = false
		if err != nil {
			b.log.Error().Err(err).Int("remote", remote).Msg("transmit failed")
		}
	}
	return true
}

// OnSendModule is the outbound hook for extended-container payloads. payload
// is the full frame: 2-byte length prefix, kind byte, 2-byte module id, body.
// The engine does not expose the destination index here, only the transport
// handle, so the origin is resolved by a linear scan of the connection table;
// the table is small enough that no persistent index is warranted. The send
// is observed, never suppressed.
func (b *Bridge) OnSendModule(handle engine.Handle, payload []byte) bool {
	if len(payload) < 5 {
		return false
	}

	remote := -1
	for i, c := range b.eng.Connections() {
		if c.Active && c.Handle == handle {
			remote = i
			break
		}
	}

	span := payload[2:]
	mod := moduleKindAt(span[1:])
	statsd.EmitDispatchStat("outbound_secondary", b.tables.DeclaredSecondary(mod))
	if _, err := b.tables.OutboundSecondary(mod)(remote, span[1:]); err != nil {
		b.invariant(err, "outbound module dispatch failed")
	}
	return false
}

// sink adapts Bridge to dispatch.Sink without exporting the emit methods on
// the Bridge API.
type sink Bridge

func (s *sink) bridge() *Bridge { return (*Bridge)(s) }

func (s *sink) InboundPacket(origin int, p packet.Packet) bool {
	b := s.bridge()
	ev := &events.PacketReceive{Origin: origin, Packet: p}
	b.bus.Raise(ev)
	b.forwardPacket(ev, origin, p)
	return ev.Cancelled()
}

func (s *sink) OutboundPacket(remote int, p packet.Packet) bool {
	b := s.bridge()
	ev := &events.PacketSend{Remote: remote, Packet: p}
	b.bus.Raise(ev)
	return ev.Cancelled()
}

func (s *sink) InboundModule(origin int, m packet.ModulePacket) bool {
	b := s.bridge()
	ev := &events.ModuleReceive{Origin: origin, Module: m}
	b.bus.Raise(ev)
	b.forwardModule(ev, origin, m)
	return ev.Cancelled()
}

func (s *sink) OutboundModule(remote int, m packet.ModulePacket) bool {
	b := s.bridge()
	ev := &events.ModuleSend{Remote: remote, Module: m}
	b.bus.Raise(ev)
	return ev.Cancelled()
}

// forwardPacket republishes select low-level packet events as domain events.
// Forwarding is unconditional: a cancelled low-level event still forwards.
func (b *Bridge) forwardPacket(src *events.PacketReceive, origin int, p packet.Packet) {
	pw, ok := p.(*packet.PasswordResponse)
	if !ok {
		return
	}
	player, err := b.players.Get(origin)
	if err != nil {
		b.invariant(err, "password packet from out-of-range origin")
	}
	b.bus.Forward(src, &events.PlayerPassword{Player: player, Password: pw.Password})
}

func (b *Bridge) forwardModule(src *events.ModuleReceive, origin int, m packet.ModulePacket) {
	text, ok := m.(*packet.TextModule)
	if !ok {
		return
	}
	player, err := b.players.Get(origin)
	if err != nil {
		b.invariant(err, "chat module from out-of-range origin")
	}
	b.bus.Forward(src, &events.PlayerChat{
		Player:  player,
		Command: text.Command,
		Text:    text.Text,
	})
}

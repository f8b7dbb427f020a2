package packet

import (
	"github.com/terralith-games/bridge/types"
)

// Primary packet kinds the builtin codec declares. The engine's full kind
// space is larger; kinds outside this set dispatch to the unknown fallback.
const (
	KindConnectRequest   types.PacketKind = 1
	KindPlayerInfo       types.PacketKind = 4
	KindPlayerController types.PacketKind = 13
	KindPasswordResponse types.PacketKind = 38

	// KindExtended is the container kind whose body starts with a 16-bit
	// little-endian module kind.
	KindExtended types.PacketKind = 82
)

// Module kinds carried inside the extended container.
const (
	ModuleText types.ModuleKind = 1
	ModulePing types.ModuleKind = 5
)

// ConnectRequest is the client hello carrying the protocol version string.
type ConnectRequest struct {
	Version string
}

func (*ConnectRequest) Kind() types.PacketKind { return KindConnectRequest }

func (p *ConnectRequest) ReadBody(r *SpanReader, _ DecodeContext) error {
	p.Version = r.String()
	return r.Err()
}

// PlayerInfo announces a player's slot and display name.
type PlayerInfo struct {
	Slot byte
	Name string
}

func (*PlayerInfo) Kind() types.PacketKind { return KindPlayerInfo }

func (p *PlayerInfo) ReadBody(r *SpanReader, _ DecodeContext) error {
	p.Slot = r.Byte()
	p.Name = r.String()
	return r.Err()
}

// PlayerController carries per-tick movement state. The slot byte is present
// only on the server-to-client leg; a client's own frames omit it because the
// origin connection already identifies the player.
type PlayerController struct {
	Slot byte
	X, Y float32
}

func (*PlayerController) Kind() types.PacketKind { return KindPlayerController }

func (p *PlayerController) ReadBody(r *SpanReader, ctx DecodeContext) error {
	if ctx.From == types.FromServer {
		p.Slot = r.Byte()
	}
	p.X = r.Float32()
	p.Y = r.Float32()
	return r.Err()
}

// PasswordResponse is the client's answer to a password challenge.
type PasswordResponse struct {
	Password string
}

func (*PasswordResponse) Kind() types.PacketKind { return KindPasswordResponse }

func (p *PasswordResponse) ReadBody(r *SpanReader, _ DecodeContext) error {
	p.Password = r.String()
	return r.Err()
}

// TextModule is the chat payload. Clients send a command plus text; the
// server's copy instead names the authoring player slot.
type TextModule struct {
	Command string
	Author  byte
	Text    string
}

func (*TextModule) Module() types.ModuleKind { return ModuleText }

func (m *TextModule) ReadBody(r *SpanReader, ctx DecodeContext) error {
	if ctx.From == types.FromClient {
		m.Command = r.String()
	} else {
		m.Author = r.Byte()
	}
	m.Text = r.String()
	return r.Err()
}

// PingModule marks a world position for the origin player's team.
type PingModule struct {
	X, Y float32
}

func (*PingModule) Module() types.ModuleKind { return ModulePing }

func (m *PingModule) ReadBody(r *SpanReader, _ DecodeContext) error {
	m.X = r.Float32()
	m.Y = r.Float32()
	return r.Err()
}

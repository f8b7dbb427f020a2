package packet

import (
	"github.com/terralith-games/bridge/types"
)

// Codec is the boundary to the per-kind wire decoders. The dispatch layer asks
// it, once at startup, for the declared kind enumerators and a fresh payload
// value per kind; it performs no per-frame type inspection afterwards.
//
// A declared kind for which the constructor returns nil is a configuration
// error and aborts table construction.
type Codec interface {
	// PrimaryKinds lists every declared primary kind enumerator.
	PrimaryKinds() []types.PacketKind

	// NewPrimary returns a fresh payload value for a declared primary kind.
	NewPrimary(k types.PacketKind) Packet

	// SecondaryKinds lists every declared module kind enumerator.
	SecondaryKinds() []types.ModuleKind

	// NewSecondary returns a fresh payload value for a declared module kind.
	NewSecondary(m types.ModuleKind) ModulePacket
}

// StdCodec declares the packet kinds the bridge itself understands: the
// handful it forwards into higher-level events plus the extended container.
// Full game traffic coverage belongs to an external codec implementing the
// same interface.
type StdCodec struct{}

func (StdCodec) PrimaryKinds() []types.PacketKind {
	return []types.PacketKind{
		KindConnectRequest,
		KindPlayerInfo,
		KindPlayerController,
		KindPasswordResponse,
	}
}

func (StdCodec) NewPrimary(k types.PacketKind) Packet {
	switch k {
	case KindConnectRequest:
		return &ConnectRequest{}
	case KindPlayerInfo:
		return &PlayerInfo{}
	case KindPlayerController:
		return &PlayerController{}
	case KindPasswordResponse:
		return &PasswordResponse{}
	}
	return nil
}

func (StdCodec) SecondaryKinds() []types.ModuleKind {
	return []types.ModuleKind{ModuleText, ModulePing}
}

func (StdCodec) NewSecondary(m types.ModuleKind) ModulePacket {
	switch m {
	case ModuleText:
		return &TextModule{}
	case ModulePing:
		return &PingModule{}
	}
	return nil
}

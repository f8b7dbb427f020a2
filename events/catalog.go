package events

import (
	"github.com/terralith-games/bridge/packet"
	"github.com/terralith-games/bridge/view"
)

// Event names, used for bus registration.
const (
	NamePacketReceive  = "packet_receive"
	NamePacketSend     = "packet_send"
	NameModuleReceive  = "module_receive"
	NameModuleSend     = "module_send"
	NamePlayerUpdate   = "player_update"
	NamePlayerQuit     = "player_quit"
	NamePlayerPassword = "player_password"
	NamePlayerChat     = "player_chat"
	NameNPCSetDefaults = "npc_set_defaults"
	NameNPCSpawn       = "npc_spawn"
	NameNPCKilled      = "npc_killed"
	NameLootDrop       = "loot_drop"
)

// PacketReceive is raised for every decoded inbound frame. Cancelling it stops
// the frame from reaching the engine's receive path.
type PacketReceive struct {
	Cancellable
	Origin int
	Packet packet.Packet
}

func (*PacketReceive) EventName() string { return NamePacketReceive }

// PacketSend is raised for every decoded outbound frame. Cancelling it stops
// the frame from being transmitted.
type PacketSend struct {
	Cancellable
	Remote int
	Packet packet.Packet
}

func (*PacketSend) EventName() string { return NamePacketSend }

// ModuleReceive is raised for inbound extended-container payloads. Cancelling
// it stops the container frame from reaching the engine.
type ModuleReceive struct {
	Cancellable
	Origin int
	Module packet.ModulePacket
}

func (*ModuleReceive) EventName() string { return NameModuleReceive }

// ModuleSend is raised for outbound extended-container payloads. Observational
// only: the engine send proceeds regardless of the flag.
type ModuleSend struct {
	Cancellable
	Remote int
	Module packet.ModulePacket
}

func (*ModuleSend) EventName() string { return NameModuleSend }

// PlayerUpdate is raised once per engine tick per player. Cancelling it skips
// the engine's update logic for that player for exactly that tick.
type PlayerUpdate struct {
	Cancellable
	Player *view.Player
}

func (*PlayerUpdate) EventName() string { return NamePlayerUpdate }

// PlayerQuit is raised when a previously active connection resets. The reset
// always proceeds; the flag has no effect.
type PlayerQuit struct {
	Cancellable
	Player *view.Player
}

func (*PlayerQuit) EventName() string { return NamePlayerQuit }

// PlayerPassword is the domain event forwarded from a decoded password
// response.
type PlayerPassword struct {
	Cancellable
	Player   *view.Player
	Password string
}

func (*PlayerPassword) EventName() string { return NamePlayerPassword }

// PlayerChat is the domain event forwarded from a decoded chat module payload.
type PlayerChat struct {
	Cancellable
	Player  *view.Player
	Command string
	Text    string
}

func (*PlayerChat) EventName() string { return NamePlayerChat }

// NPCSetDefaults is raised before the engine default-initializes an NPC slot.
// Kind is an outcome field: listeners may rewrite it and the bridge applies
// the final value. Rewriting it to a negative value triggers the engine's
// internal re-initialization path; the bridge collapses that recursion so
// consumers still observe exactly one logical event.
type NPCSetDefaults struct {
	Cancellable
	NPC  *view.NPC
	Kind int
}

func (*NPCSetDefaults) EventName() string { return NameNPCSetDefaults }

// NPCSpawn is raised after the engine allocates an NPC slot. Cancelling it
// deactivates the slot and reports "no slot" back to the engine caller.
type NPCSpawn struct {
	Cancellable
	Index int
	NPC   *view.NPC
}

func (*NPCSpawn) EventName() string { return NameNPCSpawn }

// NPCKilled is observational; the kill has already happened.
type NPCKilled struct {
	Cancellable
	NPC *view.NPC
}

func (*NPCKilled) EventName() string { return NameNPCKilled }

// LootDrop is raised before the engine materializes a loot roll. ItemKind,
// Stack and Prefix are outcome fields written back into the pending drop when
// the event is not cancelled.
type LootDrop struct {
	Cancellable
	X, Y          int
	Width, Height int
	ItemKind      int
	Stack         int
	Prefix        byte
}

func (*LootDrop) EventName() string { return NameLootDrop }

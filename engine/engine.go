// Package engine defines the boundary between the bridge and the running
// simulation engine. The bridge never owns engine state: entity arrays and the
// connection table are borrowed slices whose element addresses are stable for
// the engine's lifetime, and all mutation of engine behavior happens through
// the hook return values documented on bridge.Bridge.
package engine

// Handle is an opaque transport handle identifying a remote socket. The
// engine's connection table associates each connection slot with one handle;
// the bridge only ever compares handles for equality.
type Handle uint64

// RawPlayer is the engine's in-memory record for one player slot. The last
// element of the player array is a sentinel slot the engine uses as a scratch
// target and must never be surfaced to extension modules.
type RawPlayer struct {
	Active bool
	Name   string
	Life   int
	Mana   int
	X, Y   float32
}

// RawNPC is the engine's in-memory record for one NPC slot. As with players,
// the final array element is a sentinel.
type RawNPC struct {
	Active bool
	Kind   int
	Life   int
	X, Y   float32
}

// Connection is one row of the engine-owned connection table. Index in the
// table equals the player slot index serviced by the connection.
type Connection struct {
	Active bool
	Handle Handle
}

// PendingDrop is the engine's scratch record for a loot roll that has not yet
// been committed to the world. Listeners may rewrite the item fields before
// the engine materializes the drop.
type PendingDrop struct {
	X, Y          int
	Width, Height int
	ItemKind      int
	Stack         int
	Prefix        byte
}

// Engine is the port the real engine integration must satisfy. The bridge
// core is written entirely against this interface so it can be exercised with
// a fake engine in tests.
//
// Players, NPCs and Connections return the engine's fixed arrays; callers
// must not retain sub-slices across engine restarts. AllocateNPCSlot is not
// safe under concurrent invocation and the bridge serializes calls to it.
type Engine interface {
	// Players returns the engine's fixed player array, sentinel slot included.
	Players() []RawPlayer

	// NPCs returns the engine's fixed NPC array, sentinel slot included.
	NPCs() []RawNPC

	// Connections returns the engine-owned connection table, indexed by
	// player slot.
	Connections() []Connection

	// ProcessBytes feeds a raw frame into the engine's own receive path, as
	// if it had just arrived from the given origin connection. The bridge
	// calls this to replay frames its listeners chose not to cancel.
	ProcessBytes(origin int, data []byte) error

	// TransmitBytes writes a raw frame to the given remote connection,
	// bypassing the engine's outbound assembly.
	TransmitBytes(remote int, data []byte) error

	// AllocateNPCSlot returns the index of a free NPC slot, or the sentinel
	// index (len(NPCs())-1) when the array is full.
	AllocateNPCSlot() int
}

// Package enginetest provides a fake engine implementing the engine.Engine
// port so the bridge core can be exercised without a running simulation.
package enginetest

import (
	"sync"

	"github.com/terralith-games/bridge/engine"
)

// Frame records one raw span handed to the fake's receive or transmit path.
type Frame struct {
	Index int
	Data  []byte
}

// Fake is an in-memory engine. Slot counts include the sentinel slot, mirroring
// the real engine's fixed arrays.
//
// ReceiveHook and TransmitHook, when set, are invoked from ProcessBytes and
// TransmitBytes respectively; pointing them back at the bridge's frame hooks
// reproduces the engine's behavior of re-firing interception points on
// bridge-initiated traffic, which is what the reentrancy guards exist for.
type Fake struct {
	players []engine.RawPlayer
	npcs    []engine.RawNPC
	conns   []engine.Connection

	mu          sync.Mutex
	Processed   []Frame
	Transmitted []Frame

	ReceiveHook  func(origin int, data []byte) bool
	TransmitHook func(remote int, data []byte) bool
}

var _ engine.Engine = (*Fake)(nil)

func NewFake(playerSlots, npcSlots int) *Fake {
	return &Fake{
		players: make([]engine.RawPlayer, playerSlots),
		npcs:    make([]engine.RawNPC, npcSlots),
		conns:   make([]engine.Connection, playerSlots),
	}
}

func (f *Fake) Players() []engine.RawPlayer     { return f.players }
func (f *Fake) NPCs() []engine.RawNPC           { return f.npcs }
func (f *Fake) Connections() []engine.Connection { return f.conns }

func (f *Fake) ProcessBytes(origin int, data []byte) error {
	f.mu.Lock()
	f.Processed = append(f.Processed, Frame{Index: origin, Data: append([]byte(nil), data...)})
	f.mu.Unlock()
	if f.ReceiveHook != nil {
		f.ReceiveHook(origin, data)
	}
	return nil
}

func (f *Fake) TransmitBytes(remote int, data []byte) error {
	f.mu.Lock()
	f.Transmitted = append(f.Transmitted, Frame{Index: remote, Data: append([]byte(nil), data...)})
	f.mu.Unlock()
	if f.TransmitHook != nil {
		f.TransmitHook(remote, data)
	}
	return nil
}

// AllocateNPCSlot returns the first inactive non-sentinel slot, or the
// sentinel index when the array is full. Not safe for concurrent use; the
// bridge serializes calls.
func (f *Fake) AllocateNPCSlot() int {
	for i := 0; i < len(f.npcs)-1; i++ {
		if !f.npcs[i].Active {
			return i
		}
	}
	return len(f.npcs) - 1
}

// ProcessedFrames returns a copy of the frames fed to the receive path.
func (f *Fake) ProcessedFrames() []Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Frame(nil), f.Processed...)
}

// TransmittedFrames returns a copy of the frames fed to the transmit path.
func (f *Fake) TransmittedFrames() []Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Frame(nil), f.Transmitted...)
}

// ActivateConnection marks the connection slot active with the given handle.
func (f *Fake) ActivateConnection(i int, h engine.Handle) {
	f.conns[i].Active = true
	f.conns[i].Handle = h
}

// ResetConnection clears the connection slot.
func (f *Fake) ResetConnection(i int) {
	f.conns[i] = engine.Connection{}
}

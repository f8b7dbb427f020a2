package view

import (
	"github.com/terralith-games/bridge/engine"
)

// Player is a facade over one engine player slot. All accessors proxy directly
// to the backing record; the facade itself carries no state beyond identity.
type Player struct {
	index int
	raw   *engine.RawPlayer
}

// NewPlayer is the facade factory for player lists.
func NewPlayer(index int, raw *engine.RawPlayer) *Player {
	return &Player{index: index, raw: raw}
}

func (p *Player) Index() int { return p.index }

// Raw exposes the backing record. Two facades refer to the same player exactly
// when their Raw pointers are equal.
func (p *Player) Raw() *engine.RawPlayer { return p.raw }

func (p *Player) Active() bool { return p.raw.Active }
func (p *Player) Name() string { return p.raw.Name }
func (p *Player) Life() int    { return p.raw.Life }
func (p *Player) Mana() int    { return p.raw.Mana }

func (p *Player) SetName(name string) { p.raw.Name = name }
func (p *Player) SetLife(life int)    { p.raw.Life = life }

// NPC is a facade over one engine NPC slot.
type NPC struct {
	index int
	raw   *engine.RawNPC
}

// NewNPC is the facade factory for NPC lists.
func NewNPC(index int, raw *engine.RawNPC) *NPC {
	return &NPC{index: index, raw: raw}
}

func (n *NPC) Index() int { return n.index }

// Raw exposes the backing record.
func (n *NPC) Raw() *engine.RawNPC { return n.raw }

func (n *NPC) Active() bool { return n.raw.Active }
func (n *NPC) Kind() int    { return n.raw.Kind }
func (n *NPC) Life() int    { return n.raw.Life }

// Deactivate marks the backing slot inactive. The bridge uses this when a
// spawn event is cancelled; the engine itself is the only party that recycles
// the slot afterwards.
func (n *NPC) Deactivate() { n.raw.Active = false }

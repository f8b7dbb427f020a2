package bridge

import (
	"github.com/terralith-games/bridge/engine"
	"github.com/terralith-games/bridge/events"
	"github.com/terralith-games/bridge/view"
)

// OnPlayerUpdate is the per-tick player hook. Returning true tells the engine
// to skip its own update logic for this player for exactly this tick.
func (b *Bridge) OnPlayerUpdate(index int) bool {
	player, err := b.players.Get(index)
	if err != nil {
		b.invariant(err, "player update hook fired for invalid index")
	}
	return b.raisePlayerUpdate(player)
}

// OnPlayerUpdateFor is OnPlayerUpdate for callbacks that supply the record
// they are mid-mutating. When rec is not the canonical record at index, the
// event carries a detached facade so listeners never see a spoofed identity.
func (b *Bridge) OnPlayerUpdateFor(index int, rec *engine.RawPlayer) bool {
	player, err := b.players.Reconcile(index, rec)
	if err != nil {
		b.invariant(err, "player update hook fired for invalid index")
	}
	return b.raisePlayerUpdate(player)
}

func (b *Bridge) raisePlayerUpdate(player *view.Player) bool {
	ev := &events.PlayerUpdate{Player: player}
	b.bus.Raise(ev)
	return ev.Cancelled()
}

// OnConnectionReset is the connection-reset hook. A reset during initial
// setup, before the connection ever carried dispatched traffic, is not a real
// disconnect and publishes nothing. The reset itself always proceeds.
func (b *Bridge) OnConnectionReset(index int) {
	if index < 0 || index >= len(b.conns) {
		b.invariant(nil, "connection reset hook fired for out-of-range index")
	}
	st := &b.conns[index]
	if !st.seen {
		return
	}
	st.seen = false

	player, err := b.players.Get(index)
	if err != nil {
		b.invariant(err, "connection reset for index without player slot")
	}
	b.log.Info().Int("player", index).Msg("player quit")
	b.bus.Raise(&events.PlayerQuit{Player: player})
}

// OnNPCSetDefaults is the default-initialization hook. It returns the kind id
// the engine should initialize with, and whether initialization should be
// skipped entirely.
//
// When a listener rewrites the kind to a negative value, the engine reacts by
// re-invoking this hook internally while it resolves the special kind. Those
// recursive calls are swallowed by the ignore counter so consumers observe
// exactly one logical event.
func (b *Bridge) OnNPCSetDefaults(index int, kind int) (int, bool) {
	if b.defaultsIgnore > 0 {
		b.defaultsIgnore--
		return kind, false
	}

	npc, err := b.npcs.Get(index)
	if err != nil {
		b.invariant(err, "npc defaults hook fired for invalid index")
	}

	ev := &events.NPCSetDefaults{NPC: npc, Kind: kind}
	b.bus.Raise(ev)
	if ev.Cancelled() {
		return kind, true
	}
	if ev.Kind < 0 {
		b.defaultsIgnore = npcDefaultsRecursionCount
	}
	return ev.Kind, false
}

// OnNPCSpawn is the spawn hook, fired after the engine has placed an NPC in
// the slot at index. A cancelling listener deactivates the slot; the sentinel
// "no slot" index is reported back so the engine caller treats the spawn as
// failed.
func (b *Bridge) OnNPCSpawn(index int) int {
	npc, err := b.npcs.Get(index)
	if err != nil {
		b.invariant(err, "npc spawn hook fired for invalid index")
	}

	ev := &events.NPCSpawn{Index: index, NPC: npc}
	b.bus.Raise(ev)
	if ev.Cancelled() {
		npc.Deactivate()
		return b.npcs.Count()
	}
	return index
}

// OnNPCKilled is observational; the kill already happened.
func (b *Bridge) OnNPCKilled(index int) {
	npc, err := b.npcs.Get(index)
	if err != nil {
		b.invariant(err, "npc killed hook fired for invalid index")
	}
	b.bus.Raise(&events.NPCKilled{NPC: npc})
}

// OnLootDrop is the loot-roll hook. Listeners may cancel the drop or rewrite
// the item fields; uncancelled rewrites are applied back into the engine's
// pending drop. Returns true to suppress the drop.
func (b *Bridge) OnLootDrop(drop *engine.PendingDrop) bool {
	ev := &events.LootDrop{
		X:        drop.X,
		Y:        drop.Y,
		Width:    drop.Width,
		Height:   drop.Height,
		ItemKind: drop.ItemKind,
		Stack:    drop.Stack,
		Prefix:   drop.Prefix,
	}
	b.bus.Raise(ev)
	if ev.Cancelled() {
		return true
	}
	drop.ItemKind = ev.ItemKind
	drop.Stack = ev.Stack
	drop.Prefix = ev.Prefix
	return false
}

// SpawnNPC allocates a slot, initializes the record and runs the spawn hook.
// Allocation is serialized because the engine's allocator is not safe under
// concurrent invocation. Returns the slot index, or the sentinel index when
// no slot is free or a listener cancelled the spawn.
func (b *Bridge) SpawnNPC(kind int, x, y float32) int {
	b.spawnMu.Lock()
	index := b.eng.AllocateNPCSlot()
	if index < 0 || index >= b.npcs.Count() {
		b.spawnMu.Unlock()
		return b.npcs.Count()
	}
	npc := b.npcs.MustGet(index)
	raw := npc.Raw()
	raw.Active = true
	raw.Kind = kind
	raw.X = x
	raw.Y = y
	b.spawnMu.Unlock()

	return b.OnNPCSpawn(index)
}

// Package bridge republishes a running simulation engine's low-level hooks as
// structured, cancellable events. It owns the dispatch tables routing raw
// frames to typed decoders, the facade views over the engine's entity arrays,
// the cancellation/forwarding protocol between listeners and engine actions,
// and the continuation queue pinned to the engine's tick boundary.
package bridge

import (
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/terralith-games/bridge/bus"
	"github.com/terralith-games/bridge/dispatch"
	"github.com/terralith-games/bridge/engine"
	bridgelog "github.com/terralith-games/bridge/log"
	"github.com/terralith-games/bridge/loop"
	"github.com/terralith-games/bridge/packet"
	"github.com/terralith-games/bridge/statsd"
	"github.com/terralith-games/bridge/view"
)

// npcDefaultsRecursionCount is how many internal re-invocations of the
// defaults hook the engine performs after a listener rewrites the kind id to a
// negative value. Observed engine behavior; revisit on engine upgrades.
const npcDefaultsRecursionCount = 2

// connState is the per-connection guard cell. Each connection is serviced by
// a single engine thread, so explicit per-slot state stands in for
// thread-local flags.
type connState struct {
	// replaying is set while the bridge feeds a frame back through the
	// engine's receive path, so the re-fired receive hook passes through.
	replaying bool
	// sending is the outbound analog of replaying.
	sending bool
	// seen records that the connection carried dispatched traffic; a reset
	// on a never-seen connection is initial setup, not a real disconnect.
	seen bool
}

type Bridge struct {
	eng    engine.Engine
	bus    bus.Bus
	tables *dispatch.Tables

	players *view.List[engine.RawPlayer, *view.Player]
	npcs    *view.List[engine.RawNPC, *view.NPC]

	conts *loop.Queue
	log   zerolog.Logger

	// spawnMu serializes slot allocation; the engine's allocator is not safe
	// under concurrent invocation.
	spawnMu sync.Mutex

	conns []connState

	// defaultsIgnore swallows the engine's internal defaults-hook recursion.
	// Defaults run on the simulation thread only.
	defaultsIgnore int
}

// New wires the bridge against an engine port, an event bus and a codec. All
// dispatch tables are built here; a declared kind without a payload
// constructor aborts construction.
func New(eng engine.Engine, b bus.Bus, codec packet.Codec, opts ...Option) (*Bridge, error) {
	if eng == nil {
		return nil, eris.New("engine must not be nil")
	}
	if b == nil {
		return nil, eris.New("bus must not be nil")
	}

	br := &Bridge{
		eng:   eng,
		bus:   b,
		conts: loop.NewQueue(),
		log:   log.Logger,
	}
	for _, opt := range opts {
		opt(br)
	}

	players, err := view.NewList(eng.Players(), view.NewPlayer)
	if err != nil {
		return nil, eris.Wrap(err, "player view")
	}
	npcs, err := view.NewList(eng.NPCs(), view.NewNPC)
	if err != nil {
		return nil, eris.Wrap(err, "npc view")
	}
	br.players = players
	br.npcs = npcs
	br.conns = make([]connState, len(eng.Players()))

	tables, err := dispatch.Build(codec, (*sink)(br))
	if err != nil {
		return nil, eris.Wrap(err, "build dispatch tables")
	}
	br.tables = tables
	bridgelog.Tables(&br.log, tables, zerolog.DebugLevel)

	br.log.Info().
		Int("players", players.Count()).
		Int("npcs", npcs.Count()).
		Msg("bridge initialized")
	return br, nil
}

// Option configures a Bridge during New.
type Option func(*Bridge)

// WithLogger replaces the package-level logger.
func WithLogger(l zerolog.Logger) Option {
	return func(b *Bridge) { b.log = l }
}

// InitFromConfig applies environment configuration: log level and statsd.
func InitFromConfig(cfg Config) error {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.BridgeLogLevel))
	if err != nil {
		return eris.Wrapf(err, "invalid log level %q", cfg.BridgeLogLevel)
	}
	zerolog.SetGlobalLevel(level)

	if cfg.BridgeStatsdAddress != "" {
		var tags []string
		if cfg.BridgeStatsdTags != "" {
			tags = strings.Split(cfg.BridgeStatsdTags, ",")
		}
		if err := statsd.Init(cfg.BridgeStatsdAddress, tags); err != nil {
			return eris.Wrap(err, "init statsd")
		}
	}
	return nil
}

// Players is the facade view over the engine's player array.
func (b *Bridge) Players() *view.List[engine.RawPlayer, *view.Player] {
	return b.players
}

// NPCs is the facade view over the engine's NPC array.
func (b *Bridge) NPCs() *view.List[engine.RawNPC, *view.NPC] {
	return b.npcs
}

// Bus returns the event bus the bridge publishes through.
func (b *Bridge) Bus() bus.Bus { return b.bus }

// Tables exposes the dispatch tables for introspection.
func (b *Bridge) Tables() *dispatch.Tables { return b.tables }

// invariant surfaces a programming-error assertion: the bridge or its codec
// collaborator is out of sync with the engine. Never returned, never retried.
func (b *Bridge) invariant(err error, msg string) {
	if err == nil {
		err = eris.New(msg)
	} else {
		err = eris.Wrap(err, msg)
	}
	b.log.Error().Err(err).Msg(msg)
	panic(err)
}

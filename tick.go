package bridge

import (
	"time"

	"github.com/terralith-games/bridge/loop"
	"github.com/terralith-games/bridge/statsd"
)

// Schedule appends work to the continuation queue from any goroutine. The
// work runs on the engine's simulation thread at the next tick boundary, in
// submission order.
func (b *Bridge) Schedule(fn loop.Continuation) {
	b.conts.Schedule(fn)
}

// OnTick is the engine's tick hook. It drains the continuation queue exactly
// once, isolating all continuation side effects to the single-threaded tick
// boundary.
func (b *Bridge) OnTick() {
	start := time.Now()
	ran := b.conts.Drain()
	if ran > 0 {
		b.log.Debug().Int("continuations", ran).Msg("drained continuation queue")
		statsd.EmitTickStat(start, "continuation_drain")
	}
}

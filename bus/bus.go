// Package bus defines the event-bus boundary the bridge publishes through,
// plus Local, the in-process reference implementation used by tests and
// single-process deployments.
package bus

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/terralith-games/bridge/events"
)

// Wildcard subscribes a handler to every event name.
const Wildcard = "*"

// HandlerFunc observes one event. Handlers run synchronously on the raising
// goroutine and may cancel the event or rewrite its outcome fields.
type HandlerFunc func(ev events.Event)

// Bus is the collaborator contract. Raise returns only after every registered
// listener has run, so the caller may read the event's final flags
// immediately. Listeners run in descending priority order; the lowest
// priority runs last and therefore wins on outcome-field mutation.
type Bus interface {
	Raise(ev events.Event)

	// Register subscribes fn to the named event (or Wildcard) under an owner
	// tag. The returned token deregisters this single handler.
	Register(owner, event string, priority int, fn HandlerFunc) uuid.UUID

	// Deregister removes every handler registered under owner.
	Deregister(owner string)

	// DeregisterHandler removes the single handler identified by token.
	DeregisterHandler(token uuid.UUID)

	// Forward publishes a derived event after src's own listeners have run.
	// Forwarding is unconditional: it happens even when src was cancelled.
	Forward(src, derived events.Event)
}

type entry struct {
	token    uuid.UUID
	owner    string
	priority int
	seq      uint64
	fn       HandlerFunc
}

// Local is a synchronous in-process Bus. Registration order breaks priority
// ties, so two handlers at the same priority run in the order they were
// added.
type Local struct {
	mu       sync.RWMutex
	handlers map[string][]entry
	seq      uint64
}

var _ Bus = (*Local)(nil)

func NewLocal() *Local {
	return &Local{handlers: map[string][]entry{}}
}

func (b *Local) Register(owner, event string, priority int, fn HandlerFunc) uuid.UUID {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	e := entry{
		token:    uuid.New(),
		owner:    owner,
		priority: priority,
		seq:      b.seq,
		fn:       fn,
	}
	list := append(b.handlers[event], e)
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].priority != list[j].priority {
			return list[i].priority > list[j].priority
		}
		return list[i].seq < list[j].seq
	})
	b.handlers[event] = list
	return e.token
}

func (b *Local) Deregister(owner string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for event, list := range b.handlers {
		kept := list[:0]
		for _, e := range list {
			if e.owner != owner {
				kept = append(kept, e)
			}
		}
		b.handlers[event] = kept
	}
}

func (b *Local) DeregisterHandler(token uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for event, list := range b.handlers {
		kept := list[:0]
		for _, e := range list {
			if e.token != token {
				kept = append(kept, e)
			}
		}
		b.handlers[event] = kept
	}
}

// Raise runs the named event's handlers, then wildcard handlers, each group in
// descending priority order. The handler snapshot is taken up front, so
// listeners that register or deregister during dispatch take effect on the
// next Raise.
func (b *Local) Raise(ev events.Event) {
	b.mu.RLock()
	named := b.handlers[ev.EventName()]
	wild := b.handlers[Wildcard]
	snapshot := make([]entry, 0, len(named)+len(wild))
	snapshot = append(snapshot, named...)
	snapshot = append(snapshot, wild...)
	b.mu.RUnlock()

	for i := range snapshot {
		snapshot[i].fn(ev)
	}
}

func (b *Local) Forward(_, derived events.Event) {
	b.Raise(derived)
}

// Package relay streams published bridge events to websocket clients. It
// registers a lowest-priority wildcard listener on the bus, so it observes
// every event after all extension listeners have settled the flags, queues the
// JSON-encoded envelopes, and broadcasts the queue on Flush, which the host
// calls from the tick hook.
package relay

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"

	"github.com/terralith-games/bridge/bus"
	"github.com/terralith-games/bridge/events"
)

const shutdownPollInterval = 200 * time.Millisecond

const writeDeadline = 5 * time.Second

// Priority places the relay after every extension listener, so the streamed
// snapshot reflects the final cancellation flags and outcome fields.
const Priority = math.MinInt32

const owner = "bridge.relay"

// Envelope is the JSON frame written to websocket clients.
type Envelope struct {
	Event     string `json:"event"`
	Cancelled bool   `json:"cancelled"`
	Data      any    `json:"data"`
}

// connAndDone pairs a websocket connection with a channel the hub loop uses
// to signal the web framework back.
type connAndDone struct {
	connection *websocket.Conn
	doneChan   chan bool
}

type Relay struct {
	connections map[*websocket.Conn]bool
	broadcast   chan []byte
	queueLen    chan chan int
	connAmount  chan chan int
	flush       chan bool
	register    chan connAndDone
	unregister  chan connAndDone
	shutdown    chan bool
	queue       [][]byte
	isRunning   atomic.Bool

	token uuid.UUID
}

func New() *Relay {
	r := &Relay{
		connections: map[*websocket.Conn]bool{},
		broadcast:   make(chan []byte, 64),
		queueLen:    make(chan chan int),
		connAmount:  make(chan chan int),
		flush:       make(chan bool),
		register:    make(chan connAndDone),
		unregister:  make(chan connAndDone),
		shutdown:    make(chan bool),
		queue:       make([][]byte, 0),
	}
	go r.run()
	return r
}

// Attach subscribes the relay to every event on b. Detach with Detach.
func (r *Relay) Attach(b bus.Bus) {
	r.token = b.Register(owner, bus.Wildcard, Priority, func(ev events.Event) {
		r.observe(ev)
	})
}

// Detach removes the relay's bus subscription.
func (r *Relay) Detach(b bus.Bus) {
	b.DeregisterHandler(r.token)
}

func (r *Relay) observe(ev events.Event) {
	env := Envelope{Event: ev.EventName(), Data: ev}
	if c, ok := ev.(interface{ Cancelled() bool }); ok {
		env.Cancelled = c.Cancelled()
	}
	data, err := json.Marshal(env)
	if err != nil {
		log.Logger.Warn().Err(eris.Wrap(err, "encode relay envelope")).
			Str("event", ev.EventName()).Msg("event not relayed")
		return
	}
	r.broadcast <- data
}

// QueueLength reports how many envelopes await the next Flush.
func (r *Relay) QueueLength() int {
	c := make(chan int)
	r.queueLen <- c
	return <-c
}

// ConnectionAmount reports the number of connected websocket clients.
func (r *Relay) ConnectionAmount() int {
	c := make(chan int)
	r.connAmount <- c
	return <-c
}

// Flush broadcasts all queued envelopes to every client and clears the queue.
func (r *Relay) Flush() {
	r.flush <- true
}

func (r *Relay) registerConnection(ws *websocket.Conn) {
	done := make(chan bool)
	r.register <- connAndDone{connection: ws, doneChan: done}
	<-done
}

func (r *Relay) unregisterConnection(ws *websocket.Conn) {
	done := make(chan bool)
	r.unregister <- connAndDone{connection: ws, doneChan: done}
	<-done
}

// Shutdown stops the hub loop and closes every client connection.
func (r *Relay) Shutdown() {
	r.shutdown <- true
	for r.isRunning.Load() {
		time.Sleep(shutdownPollInterval)
	}
}

func (r *Relay) run() {
	if r.isRunning.Load() {
		return
	}
	r.isRunning.Store(true)
	closeConnection := func(conn *websocket.Conn) {
		if _, ok := r.connections[conn]; ok {
			delete(r.connections, conn)
			if err := eris.Wrap(conn.Close(), ""); err != nil {
				log.Logger.Error().Err(err).Msg(eris.ToString(err, true))
			}
		}
	}
Loop:
	for r.isRunning.Load() {
		select {
		case c := <-r.connAmount:
			c <- len(r.connections)
		case c := <-r.queueLen:
			c <- len(r.queue)
		case cd := <-r.register:
			r.connections[cd.connection] = true
			cd.doneChan <- true
		case cd := <-r.unregister:
			closeConnection(cd.connection)
			cd.doneChan <- true
		case env := <-r.broadcast:
			r.queue = append(r.queue, env)
		case <-r.flush:
			var waitGroup sync.WaitGroup
			for conn := range r.connections {
				waitGroup.Add(1)
				conn := conn
				go func() {
					defer waitGroup.Done()
					for _, env := range r.queue {
						err := eris.Wrap(conn.SetWriteDeadline(time.Now().Add(writeDeadline)), "")
						if err == nil {
							err = eris.Wrap(conn.WriteMessage(websocket.TextMessage, env), "")
						}
						if err != nil {
							go func() {
								r.unregisterConnection(conn)
							}()
							log.Logger.Error().Err(err).Msg(eris.ToString(err, true))
							break
						}
					}
				}()
			}
			waitGroup.Wait()
			r.queue = r.queue[:0]
		case <-r.shutdown:
			go func() {
				for range r.shutdown { //nolint:revive // drains the channel until closed
				}
			}()
			for conn := range r.connections {
				closeConnection(conn)
			}
			break Loop
		}
	}
	r.isRunning.Store(false)
}

// WebSocketHandler returns the per-connection handler to mount on a fiber
// websocket route. The read loop exists only to detect the client going away.
func (r *Relay) WebSocketHandler() func(conn *websocket.Conn) {
	return func(conn *websocket.Conn) {
		r.registerConnection(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		r.unregisterConnection(conn)
	}
}

// NewFiberApp mounts the relay's websocket endpoint at /events on a fresh
// fiber app. The caller owns listening and shutdown.
func (r *Relay) NewFiberApp() *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use("/events", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/events", websocket.New(r.WebSocketHandler()))
	return app
}

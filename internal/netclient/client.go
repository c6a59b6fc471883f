// Package netclient owns the duplex connection to the game server: the
// websocket transport, the opcode dispatch table, the bounded inbound
// queue, and reconnection. The connection is an explicitly constructed
// object, never package state, so tests can run several side by side.
package netclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/skirmish/client/config"
	"github.com/skirmish/client/internal/protocol"
)

var (
	ErrClosed       = errors.New("client closed")
	ErrDisconnected = errors.New("client disconnected")
)

// Conn is the transport surface the client needs. *websocket.Conn
// satisfies it; tests substitute in-memory fakes.
type Conn interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens a transport connection to the server.
type Dialer func(ctx context.Context, url string) (Conn, error)

// WebsocketDialer dials the server over a websocket.
func WebsocketDialer(ctx context.Context, url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Config holds connection tuning.
type Config struct {
	URL                  string
	DrainBudget          int
	DebugLatency         time.Duration // symmetric one-way delay, 0 disables
	QueueCapacity        int
	MaxReconnectAttempts int
	ReconnectBaseDelay   time.Duration
	ReconnectMaxDelay    time.Duration
}

// DefaultConfig returns connection tuning from the shared constants.
func DefaultConfig(url string) Config {
	return Config{
		URL:                  url,
		DrainBudget:          config.DefaultDrainBudget,
		QueueCapacity:        config.MaxPendingMessages,
		MaxReconnectAttempts: config.MaxReconnectAttempts,
		ReconnectBaseDelay:   config.ReconnectBaseDelay,
		ReconnectMaxDelay:    config.ReconnectMaxDelay,
	}
}

// Client is a single duplex connection to the game server.
//
// Inbound binary messages are decoded on the read goroutine (cheap, fixed
// layout) and parked in a bounded queue; their handlers run only when the
// owner drains the queue from the frame loop, or from the fallback ticker
// if no frame has drained recently. Inbound JSON messages are low-rate and
// dispatch immediately on the read goroutine.
type Client struct {
	cfg   Config
	clock clockwork.Clock
	dial  Dialer
	codec *protocol.Codec

	table     *dispatchTable
	queue     *pendingQueue
	telemetry *telemetryCounters

	onConnect func()

	ctx    context.Context
	sendCh chan []byte

	// drainMu serializes handler execution between the owner's per-frame
	// drain and the fallback ticker. Handlers mutate single-writer state
	// (the entity table), so two drains must never dispatch at once.
	drainMu sync.Mutex

	mu   sync.Mutex
	conn Conn

	closed         atomic.Bool
	connected      atomic.Bool
	lastDrainNanos atomic.Int64
}

// New creates a client. Pass clockwork.NewRealClock() and
// WebsocketDialer outside of tests.
func New(cfg Config, clock clockwork.Clock, dial Dialer) *Client {
	if cfg.DrainBudget <= 0 {
		cfg.DrainBudget = config.DefaultDrainBudget
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = config.MaxPendingMessages
	}
	c := &Client{
		cfg:       cfg,
		clock:     clock,
		dial:      dial,
		codec:     protocol.NewCodec(),
		table:     newDispatchTable(),
		telemetry: &telemetryCounters{},
		sendCh:    make(chan []byte, config.SendBufferSize),
	}
	c.queue = newPendingQueue(cfg.QueueCapacity, func(entry inbound) {
		c.telemetry.queueEvictions.Add(1)
		log.Debug().Str("opcode", entry.op.String()).Msg("inbound queue full, evicted oldest")
	})
	return c
}

// Subscribe registers a handler for an opcode. All subscriptions must
// happen before Connect; the dispatch table is immutable afterwards.
func (c *Client) Subscribe(op protocol.Opcode, h Handler) {
	c.table.subscribe(op, h)
}

// OnConnect registers the handshake hook, invoked after the initial
// connect and after every successful reconnect.
func (c *Client) OnConnect(fn func()) {
	c.onConnect = fn
}

// Connect dials the server and starts the read/write goroutines.
func (c *Client) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	conn, err := c.dial(ctx, c.cfg.URL)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}

	c.ctx = ctx
	c.table.seal()
	c.startConn(conn)
	go c.drainFallback()
	return nil
}

// Connected reports whether the transport is currently up.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Close tears the connection down permanently. Artificial-latency
// deliveries already scheduled may still fire; cancellation is
// best-effort and covers only the socket.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.connected.Store(false)

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// Send queues an already-framed message. Non-blocking: when the buffer is
// full the message is dropped and counted, never blocking the frame loop.
func (c *Client) Send(data []byte) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if !c.connected.Load() {
		return ErrDisconnected
	}
	if c.cfg.DebugLatency > 0 {
		copied := append([]byte(nil), data...)
		c.clock.AfterFunc(c.cfg.DebugLatency, func() { c.enqueueSend(copied) })
		return nil
	}
	c.enqueueSend(data)
	return nil
}

func (c *Client) enqueueSend(data []byte) {
	select {
	case c.sendCh <- data:
	default:
		c.telemetry.sendDropped.Add(1)
	}
}

// Drain executes handlers for up to budget queued messages in FIFO order.
// The frame loop calls this once per frame. The fallback ticker calls it
// too when frames stall, so the whole pop-and-dispatch runs under the
// drain mutex: a frame resuming mid-fallback waits instead of running
// handlers concurrently.
func (c *Client) Drain(budget int) int {
	c.drainMu.Lock()
	defer c.drainMu.Unlock()

	c.lastDrainNanos.Store(c.clock.Now().UnixNano())
	batch := c.queue.PopBatch(budget)
	for _, entry := range batch {
		c.table.dispatch(entry.op, entry.msg)
		c.telemetry.messagesHandled.Add(1)
	}
	return len(batch)
}

// PendingMessages returns the number of queued inbound messages.
func (c *Client) PendingMessages() int {
	return c.queue.Len()
}

// Telemetry returns a snapshot of the connection counters.
func (c *Client) Telemetry() TelemetrySnapshot {
	return c.telemetry.Snapshot()
}

func (c *Client) startConn(conn Conn) {
	stop := make(chan struct{})

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.connected.Store(true)

	go c.writeLoop(conn, stop)
	go c.readLoop(conn, stop)

	if c.onConnect != nil {
		c.onConnect()
	}
}

func (c *Client) readLoop(conn Conn, stop chan struct{}) {
	defer close(stop)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Msg("unexpected connection close")
			}
			break
		}
		c.receive(data)
	}

	c.connected.Store(false)
	c.telemetry.disconnects.Add(1)
	conn.Close()
	go c.reconnect()
}

func (c *Client) writeLoop(conn Conn, stop chan struct{}) {
	ticker := c.clock.NewTicker(config.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case data := <-c.sendCh:
			setWriteDeadline(conn)
			if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				// Read loop observes the broken socket and owns recovery.
				conn.Close()
				return
			}
		case <-ticker.Chan():
			setWriteDeadline(conn)
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		}
	}
}

func setWriteDeadline(conn Conn) {
	if d, ok := conn.(interface{ SetWriteDeadline(time.Time) error }); ok {
		d.SetWriteDeadline(time.Now().Add(config.WriteTimeout))
	}
}

// reconnect retries with exponential backoff until either a dial succeeds
// or the attempt budget is spent. Exhaustion leaves the client
// disconnected for good; recovery then requires an external restart.
func (c *Client) reconnect() {
	schedule := backoffSchedule(c.cfg)
	for attempt, delay := range schedule {
		if c.closed.Load() {
			return
		}
		c.clock.Sleep(delay)
		if c.closed.Load() {
			return
		}

		conn, err := c.dial(c.ctx, c.cfg.URL)
		if err == nil {
			c.telemetry.reconnects.Add(1)
			log.Info().Int("attempt", attempt+1).Msg("reconnected")
			c.startConn(conn)
			return
		}
		log.Warn().Err(err).
			Int("attempt", attempt+1).
			Int("maxAttempts", len(schedule)).
			Msg("reconnect attempt failed")
	}
	log.Error().Int("attempts", len(schedule)).Msg("reconnect budget exhausted, staying disconnected")
}

// backoffSchedule returns the wait before each reconnect attempt:
// base, base*2, base*4, ... capped at the configured maximum.
func backoffSchedule(cfg Config) []time.Duration {
	schedule := make([]time.Duration, cfg.MaxReconnectAttempts)
	delay := cfg.ReconnectBaseDelay
	for i := range schedule {
		schedule[i] = delay
		delay *= 2
		if delay > cfg.ReconnectMaxDelay {
			delay = cfg.ReconnectMaxDelay
		}
	}
	return schedule
}

// receive classifies an inbound frame. With DebugLatency set, delivery is
// deferred by the configured one-way delay to simulate a slow link.
func (c *Client) receive(data []byte) {
	if len(data) == 0 {
		return
	}
	if c.cfg.DebugLatency > 0 {
		copied := append([]byte(nil), data...)
		c.clock.AfterFunc(c.cfg.DebugLatency, func() { c.deliver(copied) })
		return
	}
	c.deliver(data)
}

func (c *Client) deliver(data []byte) {
	op := protocol.Opcode(data[0])
	if op.IsBinary() {
		msg, err := c.decodeBinary(op, data)
		if err != nil {
			c.telemetry.malformedDropped.Add(1)
			log.Debug().Err(err).Str("opcode", op.String()).Msg("dropped malformed binary message")
			return
		}
		c.queue.Push(inbound{op: op, msg: msg})
		return
	}
	c.deliverJSON(op, data)
}

func (c *Client) decodeBinary(op protocol.Opcode, data []byte) (any, error) {
	switch op {
	case protocol.OpTransform:
		msg, err := c.codec.DecodeTransform(data)
		if err != nil {
			return nil, err
		}
		return msg, nil
	case protocol.OpProjectileSpawn:
		msg, err := c.codec.DecodeProjectileSpawn(data)
		if err != nil {
			return nil, err
		}
		return msg, nil
	case protocol.OpProjectileBatch:
		msg, err := c.codec.DecodeProjectileBatch(data)
		if err != nil {
			return nil, err
		}
		return msg, nil
	case protocol.OpProjectileDestroy:
		msg, err := c.codec.DecodeProjectileDestroy(data)
		if err != nil {
			return nil, err
		}
		return msg, nil
	case protocol.OpPong:
		msg, err := c.codec.DecodePong(data)
		if err != nil {
			return nil, err
		}
		return msg, nil
	}
	c.telemetry.unknownDropped.Add(1)
	return nil, protocol.ErrInvalidMessage
}

// deliverJSON dispatches low-frequency messages inline; they arrive a few
// times a second at most. A payload that fails to parse is dropped without
// disturbing anything else in flight.
func (c *Client) deliverJSON(op protocol.Opcode, data []byte) {
	var (
		msg any
		err error
	)
	switch op {
	case protocol.OpRoomState:
		msg, err = protocol.DecodeJSON[protocol.RoomState](data)
	case protocol.OpPlayerJoined:
		msg, err = protocol.DecodeJSON[protocol.PlayerJoinedEvent](data)
	case protocol.OpPlayerLeft:
		msg, err = protocol.DecodeJSON[protocol.PlayerLeftEvent](data)
	case protocol.OpChat:
		msg, err = protocol.DecodeJSON[protocol.ChatMessage](data)
	case protocol.OpCombatEvent:
		msg, err = protocol.DecodeJSON[protocol.CombatEvent](data)
	case protocol.OpEconomyUpdate:
		msg, err = protocol.DecodeJSON[protocol.EconomyUpdate](data)
	case protocol.OpError:
		msg, err = protocol.DecodeError(data)
	default:
		msg = append([]byte(nil), data[1:]...)
	}
	if err != nil {
		c.telemetry.malformedDropped.Add(1)
		log.Warn().Err(err).Str("opcode", op.String()).Msg("dropped malformed JSON payload")
		return
	}

	if n := c.table.dispatch(op, msg); n > 0 {
		c.telemetry.messagesHandled.Add(1)
	}
}

// drainFallback guarantees queued handlers eventually run even when the
// frame loop stalls or the owner never declares a drain.
func (c *Client) drainFallback() {
	ticker := c.clock.NewTicker(config.DrainFallbackPeriod)
	defer ticker.Stop()

	var done <-chan struct{}
	if c.ctx != nil {
		done = c.ctx.Done()
	}

	for {
		select {
		case <-done:
			return
		case <-ticker.Chan():
			if c.closed.Load() {
				return
			}
			last := time.Unix(0, c.lastDrainNanos.Load())
			if c.clock.Now().Sub(last) >= config.DrainFallbackPeriod {
				c.Drain(c.cfg.DrainBudget)
			}
		}
	}
}

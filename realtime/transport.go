package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/notifsync/notification"
	"github.com/dmitrymomot/notifsync/pkg/backoff"
	"github.com/dmitrymomot/notifsync/pkg/logger"
)

// State describes the transport's connection lifecycle. Transitions are
// driven only by the transport's own loop, never set externally.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateErrored      State = "errored"
)

// frame is the wire envelope for both directions.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

const (
	frameAuthenticate = "authenticate"
	frameJoinRoom     = "join_notification_room"
	frameLeaveRoom    = "leave_notification_room"
)

// Transport maintains exactly one live websocket channel per session and
// translates wire frames into typed domain events. It has no notion of the
// notification domain beyond event shapes; reconciliation lives upstream.
//
// Connection errors are reported through callbacks, never returned from the
// read path, and the transport auto-reconnects with bounded attempts. It
// does not replay events missed while disconnected - the reconciler heals
// that gap with a REST re-fetch.
type Transport struct {
	url         string
	dialer      *websocket.Dialer
	log         *slog.Logger
	strategy    backoff.Strategy
	maxAttempts int

	cb callbackSet

	mu      sync.Mutex
	token   string
	state   State
	conn    *websocket.Conn
	cancel  context.CancelFunc
	done    chan struct{}
	running bool

	wmu sync.Mutex // serializes websocket writes
}

// Option configures a Transport.
type Option func(*Transport)

// WithLogger sets the logger for the Transport.
func WithLogger(log *slog.Logger) Option {
	return func(t *Transport) {
		if log != nil {
			t.log = log
		}
	}
}

// WithDialer sets a custom websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(t *Transport) {
		if d != nil {
			t.dialer = d
		}
	}
}

// WithBackoff sets the reconnect delay strategy.
func WithBackoff(s backoff.Strategy) Option {
	return func(t *Transport) {
		if s != nil {
			t.strategy = s
		}
	}
}

// WithMaxAttempts bounds consecutive failed reconnect attempts before the
// transport gives up and settles in the disconnected state.
func WithMaxAttempts(n int) Option {
	return func(t *Transport) {
		if n > 0 {
			t.maxAttempts = n
		}
	}
}

// New creates a Transport for the given websocket URL and initial token.
func New(url, token string, opts ...Option) *Transport {
	t := &Transport{
		url:         url,
		token:       token,
		dialer:      &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		log:         slog.Default(),
		strategy:    backoff.Default(),
		maxAttempts: 5,
		state:       StateDisconnected,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// State returns the current connection state.
func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// UpdateToken replaces the credential used on the next (re)connect. It does
// not itself force a reconnect.
func (t *Transport) UpdateToken(token string) {
	t.mu.Lock()
	t.token = token
	t.mu.Unlock()
}

// SetCallbacks registers an event sink. Later calls merge additively into
// earlier registrations.
func (t *Transport) SetCallbacks(cb Callbacks) {
	t.cb.merge(cb)
}

// Connect establishes the channel. It is idempotent while a connect or
// reconnect loop is already running; otherwise any prior channel is torn
// down first, so at most one channel is active per Transport instance.
func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return nil
	}

	// Tear down leftovers from a previous, finished loop.
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	t.cancel = cancel
	t.done = done
	t.running = true
	t.state = StateConnecting
	t.mu.Unlock()

	go t.run(runCtx, done)
	return nil
}

// Disconnect closes the channel deterministically. No callback fires after
// it returns, even for frames already in flight.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	cancel := t.cancel
	done := t.done
	conn := t.conn
	t.cancel = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		// Unblocks the read loop immediately.
		_ = conn.Close()
	}
	if done != nil {
		<-done
	}

	t.mu.Lock()
	t.running = false
	t.state = StateDisconnected
	t.mu.Unlock()
}

// JoinRoom asks the server to add this connection to a room. Fire and
// forget: a silent no-op while disconnected.
func (t *Transport) JoinRoom(room string) {
	t.sendRoomFrame(frameJoinRoom, room)
}

// LeaveRoom asks the server to remove this connection from a room. Fire and
// forget: a silent no-op while disconnected.
func (t *Transport) LeaveRoom(room string) {
	t.sendRoomFrame(frameLeaveRoom, room)
}

func (t *Transport) sendRoomFrame(event, room string) {
	t.mu.Lock()
	conn := t.conn
	state := t.state
	t.mu.Unlock()

	if conn == nil || state != StateConnected {
		return
	}

	payload, _ := json.Marshal(struct {
		Room string `json:"room"`
	}{Room: room})

	if err := t.writeFrame(conn, frame{Event: event, Data: payload}); err != nil {
		t.log.Debug("room frame write failed", logger.Component("realtime"),
			logger.Room(room), logger.Error(err))
	}
}

func (t *Transport) writeFrame(conn *websocket.Conn, f frame) error {
	t.wmu.Lock()
	defer t.wmu.Unlock()
	return conn.WriteJSON(f)
}

// run owns the connect/reconnect loop. All callbacks are emitted from this
// goroutine, which is what lets Disconnect guarantee quiescence by waiting
// for it to exit.
func (t *Transport) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		t.mu.Lock()
		t.running = false
		if t.state != StateConnected {
			t.state = StateDisconnected
		}
		t.mu.Unlock()
	}()

	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := t.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			attempt++
			t.setState(StateErrored)
			t.cb.emitError(err)
			t.log.Warn("websocket connect failed", logger.Component("realtime"),
				logger.Attempt(attempt), logger.Error(err))

			if attempt >= t.maxAttempts {
				t.log.Warn("reconnect attempts exhausted", logger.Component("realtime"),
					logger.Attempt(attempt))
				t.setState(StateDisconnected)
				return
			}
			if !t.sleep(ctx, t.strategy.NextInterval(attempt)) {
				return
			}
			continue
		}

		attempt = 0
		t.mu.Lock()
		t.conn = conn
		t.state = StateConnected
		t.mu.Unlock()

		// Disconnect may have fired between dial returning and the conn
		// being stored above; it saw a nil conn and closed nothing, so
		// close here or readLoop would block on a live socket forever.
		if ctx.Err() != nil {
			t.mu.Lock()
			t.conn = nil
			t.mu.Unlock()
			_ = conn.Close()
			return
		}
		t.cb.emitStatus(true)

		readErr := t.readLoop(ctx, conn)

		t.mu.Lock()
		t.conn = nil
		t.mu.Unlock()
		_ = conn.Close()

		if ctx.Err() != nil {
			// Deliberate teardown: stay silent.
			return
		}

		t.setState(StateConnecting)
		t.cb.emitStatus(false)
		t.log.Info("websocket dropped, reconnecting", logger.Component("realtime"),
			logger.Error(readErr))

		// A drop starts a fresh attempt budget; the delay before the
		// first redial still follows the strategy's opening interval.
		attempt = 0
		if !t.sleep(ctx, t.strategy.NextInterval(1)) {
			return
		}
	}
}

// dial establishes the websocket and performs the auth handshake with the
// token captured at dial time.
func (t *Transport) dial(ctx context.Context) (*websocket.Conn, error) {
	t.mu.Lock()
	token := t.token
	t.mu.Unlock()

	conn, resp, err := t.dialer.DialContext(ctx, t.url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}

	payload, _ := json.Marshal(struct {
		Token string `json:"token"`
	}{Token: token})

	if err := t.writeFrame(conn, frame{Event: frameAuthenticate, Data: payload}); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return conn, nil
}

// readLoop decodes inbound frames until the connection drops. Unknown frame
// names and malformed payloads are dropped silently: they indicate protocol
// version skew, not a fatal condition.
func (t *Transport) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var f frame
		if err := json.Unmarshal(raw, &f); err != nil {
			t.log.Debug("dropping malformed frame", logger.Component("realtime"), logger.Error(err))
			continue
		}

		ev, err := notification.DecodeEvent(f.Event, f.Data)
		if err != nil {
			t.log.Debug("dropping undecodable frame", logger.Component("realtime"),
				logger.Event(f.Event), logger.Error(err))
			continue
		}

		if ev.Name == notification.EventConnectionStatus {
			// Server-pushed connectivity hint.
			t.cb.emitStatus(ev.Connected)
			continue
		}

		t.cb.emitEvent(ev)
	}
}

func (t *Transport) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// sleep waits for the given delay, returning false if the context ended.
func (t *Transport) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/looplab/fsm"
	"k8s.io/utils/clock"

	"github.com/synthsel/ss-sync/internal/pkg/metrics"
	"github.com/synthsel/ss-sync/internal/syncagent/core"
	"github.com/synthsel/ss-sync/pkg/log"
	"github.com/synthsel/ss-sync/pkg/protocol"
)

// DefaultReconnectDelay is the wait between an unexpected close and the next attempt.
const DefaultReconnectDelay = 3 * time.Second

var (
	// ErrShutdown is returned by operations on a manager that has been shut down.
	ErrShutdown = errors.New("connection manager is shut down")

	// ErrEmptyToken is returned by Connect when no token is given.
	ErrEmptyToken = errors.New("authentication token is empty")
)

// MessageHandler receives every decoded inbound message, in arrival order, on
// the manager's control loop. Handlers must not block.
type MessageHandler func(msg protocol.Message)

// Config holds the collaborators of a Manager.
type Config struct {
	Dialer         Dialer
	Notifier       core.Notifier
	ReconnectDelay time.Duration

	// Clock drives the reconnect timer. Defaults to the real clock.
	Clock clock.WithDelayedExecution
	// Logger defaults to the global logger named "engine".
	Logger log.Logger
}

// Manager owns the single connection to the engine: the transport, the
// authentication handshake, the reconnect timer and inbound dispatch.
//
// All state is owned by one control-loop goroutine. Public methods are safe
// for concurrent use and hand their work to that loop.
type Manager struct {
	dialer   Dialer
	notifier core.Notifier
	clock    clock.WithDelayedExecution
	delay    time.Duration
	log      log.Logger

	events chan func()
	quit   chan struct{}
	done   chan struct{}
	stop   sync.Once
	wg     sync.WaitGroup

	// Owned by the control loop.
	fsm        *fsm.FSM
	closed     bool
	token      string
	suppressed bool
	gen        uint64
	conn       *connection
	timer      clock.Timer
	timerSeq   uint64
	handlers   []MessageHandler

	// Snapshot for readers outside the loop.
	mu      sync.RWMutex
	state   State
	changed chan struct{}
}

// connection is one generation of transport. Events carrying a stale
// generation are discarded, which detaches the old transport's handlers.
type connection struct {
	gen       uint64
	cancel    context.CancelFunc
	transport Transport
}

// NewManager creates a Manager in the Disconnected state and starts its control loop.
func NewManager(cfg Config) *Manager {
	if cfg.Clock == nil {
		cfg.Clock = clock.RealClock{}
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = log.WithName("engine")
	}

	m := &Manager{
		dialer:   cfg.Dialer,
		notifier: cfg.Notifier,
		clock:    cfg.Clock,
		delay:    cfg.ReconnectDelay,
		log:      cfg.Logger,
		events:   make(chan func(), 64),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		state:    StateDisconnected,
		changed:  make(chan struct{}),
	}
	m.fsm = newStateMachine(m.onEnter)

	go m.loop()

	return m
}

func (m *Manager) loop() {
	defer close(m.done)
	for {
		select {
		case fn := <-m.events:
			fn()
		case <-m.quit:
			return
		}
	}
}

// post queues fn on the control loop. It reports false once the loop has stopped.
func (m *Manager) post(fn func()) bool {
	select {
	case m.events <- fn:
		return true
	case <-m.done:
		return false
	}
}

// call runs fn on the control loop and waits for its result.
func (m *Manager) call(fn func() error) error {
	result := make(chan error, 1)
	if !m.post(func() { result <- fn() }) {
		return ErrShutdown
	}

	select {
	case err := <-result:
		return err
	case <-m.done:
		select {
		case err := <-result:
			return err
		default:
			return ErrShutdown
		}
	}
}

// Connect discards any existing transport, clears reconnect suppression and
// starts a fresh connection attempt with token. It does not wait for the
// attempt to complete.
func (m *Manager) Connect(token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	return m.call(func() error {
		if m.closed {
			return ErrShutdown
		}
		m.connect(token)
		return nil
	})
}

// Send transmits msg. It fails with core.NotConnected unless the connection
// is Ready; nothing is buffered or retried.
func (m *Manager) Send(ctx context.Context, msg protocol.Outbound) error {
	frame, err := msg.Marshal()
	if err != nil {
		return core.NewError(core.EncodingFailed, "", err)
	}

	var t Transport
	err = m.call(func() error {
		if m.current() != StateReady || m.conn == nil || m.conn.transport == nil {
			return core.NewError(core.NotConnected, string(m.current()), nil)
		}
		t = m.conn.transport
		return nil
	})
	if err != nil {
		return err
	}

	if err := t.Write(ctx, frame); err != nil {
		m.log.Error(err, "Failed to write frame", "type", msg.Type)
		return core.NewError(core.TransportError, "", err)
	}

	m.log.Debug("Frame sent", "type", msg.Type, "bytes", len(frame))
	return nil
}

// OnMessage registers h for every inbound message.
func (m *Manager) OnMessage(h MessageHandler) error {
	return m.call(func() error {
		m.handlers = append(m.handlers, h)
		return nil
	})
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Ready reports whether model data may be sent.
func (m *Manager) Ready() bool {
	return m.State() == StateReady
}

// AwaitReady blocks until the connection is Ready. It fails with
// core.AuthRejected if the engine rejects the token first.
func (m *Manager) AwaitReady(ctx context.Context) error {
	for {
		select {
		case <-m.done:
			return ErrShutdown
		default:
		}

		m.mu.RLock()
		state, changed := m.state, m.changed
		m.mu.RUnlock()

		switch state {
		case StateReady:
			return nil
		case StateClosedTerminal:
			return core.NewError(core.AuthRejected, "", nil)
		}

		select {
		case <-changed:
		case <-m.done:
			return ErrShutdown
		case <-ctx.Done():
			return core.NewError(core.NotConnected, string(state), ctx.Err())
		}
	}
}

// Shutdown detaches all handlers, cancels the reconnect timer and closes the
// transport. No reconnect can fire afterwards. It is safe to call repeatedly.
func (m *Manager) Shutdown() {
	m.stop.Do(func() {
		_ = m.call(func() error {
			m.closed = true
			m.cancelReconnect()
			if m.conn != nil {
				m.teardown()
				m.fire(eventDrop)
			}
			m.handlers = nil
			return nil
		})
		close(m.quit)
		<-m.done
		m.wg.Wait()
		m.log.Info("Connection manager shut down")
	})
}

func (m *Manager) current() State {
	return State(m.fsm.Current())
}

func (m *Manager) onEnter(from, to State) {
	m.log.Info("Connection state changed", "from", from, "to", to)

	m.mu.Lock()
	m.state = to
	close(m.changed)
	m.changed = make(chan struct{})
	m.mu.Unlock()
}

func (m *Manager) connect(token string) {
	m.cancelReconnect()
	m.teardown()

	m.suppressed = false
	m.token = token
	m.fire(eventConnect)

	m.gen++
	ctx, cancel := context.WithCancel(context.Background())
	m.conn = &connection{gen: m.gen, cancel: cancel}

	m.log.Info("Connecting to engine", "attempt", m.gen)

	m.wg.Add(1)
	go m.run(ctx, m.gen, token)
}

// teardown detaches and closes the live transport, if any.
func (m *Manager) teardown() {
	if m.conn == nil {
		return
	}
	m.log.Debug("Closing existing connection", "attempt", m.conn.gen)
	m.conn.cancel()
	m.conn = nil
}

func (m *Manager) scheduleReconnect() {
	m.cancelReconnect()

	m.timerSeq++
	seq, token := m.timerSeq, m.token
	m.log.Info("Scheduling reconnect", "delay", m.delay)

	m.timer = m.clock.AfterFunc(m.delay, func() {
		// The timer callback must not block the clock that fires it.
		go m.post(func() {
			if m.timer == nil || seq != m.timerSeq || m.suppressed {
				return
			}
			m.timer = nil
			metrics.ReconnectsTotal.Inc()
			m.connect(token)
		})
	})
}

func (m *Manager) cancelReconnect() {
	if m.timer == nil {
		return
	}
	m.timer.Stop()
	m.timer = nil
	m.timerSeq++
}

func (m *Manager) reconnectPending() bool {
	return m.timer != nil
}

func (m *Manager) live(gen uint64) bool {
	return m.conn != nil && m.conn.gen == gen
}

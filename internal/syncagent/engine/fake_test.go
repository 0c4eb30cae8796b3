package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/synthsel/ss-sync/internal/syncagent/core/coretest"
	"github.com/synthsel/ss-sync/pkg/log"
)

var errRemoteClosed = errors.New("remote closed the connection")

type fakeTransport struct {
	in     chan []byte
	writes chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		in:     make(chan []byte, 16),
		writes: make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (t *fakeTransport) Read(ctx context.Context) ([]byte, error) {
	select {
	case f := <-t.in:
		return f, nil
	case <-t.closed:
		return nil, errRemoteClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *fakeTransport) Write(_ context.Context, frame []byte) error {
	select {
	case <-t.closed:
		return errRemoteClosed
	default:
	}
	t.writes <- frame
	return nil
}

func (t *fakeTransport) Close() error {
	t.once.Do(func() { close(t.closed) })
	return nil
}

func (t *fakeTransport) isClosed() bool {
	select {
	case <-t.closed:
		return true
	default:
		return false
	}
}

// reply queues an inbound frame from the engine.
func (t *fakeTransport) reply(frame string) {
	t.in <- []byte(frame)
}

func (t *fakeTransport) nextWrite(tb testing.TB) string {
	tb.Helper()
	select {
	case f := <-t.writes:
		return string(f)
	case <-time.After(time.Second):
		tb.Fatal("timed out waiting for an outbound frame")
		return ""
	}
}

type fakeDialer struct {
	mu    sync.Mutex
	err   error
	dials chan *fakeTransport
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{dials: make(chan *fakeTransport, 16)}
}

func (d *fakeDialer) Dial(ctx context.Context) (Transport, error) {
	d.mu.Lock()
	err := d.err
	d.mu.Unlock()

	if err != nil {
		d.dials <- nil
		return nil, err
	}
	t := newFakeTransport()
	d.dials <- t
	return t, nil
}

func (d *fakeDialer) failWith(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

func (d *fakeDialer) nextDial(tb testing.TB) *fakeTransport {
	tb.Helper()
	select {
	case t := <-d.dials:
		return t
	case <-time.After(time.Second):
		tb.Fatal("timed out waiting for a dial")
		return nil
	}
}

func (d *fakeDialer) expectNoDial(tb testing.TB) {
	tb.Helper()
	select {
	case <-d.dials:
		tb.Fatal("unexpected dial")
	case <-time.After(50 * time.Millisecond):
	}
}

type harness struct {
	m        *Manager
	dialer   *fakeDialer
	clock    *clocktesting.FakeClock
	notifier *coretest.Notifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		dialer:   newFakeDialer(),
		clock:    clocktesting.NewFakeClock(time.Unix(0, 0)),
		notifier: &coretest.Notifier{},
	}
	h.m = NewManager(Config{
		Dialer:   h.dialer,
		Notifier: h.notifier,
		Clock:    h.clock,
		Logger:   log.NewNopLogger(),
	})
	return h
}

func (h *harness) waitState(t *testing.T, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return h.m.State() == want }, time.Second, time.Millisecond,
		"state is %s, want %s", h.m.State(), want)
}

func (h *harness) waitTimer(t *testing.T) {
	t.Helper()
	require.Eventually(t, h.clock.HasWaiters, time.Second, time.Millisecond, "no reconnect timer scheduled")
}

// ready connects with token and completes the handshake.
func (h *harness) ready(t *testing.T, token string) *fakeTransport {
	t.Helper()
	require.NoError(t, h.m.Connect(token))
	tr := h.dialer.nextDial(t)
	tr.nextWrite(t) // Authenticate
	tr.reply(`{"type":"Authenticated"}`)
	h.waitState(t, StateReady)
	return tr
}

func (h *harness) reconnectPending(t *testing.T) bool {
	t.Helper()
	var pending bool
	require.NoError(t, h.m.call(func() error {
		pending = h.m.reconnectPending()
		return nil
	}))
	return pending
}

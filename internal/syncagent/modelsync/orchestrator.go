// Package modelsync turns a "sync" action into a SynchronizeModel message and
// tracks the single outstanding request until the engine replies.
package modelsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/synthsel/ss-sync/internal/pkg/metrics"
	"github.com/synthsel/ss-sync/internal/syncagent/core"
	"github.com/synthsel/ss-sync/internal/syncagent/engine"
	"github.com/synthsel/ss-sync/pkg/log"
	"github.com/synthsel/ss-sync/pkg/protocol"
)

const (
	compilingStatusDuration = 2 * time.Second
	successMessageDuration  = 3 * time.Second

	// DefaultTimeout bounds the wait for the engine's reply.
	DefaultTimeout = 60 * time.Second
)

// Connection is the part of the connection manager the orchestrator needs.
type Connection interface {
	Ready() bool
	Send(ctx context.Context, msg protocol.Outbound) error
	OnMessage(h engine.MessageHandler) error
}

var _ Connection = (*engine.Manager)(nil)

type Config struct {
	Connection Connection
	Exporter   core.Exporter
	Project    core.Project
	Notifier   core.Notifier

	// Timeout bounds the wait for a reply. Zero waits forever.
	Timeout time.Duration
	Clock   clock.WithDelayedExecution
	Logger  log.Logger
}

// Orchestrator runs synchronizations. At most one Request is outstanding.
type Orchestrator struct {
	conn     Connection
	exporter core.Exporter
	project  core.Project
	notifier core.Notifier
	timeout  time.Duration
	clock    clock.WithDelayedExecution
	log      log.Logger

	mu sync.Mutex
	// busy is set from the start of the export until the request resolves.
	busy    bool
	pending *pendingSync
}

type pendingSync struct {
	req      *Request
	progress core.Progress
	timer    clock.Timer
}

// New creates an Orchestrator and subscribes it to the connection's messages.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Connection == nil || cfg.Exporter == nil || cfg.Notifier == nil {
		return nil, errors.New("modelsync: connection, exporter and notifier are required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.WithName("modelsync")
	}

	o := &Orchestrator{
		conn:     cfg.Connection,
		exporter: cfg.Exporter,
		project:  cfg.Project,
		notifier: cfg.Notifier,
		timeout:  cfg.Timeout,
		clock:    cfg.Clock,
		log:      cfg.Logger,
	}

	if err := cfg.Connection.OnMessage(o.HandleMessage); err != nil {
		return nil, fmt.Errorf("subscribe to engine messages: %w", err)
	}

	return o, nil
}

// Synchronize exports the open project, sends it to the engine and returns
// the pending Request. Every failure is reported to the user before it is
// returned, and no failure leaves a request pending.
func (o *Orchestrator) Synchronize(ctx context.Context) (*Request, error) {
	if !o.conn.Ready() {
		return nil, o.fail(core.NewError(core.NotConnected, "", nil))
	}
	if o.project == nil || !o.project.Open() {
		return nil, o.fail(core.NewError(core.NoProject, "", nil))
	}

	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		return nil, o.fail(core.NewError(core.SyncInProgress, "", nil))
	}
	o.busy = true
	o.mu.Unlock()

	return o.submit(ctx)
}

func (o *Orchestrator) submit(ctx context.Context) (req *Request, err error) {
	var (
		progress core.Progress
		p        *pendingSync
	)
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		err = core.NewError(core.Fatal, "synchronization panicked", fmt.Errorf("%v", r))
		switch {
		case p != nil:
			if o.take(p.req) {
				p.req.complete(Outcome{Err: err})
				o.observe(p.req, err)
			}
		case progress != nil:
			progress.Hide()
			o.release()
		default:
			o.release()
		}
		req, err = nil, o.fail(err)
	}()

	o.notifier.StatusMessage("Compiling GLB for Sync...", compilingStatusDuration)

	data, err := o.export(ctx)
	if err != nil {
		o.release()
		return nil, o.fail(err)
	}

	encoded := protocol.EncodeModelData(data)

	name := o.project.Name()
	if name == "" {
		name = protocol.DefaultModelName
	}
	msg := protocol.NewSynchronizeModel(name, encoded)

	progress = o.notifier.ShowProgress("Sending to Engine...",
		fmt.Sprintf("Sending %d bytes of GLB data to Synthetic Selection.", len(data)),
		"Waiting for the engine to reply with a success validation...",
	)

	req = newRequest(name, len(data), len(encoded), o.clock.Now())
	p = &pendingSync{req: req, progress: progress}

	// The reply may be dispatched before Send returns.
	o.mu.Lock()
	o.pending = p
	o.mu.Unlock()

	metrics.PayloadBytes.Observe(float64(len(data)))
	o.log.Info("Sending model to engine", "modelName", name, "bytes", len(data), "encodedBytes", len(encoded))

	if err := o.conn.Send(ctx, msg); err != nil {
		if o.take(req) {
			req.complete(Outcome{Err: err})
			o.observe(req, err)
		}
		return nil, o.fail(err)
	}

	if o.timeout > 0 {
		o.mu.Lock()
		if o.pending == p {
			p.timer = o.clock.AfterFunc(o.timeout, func() {
				// Never block the clock firing the timer.
				go o.expire(req)
			})
		}
		o.mu.Unlock()
	}

	return req, nil
}

// export runs the exporter and normalizes its result.
func (o *Orchestrator) export(ctx context.Context) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = core.NewError(core.Fatal, "exporter panicked", fmt.Errorf("%v", r))
		}
	}()

	f := o.exporter.ExportBinary(ctx)
	if f == nil {
		return nil, core.NewError(core.ExportFailed, "exporter returned no result", nil)
	}

	data, err = f.Await(ctx)
	if err != nil {
		if core.KindOf(err) != "" {
			return nil, err
		}
		return nil, core.NewError(core.ExportFailed, "", err)
	}
	if len(data) == 0 {
		return nil, core.NewError(core.ExportEmpty, "Compiled GLB byte length is 0.", nil)
	}
	return data, nil
}

// HandleMessage resolves the pending request from an engine reply. Replies
// that arrive with nothing pending are ignored.
func (o *Orchestrator) HandleMessage(msg protocol.Message) {
	var outcome Outcome
	switch {
	case msg.Type == protocol.TypeSyncSuccess:
		outcome.ConfirmedName = msg.ModelName
	case msg.InvalidToken():
		outcome.Err = core.NewError(core.AuthRejected, msg.ErrorType, nil)
	case msg.Type == protocol.TypeError:
		var cause error
		if msg.Detail != "" {
			cause = errors.New(msg.Detail)
		}
		outcome.Err = core.NewError(core.EngineRejected, msg.ErrorType, cause)
	default:
		return
	}

	p := o.takePending()
	if p == nil {
		o.log.Debug("Reply with no pending sync", "type", msg.Type)
		return
	}
	p.progress.Hide()
	o.resolve(p.req, outcome)
}

func (o *Orchestrator) expire(req *Request) {
	if !o.take(req) {
		return
	}
	o.log.Warn("Engine did not reply in time", "modelName", req.ModelName, "timeout", o.timeout)
	o.resolve(req, Outcome{Err: core.NewError(core.SyncTimeout, o.timeout.String(), nil)})
}

// resolve completes a request that has already been taken off the pending slot.
func (o *Orchestrator) resolve(req *Request, outcome Outcome) {
	req.complete(outcome)
	o.observe(req, outcome.Err)

	if outcome.Err != nil {
		o.fail(outcome.Err)
		return
	}
	o.log.Info("Model synchronized", "modelName", outcome.ConfirmedName, "latency", o.clock.Since(req.SubmittedAt))
	o.notifier.QuickMessage("Sync Successful: "+outcome.ConfirmedName, successMessageDuration)
}

// take clears the pending slot if it still holds req, hiding its progress
// dialog. It reports whether the caller now owns the resolution of req.
func (o *Orchestrator) take(req *Request) bool {
	o.mu.Lock()
	p := o.pending
	if p == nil || p.req != req {
		o.mu.Unlock()
		return false
	}
	o.clear()
	o.mu.Unlock()

	p.progress.Hide()
	return true
}

func (o *Orchestrator) takePending() *pendingSync {
	o.mu.Lock()
	defer o.mu.Unlock()
	p := o.pending
	if p != nil {
		o.clear()
	}
	return p
}

// clear empties the pending slot. o.mu must be held.
func (o *Orchestrator) clear() {
	if o.pending.timer != nil {
		o.pending.timer.Stop()
	}
	o.pending = nil
	o.busy = false
}

func (o *Orchestrator) release() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.busy = false
}

// Pending reports whether a request is awaiting the engine's reply.
func (o *Orchestrator) Pending() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pending != nil
}

func (o *Orchestrator) observe(req *Request, err error) {
	result := "success"
	if err != nil {
		result = string(core.KindOf(err))
	}
	metrics.SyncTotal.WithLabelValues(result).Inc()
	if err == nil {
		metrics.SyncLatency.Observe(o.clock.Since(req.SubmittedAt).Seconds())
	}
}

// fail reports err to the user and returns it.
func (o *Orchestrator) fail(err error) error {
	o.log.Error(err, "Synchronization failed", "kind", core.KindOf(err))
	if box, ok := reportFor(err); ok {
		o.notifier.ShowMessageBox(box)
	}
	return err
}

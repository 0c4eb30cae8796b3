package engine

import (
	"context"
	"errors"
	"time"

	"github.com/synthsel/ss-sync/internal/pkg/metrics"
	"github.com/synthsel/ss-sync/internal/syncagent/core"
	"github.com/synthsel/ss-sync/pkg/protocol"
)

const connectedStatusDuration = 3 * time.Second

// run drives one transport generation: dial, authenticate, then read until
// the transport fails or ctx is cancelled by teardown. Every lifecycle event is
// handed to the control loop tagged with gen.
func (m *Manager) run(ctx context.Context, gen uint64, token string) {
	defer m.wg.Done()

	t, err := m.dialer.Dial(ctx)
	if err != nil {
		m.post(func() { m.handleClosed(gen, err) })
		return
	}
	defer t.Close()

	if !m.post(func() { m.handleOpen(gen, t) }) {
		return
	}

	auth, err := protocol.NewAuthenticate(token).Marshal()
	if err == nil {
		err = t.Write(ctx, auth)
	}
	if err != nil && ctx.Err() == nil {
		// The read below observes the failure and reports the close.
		m.log.Error(err, "Failed to send Authenticate payload", "attempt", gen)
	}

	for {
		frame, err := t.Read(ctx)
		if err != nil {
			m.post(func() { m.handleClosed(gen, err) })
			return
		}
		if !m.post(func() { m.handleFrame(gen, frame) }) {
			return
		}
	}
}

func (m *Manager) handleOpen(gen uint64, t Transport) {
	if !m.live(gen) {
		return
	}
	m.conn.transport = t
	m.fire(eventOpen)
	m.log.Info("Transport open, sending Authenticate payload", "attempt", gen)
}

func (m *Manager) handleClosed(gen uint64, err error) {
	if !m.live(gen) {
		m.log.Debug("Ignoring close of a detached transport", "attempt", gen)
		return
	}
	m.conn.cancel()
	m.conn = nil

	code, reason := closeDetails(err)
	m.log.Warn("Engine connection closed", "attempt", gen, "code", code, "reason", reason, "error", err)

	if m.suppressed {
		m.log.Info("Reconnect disabled after authentication failure")
		return
	}

	m.fire(eventDrop)
	m.scheduleReconnect()
}

func (m *Manager) handleFrame(gen uint64, frame []byte) {
	if !m.live(gen) {
		return
	}

	msg, err := protocol.Decode(frame)
	if err != nil {
		reason := "malformed"
		if errors.Is(err, protocol.ErrUnknownType) {
			reason = "unknown_type"
		}
		metrics.DroppedFramesTotal.WithLabelValues(reason).Inc()
		m.log.Error(err, "Dropping frame from engine", "bytes", len(frame))
		return
	}

	m.log.Debug("Message from engine", "type", msg.Type, "modelName", msg.ModelName, "errorType", msg.ErrorType)

	switch {
	case msg.Type == protocol.TypeAuthenticated:
		if m.fire(eventAuthenticated) {
			m.notifier.StatusMessage("Connected to Synthetic Selection", connectedStatusDuration)
		}
	case msg.InvalidToken():
		m.reject()
	}

	for _, h := range m.handlers {
		h(msg)
	}
}

// reject enters ClosedTerminal and disables automatic reconnection.
func (m *Manager) reject() {
	if m.current() == StateClosedTerminal {
		return
	}

	m.suppressed = true
	m.cancelReconnect()
	m.fire(eventReject)

	m.notifier.ShowMessageBox(core.MessageBox{
		Title: "Invalid Auth Token",
		Message: "Synthetic Selection rejected your Token.\n\n" +
			"Please check your token in the In-Game Settings Menu (F10) and update it with `ss-sync token`.",
		Icon: core.IconError,
	})
}

package syncagent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synthsel/ss-sync/internal/syncagent/core"
	"github.com/synthsel/ss-sync/internal/syncagent/core/coretest"
	"github.com/synthsel/ss-sync/internal/syncagent/engine"
	"github.com/synthsel/ss-sync/pkg/options"
	"github.com/synthsel/ss-sync/pkg/protocol"
)

// engineStub is an in-process Synthetic Selection engine.
type engineStub struct {
	token string

	mu     sync.Mutex
	models []protocol.SynchronizeModelData
}

func (e *engineStub) received() []protocol.SynchronizeModelData {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]protocol.SynchronizeModelData(nil), e.models...)
}

func (e *engineStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	reply := func(v any) {
		b, _ := json.Marshal(v)
		_ = conn.Write(ctx, websocket.MessageText, b)
	}

	for {
		_, frame, err := conn.Read(ctx)
		if err != nil {
			return
		}

		var in struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(frame, &in); err != nil {
			return
		}

		switch in.Type {
		case "Authenticate":
			var auth protocol.AuthenticateData
			_ = json.Unmarshal(in.Data, &auth)
			if auth.Token != e.token {
				reply(map[string]string{"type": "Error", "errorType": "InvalidToken"})
				return
			}
			reply(map[string]string{"type": "Authenticated"})
		case "SynchronizeModel":
			var model protocol.SynchronizeModelData
			_ = json.Unmarshal(in.Data, &model)
			e.mu.Lock()
			e.models = append(e.models, model)
			e.mu.Unlock()
			reply(map[string]string{"type": "SyncSuccess", "modelName": model.ModelName})
		}
	}
}

type fixture struct {
	engine    *engineStub
	notifier  *coretest.Notifier
	cfg       *Config
	glb       string
	tokenFile string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	f := &fixture{
		engine:    &engineStub{token: "s3cr3t"},
		notifier:  &coretest.Notifier{},
		glb:       filepath.Join(dir, "hero.glb"),
		tokenFile: filepath.Join(dir, "config", "token"),
	}
	srv := httptest.NewServer(f.engine)
	t.Cleanup(srv.Close)

	engineOpts := options.NewEngineOptions()
	engineOpts.URL = "ws" + strings.TrimPrefix(srv.URL, "http")
	engineOpts.ConnectTimeout = 5 * time.Second

	syncOpts := options.NewSyncOptions()
	syncOpts.File = f.glb
	syncOpts.Timeout = 5 * time.Second
	syncOpts.Debounce = 50 * time.Millisecond

	httpOpts := options.NewHttpOptions()
	httpOpts.Addr = ""

	f.cfg = &Config{
		EngineOptions: engineOpts,
		SyncOptions:   syncOpts,
		StoreOptions:  &options.StoreOptions{TokenFile: f.tokenFile},
		HttpOptions:   httpOpts,
		S3Options:     options.NewS3Options(),
		Notifier:      f.notifier,
	}
	return f
}

func (f *fixture) agent(t *testing.T) *Agent {
	t.Helper()
	a, err := f.cfg.NewAgent()
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestPush(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.glb, []byte("glTF-binary"), 0o644))
	a := f.agent(t)
	require.NoError(t, a.tokens.Set("s3cr3t"))

	name, err := a.Push(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hero", name)

	models := f.engine.received()
	require.Len(t, models, 1)
	data, err := protocol.DecodeModelData(models[0].ModelData)
	require.NoError(t, err)
	assert.Equal(t, []byte("glTF-binary"), data)

	assert.Contains(t, f.notifier.QuickMessages(), "Sync Successful: hero")
}

func TestPushWithoutToken(t *testing.T) {
	f := newFixture(t)
	a := f.agent(t)

	_, err := a.Push(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
	assert.Empty(t, f.engine.received())
}

func TestPushWithoutModelFile(t *testing.T) {
	f := newFixture(t)
	a := f.agent(t)
	require.NoError(t, a.tokens.Set("s3cr3t"))

	_, err := a.Push(context.Background())
	assert.ErrorIs(t, err, core.NoProject)
	assert.Equal(t, []string{"No Project"}, f.notifier.Titles())
}

func TestConfigureToken(t *testing.T) {
	f := newFixture(t)
	f.notifier.Token = "s3cr3t"
	a := f.agent(t)

	require.NoError(t, a.ConfigureToken(context.Background(), ""))
	assert.Equal(t, engine.StateReady, a.State())
	assert.Contains(t, f.notifier.QuickMessages(), "Token Saved")

	stored, ok, err := a.tokens.Get()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "s3cr3t", stored)
}

func TestConfigureTokenRejected(t *testing.T) {
	f := newFixture(t)
	a := f.agent(t)

	err := a.ConfigureToken(context.Background(), "wrong")
	assert.ErrorIs(t, err, core.AuthRejected)
	require.Eventually(t, func() bool { return len(f.notifier.Titles()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, "Invalid Auth Token", f.notifier.Titles()[0])
}

// The rejection is reported by the connection even when no sync is waiting
// for a reply; the idle orchestrator adds nothing of its own.
func TestInvalidTokenReportedWithoutPendingSync(t *testing.T) {
	f := newFixture(t)
	a := f.agent(t)
	require.NoError(t, a.tokens.Set("wrong"))

	require.NoError(t, a.Connect())
	require.Eventually(t, func() bool { return a.State() == engine.StateClosedTerminal }, 5*time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return len(f.notifier.Titles()) == 1 }, time.Second, time.Millisecond)

	assert.Never(t, func() bool { return len(f.notifier.Titles()) > 1 }, 100*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, []string{"Invalid Auth Token"}, f.notifier.Titles())
	assert.False(t, a.sync.Pending())
	assert.Empty(t, f.engine.received())
}

func TestConfigureTokenKeepsCurrent(t *testing.T) {
	f := newFixture(t)
	a := f.agent(t)
	require.NoError(t, a.tokens.Set("s3cr3t"))

	// An empty answer keeps the stored token.
	require.NoError(t, a.ConfigureToken(context.Background(), ""))
	assert.NotContains(t, f.notifier.QuickMessages(), "Token Saved")
}

func TestRunSynchronizesOnWrite(t *testing.T) {
	f := newFixture(t)
	a := f.agent(t)
	require.NoError(t, a.tokens.Set("s3cr3t"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool { return a.State() == engine.StateReady }, 5*time.Second, 5*time.Millisecond)

	// The watcher is registered right after the connection starts.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(f.glb, []byte("glTF-v1"), 0o644)
		return len(f.engine.received()) > 0
	}, 5*time.Second, 100*time.Millisecond)

	require.Eventually(t, func() bool {
		return len(f.notifier.QuickMessages()) > 0
	}, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, "Sync Successful: hero", f.notifier.QuickMessages()[0])

	cancel()
	require.NoError(t, <-done)
}

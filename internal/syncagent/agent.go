// Package syncagent ties the engine connection, the sync orchestrator and the
// host collaborators together for the ss-sync commands.
package syncagent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/synthsel/ss-sync/internal/pkg/server"
	"github.com/synthsel/ss-sync/internal/syncagent/core"
	"github.com/synthsel/ss-sync/internal/syncagent/engine"
	"github.com/synthsel/ss-sync/internal/syncagent/modelsync"
	"github.com/synthsel/ss-sync/internal/syncagent/watch"
	"github.com/synthsel/ss-sync/pkg/log"
)

// ErrNoToken is returned when no authentication token is stored or entered.
var ErrNoToken = errors.New("no authentication token; run `ss-sync token` first")

type Agent struct {
	tokens    core.TokenStore
	tokenFile string
	manager   *engine.Manager
	sync      *modelsync.Orchestrator
	notifier  core.Notifier
	http      *server.Server

	watchFile      string
	debounce       time.Duration
	connectTimeout time.Duration

	mu    sync.Mutex
	token string
}

// Connect starts the engine connection with the stored token.
func (a *Agent) Connect() error {
	token, ok, err := a.tokens.Get()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoToken
	}
	return a.connect(token)
}

func (a *Agent) connect(token string) error {
	a.mu.Lock()
	a.token = token
	a.mu.Unlock()
	return a.manager.Connect(token)
}

// ConfigureToken stores token, prompting for it when empty, and verifies it
// against the engine.
func (a *Agent) ConfigureToken(ctx context.Context, token string) error {
	current, _, err := a.tokens.Get()
	if err != nil {
		return err
	}

	if token == "" {
		token, err = a.notifier.PromptToken(ctx, current)
		if err != nil {
			return fmt.Errorf("prompt for token: %w", err)
		}
		if token == "" {
			token = current
		}
	}
	if token == "" {
		return ErrNoToken
	}

	if token != current {
		if err := a.tokens.Set(token); err != nil {
			return err
		}
		a.notifier.QuickMessage("Token Saved", 2*time.Second)
		log.Info("Token saved", "path", a.tokenFile)
	}

	if err := a.connect(token); err != nil {
		return err
	}
	return a.awaitReady(ctx)
}

func (a *Agent) awaitReady(ctx context.Context) error {
	if a.connectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.connectTimeout)
		defer cancel()
	}
	return a.manager.AwaitReady(ctx)
}

// Push synchronizes the model once and waits for the engine's verdict.
func (a *Agent) Push(ctx context.Context) (string, error) {
	if err := a.Connect(); err != nil {
		return "", err
	}

	// A connect timeout is left to Synchronize, which reports Not Connected.
	if err := a.awaitReady(ctx); errors.Is(err, core.AuthRejected) || errors.Is(err, engine.ErrShutdown) {
		return "", err
	}

	req, err := a.sync.Synchronize(ctx)
	if err != nil {
		return "", err
	}
	return req.Wait(ctx)
}

// Run keeps the connection up and synchronizes the model whenever its file
// is rewritten, until ctx is done.
func (a *Agent) Run(ctx context.Context) error {
	log.Info("Starting ss-sync agent", "file", a.watchFile)
	defer a.Close()

	if err := a.Connect(); err != nil {
		if !errors.Is(err, ErrNoToken) {
			return err
		}
		log.Warn("No token stored, waiting for one", "path", a.tokenFile)
	}

	w, err := watch.New(a.debounce)
	if err != nil {
		return err
	}
	if a.watchFile != "" {
		if err := w.Watch(a.watchFile, a.onModelChanged); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(a.tokenFile), 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	if err := w.Watch(a.tokenFile, a.onTokenChanged); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(ctx)
	})
	if a.http != nil {
		g.Go(func() error {
			return a.http.Start(ctx)
		})
	}

	err = g.Wait()
	log.Info("Agent shutting down...")
	return err
}

func (a *Agent) onModelChanged(ctx context.Context, _ string) {
	logger := log.FromContext(ctx)
	logger.Info("Model file changed, synchronizing")
	req, err := a.sync.Synchronize(ctx)
	if err != nil {
		return
	}
	logger.Debug("Synchronization submitted", "modelName", req.ModelName, "bytes", req.PayloadBytes)
}

func (a *Agent) onTokenChanged(ctx context.Context, _ string) {
	logger := log.FromContext(ctx)
	token, ok, err := a.tokens.Get()
	if err != nil {
		logger.Error(err, "Failed to read token")
		return
	}

	a.mu.Lock()
	unchanged := token == a.token
	a.mu.Unlock()
	if !ok || unchanged {
		return
	}

	logger.Info("Token changed, reconnecting")
	if err := a.connect(token); err != nil {
		logger.Error(err, "Failed to reconnect with new token")
	}
}

// State returns the engine connection state.
func (a *Agent) State() engine.State {
	return a.manager.State()
}

// Close shuts the engine connection down.
func (a *Agent) Close() {
	a.manager.Shutdown()
}

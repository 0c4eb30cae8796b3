package syncagent

import (
	"context"
	"fmt"
	"time"

	"github.com/synthsel/ss-sync/internal/pkg/metrics"
	"github.com/synthsel/ss-sync/internal/pkg/server"
	"github.com/synthsel/ss-sync/internal/syncagent/core"
	"github.com/synthsel/ss-sync/internal/syncagent/engine"
	"github.com/synthsel/ss-sync/internal/syncagent/exporter"
	"github.com/synthsel/ss-sync/internal/syncagent/modelsync"
	"github.com/synthsel/ss-sync/internal/syncagent/store"
	"github.com/synthsel/ss-sync/pkg/log"
	"github.com/synthsel/ss-sync/pkg/options"
)

type Config struct {
	EngineOptions *options.EngineOptions
	SyncOptions   *options.SyncOptions
	StoreOptions  *options.StoreOptions
	HttpOptions   *options.HttpOptions
	S3Options     *options.S3Options

	Notifier core.Notifier

	// newObjectStore opens the bucket for object-key sources. Defaults to minio.
	newObjectStore func(opts *options.S3Options) (exporter.ObjectStore, error)
}

const bucketCheckTimeout = 10 * time.Second

// NewAgent wires the token store, the engine connection and the orchestrator.
func (cfg *Config) NewAgent() (*Agent, error) {
	tokens, err := store.NewFileTokenStore(cfg.StoreOptions.TokenFile)
	if err != nil {
		return nil, err
	}

	exp, project, err := cfg.newSource()
	if err != nil {
		return nil, err
	}

	manager := engine.NewManager(engine.Config{
		Dialer: &engine.WebSocketDialer{
			URL:         cfg.EngineOptions.URL,
			DialTimeout: cfg.EngineOptions.DialTimeout,
			ReadLimit:   cfg.EngineOptions.ReadLimit,
		},
		Notifier:       cfg.Notifier,
		ReconnectDelay: cfg.EngineOptions.ReconnectDelay,
	})

	orchestrator, err := modelsync.New(modelsync.Config{
		Connection: manager,
		Exporter:   exp,
		Project:    project,
		Notifier:   cfg.Notifier,
		Timeout:    cfg.SyncOptions.Timeout,
	})
	if err != nil {
		manager.Shutdown()
		return nil, err
	}

	a := &Agent{
		tokens:         tokens,
		tokenFile:      tokens.Path(),
		manager:        manager,
		sync:           orchestrator,
		notifier:       cfg.Notifier,
		watchFile:      cfg.SyncOptions.File,
		debounce:       cfg.SyncOptions.Debounce,
		connectTimeout: cfg.EngineOptions.ConnectTimeout,
	}
	if cfg.HttpOptions != nil && cfg.HttpOptions.Addr != "" {
		a.http = server.NewServer(cfg.HttpOptions, metrics.Registry, manager.Ready)
	}
	return a, nil
}

// newSource picks the GLB source: an object in the S3 bucket or a local file.
func (cfg *Config) newSource() (core.Exporter, core.Project, error) {
	opts := cfg.SyncOptions

	if opts.ObjectKey != "" {
		if !cfg.S3Options.Enabled() {
			return nil, nil, fmt.Errorf("--sync.object-key requires --s3.endpoint")
		}
		newStore := cfg.newObjectStore
		if newStore == nil {
			newStore = exporter.NewMinIOStore
		}
		objects, err := newStore(cfg.S3Options)
		if err != nil {
			return nil, nil, err
		}

		ctx, cancel := context.WithTimeout(context.Background(), bucketCheckTimeout)
		defer cancel()
		if err := objects.CheckBucket(ctx); err != nil {
			return nil, nil, err
		}
		log.Info("Synchronizing from bucket", "bucket", cfg.S3Options.BucketName, "key", opts.ObjectKey)
		return exporter.NewObjectExporter(objects, opts.ObjectKey),
			&exporter.ObjectProject{Key: opts.ObjectKey, ModelName: opts.ModelName}, nil
	}

	return exporter.NewFileExporter(opts.File),
		&exporter.FileProject{Path: opts.File, ModelName: opts.ModelName}, nil
}

package app

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/gosuri/uitable"
	"github.com/spf13/pflag"
	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/synthsel/ss-sync/cmd/ss-sync/app/options"
	"github.com/synthsel/ss-sync/internal/syncagent"
	"github.com/synthsel/ss-sync/internal/syncagent/notifier"
	"github.com/synthsel/ss-sync/internal/syncagent/store"
	"github.com/synthsel/ss-sync/pkg/app"
)

const (
	commandName = "ss-sync"
	commandDesc = `ss-sync pushes GLB models to a running Synthetic Selection engine.

It keeps one authenticated WebSocket connection to the engine, reconnects
automatically when the connection drops and reports every synchronization
back to you. Authentication tokens are shown in the In-Game Settings Menu (F10).`
)

func NewApp() *app.App {
	opts := options.NewSyncOptions()
	return app.NewApp(
		commandName,
		"Synchronize models with Synthetic Selection",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithSubApps(
			newTokenApp(opts),
			newPushApp(opts),
			newWatchApp(opts),
			newStatusApp(opts, os.Stdout),
		),
	)
}

func newAgent(opts *options.SyncOptions) (*syncagent.Agent, error) {
	cfg, err := opts.Config(notifier.NewConsole(os.Stdout, os.Stdin, !opts.Log.EnableColor))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	agent, err := cfg.NewAgent()
	if err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}
	return agent, nil
}

func newTokenApp(opts *options.SyncOptions) *app.App {
	var (
		token         string
		fromClipboard bool
	)
	return app.NewApp(
		"token",
		"Set the engine authentication token and verify it",
		app.WithDescription(`Stores the token shown in the In-Game Settings Menu (F10) and connects
to the engine to verify it. Without --token the token is read from the terminal.`),
		app.WithDefaultValidArgs(),
		app.WithFlags(func(fs *pflag.FlagSet) {
			fs.StringVar(&token, "token", "", "Token to store instead of prompting for it.")
			fs.BoolVar(&fromClipboard, "from-clipboard", false, "Read the token from the system clipboard.")
		}),
		app.WithRunFunc(func() error {
			ctx := genericapiserver.SetupSignalContext()

			if fromClipboard {
				text, err := clipboard.ReadAll()
				if err != nil {
					return fmt.Errorf("read clipboard: %w", err)
				}
				token = text
			}

			agent, err := newAgent(opts)
			if err != nil {
				return err
			}
			defer agent.Close()

			return agent.ConfigureToken(ctx, strings.TrimSpace(token))
		}),
	)
}

func newPushApp(opts *options.SyncOptions) *app.App {
	return app.NewApp(
		"push",
		"Synchronize the model once and wait for the engine's reply",
		app.WithDefaultValidArgs(),
		app.WithRunFunc(func() error {
			ctx := genericapiserver.SetupSignalContext()

			agent, err := newAgent(opts)
			if err != nil {
				return err
			}
			defer agent.Close()

			_, err = agent.Push(ctx)
			return err
		}),
	)
}

func newWatchApp(opts *options.SyncOptions) *app.App {
	return app.NewApp(
		"watch",
		"Keep the engine connection up and synchronize the model on every save",
		app.WithDescription(`Connects with the stored token, reconnects whenever the token file
changes and synchronizes --sync.file each time it is rewritten. Metrics and
health probes are served on --http.addr.`),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(func() error {
			ctx := genericapiserver.SetupSignalContext()

			agent, err := newAgent(opts)
			if err != nil {
				return err
			}
			return agent.Run(ctx)
		}),
	)
}

func newStatusApp(opts *options.SyncOptions, out io.Writer) *app.App {
	return app.NewApp(
		"status",
		"Show the effective configuration",
		app.WithDefaultValidArgs(),
		app.WithRunFunc(func() error {
			return printStatus(out, opts)
		}),
	)
}

func printStatus(out io.Writer, opts *options.SyncOptions) error {
	tokens, err := store.NewFileTokenStore(opts.StoreOptions.TokenFile)
	if err != nil {
		return err
	}
	_, stored, err := tokens.Get()
	if err != nil {
		return err
	}

	source := opts.SyncOptions.File
	if opts.SyncOptions.ObjectKey != "" {
		source = fmt.Sprintf("s3://%s/%s", opts.S3Options.BucketName, opts.SyncOptions.ObjectKey)
	}
	if source == "" {
		source = "<none>"
	}

	metricsAddr := opts.HttpOptions.Addr
	if metricsAddr == "" {
		metricsAddr = "<disabled>"
	}

	table := uitable.New()
	table.MaxColWidth = 80
	table.AddRow("ENGINE URL:", opts.EngineOptions.URL)
	table.AddRow("RECONNECT DELAY:", opts.EngineOptions.ReconnectDelay.String())
	table.AddRow("TOKEN FILE:", tokens.Path())
	table.AddRow("TOKEN STORED:", stored)
	table.AddRow("MODEL SOURCE:", source)
	table.AddRow("SYNC TIMEOUT:", timeoutString(opts.SyncOptions.Timeout))
	table.AddRow("METRICS:", metricsAddr)

	_, err = fmt.Fprintln(out, table)
	return err
}

func timeoutString(d time.Duration) string {
	if d == 0 {
		return "none"
	}
	return d.String()
}

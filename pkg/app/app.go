// Package app builds cobra commands from option structs the same way for
// every ss-sync entry point: named flag sets, an optional config file,
// SS_SYNC_* environment variables and logger initialization.
package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	cliflag "k8s.io/component-base/cli/flag"
	"k8s.io/component-base/term"

	"github.com/synthsel/ss-sync/pkg/log"
)

// NamedFlagSetOptions is implemented by the options of an application.
type NamedFlagSetOptions interface {
	// Flags returns the flags grouped by section.
	Flags() cliflag.NamedFlagSets

	// Complete fills in fields that depend on other fields.
	Complete() error

	// Validate checks the options once flags and config are applied.
	Validate() error
}

// LogOptionsProvider is implemented by options that carry logger settings.
type LogOptionsProvider interface {
	LogOptions() *log.Options
}

// RunFunc is the entry point of a command once its options are ready.
type RunFunc func() error

// App is a command line application.
type App struct {
	name        string
	shortDesc   string
	description string
	options     NamedFlagSetOptions
	runFunc     RunFunc
	args        cobra.PositionalArgs
	flags       func(fs *pflag.FlagSet)
	noConfig    bool
	subApps     []*App

	configFile string
	viper      *viper.Viper
	cmd        *cobra.Command
}

// Option configures an App.
type Option func(*App)

func WithDescription(desc string) Option {
	return func(a *App) { a.description = desc }
}

func WithOptions(opts NamedFlagSetOptions) Option {
	return func(a *App) { a.options = opts }
}

func WithRunFunc(run RunFunc) Option {
	return func(a *App) { a.runFunc = run }
}

// WithDefaultValidArgs rejects positional arguments.
func WithDefaultValidArgs() Option {
	return func(a *App) {
		a.args = func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				if len(arg) > 0 {
					return fmt.Errorf("%q does not take any arguments, got %q", cmd.CommandPath(), args)
				}
			}
			return nil
		}
	}
}

// WithFlags adds flags that belong to this command only.
func WithFlags(fn func(fs *pflag.FlagSet)) Option {
	return func(a *App) { a.flags = fn }
}

// WithNoConfig disables the --config flag and environment lookup.
func WithNoConfig() Option {
	return func(a *App) { a.noConfig = true }
}

// WithSubApps adds subcommands. They inherit the parent's options, config
// file and environment.
func WithSubApps(apps ...*App) Option {
	return func(a *App) { a.subApps = append(a.subApps, apps...) }
}

// NewApp creates an App.
func NewApp(name, shortDesc string, opts ...Option) *App {
	a := &App{
		name:      name,
		shortDesc: shortDesc,
		viper:     viper.New(),
	}
	for _, o := range opts {
		o(a)
	}
	a.buildCommand(nil)
	return a
}

// Command returns the underlying cobra command.
func (a *App) Command() *cobra.Command {
	return a.cmd
}

// Run executes the application and exits the process on failure.
func (a *App) Run() {
	if err := a.cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func (a *App) buildCommand(parent *App) {
	cmd := &cobra.Command{
		Use:           a.name,
		Short:         a.shortDesc,
		Long:          a.description,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          a.args,
	}
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	cmd.Flags().SortFlags = true

	root := a
	if parent != nil {
		root = parent
		a.viper = parent.viper
		if a.options == nil {
			a.options = parent.options
		}
	}

	var namedFlagSets cliflag.NamedFlagSets
	if a.options != nil && parent == nil {
		namedFlagSets = a.options.Flags()
		for _, name := range namedFlagSets.Order {
			cmd.PersistentFlags().AddFlagSet(namedFlagSets.FlagSets[name])
		}
	}
	if parent == nil && !a.noConfig {
		cmd.PersistentFlags().StringVarP(&a.configFile, "config", "c", "",
			"Read configuration from the specified file (default $XDG_CONFIG_HOME/ss-sync/config.yaml).")
	}
	if a.flags != nil {
		a.flags(cmd.Flags())
	}

	if a.runFunc != nil {
		cmd.RunE = func(cmd *cobra.Command, _ []string) error {
			return a.runCommand(root, cmd)
		}
	}

	if parent == nil {
		addHelp(cmd, namedFlagSets)
	}

	a.cmd = cmd
	for _, sub := range a.subApps {
		sub.buildCommand(a)
		cmd.AddCommand(sub.cmd)
	}
}

func (a *App) runCommand(root *App, cmd *cobra.Command) error {
	if !root.noConfig {
		if err := root.loadConfig(cmd); err != nil {
			return err
		}
	}

	if a.options != nil {
		if p, ok := a.options.(LogOptionsProvider); ok {
			log.Init(p.LogOptions())
			defer func() { _ = log.Sync() }()
		}
		if err := a.options.Complete(); err != nil {
			return err
		}
		if err := a.options.Validate(); err != nil {
			return err
		}
	}

	return a.runFunc()
}

func addHelp(cmd *cobra.Command, fss cliflag.NamedFlagSets) {
	cols, _, _ := term.TerminalSize(cmd.OutOrStdout())
	cliflag.SetUsageAndHelpFunc(cmd, fss, cols)
}

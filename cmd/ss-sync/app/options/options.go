package options

import (
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/synthsel/ss-sync/internal/syncagent"
	"github.com/synthsel/ss-sync/internal/syncagent/core"
	"github.com/synthsel/ss-sync/pkg/app"
	"github.com/synthsel/ss-sync/pkg/log"
	"github.com/synthsel/ss-sync/pkg/options"
)

type SyncOptions struct {
	EngineOptions *options.EngineOptions `json:"engine" mapstructure:"engine"`
	SyncOptions   *options.SyncOptions   `json:"sync" mapstructure:"sync"`
	StoreOptions  *options.StoreOptions  `json:"store" mapstructure:"store"`
	HttpOptions   *options.HttpOptions   `json:"http" mapstructure:"http"`
	S3Options     *options.S3Options     `json:"s3" mapstructure:"s3"`
	Log           *log.Options           `json:"log" mapstructure:"log"`
}

var (
	_ app.NamedFlagSetOptions = (*SyncOptions)(nil)
	_ app.LogOptionsProvider  = (*SyncOptions)(nil)
)

func NewSyncOptions() *SyncOptions {
	return &SyncOptions{
		EngineOptions: options.NewEngineOptions(),
		SyncOptions:   options.NewSyncOptions(),
		StoreOptions:  options.NewStoreOptions(),
		HttpOptions:   options.NewHttpOptions(),
		S3Options:     options.NewS3Options(),
		Log:           log.NewOptions(),
	}
}

func (o *SyncOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	o.EngineOptions.AddFlags(fss.FlagSet("engine"))
	o.SyncOptions.AddFlags(fss.FlagSet("sync"))
	o.StoreOptions.AddFlags(fss.FlagSet("store"))
	o.HttpOptions.AddFlags(fss.FlagSet("http"))
	o.S3Options.AddFlags(fss.FlagSet("s3"))
	o.Log.AddFlags(fss.FlagSet("Log"))
	return fss
}

func (o *SyncOptions) Complete() error {
	return nil
}

func (o *SyncOptions) Validate() error {
	errs := []error{}
	errs = append(errs, o.EngineOptions.Validate()...)
	errs = append(errs, o.SyncOptions.Validate()...)
	errs = append(errs, o.StoreOptions.Validate()...)
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.S3Options.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}

func (o *SyncOptions) LogOptions() *log.Options {
	return o.Log
}

func (o *SyncOptions) Config(notifier core.Notifier) (*syncagent.Config, error) {
	return &syncagent.Config{
		EngineOptions: o.EngineOptions,
		SyncOptions:   o.SyncOptions,
		StoreOptions:  o.StoreOptions,
		HttpOptions:   o.HttpOptions,
		S3Options:     o.S3Options,
		Notifier:      notifier,
	}, nil
}

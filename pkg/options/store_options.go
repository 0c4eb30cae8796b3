package options

import (
	"github.com/spf13/pflag"
)

var _ IOptions = (*StoreOptions)(nil)

// StoreOptions configures where the authentication token is persisted.
type StoreOptions struct {
	// TokenFile overrides the default $XDG_CONFIG_HOME/ss-sync/token location.
	TokenFile string `json:"token-file" mapstructure:"token-file"`
}

func NewStoreOptions() *StoreOptions {
	return &StoreOptions{}
}

func (o *StoreOptions) Validate() []error {
	return nil
}

func (o *StoreOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.TokenFile, "store.token-file", o.TokenFile, "File holding the engine authentication token (default $XDG_CONFIG_HOME/ss-sync/token).")
}

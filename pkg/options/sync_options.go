package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*SyncOptions)(nil)

// SyncOptions configures model synchronization.
type SyncOptions struct {
	// File is the GLB artifact to push. Mutually exclusive with S3 sources.
	File string `json:"file" mapstructure:"file"`

	// ObjectKey selects a GLB object in the configured S3 bucket instead of a local file.
	ObjectKey string `json:"object-key" mapstructure:"object-key"`

	// ModelName overrides the model name derived from the artifact.
	ModelName string `json:"model-name" mapstructure:"model-name"`

	// Timeout bounds the wait for the engine's reply. Zero waits forever.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// Debounce coalesces bursts of file writes in watch mode.
	Debounce time.Duration `json:"debounce" mapstructure:"debounce"`
}

// NewSyncOptions creates SyncOptions with default values.
func NewSyncOptions() *SyncOptions {
	return &SyncOptions{
		Timeout:  60 * time.Second,
		Debounce: 500 * time.Millisecond,
	}
}

// Validate checks source selection and timings.
func (o *SyncOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.File != "" && o.ObjectKey != "" {
		errs = append(errs, fmt.Errorf("--sync.file and --sync.object-key are mutually exclusive"))
	}
	if o.Timeout < 0 {
		errs = append(errs, fmt.Errorf("--sync.timeout must not be negative"))
	}
	if o.Debounce < 0 {
		errs = append(errs, fmt.Errorf("--sync.debounce must not be negative"))
	}
	return errs
}

// AddFlags adds flags for SyncOptions to the specified FlagSet.
func (o *SyncOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.File, "sync.file", o.File, "Path of the GLB file to synchronize.")
	fs.StringVar(&o.ObjectKey, "sync.object-key", o.ObjectKey, "Key of a GLB object in the S3 bucket to synchronize instead of a local file.")
	fs.StringVar(&o.ModelName, "sync.model-name", o.ModelName, "Model name sent to the engine (defaults to the artifact's base name).")
	fs.DurationVar(&o.Timeout, "sync.timeout", o.Timeout, "How long to wait for the engine to confirm a synchronization (0 waits forever).")
	fs.DurationVar(&o.Debounce, "sync.debounce", o.Debounce, "Quiet period after a file change before synchronizing in watch mode.")
}

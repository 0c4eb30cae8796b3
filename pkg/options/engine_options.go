package options

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*EngineOptions)(nil)

// DefaultEngineURL is where a locally running Synthetic Selection engine listens.
const DefaultEngineURL = "ws://127.0.0.1:8764/blockbench"

// EngineOptions configures the connection to the Synthetic Selection engine.
type EngineOptions struct {
	// URL is the WebSocket endpoint of the engine.
	URL string `json:"url" mapstructure:"url"`

	// ReconnectDelay is the fixed wait between an unexpected close and the next attempt.
	ReconnectDelay time.Duration `json:"reconnect-delay" mapstructure:"reconnect-delay"`

	// DialTimeout bounds the WebSocket handshake of a single attempt.
	DialTimeout time.Duration `json:"dial-timeout" mapstructure:"dial-timeout"`

	// ConnectTimeout bounds how long one-shot commands wait for the connection to become ready.
	ConnectTimeout time.Duration `json:"connect-timeout" mapstructure:"connect-timeout"`

	// ReadLimit is the maximum size of an inbound frame in bytes.
	ReadLimit int64 `json:"read-limit" mapstructure:"read-limit"`
}

// NewEngineOptions creates EngineOptions with default values.
func NewEngineOptions() *EngineOptions {
	return &EngineOptions{
		URL:            DefaultEngineURL,
		ReconnectDelay: 3 * time.Second,
		DialTimeout:    5 * time.Second,
		ConnectTimeout: 15 * time.Second,
		ReadLimit:      1 << 20,
	}
}

// Validate checks the engine URL and timings.
func (o *EngineOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error

	u, err := url.Parse(o.URL)
	if err != nil {
		errs = append(errs, fmt.Errorf("--engine.url: %w", err))
	} else if u.Scheme != "ws" && u.Scheme != "wss" {
		errs = append(errs, fmt.Errorf("--engine.url: scheme must be ws or wss, got %q", u.Scheme))
	}

	if o.ReconnectDelay <= 0 {
		errs = append(errs, fmt.Errorf("--engine.reconnect-delay must be positive"))
	}
	if o.DialTimeout <= 0 {
		errs = append(errs, fmt.Errorf("--engine.dial-timeout must be positive"))
	}
	if o.ReadLimit <= 0 {
		errs = append(errs, fmt.Errorf("--engine.read-limit must be positive"))
	}

	return errs
}

// AddFlags adds flags for EngineOptions to the specified FlagSet.
func (o *EngineOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.URL, "engine.url", o.URL, "WebSocket URL of the Synthetic Selection engine.")
	fs.DurationVar(&o.ReconnectDelay, "engine.reconnect-delay", o.ReconnectDelay, "Delay before reconnecting after the connection drops.")
	fs.DurationVar(&o.DialTimeout, "engine.dial-timeout", o.DialTimeout, "Timeout of a single WebSocket handshake.")
	fs.DurationVar(&o.ConnectTimeout, "engine.connect-timeout", o.ConnectTimeout, "How long one-shot commands wait for an authenticated connection.")
	fs.Int64Var(&o.ReadLimit, "engine.read-limit", o.ReadLimit, "Maximum size in bytes of a frame received from the engine.")
}

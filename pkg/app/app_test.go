package app

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cliflag "k8s.io/component-base/cli/flag"
)

type engineOptions struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type testOptions struct {
	Engine   *engineOptions `mapstructure:"engine"`
	complete bool
	invalid  error
}

func newTestOptions() *testOptions {
	return &testOptions{Engine: &engineOptions{URL: "ws://default", Timeout: time.Second}}
}

func (o *testOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	fs := fss.FlagSet("engine")
	fs.StringVar(&o.Engine.URL, "engine.url", o.Engine.URL, "engine url")
	fs.DurationVar(&o.Engine.Timeout, "engine.timeout", o.Engine.Timeout, "timeout")
	return fss
}

func (o *testOptions) Complete() error { o.complete = true; return nil }
func (o *testOptions) Validate() error { return o.invalid }

func execute(t *testing.T, a *App, args ...string) error {
	t.Helper()
	a.Command().SetArgs(args)
	return a.Command().Execute()
}

func TestFlagsOverrideDefaults(t *testing.T) {
	opts := newTestOptions()
	ran := false
	a := NewApp("test", "test app", WithOptions(opts), WithNoConfig(), WithRunFunc(func() error {
		ran = true
		return nil
	}))

	require.NoError(t, execute(t, a, "--engine.url", "ws://flag", "--engine.timeout", "3s"))
	assert.True(t, ran)
	assert.True(t, opts.complete)
	assert.Equal(t, "ws://flag", opts.Engine.URL)
	assert.Equal(t, 3*time.Second, opts.Engine.Timeout)
}

func TestConfigFileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ss-sync.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  url: ws://file\n  timeout: 7s\n"), 0o600))

	opts := newTestOptions()
	a := NewApp("test", "test app", WithOptions(opts), WithRunFunc(func() error { return nil }))
	require.NoError(t, execute(t, a, "--config", path))
	assert.Equal(t, "ws://file", opts.Engine.URL)
	assert.Equal(t, 7*time.Second, opts.Engine.Timeout)

	t.Setenv("SS_SYNC_ENGINE_URL", "ws://env")
	opts = newTestOptions()
	a = NewApp("test", "test app", WithOptions(opts), WithRunFunc(func() error { return nil }))
	require.NoError(t, execute(t, a, "--config", path))
	assert.Equal(t, "ws://env", opts.Engine.URL)

	opts = newTestOptions()
	a = NewApp("test", "test app", WithOptions(opts), WithRunFunc(func() error { return nil }))
	require.NoError(t, execute(t, a, "--config", path, "--engine.url", "ws://flag"))
	assert.Equal(t, "ws://flag", opts.Engine.URL)
}

func TestMissingExplicitConfigFile(t *testing.T) {
	a := NewApp("test", "test app", WithOptions(newTestOptions()), WithRunFunc(func() error { return nil }))
	err := execute(t, a, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidationStopsRun(t *testing.T) {
	opts := newTestOptions()
	opts.invalid = errors.New("bad engine url")
	ran := false
	a := NewApp("test", "test app", WithOptions(opts), WithNoConfig(), WithRunFunc(func() error {
		ran = true
		return nil
	}))

	assert.EqualError(t, execute(t, a), "bad engine url")
	assert.False(t, ran)
}

func TestDefaultValidArgs(t *testing.T) {
	a := NewApp("test", "test app", WithNoConfig(), WithDefaultValidArgs(), WithRunFunc(func() error { return nil }))
	assert.Error(t, execute(t, a, "unexpected"))
}

func TestSubApps(t *testing.T) {
	opts := newTestOptions()
	var name string
	sub := NewApp("push", "push a model",
		WithFlags(func(fs *pflag.FlagSet) { fs.StringVar(&name, "name", "", "model name") }),
		WithRunFunc(func() error { return nil }),
	)
	a := NewApp("test", "test app", WithOptions(opts), WithNoConfig(), WithSubApps(sub))

	require.NoError(t, execute(t, a, "push", "--engine.url", "ws://sub", "--name", "Hero"))
	assert.Equal(t, "ws://sub", opts.Engine.URL)
	assert.Equal(t, "Hero", name)
	assert.True(t, opts.complete)
}

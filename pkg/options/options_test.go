package options

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		addr    string
		wantErr bool
	}{
		{"127.0.0.1:9464", false},
		{":8080", false},
		{"localhost", true},
		{"host:port", true},
		{"host:70000", true},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			err := ValidateAddress(tt.addr)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEngineOptions(t *testing.T) {
	o := NewEngineOptions()
	assert.Empty(t, o.Validate())
	assert.Equal(t, 3*time.Second, o.ReconnectDelay)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o.AddFlags(fs)
	require.NoError(t, fs.Parse([]string{"--engine.url=http://example.com", "--engine.reconnect-delay=0s"}))

	assert.Len(t, o.Validate(), 2)
}

func TestSyncOptionsExclusiveSources(t *testing.T) {
	o := NewSyncOptions()
	o.File = "hero.glb"
	assert.Empty(t, o.Validate())

	o.ObjectKey = "hero.glb"
	assert.Len(t, o.Validate(), 1)
}

func TestS3OptionsDisabledByDefault(t *testing.T) {
	o := NewS3Options()
	assert.False(t, o.Enabled())
	assert.Empty(t, o.Validate())

	o.Endpoint = "minio.local:9000"
	o.BucketName = ""
	assert.True(t, o.Enabled())
	assert.Len(t, o.Validate(), 1)
}

func TestHttpOptionsEmptyAddrDisables(t *testing.T) {
	o := NewHttpOptions()
	o.Addr = ""
	assert.Empty(t, o.Validate())

	o.Addr = "nope"
	assert.Len(t, o.Validate(), 1)
}

package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFutureFirstResolveWins(t *testing.T) {
	f := NewFuture()
	assert.True(t, f.Resolve([]byte("first"), nil))
	assert.False(t, f.Resolve([]byte("second"), errors.New("late")))

	data, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), data)
}

func TestFutureResolvedAndAsyncBehaveAlike(t *testing.T) {
	immediate := Resolved([]byte{1, 2, 3}, nil)
	async := Go(context.Background(), func(context.Context) ([]byte, error) {
		time.Sleep(5 * time.Millisecond)
		return []byte{1, 2, 3}, nil
	})

	for _, f := range []*Future{immediate, async} {
		data, err := f.Await(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3}, data)
	}
}

func TestFutureGoRecoversPanic(t *testing.T) {
	f := Go(context.Background(), func(context.Context) ([]byte, error) {
		panic("boom")
	})

	_, err := f.Await(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, Fatal, KindOf(err))
}

func TestFutureAwaitHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFuture().Await(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestErrorKinds(t *testing.T) {
	cause := errors.New("disk on fire")
	err := fmt.Errorf("sync: %w", NewError(ExportFailed, "", cause))

	assert.ErrorIs(t, err, ExportFailed)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ExportEmpty)
	assert.Equal(t, ExportFailed, KindOf(err))
	assert.Equal(t, NotConnected, KindOf(NotConnected))
	assert.Equal(t, Kind(""), KindOf(cause))
	assert.Equal(t, "ExportFailed: disk on fire", NewError(ExportFailed, "", cause).Error())
	assert.Equal(t, "EngineRejected: ModelTooLarge", NewError(EngineRejected, "ModelTooLarge", nil).Error())
}

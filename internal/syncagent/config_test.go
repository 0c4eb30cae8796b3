package syncagent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synthsel/ss-sync/internal/syncagent/exporter"
	"github.com/synthsel/ss-sync/pkg/options"
	"github.com/synthsel/ss-sync/pkg/protocol"
)

type bucketStub struct {
	bucketErr error
	objects   map[string][]byte
	checked   int
}

func (b *bucketStub) CheckBucket(context.Context) error {
	b.checked++
	return b.bucketErr
}

func (b *bucketStub) ReadObject(_ context.Context, key string) ([]byte, error) {
	data, ok := b.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return data, nil
}

func (f *fixture) useBucket(bucket *bucketStub) {
	f.cfg.SyncOptions.File = ""
	f.cfg.SyncOptions.ObjectKey = "exports/hero.glb"
	f.cfg.S3Options.Endpoint = "minio.local:9000"
	f.cfg.newObjectStore = func(*options.S3Options) (exporter.ObjectStore, error) {
		return bucket, nil
	}
}

func TestNewAgentChecksBucket(t *testing.T) {
	f := newFixture(t)
	bucket := &bucketStub{bucketErr: errors.New(`bucket "models" does not exist`)}
	f.useBucket(bucket)

	a, err := f.cfg.NewAgent()
	assert.Nil(t, a)
	assert.ErrorContains(t, err, "does not exist")
	assert.Equal(t, 1, bucket.checked)
}

func TestNewAgentRequiresS3ForObjectKey(t *testing.T) {
	f := newFixture(t)
	f.cfg.SyncOptions.ObjectKey = "exports/hero.glb"

	_, err := f.cfg.NewAgent()
	assert.ErrorContains(t, err, "--s3.endpoint")
}

func TestPushFromBucket(t *testing.T) {
	f := newFixture(t)
	bucket := &bucketStub{objects: map[string][]byte{"exports/hero.glb": []byte("glTF-object")}}
	f.useBucket(bucket)

	a := f.agent(t)
	require.NoError(t, a.tokens.Set("s3cr3t"))
	assert.Equal(t, 1, bucket.checked)

	name, err := a.Push(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hero", name)

	models := f.engine.received()
	require.Len(t, models, 1)
	data, err := protocol.DecodeModelData(models[0].ModelData)
	require.NoError(t, err)
	assert.Equal(t, []byte("glTF-object"), data)
}

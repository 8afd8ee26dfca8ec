package natsclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtomtong/comfyTrade/errors"
)

func TestNewRequiresURL(t *testing.T) {
	_, err := New(Options{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMissingConfig)
	assert.True(t, errors.IsInvalid(err))
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions("nats://localhost:4222")

	assert.Equal(t, "nats://localhost:4222", opts.URL)
	assert.Equal(t, "comfytrade", opts.Name)
	assert.Equal(t, 5*time.Second, opts.ConnectWait)
	assert.Equal(t, -1, opts.MaxReconnects, "reconnect forever")
}

func TestClientBeforeConnect(t *testing.T) {
	c, err := New(DefaultOptions("nats://localhost:4222"), nil)
	require.NoError(t, err)

	assert.False(t, c.IsConnected())
	_, err = c.KeyValueBucket(context.Background(), "bucket")
	require.Error(t, err)

	// Closing a never-connected client is a no-op.
	assert.NoError(t, c.Close())
}

func TestConnectHonorsContextCancellation(t *testing.T) {
	// Nothing listens on this port; the retry loop must give up as soon
	// as the context is cancelled.
	c, err := New(DefaultOptions("nats://127.0.0.1:1"), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = c.Connect(ctx)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

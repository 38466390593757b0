package nats

import (
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func apply(t *testing.T, opts []nats.Option) nats.Options {
	t.Helper()
	o := nats.GetDefaultOptions()
	for _, opt := range opts {
		require.NoError(t, opt(&o))
	}
	return o
}

func TestOptions(t *testing.T) {
	o := apply(t, options("npat-game-1", ""))
	assert.Equal(t, "npat-game-1", o.Name)
	assert.Equal(t, -1, o.MaxReconnect)
	assert.Empty(t, o.Token)
	assert.NotNil(t, o.AsyncErrorCB)

	o = apply(t, options("npat-socket-1", "s3cret"))
	assert.Equal(t, "s3cret", o.Token)
}

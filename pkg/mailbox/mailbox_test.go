package mailbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChannelSendReceive(t *testing.T) {
	c := New[int](1)
	ctx := context.Background()

	assert.NoError(t, c.Send(ctx, 42))
	v, err := c.Receive(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestChannelReceiveTimesOut(t *testing.T) {
	c := New[string](1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := c.Receive(ctx)
	assert.Error(t, err)
}

func TestChannelTrySendFullReturnsNetworkError(t *testing.T) {
	c := New[int](1)
	assert.NoError(t, c.TrySend(1))
	err := c.TrySend(2)
	assert.Error(t, err)
}

func TestChannelReceiveAfterCloseReturnsError(t *testing.T) {
	c := New[int](1)
	c.Close()
	_, err := c.Receive(context.Background())
	assert.Error(t, err)
}

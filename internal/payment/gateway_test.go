package payment

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateway_ProcessPayment(t *testing.T) {
	g := NewGatewayWithDelay(0, 0)

	res, err := g.ProcessPayment(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.ErrorCode)
	assert.True(t, strings.HasPrefix(res.TransactionID, "TXN_"))
	assert.Greater(t, len(res.TransactionID), len("TXN_"))
}

func TestGateway_ProcessPayment_UniqueTransactionIDs(t *testing.T) {
	g := NewGatewayWithDelay(0, 0)

	a, err := g.ProcessPayment(context.Background())
	require.NoError(t, err)
	b, err := g.ProcessPayment(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, a.TransactionID, b.TransactionID)
}

func TestGateway_ProcessPayment_ContextCancelled(t *testing.T) {
	g := NewGatewayWithDelay(time.Minute, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := g.ProcessPayment(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, res.Success)
}

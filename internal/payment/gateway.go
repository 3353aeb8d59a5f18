package payment

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// Result is what the gateway reports back once the simulated settlement
// resolves. ErrorCode is empty on success.
type Result struct {
	Success       bool
	TransactionID string
	ErrorCode     string
}

// Gateway is a stand-in for a real payment provider. It settles after a
// randomized delay and always succeeds in this deployment; callers still have
// to handle the failure branch of Result.
type Gateway struct {
	minDelay time.Duration
	maxDelay time.Duration
}

func NewGateway() *Gateway {
	return &Gateway{minDelay: 300 * time.Millisecond, maxDelay: 800 * time.Millisecond}
}

// NewGatewayWithDelay is used by tests to strip the simulated latency.
func NewGatewayWithDelay(min, max time.Duration) *Gateway {
	return &Gateway{minDelay: min, maxDelay: max}
}

func (g *Gateway) ProcessPayment(ctx context.Context) (Result, error) {
	delay := g.minDelay
	if g.maxDelay > g.minDelay {
		delay += time.Duration(rand.Int63n(int64(g.maxDelay - g.minDelay)))
	}

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-time.After(delay):
	}

	return Result{
		Success:       true,
		TransactionID: "TXN_" + uuid.NewString(),
	}, nil
}

package llmclient

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/kortexhq/kortex/pkg/types"
)

// CircuitBreakerConfig mirrors the config.CircuitBreakerConfig fields this
// package needs, kept decoupled from pkg/config so llmclient has no import
// cycle back to it.
type CircuitBreakerConfig struct {
	MaxRequests      uint32
	Interval         float64 // seconds
	Timeout          float64 // seconds
	ReadyToTripRatio float64
}

// CircuitBreakerClient wraps a Client with a gobreaker circuit breaker so a
// failing provider stops absorbing queue capacity once it is clearly down.
type CircuitBreakerClient struct {
	client Client
	cb     *gobreaker.CircuitBreaker
	log    *slog.Logger
}

// NewCircuitBreakerClient wraps client, naming the breaker for log output.
func NewCircuitBreakerClient(client Client, cfg CircuitBreakerConfig, name string, log *slog.Logger) *CircuitBreakerClient {
	if log == nil {
		log = slog.Default()
	}
	ratio := cfg.ReadyToTripRatio
	if ratio <= 0 {
		ratio = 0.6
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    time.Duration(cfg.Interval * float64(time.Second)),
		Timeout:     time.Duration(cfg.Timeout * float64(time.Second)),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= ratio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				log.Warn("llm circuit breaker opened", "breaker", name, "from", from.String())
			} else {
				log.Info("llm circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			}
		},
	}

	return &CircuitBreakerClient{client: client, cb: gobreaker.NewCircuitBreaker(settings), log: log}
}

// Chat implements Client.
func (c *CircuitBreakerClient) Chat(ctx context.Context, messages []types.Message) (*types.CompletionResponse, error) {
	resp, err := c.cb.Execute(func() (any, error) {
		return c.client.Chat(ctx, messages)
	})
	if err != nil {
		return nil, err
	}
	return resp.(*types.CompletionResponse), nil
}

// ChatJSON implements Client.
func (c *CircuitBreakerClient) ChatJSON(ctx context.Context, messages []types.Message, schema any) (*types.CompletionResponse, error) {
	resp, err := c.cb.Execute(func() (any, error) {
		return c.client.ChatJSON(ctx, messages, schema)
	})
	if err != nil {
		return nil, err
	}
	return resp.(*types.CompletionResponse), nil
}

// Close implements Client.
func (c *CircuitBreakerClient) Close() error { return c.client.Close() }

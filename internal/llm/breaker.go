package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig controls when the circuit opens.
type BreakerConfig struct {
	Name        string
	MaxFailures uint32
	OpenTimeout time.Duration
}

type breakerProvider struct {
	next Provider
	cb   *gobreaker.CircuitBreaker
}

// WithBreaker wraps next so that consecutive upstream failures open the circuit
// and later calls fail fast with ErrCircuitOpen until OpenTimeout elapses.
func WithBreaker(next Provider, cfg BreakerConfig, logger *zap.Logger) Provider {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	st := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		// A caller giving up says nothing about upstream health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrUnsupported)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("circuit breaker state", zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	}
	return &breakerProvider{next: next, cb: gobreaker.NewCircuitBreaker(st)}
}

func (b *breakerProvider) GenerateText(ctx context.Context, prompt string) (TextReply, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.GenerateText(ctx, prompt)
	})
	if err != nil {
		return TextReply{}, breakerError(err)
	}
	return res.(TextReply), nil
}

func (b *breakerProvider) GenerateImage(ctx context.Context, prompt string) (ImageReply, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.GenerateImage(ctx, prompt)
	})
	if err != nil {
		return ImageReply{}, breakerError(err)
	}
	return res.(ImageReply), nil
}

func breakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	return err
}

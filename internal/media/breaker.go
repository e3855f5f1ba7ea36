package media

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerUploader stops calling a failing image store for a while so that
// product writes fail fast instead of queueing on a dead upstream.
type BreakerUploader struct {
	next Uploader
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerUploader wraps next with a circuit breaker named name.
func NewBreakerUploader(name string, next Uploader, logger *zap.Logger) *BreakerUploader {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		// Bad input from the client says nothing about upstream health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrInvalidSource)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn(
				"Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
	return &BreakerUploader{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

// Upload forwards to the wrapped uploader unless the breaker is open.
func (b *BreakerUploader) Upload(ctx context.Context, source, folder string) (string, error) {
	return executeWithBreaker(b.cb, func() (string, error) {
		return b.next.Upload(ctx, source, folder)
	})
}

func executeWithBreaker[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	res, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return *new(T), err
	}
	return res.(T), nil
}

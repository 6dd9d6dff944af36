package notify

import (
	"context"
	"time"

	"storefront/internal/usecase"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Breaker は通知先が落ちているあいだ呼び出しを止める。
// 開いている間は gobreaker.ErrOpenState をすぐ返す
type Breaker struct {
	next usecase.OrderNotifier
	cb   *gobreaker.CircuitBreaker[struct{}]
}

type BreakerSettings struct {
	Name             string
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

func NewBreaker(next usecase.OrderNotifier, s BreakerSettings, log *zap.Logger) *Breaker {
	if s.FailureThreshold == 0 {
		s.FailureThreshold = 5
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= s.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &Breaker{next: next, cb: cb}
}

func (b *Breaker) Notify(ctx context.Context, ev usecase.OrderEvent) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.Notify(ctx, ev)
	})
	return err
}

func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

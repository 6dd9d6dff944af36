package payment

import (
	"context"
	"errors"
	"time"

	"storefront/internal/usecase"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// BreakerGateway は決済ゲートウェイの連続失敗で回路を開く
type BreakerGateway struct {
	next usecase.PaymentGateway
	cb   *gobreaker.CircuitBreaker[usecase.PaymentHandle]
}

func NewBreakerGateway(next usecase.PaymentGateway, log *zap.Logger) *BreakerGateway {
	if log == nil {
		log = zap.NewNop()
	}
	cb := gobreaker.NewCircuitBreaker[usecase.PaymentHandle](gobreaker.Settings{
		Name:        "payment-gateway",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
		// 呼び出し元のキャンセルは相手の障害に数えない
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &BreakerGateway{next: next, cb: cb}
}

func (g *BreakerGateway) CreatePaymentHandle(ctx context.Context, req usecase.PaymentRequest) (usecase.PaymentHandle, error) {
	return g.cb.Execute(func() (usecase.PaymentHandle, error) {
		return g.next.CreatePaymentHandle(ctx, req)
	})
}

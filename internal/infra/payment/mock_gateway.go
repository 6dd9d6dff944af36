package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/usecase"
)

// MockGateway は外部決済の代わりに決済refを払い出す。
// 完了通知は POST /payments/confirm で受ける
type MockGateway struct {
	now func() time.Time
}

func NewMockGateway() *MockGateway {
	return &MockGateway{now: time.Now}
}

func (g *MockGateway) CreatePaymentHandle(ctx context.Context, req usecase.PaymentRequest) (usecase.PaymentHandle, error) {
	if err := ctx.Err(); err != nil {
		return usecase.PaymentHandle{}, err
	}
	if req.OrderID <= 0 {
		return usecase.PaymentHandle{}, errors.New("payment request without order")
	}
	if !req.Amount.IsPositive() {
		return usecase.PaymentHandle{}, fmt.Errorf("invalid amount %s", req.Amount.StringFixed(2))
	}
	return usecase.PaymentHandle{
		Ref:          fmt.Sprintf("pi_mock_%d_%d", req.OrderID, g.now().UnixMilli()),
		ClientSecret: fmt.Sprintf("pi_mock_secret_%d", req.OrderID),
	}, nil
}

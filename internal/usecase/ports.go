package usecase

import (
	"context"
	"time"

	"storefront/internal/metrics"

	"github.com/shopspring/decimal"
)

// カート表示のキャッシュ。無ければ ErrCacheMiss を返す。
// Delete のたびにユーザーの世代が進み、Set は DB を読む前に Generation で得た世代が
// 変わっていないときだけ書く（書かなかったときは false）
type CartCache interface {
	Get(ctx context.Context, userID int64) (CartView, error)
	Generation(ctx context.Context, userID int64) (int64, error)
	Set(ctx context.Context, userID int64, gen int64, view CartView) (bool, error)
	Delete(ctx context.Context, userID int64) error
}

const (
	EventOrderPlaced  = "order.placed"
	EventOrderPaid    = "order.paid"
	EventOrderShipped = "order.shipped"
)

type OrderEventItem struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int64  `json:"quantity"`
	Price       string `json:"price"`
}

type OrderEvent struct {
	Type        string           `json:"type"`
	OrderID     int64            `json:"order_id"`
	OrderNumber string           `json:"order_number"`
	UserID      int64            `json:"user_id"`
	Email       string           `json:"email"`
	FirstName   string           `json:"first_name"`
	Status      string           `json:"status"`
	TotalPrice  string           `json:"total_price"`
	Items       []OrderEventItem `json:"items"`
	OccurredAt  time.Time        `json:"occurred_at"`
}

// 通知先（メール・イベント）。失敗しても呼び出し側はログに残して続行する
type OrderNotifier interface {
	Notify(ctx context.Context, event OrderEvent) error
}

type PaymentRequest struct {
	OrderID     int64
	OrderNumber string
	Amount      decimal.Decimal
}

type PaymentHandle struct {
	Ref          string
	ClientSecret string
}

type PaymentGateway interface {
	CreatePaymentHandle(ctx context.Context, req PaymentRequest) (PaymentHandle, error)
}

// 各usecaseが共有する周辺部品。nilのものは無効扱い
type Collaborators struct {
	Cache         CartCache
	Notifier      OrderNotifier
	Metrics       *metrics.Metrics
	NotifyTimeout time.Duration
}

func (c Collaborators) withDefaults() Collaborators {
	if c.Cache == nil {
		c.Cache = noCache{}
	}
	if c.Notifier == nil {
		c.Notifier = noNotifier{}
	}
	if c.NotifyTimeout <= 0 {
		c.NotifyTimeout = 3 * time.Second
	}
	return c
}

type noCache struct{}

func (noCache) Get(context.Context, int64) (CartView, error)              { return CartView{}, ErrCacheMiss }
func (noCache) Generation(context.Context, int64) (int64, error)           { return 0, nil }
func (noCache) Set(context.Context, int64, int64, CartView) (bool, error) { return false, nil }
func (noCache) Delete(context.Context, int64) error                        { return nil }

type noNotifier struct{}

func (noNotifier) Notify(context.Context, OrderEvent) error { return nil }

package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/pkg/logging"
	repo "storefront/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// PaymentUsecase は決済ハンドルの発行と、決済完了通知の突き合わせを行う。
// 在庫は注文確定時に減算済みなので、ここでは一切触らない。
type PaymentUsecase struct {
	tx      repo.TransactionManager
	gateway PaymentGateway
	events  eventSender
	c       Collaborators
	now     func() time.Time
}

func NewPaymentUsecase(tx repo.TransactionManager, gateway PaymentGateway, users repo.UserRepository, c Collaborators) *PaymentUsecase {
	c = c.withDefaults()
	return &PaymentUsecase{
		tx:      tx,
		gateway: gateway,
		events:  eventSender{users: users, c: c},
		c:       c,
		now:     time.Now,
	}
}

type PaymentIntentOutput struct {
	OrderID      int64  `json:"order_id"`
	PaymentRef   string `json:"payment_ref"`
	ClientSecret string `json:"client_secret,omitempty"`
}

// CreatePaymentIntent は本人の PENDING 注文に決済ハンドルを1つだけ紐づける。
// 既に紐づいていればそのrefを返す（client_secretは初回のみ）
func (u *PaymentUsecase) CreatePaymentIntent(ctx context.Context, userID int64, orderID int64) (PaymentIntentOutput, error) {
	if userID <= 0 {
		return PaymentIntentOutput{}, ErrUnauthorized
	}
	if orderID <= 0 {
		return PaymentIntentOutput{}, invalidArgument("invalid order_id")
	}

	o, err := u.loadOwned(ctx, userID, orderID)
	if err != nil {
		return PaymentIntentOutput{}, err
	}
	if o.Status != model.OrderStatusPending {
		return PaymentIntentOutput{}, ErrAlreadyConfirmed
	}
	if o.PaymentRef != nil {
		return PaymentIntentOutput{OrderID: o.ID, PaymentRef: *o.PaymentRef}, nil
	}

	// 外部呼び出しはTxの外で行う
	h, err := u.gateway.CreatePaymentHandle(ctx, PaymentRequest{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Amount:      o.TotalPrice,
	})
	if err != nil {
		logging.FromContext(ctx).Warn("payment gateway failed", zap.Int64("order_id", o.ID), zap.Error(err))
		return PaymentIntentOutput{}, fmt.Errorf("%w: %w", ErrPaymentUnavailable, err)
	}

	var out PaymentIntentOutput
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		attached, err := r.Orders().AttachPaymentRef(ctx, o.ID, h.Ref)
		if err != nil {
			return dbError("attach payment ref", err)
		}
		if attached {
			out = PaymentIntentOutput{OrderID: o.ID, PaymentRef: h.Ref, ClientSecret: h.ClientSecret}
			return nil
		}

		// 同時に別のrefが付いた・先に支払われた
		cur, err := r.Orders().FindByID(ctx, o.ID)
		if err != nil {
			return dbError("reload order", err)
		}
		if cur.Status != model.OrderStatusPending {
			return ErrAlreadyConfirmed
		}
		if cur.PaymentRef == nil {
			return dbError("attach payment ref", errors.New("no rows updated"))
		}
		out = PaymentIntentOutput{OrderID: cur.ID, PaymentRef: *cur.PaymentRef}
		return nil
	})
	if err != nil {
		return PaymentIntentOutput{}, err
	}
	return out, nil
}

type ConfirmPaymentOutput struct {
	Order            OrderView `json:"order"`
	AlreadyConfirmed bool      `json:"already_confirmed"`
}

// ConfirmPayment は決済refから注文を特定し、PENDING → PAID に一度だけ進める。
// 同じrefの再送は AlreadyConfirmed=true で成功扱い。
func (u *PaymentUsecase) ConfirmPayment(ctx context.Context, paymentRef string) (out ConfirmPaymentOutput, err error) {
	defer u.c.Metrics.ObserveUsecase("confirm_payment", time.Now(), &err)

	ctx, span := tracer.Start(ctx, "PaymentUsecase.ConfirmPayment")
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	paymentRef = strings.TrimSpace(paymentRef)
	if paymentRef == "" {
		return ConfirmPaymentOutput{}, invalidArgument("payment_ref is required")
	}

	var (
		o     model.Order
		items []model.OrderItem
	)
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		o, err = r.Orders().FindByPaymentRef(ctx, paymentRef)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound("payment reference")
		}
		if err != nil {
			return dbError("find order by payment ref", err)
		}

		items, err = r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return dbError("list order items", err)
		}

		paidAt := u.now().UTC()
		marked, err := r.Orders().MarkPaidIfPending(ctx, o.ID, paidAt)
		if err != nil {
			return dbError("mark paid", err)
		}
		if !marked {
			out.AlreadyConfirmed = true
			// 最新の状態を返す
			o, err = r.Orders().FindByID(ctx, o.ID)
			if err != nil {
				return dbError("reload order", err)
			}
			return nil
		}

		o.Status = model.OrderStatusPaid
		o.PaidAt = &paidAt
		return nil
	})
	if err != nil {
		u.c.Metrics.PaymentConfirmation("error")
		return ConfirmPaymentOutput{}, err
	}

	span.SetAttributes(
		attribute.Int64("order.id", o.ID),
		attribute.Bool("payment.replay", out.AlreadyConfirmed),
	)
	out.Order = toOrderView(o, items)

	if out.AlreadyConfirmed {
		u.c.Metrics.PaymentConfirmation("replay")
		logging.FromContext(ctx).Info("payment confirmation replayed", zap.Int64("order_id", o.ID))
		return out, nil
	}

	u.c.Metrics.PaymentConfirmation("confirmed")
	logging.FromContext(ctx).Info("payment confirmed", zap.Int64("order_id", o.ID), zap.String("order_number", o.OrderNumber))
	u.events.send(ctx, EventOrderPaid, o, items)
	return out, nil
}

func (u *PaymentUsecase) loadOwned(ctx context.Context, userID, orderID int64) (model.Order, error) {
	var o model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		o, err = r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) || (err == nil && o.UserID != userID) {
			return notFound("order")
		}
		if err != nil {
			return dbError("find order", err)
		}
		return nil
	})
	return o, err
}

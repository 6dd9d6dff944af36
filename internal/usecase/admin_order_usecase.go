package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/pkg/logging"
	repo "storefront/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

type AdminOrderUsecase struct {
	tx     repo.TransactionManager
	events eventSender
	c      Collaborators
}

func NewAdminOrderUsecase(tx repo.TransactionManager, users repo.UserRepository, c Collaborators) *AdminOrderUsecase {
	c = c.withDefaults()
	return &AdminOrderUsecase{tx: tx, events: eventSender{users: users, c: c}, c: c}
}

type AdminUpdateOrderStatusInput struct {
	Status string
}

// ステータス変更の結果。Changed=false は同じステータスだった
type StatusChange struct {
	Order   OrderView `json:"order"`
	Changed bool      `json:"changed"`
}

// 注文一覧（新しい順）
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) (Page[OrderView], error) {
	if f.Page < 1 {
		return Page[OrderView]{}, invalidArgument("invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return Page[OrderView]{}, invalidArgument("invalid limit")
	}
	if f.Status != "" {
		st, ok := model.ParseOrderStatus(f.Status)
		if !ok {
			return Page[OrderView]{}, invalidArgument("invalid status")
		}
		f.Status = string(st)
	}

	var out Page[OrderView]
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().ListAdmin(ctx, f)
		if err != nil {
			return dbError("list orders", err)
		}
		views, err := withItems(ctx, r, orders)
		if err != nil {
			return err
		}
		out = Page[OrderView]{Items: views, Total: total, Page: f.Page, Limit: f.Limit}
		return nil
	})
	if err != nil {
		return Page[OrderView]{}, err
	}
	return out, nil
}

// UpdateStatus は PENDING → PAID → SHIPPED の前進だけを受け付ける。
// 同じステータスなら何もしない。SHIPPED になったら発送通知を送る。
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actorAdminUserID int64, orderID int64, in AdminUpdateOrderStatusInput) (out StatusChange, err error) {
	defer u.c.Metrics.ObserveUsecase("update_order_status", time.Now(), &err)

	ctx, span := tracer.Start(ctx, "AdminOrderUsecase.UpdateStatus")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", orderID))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	if actorAdminUserID <= 0 {
		return StatusChange{}, ErrUnauthorized
	}
	if orderID <= 0 {
		return StatusChange{}, invalidArgument("invalid id")
	}
	newStatus, ok := model.ParseOrderStatus(in.Status)
	if !ok {
		return StatusChange{}, invalidArgument("invalid status")
	}

	var (
		o     model.Order
		items []model.OrderItem
	)
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		o, err = r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound("order")
		}
		if err != nil {
			return dbError("find order", err)
		}

		items, err = r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return dbError("list order items", err)
		}

		if o.Status == newStatus {
			return nil
		}
		if !o.Status.CanMoveTo(newStatus) {
			return invalidArgument(fmt.Sprintf("cannot change status from %s to %s", o.Status, newStatus))
		}

		// 読んだ時点のステータスから変わっていなければ更新
		updated, err := r.Orders().UpdateStatusFrom(ctx, orderID, o.Status, newStatus)
		if err != nil {
			return dbError("update status", err)
		}
		if !updated {
			return fmt.Errorf("%w: order status changed concurrently", ErrConflict)
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorAdminUserID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   fmt.Sprintf(`{"status":%q}`, o.Status),
			AfterJSON:    fmt.Sprintf(`{"status":%q}`, newStatus),
			CreatedAt:    time.Now(),
		}); err != nil {
			return dbError("create audit log", err)
		}

		out.Changed = true
		return nil
	})
	if err != nil {
		return StatusChange{}, err
	}

	if !out.Changed {
		out.Order = toOrderView(o, items)
		return out, nil
	}

	before := o.Status
	o.Status = newStatus
	out.Order = toOrderView(o, items)

	logging.FromContext(ctx).Info("order status updated",
		zap.Int64("order_id", orderID),
		zap.Int64("actor_user_id", actorAdminUserID),
		zap.String("from", string(before)),
		zap.String("to", string(newStatus)),
	)

	if newStatus == model.OrderStatusShipped {
		u.events.send(ctx, EventOrderShipped, o, items)
	}
	return out, nil
}

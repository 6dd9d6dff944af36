package usecase

import (
	"context"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/pkg/logging"
	repo "storefront/internal/repository"

	"go.uber.org/zap"
)

// コミット後に呼ぶ通知。失敗はログとメトリクスに残すだけで呼び出し元には返さない
type eventSender struct {
	users repo.UserRepository
	c     Collaborators
}

func (s eventSender) send(ctx context.Context, typ string, o model.Order, items []model.OrderItem) {
	log := logging.FromContext(ctx).With(
		zap.String("event", typ),
		zap.Int64("order_id", o.ID),
		zap.String("order_number", o.OrderNumber),
	)

	// 元のリクエストが切れても通知は最後まで送る
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.c.NotifyTimeout)
	defer cancel()

	ev := OrderEvent{
		Type:        typ,
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		Status:      string(o.Status),
		TotalPrice:  money(o.TotalPrice),
		Items:       make([]OrderEventItem, 0, len(items)),
		OccurredAt:  time.Now().UTC(),
	}
	for _, it := range items {
		ev.Items = append(ev.Items, OrderEventItem{
			ProductID:   it.ProductID,
			ProductName: it.ProductNameSnapshot,
			Quantity:    it.Quantity,
			Price:       money(it.UnitPriceSnapshot),
		})
	}

	if s.users != nil {
		u, err := s.users.FindByID(nctx, o.UserID)
		if err != nil {
			s.c.Metrics.NotificationFailed(typ)
			log.Warn("notification skipped: user lookup failed", zap.Error(err))
			return
		}
		ev.Email = u.Email
		ev.FirstName = u.FirstName
	}

	if err := s.c.Notifier.Notify(nctx, ev); err != nil {
		s.c.Metrics.NotificationFailed(typ)
		log.Warn("notification failed", zap.Error(err))
		return
	}
	log.Debug("notification sent")
}

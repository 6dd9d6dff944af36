package notify

import (
	"context"
	"errors"

	"storefront/internal/usecase"
)

// Multi は全ての通知先に送る。1つが失敗しても残りには送る
type Multi []usecase.OrderNotifier

func (m Multi) Notify(ctx context.Context, ev usecase.OrderEvent) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type CartRepository interface {
	// 無ければ空のカートを作る
	GetOrCreateByUserID(ctx context.Context, userID int64) (model.Cart, error)
	// 注文確定用。カート行をロックして取得する
	FindByUserIDForUpdate(ctx context.Context, userID int64) (model.Cart, error)
	Clear(ctx context.Context, cartID int64) error
}

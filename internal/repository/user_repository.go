package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// 認証そのものは扱わない。本人確認・通知先の解決・集計に使う
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Count(ctx context.Context) (int64, error)
}

package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// アドレス帳
type AddressRepository interface {
	Create(ctx context.Context, address model.SavedAddress) (model.SavedAddress, error)
	ListByUserID(ctx context.Context, userID int64) ([]model.SavedAddress, error)
	FindByID(ctx context.Context, addressID int64) (model.SavedAddress, error)
	Delete(ctx context.Context, addressID int64) error
	// user内でdefaultは1つ
	SetDefault(ctx context.Context, userID, addressID int64) error
}

package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// 一覧検索
type ProductListQuery struct {
	Page  int
	Limit int
	Q     string
	Sort  string
}

// 商品の読み取り。在庫の増減は InventoryRepository が担当する
type ProductRepository interface {
	ListPublic(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)
	FindByIDs(ctx context.Context, ids []int64) (map[int64]model.Product, error)
	FindByName(ctx context.Context, name string) (model.Product, error)
	Create(ctx context.Context, p model.Product) (model.Product, error)
	Count(ctx context.Context) (int64, error)
}

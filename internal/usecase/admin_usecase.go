package usecase

import (
	"context"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

// 管理画面の集計と監査ログ参照
type AdminUsecase struct {
	orders    repo.OrderRepository
	users     repo.UserRepository
	products  repo.ProductRepository
	auditRepo repo.AuditLogRepository
}

func NewAdminUsecase(
	orders repo.OrderRepository,
	users repo.UserRepository,
	products repo.ProductRepository,
	auditRepo repo.AuditLogRepository,
) *AdminUsecase {
	return &AdminUsecase{orders: orders, users: users, products: products, auditRepo: auditRepo}
}

type StatsOutput struct {
	TotalSales    string `json:"total_sales"`
	TotalOrders   int64  `json:"total_orders"`
	TotalUsers    int64  `json:"total_users"`
	TotalProducts int64  `json:"total_products"`
}

func (u *AdminUsecase) Stats(ctx context.Context) (StatsOutput, error) {
	sales, err := u.orders.SumTotal(ctx)
	if err != nil {
		return StatsOutput{}, dbError("sum sales", err)
	}
	orders, err := u.orders.Count(ctx)
	if err != nil {
		return StatsOutput{}, dbError("count orders", err)
	}
	users, err := u.users.Count(ctx)
	if err != nil {
		return StatsOutput{}, dbError("count users", err)
	}
	products, err := u.products.Count(ctx)
	if err != nil {
		return StatsOutput{}, dbError("count products", err)
	}

	return StatsOutput{
		TotalSales:    money(sales),
		TotalOrders:   orders,
		TotalUsers:    users,
		TotalProducts: products,
	}, nil
}

func (u *AdminUsecase) ListAuditLogs(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	if f.Limit < 0 || f.Limit > 200 {
		return nil, invalidArgument("invalid limit")
	}
	if f.Offset < 0 {
		return nil, invalidArgument("invalid offset")
	}
	logs, err := u.auditRepo.List(ctx, f)
	if err != nil {
		return nil, dbError("list audit logs", err)
	}
	return logs, nil
}

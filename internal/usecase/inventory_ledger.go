package usecase

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
	"storefront/internal/metrics"
	repo "storefront/internal/repository"
)

// InventoryLedger は商品在庫の増減を一手に引き受ける。
// 呼び出し側のTx(TxRepos)の中で動き、増減ごとに履歴を1行残す。
type InventoryLedger struct {
	metrics *metrics.Metrics
}

func NewInventoryLedger(m *metrics.Metrics) *InventoryLedger {
	return &InventoryLedger{metrics: m}
}

type Reservation struct {
	ProductID   int64
	ProductName string
	Quantity    int64
	OrderID     *int64
}

// Reserve は在庫が足りるときだけ減らす。足りなければ何も変えずに
// *InsufficientStockError を返す。
func (l *InventoryLedger) Reserve(ctx context.Context, r repo.TxRepos, res Reservation) error {
	if res.Quantity <= 0 {
		return invalidArgument("quantity must be greater than 0")
	}

	ok, err := r.Inventory().DecreaseStockIfEnough(ctx, res.ProductID, res.Quantity)
	if err != nil {
		return dbError("decrease stock", err)
	}
	if !ok {
		l.metrics.StockRejected()

		// 不足分を返すために最新の在庫を読む
		p, err := r.Products().FindByID(ctx, res.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound("product")
		}
		if err != nil {
			return dbError("find product", err)
		}
		name := res.ProductName
		if name == "" {
			name = p.Name
		}
		return &InsufficientStockError{
			ProductID:   res.ProductID,
			ProductName: name,
			Requested:   res.Quantity,
			Available:   p.Stock,
		}
	}

	if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
		ProductID: res.ProductID,
		OrderID:   res.OrderID,
		Delta:     -res.Quantity,
		Reason:    model.AdjustmentReasonOrderReserve,
	}); err != nil {
		return dbError("record adjustment", err)
	}
	return nil
}

type Release struct {
	ProductID   int64
	Quantity    int64
	ActorUserID *int64
	OrderID     *int64
	Reason      string
}

// Release は Reserve と対になる増加（入荷・戻し）
func (l *InventoryLedger) Release(ctx context.Context, r repo.TxRepos, rel Release) error {
	if rel.Quantity <= 0 {
		return invalidArgument("quantity must be greater than 0")
	}
	if rel.Reason == "" {
		rel.Reason = model.AdjustmentReasonRestock
	}

	if err := r.Inventory().IncreaseStock(ctx, rel.ProductID, rel.Quantity); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return notFound("product")
		}
		return dbError("increase stock", err)
	}

	if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
		ProductID:   rel.ProductID,
		ActorUserID: rel.ActorUserID,
		OrderID:     rel.OrderID,
		Delta:       rel.Quantity,
		Reason:      rel.Reason,
	}); err != nil {
		return dbError("record adjustment", err)
	}
	return nil
}

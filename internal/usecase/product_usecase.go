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

	"go.uber.org/zap"
)

type ProductUsecase struct {
	productRepo   repo.ProductRepository
	inventoryRepo repo.InventoryRepository
	tx            repo.TransactionManager
	ledger        *InventoryLedger
}

// DI
func NewProductUsecase(
	productRepo repo.ProductRepository,
	inventoryRepo repo.InventoryRepository,
	tx repo.TransactionManager,
	ledger *InventoryLedger,
) *ProductUsecase {
	return &ProductUsecase{
		productRepo:   productRepo,
		inventoryRepo: inventoryRepo,
		tx:            tx,
		ledger:        ledger,
	}
}

// GET /productsの入力DTO
type ListProductsInput struct {
	Page  int
	Limit int
	Q     string
	Sort  string
}

type ProductView struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	Price       string `json:"price"`
	Stock       int64  `json:"stock"`
}

func toProductView(p model.Product) ProductView {
	return ProductView{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		Price:       money(p.Price),
		Stock:       p.Stock,
	}
}

func (u *ProductUsecase) ListPublicProducts(ctx context.Context, in ListProductsInput) (Page[ProductView], error) {
	if in.Page < 1 {
		return Page[ProductView]{}, invalidArgument("invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return Page[ProductView]{}, invalidArgument("invalid limit")
	}
	if len(in.Q) > 100 {
		return Page[ProductView]{}, invalidArgument("q too long")
	}
	switch in.Sort {
	case "", "new", "price_asc", "price_desc":
	default:
		return Page[ProductView]{}, invalidArgument("invalid sort")
	}

	items, total, err := u.productRepo.ListPublic(ctx, repo.ProductListQuery{
		Page:  in.Page,
		Limit: in.Limit,
		Q:     strings.TrimSpace(in.Q),
		Sort:  in.Sort,
	})
	if err != nil {
		return Page[ProductView]{}, dbError("list products", err)
	}

	views := make([]ProductView, 0, len(items))
	for _, p := range items {
		views = append(views, toProductView(p))
	}
	return Page[ProductView]{Items: views, Total: total, Page: in.Page, Limit: in.Limit}, nil
}

// 非公開の商品は存在しない扱い
func (u *ProductUsecase) GetProductDetail(ctx context.Context, productID int64) (ProductView, error) {
	if productID <= 0 {
		return ProductView{}, invalidArgument("invalid product id")
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return ProductView{}, notFound("product")
	}
	if err != nil {
		return ProductView{}, dbError("find product", err)
	}
	if !p.IsActive {
		return ProductView{}, notFound("product")
	}
	return toProductView(p), nil
}

type RestockInput struct {
	Quantity int64
	Reason   string
}

type RestockOutput struct {
	ProductID   int64 `json:"product_id"`
	StockBefore int64 `json:"stock_before"`
	StockAfter  int64 `json:"stock_after"`
}

// Restock は管理者による入荷。在庫台帳の増加と監査ログを同じTxで書く
func (u *ProductUsecase) Restock(ctx context.Context, adminUserID int64, productID int64, in RestockInput) (RestockOutput, error) {
	if adminUserID <= 0 {
		return RestockOutput{}, ErrUnauthorized
	}
	if productID <= 0 {
		return RestockOutput{}, invalidArgument("invalid product id")
	}
	if in.Quantity <= 0 {
		return RestockOutput{}, invalidArgument("quantity must be greater than 0")
	}
	reason := strings.TrimSpace(in.Reason)
	if len(reason) > 255 {
		return RestockOutput{}, invalidArgument("reason too long")
	}

	var out RestockOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//変更前の在庫（before）
		p, err := r.Products().FindByID(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound("product")
		}
		if err != nil {
			return dbError("find product", err)
		}

		actor := adminUserID
		if err := u.ledger.Release(ctx, r, Release{
			ProductID:   productID,
			Quantity:    in.Quantity,
			ActorUserID: &actor,
			Reason:      reason,
		}); err != nil {
			return err
		}

		out = RestockOutput{
			ProductID:   productID,
			StockBefore: p.Stock,
			StockAfter:  p.Stock + in.Quantity,
		}

		//監査ログ（在庫更新）
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  adminUserID,
			Action:       model.AuditActionRestock,
			ResourceType: model.AuditResourceProduct,
			ResourceID:   productID,
			BeforeJSON:   fmt.Sprintf(`{"stock":%d}`, out.StockBefore),
			AfterJSON:    fmt.Sprintf(`{"stock":%d}`, out.StockAfter),
			CreatedAt:    time.Now(),
		}); err != nil {
			return dbError("create audit log", err)
		}
		return nil
	})
	if err != nil {
		return RestockOutput{}, err
	}

	logging.FromContext(ctx).Info("product restocked",
		zap.Int64("product_id", productID),
		zap.Int64("actor_user_id", adminUserID),
		zap.Int64("quantity", in.Quantity),
		zap.Int64("stock_after", out.StockAfter),
	)
	return out, nil
}

// 在庫履歴（新しい順）
func (u *ProductUsecase) ListAdjustments(ctx context.Context, productID int64, limit int) ([]model.InventoryAdjustment, error) {
	if productID <= 0 {
		return nil, invalidArgument("invalid product id")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if _, err := u.productRepo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, notFound("product")
		}
		return nil, dbError("find product", err)
	}

	adj, err := u.inventoryRepo.ListAdjustments(ctx, productID, limit)
	if err != nil {
		return nil, dbError("list adjustments", err)
	}
	return adj, nil
}

package usecase

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/pkg/logging"
	repo "storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("storefront/usecase")

type OrderUsecase struct {
	tx        repo.TransactionManager
	addresses *AddressUsecase
	ledger    *InventoryLedger
	events    eventSender
	c         Collaborators
	newNumber func() string
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	addresses *AddressUsecase,
	users repo.UserRepository,
	ledger *InventoryLedger,
	c Collaborators,
) *OrderUsecase {
	c = c.withDefaults()
	return &OrderUsecase{
		tx:        tx,
		addresses: addresses,
		ledger:    ledger,
		events:    eventSender{users: users, c: c},
		c:         c,
		newNumber: uuid.NewString,
	}
}

// 配送先は Shipping か AddressID のどちらか
type PlaceOrderInput struct {
	Shipping       *model.Address
	AddressID      int64
	IdempotencyKey string
}

// PlaceOrder はカートを注文に変える。
// 在庫確認・在庫減算・注文作成・カートクリアは1つのTxで、どれかが失敗すれば何も残らない。
func (u *OrderUsecase) PlaceOrder(ctx context.Context, userID int64, in PlaceOrderInput) (out OrderView, err error) {
	defer u.c.Metrics.ObserveUsecase("place_order", time.Now(), &err)

	ctx, span := tracer.Start(ctx, "OrderUsecase.PlaceOrder")
	defer span.End()
	span.SetAttributes(attribute.Int64("user.id", userID))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	if userID <= 0 {
		return OrderView{}, ErrUnauthorized
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if len(key) > 255 {
		return OrderView{}, invalidArgument("invalid idempotency key")
	}

	shipping, err := u.shippingAddress(ctx, userID, in)
	if err != nil {
		return OrderView{}, err
	}

	var (
		created  model.Order
		items    []model.OrderItem
		replayed bool
	)

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じカートの同時確定はここで待たされる
		cart, err := r.Carts().FindByUserIDForUpdate(ctx, userID)
		noCart := errors.Is(err, repo.ErrNotFound)
		if err != nil && !noCart {
			return dbError("lock cart", err)
		}

		// 同じキーなら同じ結果
		if key != "" {
			existing, found, err := r.Orders().FindByIdempotencyKey(ctx, userID, key)
			if err != nil {
				return dbError("find by idempotency key", err)
			}
			if found {
				its, err := r.OrderItems().ListByOrderID(ctx, existing.ID)
				if err != nil {
					return dbError("list order items", err)
				}
				created, items, replayed = existing, its, true
				return nil
			}
		}

		if noCart {
			return ErrEmptyCart
		}
		lines, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return dbError("list cart items", err)
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		// 価格はカートのスナップショットではなく、確定時点の商品価格を使う
		total := decimal.Zero
		items = make([]model.OrderItem, 0, len(lines))
		for _, line := range lines {
			p, err := r.Products().FindByID(ctx, line.ProductID)
			if errors.Is(err, repo.ErrNotFound) || (err == nil && !p.IsActive) {
				return notFound("product")
			}
			if err != nil {
				return dbError("find product", err)
			}
			if p.Stock < line.Quantity {
				u.c.Metrics.StockRejected()
				return &InsufficientStockError{
					ProductID:   p.ID,
					ProductName: p.Name,
					Requested:   line.Quantity,
					Available:   p.Stock,
				}
			}

			it := model.OrderItem{
				ProductID:            p.ID,
				ProductNameSnapshot:  p.Name,
				ProductImageSnapshot: p.ImageURL,
				UnitPriceSnapshot:    p.Price,
				Quantity:             line.Quantity,
			}
			items = append(items, it)
			total = total.Add(it.Subtotal())
		}

		created = model.Order{
			OrderNumber:     u.newNumber(),
			UserID:          userID,
			ShippingAddress: shipping,
			Status:          model.OrderStatusPending,
			TotalPrice:      total,
		}
		if key != "" {
			created.IdempotencyKey = &key
		}
		orderID, err := r.Orders().Create(ctx, created)
		if errors.Is(err, repo.ErrDuplicate) {
			return ErrConflict
		}
		if err != nil {
			return dbError("create order", err)
		}
		created.ID = orderID

		// 在庫減算は条件付きUPDATE。先に確定した注文がいればここで不足になる。
		// 行ロックの順序を揃えるため商品ID順に減らす
		byProduct := slices.Clone(items)
		slices.SortFunc(byProduct, func(a, b model.OrderItem) int {
			return cmp.Compare(a.ProductID, b.ProductID)
		})
		for _, it := range byProduct {
			if err := u.ledger.Reserve(ctx, r, Reservation{
				ProductID:   it.ProductID,
				ProductName: it.ProductNameSnapshot,
				Quantity:    it.Quantity,
				OrderID:     &orderID,
			}); err != nil {
				return err
			}
		}

		if err := r.OrderItems().CreateBulk(ctx, orderID, items); err != nil {
			return dbError("create order items", err)
		}
		if err := r.Carts().Clear(ctx, cart.ID); err != nil {
			return dbError("clear cart", err)
		}

		// 作成時刻などDBが埋めた値を取り直す
		created, err = r.Orders().FindByID(ctx, orderID)
		if err != nil {
			return dbError("reload order", err)
		}
		return nil
	})
	if err != nil {
		return OrderView{}, err
	}

	out = toOrderView(created, items)
	if replayed {
		span.SetAttributes(attribute.Bool("order.replayed", true))
		return out, nil
	}

	span.SetAttributes(
		attribute.Int64("order.id", created.ID),
		attribute.String("order.number", created.OrderNumber),
	)
	logging.FromContext(ctx).Info("order placed",
		zap.Int64("order_id", created.ID),
		zap.String("order_number", created.OrderNumber),
		zap.String("total", out.TotalPrice),
	)

	if err := u.c.Cache.Delete(ctx, userID); err != nil {
		logging.FromContext(ctx).Warn("cart cache invalidate failed", zap.Int64("user_id", userID), zap.Error(err))
	}
	u.events.send(ctx, EventOrderPlaced, created, items)

	return out, nil
}

func (u *OrderUsecase) shippingAddress(ctx context.Context, userID int64, in PlaceOrderInput) (model.Address, error) {
	if in.Shipping == nil {
		if in.AddressID <= 0 {
			return model.Address{}, invalidArgument("shipping address is required")
		}
		return u.addresses.Resolve(ctx, userID, in.AddressID)
	}
	if blank := in.Shipping.BlankFields(); len(blank) > 0 {
		return model.Address{}, invalidArgument("required: " + strings.Join(blank, ", "))
	}
	return in.Shipping.Trimmed(), nil
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64, page, limit int) (Page[OrderView], error) {
	if userID <= 0 {
		return Page[OrderView]{}, ErrUnauthorized
	}
	if page < 1 {
		return Page[OrderView]{}, invalidArgument("invalid page")
	}
	if limit < 1 || limit > 100 {
		return Page[OrderView]{}, invalidArgument("invalid limit")
	}

	var out Page[OrderView]
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().ListByUserID(ctx, userID, page, limit)
		if err != nil {
			return dbError("list orders", err)
		}
		views, err := withItems(ctx, r, orders)
		if err != nil {
			return err
		}
		out = Page[OrderView]{Items: views, Total: total, Page: page, Limit: limit}
		return nil
	})
	if err != nil {
		return Page[OrderView]{}, err
	}
	return out, nil
}

func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, userID int64, orderID int64) (OrderView, error) {
	if orderID <= 0 {
		return OrderView{}, invalidArgument("invalid id")
	}
	return u.getOwned(ctx, userID, func(r repo.TxRepos) (model.Order, error) {
		return r.Orders().FindByID(ctx, orderID)
	})
}

func (u *OrderUsecase) GetMyOrderByNumber(ctx context.Context, userID int64, orderNumber string) (OrderView, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return OrderView{}, invalidArgument("invalid order number")
	}
	return u.getOwned(ctx, userID, func(r repo.TxRepos) (model.Order, error) {
		return r.Orders().FindByOrderNumber(ctx, orderNumber)
	})
}

func (u *OrderUsecase) getOwned(ctx context.Context, userID int64, find func(r repo.TxRepos) (model.Order, error)) (OrderView, error) {
	if userID <= 0 {
		return OrderView{}, ErrUnauthorized
	}

	var out OrderView
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := find(r)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound("order")
		}
		if err != nil {
			return dbError("find order", err)
		}
		if o.UserID != userID {
			//他人の注文は「存在しない扱い」にする
			return notFound("order")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return dbError("list order items", err)
		}
		out = toOrderView(o, items)
		return nil
	})
	if err != nil {
		return OrderView{}, err
	}
	return out, nil
}

func withItems(ctx context.Context, r repo.TxRepos, orders []model.Order) ([]OrderView, error) {
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	byOrder, err := r.OrderItems().ListByOrderIDs(ctx, ids)
	if err != nil {
		return nil, dbError("list order items", err)
	}

	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, toOrderView(o, byOrder[o.ID]))
	}
	return views, nil
}

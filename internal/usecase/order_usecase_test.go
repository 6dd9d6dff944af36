package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"storefront/internal/domain/model"
	"storefront/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceOrder_TotalsStockAndCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.user(t, "buyer@example.com")

	a := f.product(t, "A", "10.00", 5)
	b := f.product(t, "B", "5.00", 1)
	f.add(t, userID, a.ID, 2)
	f.add(t, userID, b.ID, 1)

	o, err := f.orderUC.PlaceOrder(ctx, userID, usecase.PlaceOrderInput{Shipping: shipping()})
	require.NoError(t, err)

	assert.Equal(t, "25.00", o.TotalPrice)
	assert.Equal(t, string(model.OrderStatusPending), o.Status)
	assert.NotEmpty(t, o.OrderNumber)
	assert.Equal(t, userID, o.UserID)
	assert.Equal(t, *shipping(), o.ShippingAddress)
	require.Len(t, o.Items, 2)

	assert.Equal(t, int64(3), f.stock(t, a.ID))
	assert.Equal(t, int64(0), f.stock(t, b.ID))

	cart, err := f.cartUC.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Equal(t, "0.00", cart.TotalPrice)

	// 台帳に注文分の減算が残る
	adj, err := f.inventory.ListAdjustments(ctx, a.ID, 10)
	require.NoError(t, err)
	require.Len(t, adj, 1)
	assert.Equal(t, int64(-2), adj[0].Delta)
	assert.Equal(t, model.AdjustmentReasonOrderReserve, adj[0].Reason)
	require.NotNil(t, adj[0].OrderID)
	assert.Equal(t, o.ID, *adj[0].OrderID)

	placed := f.notifier.ofType(usecase.EventOrderPlaced)
	require.Len(t, placed, 1)
	assert.Equal(t, "buyer@example.com", placed[0].Email)
	assert.Equal(t, o.OrderNumber, placed[0].OrderNumber)
	assert.Equal(t, "25.00", placed[0].TotalPrice)
}

func TestPlaceOrder_InsufficientStockLeavesCartAndStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.user(t, "buyer@example.com")

	c := f.product(t, "C", "7.50", 1)
	f.add(t, userID, c.ID, 1)
	f.setStock(t, c.ID, 0)

	_, err := f.orderUC.PlaceOrder(ctx, userID, usecase.PlaceOrderInput{Shipping: shipping()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, usecase.ErrInsufficientStock))

	var ise *usecase.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, "C", ise.ProductName)
	assert.Equal(t, int64(1), ise.Requested)
	assert.Equal(t, int64(0), ise.Available)

	cart, err := f.cartUC.GetCart(ctx, userID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, c.ID, cart.Items[0].ProductID)

	assert.Equal(t, int64(0), f.stock(t, c.ID))
	assert.Equal(t, int64(0), f.orderCount(t))
	assert.Empty(t, f.notifier.ofType(usecase.EventOrderPlaced))
}

func TestPlaceOrder_LaterLineShortRollsBackEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.user(t, "buyer@example.com")

	a := f.product(t, "A", "10.00", 5)
	b := f.product(t, "B", "5.00", 2)
	f.add(t, userID, a.ID, 2)
	f.add(t, userID, b.ID, 2)
	f.setStock(t, b.ID, 1)

	_, err := f.orderUC.PlaceOrder(ctx, userID, usecase.PlaceOrderInput{Shipping: shipping()})
	require.ErrorIs(t, err, usecase.ErrInsufficientStock)

	assert.Equal(t, int64(5), f.stock(t, a.ID))
	assert.Equal(t, int64(1), f.stock(t, b.ID))
	assert.Equal(t, int64(0), f.orderCount(t))

	cart, err := f.cartUC.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)
	assert.Equal(t, int64(4), cart.TotalItems)

	adj, err := f.inventory.ListAdjustments(ctx, a.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, adj)
}

// カートの並びに関係なく商品ID順に在庫を減らす
func TestPlaceOrder_ReservesInProductIDOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.user(t, "buyer@example.com")

	a := f.product(t, "A", "10.00", 5)
	b := f.product(t, "B", "5.00", 5)
	require.Less(t, a.ID, b.ID)
	f.add(t, userID, b.ID, 1)
	f.add(t, userID, a.ID, 1)

	o, err := f.orderUC.PlaceOrder(ctx, userID, usecase.PlaceOrderInput{Shipping: shipping()})
	require.NoError(t, err)

	var reserved []int64
	require.NoError(t, f.db.Model(&model.InventoryAdjustment{}).
		Where("order_id = ?", o.ID).Order("id asc").Pluck("product_id", &reserved).Error)
	assert.Equal(t, []int64{a.ID, b.ID}, reserved)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.user(t, "buyer@example.com")

	// カート未作成
	_, err := f.orderUC.PlaceOrder(ctx, userID, usecase.PlaceOrderInput{Shipping: shipping()})
	assert.ErrorIs(t, err, usecase.ErrEmptyCart)

	// 作成済みだが空
	_, err = f.cartUC.GetCart(ctx, userID)
	require.NoError(t, err)
	_, err = f.orderUC.PlaceOrder(ctx, userID, usecase.PlaceOrderInput{Shipping: shipping()})
	assert.ErrorIs(t, err, usecase.ErrEmptyCart)
	assert.Equal(t, int64(0), f.orderCount(t))
}

func TestPlaceOrder_RejectsBlankAddress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.user(t, "buyer@example.com")
	p := f.product(t, "A", "10.00", 5)
	f.add(t, userID, p.ID, 1)

	addr := shipping()
	addr.City = "   "
	_, err := f.orderUC.PlaceOrder(ctx, userID, usecase.PlaceOrderInput{Shipping: addr})
	require.ErrorIs(t, err, usecase.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "city")

	_, err = f.orderUC.PlaceOrder(ctx, userID, usecase.PlaceOrderInput{})
	assert.ErrorIs(t, err, usecase.ErrInvalidArgument)

	assert.Equal(t, int64(5), f.stock(t, p.ID))
}

func TestPlaceOrder_ChargesCurrentPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.user(t, "buyer@example.com")
	p := f.product(t, "A", "10.00", 5)

	view := f.add(t, userID, p.ID, 2)
	assert.Equal(t, "20.00", view.TotalPrice)

	f.setPrice(t, p.ID, "12.50")

	o, err := f.orderUC.PlaceOrder(ctx, userID, usecase.PlaceOrderInput{Shipping: shipping()})
	require.NoError(t, err)
	assert.Equal(t, "25.00", o.TotalPrice)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "12.50", o.Items[0].Price)

	// 注文後に価格が変わっても注文は変わらない
	f.setPrice(t, p.ID, "99.00")
	got, err := f.orderUC.GetMyOrderDetail(ctx, userID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "25.00", got.TotalPrice)
	assert.Equal(t, "12.50", got.Items[0].Price)
}

func TestPlaceOrder_NotificationFailureDoesNotFailOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.notifier.err = errNotifyDown
	userID := f.user(t, "buyer@example.com")
	p := f.product(t, "A", "10.00", 5)
	f.add(t, userID, p.ID, 1)

	o, err := f.orderUC.PlaceOrder(ctx, userID, usecase.PlaceOrderInput{Shipping: shipping()})
	require.NoError(t, err)
	assert.NotZero(t, o.ID)
	assert.Equal(t, int64(1), f.orderCount(t))
	assert.Equal(t, int64(4), f.stock(t, p.ID))
}

func TestPlaceOrder_IdempotencyKeyReturnsSameOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.user(t, "buyer@example.com")
	p := f.product(t, "A", "10.00", 5)
	f.add(t, userID, p.ID, 1)

	in := usecase.PlaceOrderInput{Shipping: shipping(), IdempotencyKey: "checkout-1"}
	first, err := f.orderUC.PlaceOrder(ctx, userID, in)
	require.NoError(t, err)

	// 再送時にカートに何か入っていても消費しない
	f.add(t, userID, p.ID, 1)
	second, err := f.orderUC.PlaceOrder(ctx, userID, in)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.OrderNumber, second.OrderNumber)
	assert.Equal(t, int64(1), f.orderCount(t))
	assert.Equal(t, int64(4), f.stock(t, p.ID))
	assert.Len(t, f.notifier.ofType(usecase.EventOrderPlaced), 1)

	cart, err := f.cartUC.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
}

func TestPlaceOrder_SavedAddressIsCopied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.user(t, "buyer@example.com")
	otherID := f.user(t, "other@example.com")
	p := f.product(t, "A", "10.00", 5)

	saved, err := f.addressUC.Create(ctx, userID, *shipping())
	require.NoError(t, err)
	foreign, err := f.addressUC.Create(ctx, otherID, *shipping())
	require.NoError(t, err)

	f.add(t, userID, p.ID, 1)

	_, err = f.orderUC.PlaceOrder(ctx, userID, usecase.PlaceOrderInput{AddressID: foreign.ID})
	require.ErrorIs(t, err, usecase.ErrNotFound)

	o, err := f.orderUC.PlaceOrder(ctx, userID, usecase.PlaceOrderInput{AddressID: saved.ID})
	require.NoError(t, err)
	assert.Equal(t, *shipping(), o.ShippingAddress)

	// 住所を消しても注文の配送先は残る
	require.NoError(t, f.addressUC.Delete(ctx, userID, saved.ID))
	got, err := f.orderUC.GetMyOrderDetail(ctx, userID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "Springfield", got.ShippingAddress.City)
}

func TestPlaceOrder_ConcurrentBuyersDoNotOversell(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "A", "10.00", 5)

	buyers := []int64{f.user(t, "one@example.com"), f.user(t, "two@example.com")}
	for _, id := range buyers {
		f.add(t, id, p.ID, 3)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(buyers))
	for i, id := range buyers {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			_, errs[i] = f.orderUC.PlaceOrder(ctx, id, usecase.PlaceOrderInput{Shipping: shipping()})
		}(i, id)
	}
	wg.Wait()

	var ok, short int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, usecase.ErrInsufficientStock):
			short++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, short)
	assert.Equal(t, int64(2), f.stock(t, p.ID))
	assert.Equal(t, int64(1), f.orderCount(t))
}

func TestOrders_OwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner@example.com")
	other := f.user(t, "other@example.com")
	o := f.placed(t, owner)

	_, err := f.orderUC.GetMyOrderDetail(ctx, other, o.ID)
	assert.ErrorIs(t, err, usecase.ErrNotFound)
	_, err = f.orderUC.GetMyOrderByNumber(ctx, other, o.OrderNumber)
	assert.ErrorIs(t, err, usecase.ErrNotFound)

	got, err := f.orderUC.GetMyOrderByNumber(ctx, owner, o.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	mine, err := f.orderUC.ListMyOrders(ctx, owner, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), mine.Total)
	require.Len(t, mine.Items, 1)
	assert.Len(t, mine.Items[0].Items, 1)

	theirs, err := f.orderUC.ListMyOrders(ctx, other, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), theirs.Total)
	assert.Empty(t, theirs.Items)
}

package usecase_test

import (
	"context"
	"testing"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducts_ListAndDetail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bat := f.product(t, "Willow Bat", "350.00", 15)
	f.product(t, "Leather Ball", "35.00", 100)
	hidden, err := f.products.Create(ctx, model.Product{Name: "Hidden Bat", Price: bat.Price, Stock: 1})
	require.NoError(t, err)

	page, err := f.productUC.ListPublicProducts(ctx, usecase.ListProductsInput{Page: 1, Limit: 10, Sort: "price_asc"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "35.00", page.Items[0].Price)
	assert.Equal(t, "350.00", page.Items[1].Price)

	found, err := f.productUC.ListPublicProducts(ctx, usecase.ListProductsInput{Page: 1, Limit: 10, Q: "bat"})
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, bat.ID, found.Items[0].ID)

	_, err = f.productUC.ListPublicProducts(ctx, usecase.ListProductsInput{Page: 1, Limit: 10, Sort: "random"})
	assert.ErrorIs(t, err, usecase.ErrInvalidArgument)
	_, err = f.productUC.ListPublicProducts(ctx, usecase.ListProductsInput{Page: 1, Limit: 101})
	assert.ErrorIs(t, err, usecase.ErrInvalidArgument)

	d, err := f.productUC.GetProductDetail(ctx, bat.ID)
	require.NoError(t, err)
	assert.Equal(t, "Willow Bat", d.Name)

	_, err = f.productUC.GetProductDetail(ctx, hidden.ID)
	assert.ErrorIs(t, err, usecase.ErrNotFound)
	_, err = f.productUC.GetProductDetail(ctx, 9999)
	assert.ErrorIs(t, err, usecase.ErrNotFound)
}

func TestProducts_Restock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	adminID := f.admin(t)
	p := f.product(t, "A", "10.00", 2)

	out, err := f.productUC.Restock(ctx, adminID, p.ID, usecase.RestockInput{Quantity: 8, Reason: "delivery"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), out.StockBefore)
	assert.Equal(t, int64(10), out.StockAfter)
	assert.Equal(t, int64(10), f.stock(t, p.ID))

	adj, err := f.productUC.ListAdjustments(ctx, p.ID, 10)
	require.NoError(t, err)
	require.Len(t, adj, 1)
	assert.Equal(t, int64(8), adj[0].Delta)
	assert.Equal(t, "delivery", adj[0].Reason)
	require.NotNil(t, adj[0].ActorUserID)
	assert.Equal(t, adminID, *adj[0].ActorUserID)
	assert.Nil(t, adj[0].OrderID)

	rt := model.AuditResourceProduct
	logs, err := f.audit.List(ctx, repo.AuditLogFilter{ResourceType: &rt, ResourceID: &p.ID})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.AuditActionRestock, logs[0].Action)
	assert.JSONEq(t, `{"stock":2}`, logs[0].BeforeJSON)
	assert.JSONEq(t, `{"stock":10}`, logs[0].AfterJSON)
}

func TestProducts_RestockValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	adminID := f.admin(t)
	p := f.product(t, "A", "10.00", 2)

	_, err := f.productUC.Restock(ctx, adminID, p.ID, usecase.RestockInput{Quantity: 0})
	assert.ErrorIs(t, err, usecase.ErrInvalidArgument)

	_, err = f.productUC.Restock(ctx, adminID, 9999, usecase.RestockInput{Quantity: 1})
	assert.ErrorIs(t, err, usecase.ErrNotFound)

	_, err = f.productUC.Restock(ctx, 0, p.ID, usecase.RestockInput{Quantity: 1})
	assert.ErrorIs(t, err, usecase.ErrUnauthorized)

	assert.Equal(t, int64(2), f.stock(t, p.ID))
	_, err = f.productUC.ListAdjustments(ctx, 9999, 10)
	assert.ErrorIs(t, err, usecase.ErrNotFound)
}

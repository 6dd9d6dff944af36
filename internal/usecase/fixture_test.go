package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"storefront/internal/domain/model"
	"storefront/internal/infra/db/dbtest"
	infrarepo "storefront/internal/infra/repository"
	"storefront/internal/metrics"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// =====================
// fakes
// =====================

// recordingNotifier は受け取ったイベントを貯める。errを入れると失敗を返す
type recordingNotifier struct {
	mu     sync.Mutex
	events []usecase.OrderEvent
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, ev usecase.OrderEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.events = append(n.events, ev)
	return nil
}

func (n *recordingNotifier) ofType(typ string) []usecase.OrderEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []usecase.OrderEvent
	for _, ev := range n.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

type stubGateway struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (g *stubGateway) CreatePaymentHandle(_ context.Context, req usecase.PaymentRequest) (usecase.PaymentHandle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return usecase.PaymentHandle{}, g.err
	}
	return usecase.PaymentHandle{
		Ref:          fmt.Sprintf("pi_test_%d_%d", req.OrderID, g.calls),
		ClientSecret: fmt.Sprintf("secret_%d", req.OrderID),
	}, nil
}

// memoryCache は世代付きのカートキャッシュ。beforeSet は Set の比較直前に1回だけ呼ばれる
type memoryCache struct {
	mu        sync.Mutex
	views     map[int64]usecase.CartView
	gens      map[int64]int64
	hits      int
	writes    int
	beforeSet func()
}

func newMemoryCache() *memoryCache {
	return &memoryCache{views: map[int64]usecase.CartView{}, gens: map[int64]int64{}}
}

func (c *memoryCache) Get(_ context.Context, userID int64) (usecase.CartView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.views[userID]
	if !ok {
		return usecase.CartView{}, usecase.ErrCacheMiss
	}
	c.hits++
	return v, nil
}

func (c *memoryCache) Generation(_ context.Context, userID int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[userID], nil
}

func (c *memoryCache) Set(_ context.Context, userID int64, gen int64, view usecase.CartView) (bool, error) {
	c.mu.Lock()
	hook := c.beforeSet
	c.beforeSet = nil
	c.mu.Unlock()
	if hook != nil {
		hook()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[userID] != gen {
		return false, nil
	}
	c.views[userID] = view
	c.writes++
	return true, nil
}

func (c *memoryCache) Delete(_ context.Context, userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.views, userID)
	c.gens[userID]++
	return nil
}

func (c *memoryCache) cached(userID int64) (usecase.CartView, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.views[userID]
	return v, ok
}

func (c *memoryCache) generation(userID int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[userID]
}

// =====================
// fixture
// =====================

type fixture struct {
	db        *gorm.DB
	products  *infrarepo.ProductGormRepository
	inventory *infrarepo.InventoryGormRepository
	orders    *infrarepo.OrderGormRepository
	users     repo.UserRepository
	audit     repo.AuditLogRepository
	tx        *infrarepo.TxManagerGorm
	notifier  *recordingNotifier
	gateway   *stubGateway
	metrics   *metrics.Metrics

	cartUC    *usecase.CartUsecase
	orderUC   *usecase.OrderUsecase
	adminUC   *usecase.AdminOrderUsecase
	paymentUC *usecase.PaymentUsecase
	productUC *usecase.ProductUsecase
	addressUC *usecase.AddressUsecase
	statsUC   *usecase.AdminUsecase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithCache(t, nil)
}

// cache が nil ならキャッシュ無しで組む
func newFixtureWithCache(t *testing.T, cache usecase.CartCache) *fixture {
	t.Helper()

	db := dbtest.Open(t)
	f := &fixture{
		db:        db,
		products:  infrarepo.NewProductGormRepository(db),
		inventory: infrarepo.NewInventoryGormRepository(db),
		orders:    infrarepo.NewOrderGormRepository(db),
		users:     infrarepo.NewUserGormRepository(db),
		audit:     infrarepo.NewAuditLogGormRepository(db),
		tx:        infrarepo.NewTxManagerGorm(db),
		notifier:  &recordingNotifier{},
		gateway:   &stubGateway{},
		metrics:   metrics.New(),
	}

	c := usecase.Collaborators{Notifier: f.notifier, Metrics: f.metrics, Cache: cache}
	carts := infrarepo.NewCartGormRepository(db)
	ledger := usecase.NewInventoryLedger(f.metrics)

	f.addressUC = usecase.NewAddressUsecase(infrarepo.NewAddressGormRepository(db))
	f.cartUC = usecase.NewCartUsecase(carts, carts, f.products, c)
	f.orderUC = usecase.NewOrderUsecase(f.tx, f.addressUC, f.users, ledger, c)
	f.adminUC = usecase.NewAdminOrderUsecase(f.tx, f.users, c)
	f.paymentUC = usecase.NewPaymentUsecase(f.tx, f.gateway, f.users, c)
	f.productUC = usecase.NewProductUsecase(f.products, f.inventory, f.tx, ledger)
	f.statsUC = usecase.NewAdminUsecase(f.orders, f.users, f.products, f.audit)
	return f
}

func (f *fixture) user(t *testing.T, email string) int64 {
	t.Helper()
	u := &model.User{Email: email, FirstName: "Test", PasswordHash: "x", Role: model.RoleUser, IsActive: true}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u.ID
}

func (f *fixture) admin(t *testing.T) int64 {
	t.Helper()
	u := &model.User{Email: "admin@example.com", FirstName: "Admin", PasswordHash: "x", Role: model.RoleAdmin, IsActive: true}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u.ID
}

func (f *fixture) product(t *testing.T, name, price string, stock int64) model.Product {
	t.Helper()
	p, err := f.products.Create(context.Background(), model.Product{
		Name:     name,
		ImageURL: "/images/" + name + ".jpg",
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		IsActive: true,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) stock(t *testing.T, productID int64) int64 {
	t.Helper()
	p, err := f.products.FindByID(context.Background(), productID)
	require.NoError(t, err)
	return p.Stock
}

func (f *fixture) setStock(t *testing.T, productID, stock int64) {
	t.Helper()
	require.NoError(t, f.db.Model(&model.Product{}).Where("id = ?", productID).Update("stock", stock).Error)
}

func (f *fixture) setPrice(t *testing.T, productID int64, price string) {
	t.Helper()
	require.NoError(t, f.db.Model(&model.Product{}).Where("id = ?", productID).
		Update("price", decimal.RequireFromString(price)).Error)
}

func (f *fixture) add(t *testing.T, userID, productID, qty int64) usecase.CartView {
	t.Helper()
	v, err := f.cartUC.AddToCart(context.Background(), userID, usecase.AddCartInput{ProductID: productID, Quantity: qty})
	require.NoError(t, err)
	return v
}

func (f *fixture) orderCount(t *testing.T) int64 {
	t.Helper()
	n, err := f.orders.Count(context.Background())
	require.NoError(t, err)
	return n
}

// 注文を1件作って返す
func (f *fixture) placed(t *testing.T, userID int64) usecase.OrderView {
	t.Helper()
	p := f.product(t, fmt.Sprintf("item-%d-%d", userID, f.orderCount(t)), "10.00", 10)
	f.add(t, userID, p.ID, 1)
	o, err := f.orderUC.PlaceOrder(context.Background(), userID, usecase.PlaceOrderInput{Shipping: shipping()})
	require.NoError(t, err)
	return o
}

func shipping() *model.Address {
	return &model.Address{
		FullName:    "Jane Doe",
		PhoneNumber: "555-0100",
		Street:      "1 Main St",
		City:        "Springfield",
		State:       "IL",
		ZipCode:     "62701",
		Country:     "US",
	}
}

var errNotifyDown = errors.New("smtp down")

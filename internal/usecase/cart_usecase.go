package usecase

import (
	"context"
	"errors"
	"math"
	"strconv"

	"storefront/internal/domain/model"
	"storefront/internal/pkg/logging"
	repo "storefront/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CartUsecase は /cart の業務ロジック。
// 表示はキャッシュ経由で、更新のたびにキャッシュを消す
type CartUsecase struct {
	cartRepo     repo.CartRepository
	cartItemRepo repo.CartItemRepository
	productRepo  repo.ProductRepository
	c            Collaborators
	sfg          singleflight.Group
}

func NewCartUsecase(
	cartRepo repo.CartRepository,
	cartItemRepo repo.CartItemRepository,
	productRepo repo.ProductRepository,
	c Collaborators,
) *CartUsecase {
	return &CartUsecase{
		cartRepo:     cartRepo,
		cartItemRepo: cartItemRepo,
		productRepo:  productRepo,
		c:            c.withDefaults(),
	}
}

type AddCartInput struct {
	ProductID int64
	Quantity  int64
}

type UpdateCartItemInput struct {
	Quantity int64
}

// GetCart はカート取得（無ければ作って空を返す）。
func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartView, error) {
	if userID <= 0 {
		return CartView{}, ErrUnauthorized
	}

	// 同じユーザーの同時ミスは1回だけDBを読む
	v, err, _ := u.sfg.Do(strconv.FormatInt(userID, 10), func() (any, error) {
		view, err := u.c.Cache.Get(ctx, userID)
		if err == nil {
			return view, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			logging.FromContext(ctx).Warn("cart cache get failed", zap.Int64("user_id", userID), zap.Error(err))
		}

		// DBを読む前の世代。読んでいる間に更新があれば古い表示は書かない
		gen, genErr := u.c.Cache.Generation(ctx, userID)
		if genErr != nil {
			logging.FromContext(ctx).Warn("cart cache generation failed", zap.Int64("user_id", userID), zap.Error(genErr))
		}

		cart, err := u.cartRepo.GetOrCreateByUserID(ctx, userID)
		if err != nil {
			return CartView{}, dbError("get cart", err)
		}
		view, err = u.buildView(ctx, cart)
		if err != nil {
			return CartView{}, err
		}

		if genErr == nil {
			if _, err := u.c.Cache.Set(ctx, userID, gen, view); err != nil {
				logging.FromContext(ctx).Warn("cart cache set failed", zap.Int64("user_id", userID), zap.Error(err))
			}
		}
		return view, nil
	})
	if err != nil {
		return CartView{}, err
	}
	return v.(CartView), nil
}

// AddToCart はカートに追加（同一商品は数量加算）。
func (u *CartUsecase) AddToCart(ctx context.Context, userID int64, in AddCartInput) (CartView, error) {
	if userID <= 0 {
		return CartView{}, ErrUnauthorized
	}
	if in.ProductID <= 0 {
		return CartView{}, invalidArgument("invalid product_id")
	}
	if in.Quantity < 1 {
		return CartView{}, invalidArgument("quantity must be greater than 0")
	}

	// 商品チェック（公開のみ）
	p, err := u.productRepo.FindByID(ctx, in.ProductID)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && !p.IsActive) {
		return CartView{}, notFound("product")
	}
	if err != nil {
		return CartView{}, dbError("find product", err)
	}

	cart, err := u.cartRepo.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return CartView{}, dbError("get cart", err)
	}

	items, err := u.cartItemRepo.ListByCartID(ctx, cart.ID)
	if err != nil {
		return CartView{}, dbError("list cart items", err)
	}
	var existingQty int64
	for _, it := range items {
		if it.ProductID == in.ProductID {
			existingQty = it.Quantity
			break
		}
	}

	// 在庫は確保しない。ここでは現在庫との突き合わせだけ。
	// existingQty+in.Quantity は溢れうるので引き算で比べる
	if in.Quantity > p.Stock-existingQty {
		requested := int64(math.MaxInt64)
		if in.Quantity <= math.MaxInt64-existingQty {
			requested = existingQty + in.Quantity
		}
		return CartView{}, &InsufficientStockError{
			ProductID:   p.ID,
			ProductName: p.Name,
			Requested:   requested,
			Available:   p.Stock,
		}
	}

	// 新規行の価格は追加時点の価格
	if err := u.cartItemRepo.UpsertByCartAndProduct(ctx, cart.ID, in.ProductID, in.Quantity, p.Price); err != nil {
		return CartView{}, dbError("upsert cart item", err)
	}

	return u.refresh(ctx, userID, cart)
}

// 数量変更（加算ではなく置き換え）
func (u *CartUsecase) UpdateCartItem(ctx context.Context, userID int64, cartItemID int64, in UpdateCartItemInput) (CartView, error) {
	if userID <= 0 {
		return CartView{}, ErrUnauthorized
	}
	if in.Quantity < 1 {
		return CartView{}, invalidArgument("quantity must be greater than 0")
	}

	cart, item, err := u.ownedItem(ctx, userID, cartItemID)
	if err != nil {
		return CartView{}, err
	}

	p, err := u.productRepo.FindByID(ctx, item.ProductID)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && !p.IsActive) {
		return CartView{}, notFound("product")
	}
	if err != nil {
		return CartView{}, dbError("find product", err)
	}
	if in.Quantity > p.Stock {
		return CartView{}, &InsufficientStockError{
			ProductID:   p.ID,
			ProductName: p.Name,
			Requested:   in.Quantity,
			Available:   p.Stock,
		}
	}

	if err := u.cartItemRepo.UpdateQuantity(ctx, cartItemID, in.Quantity); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return CartView{}, notFound("cart item")
		}
		return CartView{}, dbError("update cart item", err)
	}

	return u.refresh(ctx, userID, cart)
}

// 明細削除。2回目以降は NotFound
func (u *CartUsecase) DeleteCartItem(ctx context.Context, userID int64, cartItemID int64) (CartView, error) {
	if userID <= 0 {
		return CartView{}, ErrUnauthorized
	}

	cart, _, err := u.ownedItem(ctx, userID, cartItemID)
	if err != nil {
		return CartView{}, err
	}

	if err := u.cartItemRepo.DeleteByID(ctx, cartItemID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return CartView{}, notFound("cart item")
		}
		return CartView{}, dbError("delete cart item", err)
	}

	return u.refresh(ctx, userID, cart)
}

func (u *CartUsecase) ClearCart(ctx context.Context, userID int64) (CartView, error) {
	if userID <= 0 {
		return CartView{}, ErrUnauthorized
	}

	cart, err := u.cartRepo.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return CartView{}, dbError("get cart", err)
	}
	if err := u.cartRepo.Clear(ctx, cart.ID); err != nil {
		return CartView{}, dbError("clear cart", err)
	}

	return u.refresh(ctx, userID, cart)
}

// 明細がこのユーザーのカートのものか確認（他人のものは NotFound）
func (u *CartUsecase) ownedItem(ctx context.Context, userID, cartItemID int64) (model.Cart, model.CartItem, error) {
	if cartItemID <= 0 {
		return model.Cart{}, model.CartItem{}, invalidArgument("invalid id")
	}

	cart, err := u.cartRepo.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return model.Cart{}, model.CartItem{}, dbError("get cart", err)
	}

	item, err := u.cartItemRepo.FindByID(ctx, cartItemID)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && item.CartID != cart.ID) {
		return model.Cart{}, model.CartItem{}, notFound("cart item")
	}
	if err != nil {
		return model.Cart{}, model.CartItem{}, dbError("find cart item", err)
	}
	return cart, item, nil
}

// 更新後はキャッシュを捨てて組み直す
func (u *CartUsecase) refresh(ctx context.Context, userID int64, cart model.Cart) (CartView, error) {
	if err := u.c.Cache.Delete(ctx, userID); err != nil {
		logging.FromContext(ctx).Warn("cart cache invalidate failed", zap.Int64("user_id", userID), zap.Error(err))
	}
	return u.buildView(ctx, cart)
}

func (u *CartUsecase) buildView(ctx context.Context, cart model.Cart) (CartView, error) {
	items, err := u.cartItemRepo.ListByCartID(ctx, cart.ID)
	if err != nil {
		return CartView{}, dbError("list cart items", err)
	}

	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := u.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return CartView{}, dbError("find products", err)
	}

	return toCartView(cart, items, products), nil
}

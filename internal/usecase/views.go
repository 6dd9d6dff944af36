package usecase

import (
	"time"

	"storefront/internal/domain/model"

	"github.com/shopspring/decimal"
)

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

type CartItemView struct {
	ID          int64  `json:"id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	ImageURL    string `json:"image_url"`
	Price       string `json:"price"`
	Quantity    int64  `json:"quantity"`
	Subtotal    string `json:"subtotal"`
}

// 合計は読むたびに明細から計算する（保存しない）
type CartView struct {
	ID         int64          `json:"id"`
	Items      []CartItemView `json:"items"`
	TotalPrice string         `json:"total_price"`
	TotalItems int64          `json:"total_items"`
}

func toCartView(cart model.Cart, items []model.CartItem, products map[int64]model.Product) CartView {
	out := CartView{ID: cart.ID, Items: make([]CartItemView, 0, len(items))}
	total := decimal.Zero

	for _, it := range items {
		sub := it.UnitPriceSnapshot.Mul(decimal.NewFromInt(it.Quantity))
		p := products[it.ProductID]
		out.Items = append(out.Items, CartItemView{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: p.Name,
			ImageURL:    p.ImageURL,
			Price:       money(it.UnitPriceSnapshot),
			Quantity:    it.Quantity,
			Subtotal:    money(sub),
		})
		total = total.Add(sub)
		out.TotalItems += it.Quantity
	}

	out.TotalPrice = money(total)
	return out
}

type OrderItemView struct {
	ID          int64  `json:"id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	ImageURL    string `json:"image_url"`
	Quantity    int64  `json:"quantity"`
	Price       string `json:"price"`
	Subtotal    string `json:"subtotal"`
}

type OrderView struct {
	ID              int64           `json:"id"`
	OrderNumber     string          `json:"order_number"`
	UserID          int64           `json:"user_id"`
	TotalPrice      string          `json:"total_price"`
	Status          string          `json:"status"`
	PaymentRef      *string         `json:"payment_ref,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
	ShippingAddress model.Address   `json:"shipping_address"`
	Items           []OrderItemView `json:"items"`
}

func toOrderView(o model.Order, items []model.OrderItem) OrderView {
	outItems := make([]OrderItemView, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemView{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductNameSnapshot,
			ImageURL:    it.ProductImageSnapshot,
			Quantity:    it.Quantity,
			Price:       money(it.UnitPriceSnapshot),
			Subtotal:    money(it.Subtotal()),
		})
	}

	return OrderView{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		TotalPrice:      money(o.TotalPrice),
		Status:          string(o.Status),
		PaymentRef:      o.PaymentRef,
		CreatedAt:       o.CreatedAt,
		PaidAt:          o.PaidAt,
		ShippingAddress: o.ShippingAddress,
		Items:           outItems,
	}
}

type Page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending OrderStatus = "PENDING"
	OrderStatusPaid    OrderStatus = "PAID"
	OrderStatusShipped OrderStatus = "SHIPPED"
)

var orderStatusRank = map[OrderStatus]int{
	OrderStatusPending: 0,
	OrderStatusPaid:    1,
	OrderStatusShipped: 2,
}

// 大文字小文字を無視してステータスを解釈する
func ParseOrderStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := orderStatusRank[st]; !ok {
		return "", false
	}
	return st, true
}

// PENDING → PAID → SHIPPED の前進だけ許可（飛び越しは可）
func (s OrderStatus) CanMoveTo(next OrderStatus) bool {
	from, ok := orderStatusRank[s]
	if !ok {
		return false
	}
	to, ok := orderStatusRank[next]
	if !ok {
		return false
	}
	return to > from
}

type Order struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNumber     string          `gorm:"type:varchar(64);not null;uniqueIndex" json:"order_number"`
	UserID          int64           `gorm:"not null;index;uniqueIndex:idx_orders_user_idem" json:"user_id"`
	ShippingAddress Address         `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	Status          OrderStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	TotalPrice      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_price"`
	PaymentRef      *string         `gorm:"type:varchar(255);uniqueIndex" json:"payment_ref,omitempty"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
	IdempotencyKey  *string         `gorm:"type:varchar(255);uniqueIndex:idx_orders_user_idem" json:"-"`
	CreatedAt       time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

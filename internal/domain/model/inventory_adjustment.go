package model

import "time"

// 在庫増減の履歴
// 注文による引当は OrderID、管理者の入荷は ActorUserID が入る
type InventoryAdjustment struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID   int64     `gorm:"not null;index" json:"product_id"`
	ActorUserID *int64    `gorm:"index" json:"actor_user_id,omitempty"`
	OrderID     *int64    `gorm:"index" json:"order_id,omitempty"`
	Delta       int64     `gorm:"not null" json:"delta"`
	Reason      string    `gorm:"type:varchar(255);not null" json:"reason"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

const (
	AdjustmentReasonOrderReserve = "order_reserve"
	AdjustmentReasonRestock      = "restock"
)

package model

// マイグレーション対象
func All() []any {
	return []any{
		&User{},
		&Product{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&SavedAddress{},
		&InventoryAdjustment{},
		&AuditLog{},
	}
}

package model

import (
	"strings"
	"time"
)

// 注文に埋め込む配送先のスナップショット（値コピー）
type Address struct {
	FullName    string `gorm:"type:varchar(255);not null" json:"full_name"`
	PhoneNumber string `gorm:"type:varchar(30);not null" json:"phone_number"`
	Street      string `gorm:"type:varchar(255);not null" json:"street"`
	City        string `gorm:"type:varchar(255);not null" json:"city"`
	State       string `gorm:"type:varchar(100);not null" json:"state"`
	ZipCode     string `gorm:"type:varchar(20);not null" json:"zip_code"`
	Country     string `gorm:"type:varchar(100);not null" json:"country"`
}

// 空欄のフィールド名を返す（全部埋まっていれば空）
func (a Address) BlankFields() []string {
	var blank []string
	check := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			blank = append(blank, name)
		}
	}
	check("full_name", a.FullName)
	check("phone_number", a.PhoneNumber)
	check("street", a.Street)
	check("city", a.City)
	check("state", a.State)
	check("zip_code", a.ZipCode)
	check("country", a.Country)
	return blank
}

// 前後の空白を落としたコピー
func (a Address) Trimmed() Address {
	return Address{
		FullName:    strings.TrimSpace(a.FullName),
		PhoneNumber: strings.TrimSpace(a.PhoneNumber),
		Street:      strings.TrimSpace(a.Street),
		City:        strings.TrimSpace(a.City),
		State:       strings.TrimSpace(a.State),
		ZipCode:     strings.TrimSpace(a.ZipCode),
		Country:     strings.TrimSpace(a.Country),
	}
}

// アドレス帳に保存された住所
// 注文時はAddressへ値コピーされ、以後の変更・削除は注文に影響しない
type SavedAddress struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"not null;index" json:"user_id"`
	Address   Address   `gorm:"embedded" json:"address"`
	IsDefault bool      `gorm:"not null;default:false" json:"is_default"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

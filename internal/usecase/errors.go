package usecase

import (
	"errors"
	"fmt"
)

// Handlerが errors.Is でHTTPステータスに変換する
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrAlreadyConfirmed  = errors.New("already confirmed")
	ErrConflict          = errors.New("conflict")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInternal          = errors.New("internal error")

	// キャッシュに無い（CartCache実装が返す）
	ErrCacheMiss = errors.New("cache miss")
)

// 決済ゲートウェイの失敗（回路が開いている場合も含む）。Handlerでは503になる
var ErrPaymentUnavailable = errors.New("payment gateway unavailable")

// 在庫不足。errors.Is(err, ErrInsufficientStock) で判定できる
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Requested   int64
	Available   int64
}

func (e *InsufficientStockError) Error() string {
	if e.ProductName != "" {
		return fmt.Sprintf("insufficient stock for product: %s", e.ProductName)
	}
	return fmt.Sprintf("insufficient stock for product: %d", e.ProductID)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

func invalidArgument(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, msg)
}

func notFound(what string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, what)
}

// 想定外のDBエラー。Handlerでは500になる
func dbError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInternal, op, err)
}

package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/repository"
)

type AddressDTO struct {
	ID        int64         `json:"id"`
	Address   model.Address `json:"address"`
	IsDefault bool          `json:"is_default"`
	CreatedAt string        `json:"created_at"`
}

type AddressUsecase struct {
	addresses repository.AddressRepository
}

func NewAddressUsecase(addresses repository.AddressRepository) *AddressUsecase {
	return &AddressUsecase{addresses: addresses}
}

func (u *AddressUsecase) List(ctx context.Context, userID int64) ([]AddressDTO, error) {
	if userID <= 0 {
		return nil, ErrUnauthorized
	}

	list, err := u.addresses.ListByUserID(ctx, userID)
	if err != nil {
		return nil, dbError("list addresses", err)
	}

	out := make([]AddressDTO, 0, len(list))
	for _, a := range list {
		out = append(out, toAddressDTO(a))
	}
	return out, nil
}

func (u *AddressUsecase) Create(ctx context.Context, userID int64, in model.Address) (AddressDTO, error) {
	if userID <= 0 {
		return AddressDTO{}, ErrUnauthorized
	}
	if blank := in.BlankFields(); len(blank) > 0 {
		return AddressDTO{}, invalidArgument("required: " + strings.Join(blank, ", "))
	}

	now := time.Now()
	created, err := u.addresses.Create(ctx, model.SavedAddress{
		UserID:    userID,
		Address:   in.Trimmed(),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return AddressDTO{}, dbError("create address", err)
	}
	return toAddressDTO(created), nil
}

func (u *AddressUsecase) Delete(ctx context.Context, userID int64, addressID int64) error {
	if _, err := u.owned(ctx, userID, addressID); err != nil {
		return err
	}
	if err := u.addresses.Delete(ctx, addressID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("address")
		}
		return dbError("delete address", err)
	}
	return nil
}

func (u *AddressUsecase) SetDefault(ctx context.Context, userID int64, addressID int64) error {
	if _, err := u.owned(ctx, userID, addressID); err != nil {
		return err
	}
	if err := u.addresses.SetDefault(ctx, userID, addressID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("address")
		}
		return dbError("set default address", err)
	}
	return nil
}

// 注文用に保存済み住所を値として取り出す
func (u *AddressUsecase) Resolve(ctx context.Context, userID int64, addressID int64) (model.Address, error) {
	a, err := u.owned(ctx, userID, addressID)
	if err != nil {
		return model.Address{}, err
	}
	return a.Address, nil
}

// 他人の住所は存在しない扱い
func (u *AddressUsecase) owned(ctx context.Context, userID, addressID int64) (model.SavedAddress, error) {
	if userID <= 0 {
		return model.SavedAddress{}, ErrUnauthorized
	}
	if addressID <= 0 {
		return model.SavedAddress{}, invalidArgument("invalid address_id")
	}

	a, err := u.addresses.FindByID(ctx, addressID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && a.UserID != userID) {
		return model.SavedAddress{}, notFound("address")
	}
	if err != nil {
		return model.SavedAddress{}, dbError("find address", err)
	}
	return a, nil
}

func toAddressDTO(a model.SavedAddress) AddressDTO {
	return AddressDTO{
		ID:        a.ID,
		Address:   a.Address,
		IsDefault: a.IsDefault,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
	}
}

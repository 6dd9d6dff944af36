package repository

import (
	"context"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

type addressGormRepository struct {
	db *gorm.DB
}

// DI
func NewAddressGormRepository(db *gorm.DB) repo.AddressRepository {
	return &addressGormRepository{db: db}
}

func (r *addressGormRepository) Create(ctx context.Context, address model.SavedAddress) (model.SavedAddress, error) {
	if err := r.db.WithContext(ctx).Create(&address).Error; err != nil {
		return model.SavedAddress{}, err
	}
	return address, nil
}

// デフォルトを先頭に返す
func (r *addressGormRepository) ListByUserID(ctx context.Context, userID int64) ([]model.SavedAddress, error) {
	var list []model.SavedAddress
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC, id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *addressGormRepository) FindByID(ctx context.Context, addressID int64) (model.SavedAddress, error) {
	var a model.SavedAddress
	if err := r.db.WithContext(ctx).First(&a, addressID).Error; err != nil {
		return model.SavedAddress{}, translate(err)
	}
	return a, nil
}

func (r *addressGormRepository) Delete(ctx context.Context, addressID int64) error {
	result := r.db.WithContext(ctx).
		Where("id = ?", addressID).
		Delete(&model.SavedAddress{})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// デフォルト住所を切り替える
func (r *addressGormRepository) SetDefault(ctx context.Context, userID, addressID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.SavedAddress{}).
			Where("id = ? AND user_id = ?", addressID, userID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return repo.ErrNotFound
		}

		if err := tx.Model(&model.SavedAddress{}).
			Where("user_id = ? AND is_default = ?", userID, true).
			Update("is_default", false).Error; err != nil {
			return err
		}

		return tx.Model(&model.SavedAddress{}).
			Where("id = ?", addressID).
			Update("is_default", true).Error
	})
}

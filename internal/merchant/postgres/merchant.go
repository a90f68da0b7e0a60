package postgres

import (
	stderrors "errors"

	apperrors "github.com/Abhinavnist/payment-system-backend/internal"
	"github.com/Abhinavnist/payment-system-backend/internal/core/datamodel/merchant"
	"gorm.io/gorm"
)

// MerchantRepository is the read-only merchant settings lookup used by the
// API key middleware and the payment services.
type MerchantRepository struct {
	db *gorm.DB
}

func NewMerchantRepository(db *gorm.DB) *MerchantRepository {
	return &MerchantRepository{
		db: db,
	}
}

func (r *MerchantRepository) GetByID(id string) (*merchant.Merchant, error) {
	var m merchant.Merchant
	err := r.db.Where("id = ?", id).First(&m).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrMerchantNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *MerchantRepository) GetByAPIKey(apiKey string) (*merchant.Merchant, error) {
	var m merchant.Merchant
	err := r.db.Where("api_key = ?", apiKey).First(&m).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrMerchantNotFound
		}
		return nil, err
	}
	return &m, nil
}

package postgres

import (
	stderrors "errors"

	apperrors "github.com/Abhinavnist/payment-system-backend/internal"
	"github.com/Abhinavnist/payment-system-backend/internal/core/datamodel/admin"
	"gorm.io/gorm"
)

type AdminRepository struct {
	db *gorm.DB
}

func NewAdminRepository(db *gorm.DB) *AdminRepository {
	return &AdminRepository{
		db: db,
	}
}

func (r *AdminRepository) GetByEmail(email string) (*admin.Admin, error) {
	var a admin.Admin
	err := r.db.Where("email = ?", email).First(&a).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("admin not found", apperrors.ErrCodeInvalidCredentials)
		}
		return nil, err
	}
	return &a, nil
}

func (r *AdminRepository) GetByID(id string) (*admin.Admin, error) {
	var a admin.Admin
	err := r.db.Where("id = ?", id).First(&a).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("admin not found", apperrors.ErrCodeInvalidCredentials)
		}
		return nil, err
	}
	return &a, nil
}

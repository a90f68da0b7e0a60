package postgres

import (
	stderrors "errors"

	"github.com/Abhinavnist/payment-system-backend/internal/core/datamodel/payment"
	"github.com/Abhinavnist/payment-system-backend/internal/core/datamodel/paymentlink"
	"gorm.io/gorm"
)

type PaymentLinkRepository struct {
	db *gorm.DB
}

func NewPaymentLinkRepository(db *gorm.DB) *PaymentLinkRepository {
	return &PaymentLinkRepository{
		db: db,
	}
}

func (r *PaymentLinkRepository) Create(link *paymentlink.PaymentLink) error {
	return r.db.Create(link).Error
}

func (r *PaymentLinkRepository) GetByCode(code string) (*paymentlink.PaymentLink, error) {
	var link paymentlink.PaymentLink
	err := r.db.Where("unique_code = ?", code).First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *PaymentLinkRepository) CodeExists(code string) (bool, error) {
	var count int64
	err := r.db.Model(&paymentlink.PaymentLink{}).Where("unique_code = ?", code).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ConsumeWithPayment increments used_count and inserts the payment in one
// transaction. The usage guard lives in the UPDATE's WHERE clause, so two
// customers racing for the last use cannot both commit; the loser's
// transaction rolls back and the payment row never lands.
func (r *PaymentLinkRepository) ConsumeWithPayment(linkID string, p *payment.Payment) (bool, error) {
	consumed := false

	err := r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&paymentlink.PaymentLink{}).
			Where("id = ? AND is_active = ? AND (max_uses IS NULL OR used_count < max_uses)", linkID, true).
			Update("used_count", gorm.Expr("used_count + 1"))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errUsageExhausted
		}

		if err := tx.Create(p).Error; err != nil {
			return err
		}

		consumed = true
		return nil
	})

	if err != nil {
		if stderrors.Is(err, errUsageExhausted) {
			return false, nil
		}
		return false, err
	}
	return consumed, nil
}

var errUsageExhausted = stderrors.New("payment link usage exhausted")

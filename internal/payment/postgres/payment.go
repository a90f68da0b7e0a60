package postgres

import (
	"time"

	"github.com/Abhinavnist/payment-system-backend/internal/core/datamodel/payment"
	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{
		db: db,
	}
}

func (r *PaymentRepository) Create(p *payment.Payment) error {
	return r.db.Create(p).Error
}

func (r *PaymentRepository) GetByID(id string) (*payment.Payment, error) {
	var p payment.Payment
	err := r.db.Where("id = ?", id).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByHash(hash string) (*payment.Payment, error) {
	var p payment.Payment
	err := r.db.Where("trxn_hash_key = ?", hash).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) ListPending(merchantID string, since time.Time) ([]*payment.Payment, error) {
	var payments []*payment.Payment
	query := r.db.Where("status = ? AND created_at >= ?", payment.StatusPending, since)
	if merchantID != "" {
		query = query.Where("merchant_id = ?", merchantID)
	}
	err := query.Order("created_at ASC").Find(&payments).Error
	return payments, err
}

// ConfirmPending performs the conditional transition to CONFIRMED. The
// status guard in the WHERE clause is what serializes concurrent
// confirmers: only the update that still sees PENDING affects a row.
func (r *PaymentRepository) ConfirmPending(id, utrNumber, verifiedBy, method string) (bool, error) {
	result := r.db.Model(&payment.Payment{}).
		Where("id = ? AND status = ?", id, payment.StatusPending).
		Updates(map[string]interface{}{
			"status":              payment.StatusConfirmed,
			"utr_number":          utrNumber,
			"verified_by":         verifiedBy,
			"verification_method": method,
			"updated_at":          time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// DeclinePending performs the conditional transition to DECLINED.
func (r *PaymentRepository) DeclinePending(id, remarks, verifiedBy string) (bool, error) {
	result := r.db.Model(&payment.Payment{}).
		Where("id = ? AND status = ?", id, payment.StatusPending).
		Updates(map[string]interface{}{
			"status":      payment.StatusDeclined,
			"remarks":     remarks,
			"verified_by": verifiedBy,
			"updated_at":  time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// SubmitUTRPending records a customer-supplied UTR on a still-pending
// payment without transitioning it; the admin verification step confirms.
func (r *PaymentRepository) SubmitUTRPending(id, utrNumber, remarks string) (bool, error) {
	result := r.db.Model(&payment.Payment{}).
		Where("id = ? AND status = ?", id, payment.StatusPending).
		Updates(map[string]interface{}{
			"utr_number": utrNumber,
			"remarks":    remarks,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// MarkCallbackSent records the notification outcome on the audit trail.
// Callback failures never touch payment status.
func (r *PaymentRepository) MarkCallbackSent(id string, responseData []byte) error {
	return r.db.Model(&payment.Payment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"callback_sent": true,
			"response_data": responseData,
			"updated_at":    time.Now().UTC(),
		}).Error
}

// ListResolvedUnsent returns terminal payments whose merchant notification
// never went out, oldest first. The callbacks worker drains these.
func (r *PaymentRepository) ListResolvedUnsent(limit int) ([]*payment.Payment, error) {
	var payments []*payment.Payment
	err := r.db.
		Where("status IN ? AND callback_sent = ?", []string{payment.StatusConfirmed, payment.StatusDeclined}, false).
		Order("updated_at ASC").
		Limit(limit).
		Find(&payments).Error
	return payments, err
}

// RecordCallbackFailure stores the failure detail without flipping
// callback_sent, so operators can spot undelivered notifications.
func (r *PaymentRepository) RecordCallbackFailure(id string, responseData []byte) error {
	return r.db.Model(&payment.Payment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"response_data": responseData,
			"updated_at":    time.Now().UTC(),
		}).Error
}

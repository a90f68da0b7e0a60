package paymentlink

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentLink is a merchant-issued, reusable public request for payment.
// Usage accounting lives here; the individual settlements it produces are
// regular Payment rows pointing back via payment_link_id.
type PaymentLink struct {
	ID         string `gorm:"primaryKey;size:36"`
	MerchantID string `gorm:"column:merchant_id;size:36;not null;index"`

	Title       string  `gorm:"column:title;not null"`
	Description *string `gorm:"column:description"`
	UniqueCode  string  `gorm:"column:unique_code;not null;uniqueIndex"`

	// Amount is in paisa; nil means the customer chooses the amount.
	Amount      *int64 `gorm:"column:amount"`
	Currency    string `gorm:"column:currency;default:INR"`
	PaymentType string `gorm:"column:payment_type;default:DEPOSIT;not null"`

	IsActive  bool       `gorm:"column:is_active;default:true"`
	ExpiresAt *time.Time `gorm:"column:expires_at"`

	// MaxUses nil means unlimited. UsedCount only ever increments.
	MaxUses   *int `gorm:"column:max_uses"`
	UsedCount int  `gorm:"column:used_count;default:0"`

	SuccessURL *string `gorm:"column:success_url"`
	CancelURL  *string `gorm:"column:cancel_url"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (PaymentLink) TableName() string {
	return "payment_links"
}

func (l *PaymentLink) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

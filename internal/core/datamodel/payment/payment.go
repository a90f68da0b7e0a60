package payment

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TypeDeposit    = "DEPOSIT"
	TypeWithdrawal = "WITHDRAWAL"
)

const (
	MethodUPI          = "UPI"
	MethodBankTransfer = "BANK_TRANSFER"
)

// Lifecycle states. PENDING is the only non-terminal state; once a payment
// reaches CONFIRMED, DECLINED or EXPIRED it is frozen.
const (
	StatusPending   = "PENDING"
	StatusConfirmed = "CONFIRMED"
	StatusDeclined  = "DECLINED"
	StatusExpired   = "EXPIRED"
)

const (
	VerificationManual        = "MANUAL"
	VerificationBankStatement = "AUTO_BANK_STATEMENT"
)

type Payment struct {
	ID         string `gorm:"primaryKey;size:36"`
	MerchantID string `gorm:"column:merchant_id;size:36;not null;index"`

	Reference string `gorm:"column:reference;not null;index"`
	// TrxnHashKey is the idempotency key: a deterministic digest of
	// (reference, merchant, amount). The unique index is what collapses
	// duplicate creation requests to one row.
	TrxnHashKey string `gorm:"column:trxn_hash_key;not null;uniqueIndex"`

	PaymentType   string `gorm:"column:payment_type;not null"`
	PaymentMethod string `gorm:"column:payment_method;not null"`

	Amount   int64  `gorm:"column:amount;not null"`
	Currency string `gorm:"column:currency;default:INR"`

	Status string `gorm:"column:status;default:PENDING;not null;index"`

	// UPI data
	UPIID            *string `gorm:"column:upi_id"`
	UPIPaymentString *string `gorm:"column:upi_payment_string"`

	// Bank transfer data
	BankName      *string `gorm:"column:bank_name"`
	AccountName   *string `gorm:"column:account_name"`
	AccountNumber *string `gorm:"column:account_number"`
	IFSCCode      *string `gorm:"column:ifsc_code"`

	// Settlement evidence, frozen once status leaves PENDING
	UTRNumber          *string `gorm:"column:utr_number;index"`
	VerifiedBy         *string `gorm:"column:verified_by;size:36"`
	VerificationMethod *string `gorm:"column:verification_method"`

	RequestData  json.RawMessage `gorm:"column:request_data;type:jsonb"`
	ResponseData json.RawMessage `gorm:"column:response_data;type:jsonb"`
	CallbackSent bool            `gorm:"column:callback_sent;default:false"`
	Remarks      *string         `gorm:"column:remarks"`

	PaymentLinkID *string `gorm:"column:payment_link_id;size:36;index"`
	CustomerName  *string `gorm:"column:customer_name"`
	CustomerEmail *string `gorm:"column:customer_email"`
	CustomerPhone *string `gorm:"column:customer_phone"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

func (p *Payment) IsPending() bool {
	return p.Status == StatusPending
}

func (p *Payment) IsTerminal() bool {
	return p.Status != StatusPending
}

package merchant

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Merchant carries the settlement configuration the payment core reads.
// Administration of merchants is owned elsewhere; the core treats rows as
// read-only input.
type Merchant struct {
	ID string `gorm:"primaryKey;size:36"`

	BusinessName string `gorm:"column:business_name;not null"`
	ContactPhone string `gorm:"column:contact_phone"`

	APIKey        string  `gorm:"column:api_key;not null;uniqueIndex"`
	WebhookSecret *string `gorm:"column:webhook_secret"`
	CallbackURL   *string `gorm:"column:callback_url"`

	IsActive bool `gorm:"column:is_active;default:true"`

	// Payment-method detail blobs: {"upi_id": ..., "name": ...} and
	// {"bank_name": ..., "account_name": ..., "account_number": ..., "ifsc_code": ...}
	UPIDetails  json.RawMessage `gorm:"column:upi_details;type:jsonb"`
	BankDetails json.RawMessage `gorm:"column:bank_details;type:jsonb"`

	MinDeposit    int64 `gorm:"column:min_deposit;default:500"`
	MaxDeposit    int64 `gorm:"column:max_deposit;default:300000"`
	MinWithdrawal int64 `gorm:"column:min_withdrawal;default:1000"`
	MaxWithdrawal int64 `gorm:"column:max_withdrawal;default:1000000"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Merchant) TableName() string {
	return "merchants"
}

func (m *Merchant) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// UPIInfo is the decoded form of UPIDetails.
type UPIInfo struct {
	UPIID string `json:"upi_id"`
	Name  string `json:"name"`
}

// BankInfo is the decoded form of BankDetails.
type BankInfo struct {
	BankName      string `json:"bank_name"`
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	IFSCCode      string `json:"ifsc_code"`
}

// UPIInfo decodes the UPI detail blob. Returns false when the merchant has
// no UPI configuration.
func (m *Merchant) UPIInfo() (UPIInfo, bool) {
	if len(m.UPIDetails) == 0 {
		return UPIInfo{}, false
	}
	var info UPIInfo
	if err := json.Unmarshal(m.UPIDetails, &info); err != nil || info.UPIID == "" {
		return UPIInfo{}, false
	}
	if info.Name == "" {
		info.Name = m.BusinessName
	}
	return info, true
}

// BankInfo decodes the bank detail blob. Returns false when the merchant has
// no bank configuration.
func (m *Merchant) BankInfo() (BankInfo, bool) {
	if len(m.BankDetails) == 0 {
		return BankInfo{}, false
	}
	var info BankInfo
	if err := json.Unmarshal(m.BankDetails, &info); err != nil || info.AccountNumber == "" {
		return BankInfo{}, false
	}
	return info, true
}

// Bounds returns the configured amount range for a payment type.
func (m *Merchant) Bounds(paymentType string) (min, max int64) {
	if paymentType == "WITHDRAWAL" {
		return m.MinWithdrawal, m.MaxWithdrawal
	}
	return m.MinDeposit, m.MaxDeposit
}

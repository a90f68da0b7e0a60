package paymentlink

import (
	"time"

	errors "github.com/Abhinavnist/payment-system-backend/internal"
	"github.com/Abhinavnist/payment-system-backend/internal/core/common/validation"
	"github.com/Abhinavnist/payment-system-backend/internal/core/datamodel/payment"
)

// CreateLinkDTO is the merchant-facing link creation body. A nil amount
// produces an open link where the customer chooses what to pay.
type CreateLinkDTO struct {
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Amount      *int64     `json:"amount,omitempty"`
	Currency    string     `json:"currency,omitempty"`
	PaymentType string     `json:"payment_type,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	MaxUses     *int       `json:"max_uses,omitempty"`
	SuccessURL  *string    `json:"success_url,omitempty"`
	CancelURL   *string    `json:"cancel_url,omitempty"`
}

func (dto *CreateLinkDTO) Validate() error {
	if dto.Currency == "" {
		dto.Currency = "INR"
	}
	if dto.PaymentType == "" {
		dto.PaymentType = payment.TypeDeposit
	}

	validator := validation.NewValidator()
	validator.Field("title", dto.Title).Required().MaxLength(200)
	validator.Field("amount", dto.Amount).Positive(errors.ErrCodeInvalidAmount)
	validator.Field("max_uses", dto.MaxUses).Positive(errors.ErrCodeValidationFailed)
	validator.Field("payment_type", dto.PaymentType).OneOf([]string{payment.TypeDeposit}, errors.ErrCodeInvalidAction)
	validator.Field("expires_at", dto.ExpiresAt).FutureTime()

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}

	if dto.Currency != "INR" {
		return errors.NewValidationError("Only INR currency is supported", errors.ErrCodeInvalidCurrency)
	}
	return nil
}

// CustomerPaymentDTO is what the paying customer submits on the hosted page.
type CustomerPaymentDTO struct {
	Name          string `json:"name"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
	PaymentMethod string `json:"payment_method,omitempty"`
	CustomAmount  *int64 `json:"custom_amount,omitempty"`
}

func (dto *CustomerPaymentDTO) Validate() error {
	if dto.PaymentMethod == "" {
		dto.PaymentMethod = payment.MethodUPI
	}

	validator := validation.NewValidator()
	validator.Field("name", dto.Name).Required().MaxLength(120)
	validator.Field("payment_method", dto.PaymentMethod).OneOf(
		[]string{payment.MethodUPI, payment.MethodBankTransfer}, errors.ErrCodeValidationFailed)
	validator.Field("custom_amount", dto.CustomAmount).Positive(errors.ErrCodeInvalidAmount)

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// SubmitUTRDTO carries the customer's bank reference after they paid.
type SubmitUTRDTO struct {
	UTRNumber string `json:"utr_number"`
}

func (dto *SubmitUTRDTO) Validate() error {
	validator := validation.NewValidator()
	validator.Field("utr_number", dto.UTRNumber).Required().MinLength(6).MaxLength(32)

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// PageView is the public payment-page projection of a link. It exposes
// nothing about the merchant beyond the display name.
type PageView struct {
	UniqueCode   string     `json:"unique_code"`
	Title        string     `json:"title"`
	Description  *string    `json:"description,omitempty"`
	Amount       *int64     `json:"amount,omitempty"`
	Currency     string     `json:"currency"`
	PaymentType  string     `json:"payment_type"`
	MerchantName string     `json:"merchant_name"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	SuccessURL   *string    `json:"success_url,omitempty"`
	CancelURL    *string    `json:"cancel_url,omitempty"`
}

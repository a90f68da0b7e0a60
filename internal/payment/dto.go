package payment

import (
	"encoding/json"

	errors "github.com/Abhinavnist/payment-system-backend/internal"
	"github.com/Abhinavnist/payment-system-backend/internal/core/common/validation"
)

// CreatePaymentDTO is the merchant-facing create request body.
type CreatePaymentDTO struct {
	Action        string          `json:"action"`
	Reference     string          `json:"reference"`
	Amount        int64           `json:"amount"`
	Currency      string          `json:"currency"`
	AccountName   string          `json:"account_name,omitempty"`
	AccountNumber string          `json:"account_number,omitempty"`
	Bank          string          `json:"bank,omitempty"`
	BankIFSC      string          `json:"bank_ifsc,omitempty"`
	CallbackURL   string          `json:"callback_url,omitempty"`
	UserData      json.RawMessage `json:"user_data,omitempty"`
}

func (dto *CreatePaymentDTO) Validate() error {
	if dto.Currency == "" {
		dto.Currency = "INR"
	}

	validator := validation.NewValidator()
	validator.Field("reference", dto.Reference).Required().MaxLength(128)
	validator.Field("amount", dto.Amount).Required().Positive(errors.ErrCodeInvalidAmount)
	validator.Field("action", dto.Action).Required().OneOf([]string{"DEPOSIT", "WITHDRAWAL"}, errors.ErrCodeInvalidAction)

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}

	if dto.Currency != "INR" {
		return errors.NewValidationError("Only INR currency is supported", errors.ErrCodeInvalidCurrency)
	}
	return nil
}

// VerifyPaymentDTO is the admin manual-verification request body.
type VerifyPaymentDTO struct {
	PaymentID string `json:"payment_id"`
	UTRNumber string `json:"utr_number"`
}

func (dto *VerifyPaymentDTO) Validate() error {
	validator := validation.NewValidator()
	validator.Field("payment_id", dto.PaymentID).Required()
	validator.Field("utr_number", dto.UTRNumber).Required().MinLength(6).MaxLength(32)

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// DeclinePaymentDTO is the admin decline request body.
type DeclinePaymentDTO struct {
	Remarks string `json:"remarks"`
}

func (dto *DeclinePaymentDTO) Validate() error {
	validator := validation.NewValidator()
	validator.Field("remarks", dto.Remarks).Required().MaxLength(500)

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type UPIReceiver struct {
	UPIID string `json:"upi_id"`
	Name  string `json:"name,omitempty"`
}

type BankReceiver struct {
	Bank          string `json:"bank"`
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	BankIFSC      string `json:"bank_ifsc"`
}

// ResponsePayload is the method-specific payload forwarded to the paying
// customer: a UPI deeplink or the receiving bank coordinates.
type ResponsePayload struct {
	PaymentMethod    string        `json:"paymentMethod"`
	ReceiverInfo     *UPIReceiver  `json:"receiverInfo,omitempty"`
	ReceiverBankInfo *BankReceiver `json:"receiverBankInfo,omitempty"`
	UPIString        string        `json:"upiString,omitempty"`
	TrxnHashKey      string        `json:"trxnHashKey"`
	Amount           string        `json:"amount"`
	RequestedDate    string        `json:"requestedDate"`
}

// CheckRequestDTO queries payment status by transaction hash.
type CheckRequestDTO struct {
	TrxnHashKey string `json:"trxnHashKey"`
}

func (dto *CheckRequestDTO) Validate() error {
	validator := validation.NewValidator()
	validator.Field("trxnHashKey", dto.TrxnHashKey).Required()

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// StatusView is the merchant-visible projection of a payment.
type StatusView struct {
	TransactionID string `json:"transactionId"`
	Reference     string `json:"reference"`
	Type          string `json:"type"`
	Status        string `json:"status"`
	Remarks       string `json:"remarks"`
	RequestedDate string `json:"requestedDate"`
}

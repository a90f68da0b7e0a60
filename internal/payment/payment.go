package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	apperrors "github.com/Abhinavnist/payment-system-backend/internal"
	"github.com/Abhinavnist/payment-system-backend/internal/core/datamodel/merchant"
	"github.com/Abhinavnist/payment-system-backend/internal/core/datamodel/payment"
	"github.com/Abhinavnist/payment-system-backend/internal/core/events"
	"github.com/Abhinavnist/payment-system-backend/internal/identity"
	"gorm.io/gorm"
)

// Repository is the payment store contract. Create must surface a
// transaction-hash collision as gorm.ErrDuplicatedKey, and the conditional
// transitions must report success solely through their affected-row result:
// that row count is what makes confirm/decline exactly-once under
// concurrent verifiers.
type Repository interface {
	Create(p *payment.Payment) error
	GetByID(id string) (*payment.Payment, error)
	GetByHash(hash string) (*payment.Payment, error)
	ListPending(merchantID string, since time.Time) ([]*payment.Payment, error)
	ConfirmPending(id, utrNumber, verifiedBy, method string) (bool, error)
	DeclinePending(id, remarks, verifiedBy string) (bool, error)
	SubmitUTRPending(id, utrNumber, remarks string) (bool, error)
}

// MerchantStore is the read-only merchant settings lookup.
type MerchantStore interface {
	GetByID(id string) (*merchant.Merchant, error)
}

// Service is the reconciliation engine: it owns payment creation and the
// PENDING -> CONFIRMED/DECLINED transitions.
type Service struct {
	repo      Repository
	merchants MerchantStore
	hasher    *identity.Hasher
	bus       *events.EventBus
	logger    *slog.Logger
}

func NewService(repo Repository, merchants MerchantStore, hasher *identity.Hasher, bus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		merchants: merchants,
		hasher:    hasher,
		bus:       bus,
		logger:    logger,
	}
}

// CreateDeposit validates and persists a PENDING deposit, returning the
// method-specific payload the merchant forwards to the paying customer.
// A duplicate (reference, merchant, amount) triple resolves to the already
// persisted payment instead of a second row.
func (s *Service) CreateDeposit(m *merchant.Merchant, dto *CreatePaymentDTO) (*payment.Payment, *ResponsePayload, error) {
	if err := dto.Validate(); err != nil {
		return nil, nil, err
	}

	if dto.Amount < m.MinDeposit || dto.Amount > m.MaxDeposit {
		return nil, nil, apperrors.NewValidationError(
			fmt.Sprintf("Deposit amount must be between ₹ %d and ₹ %d", m.MinDeposit, m.MaxDeposit),
			apperrors.ErrCodeAmountOutOfRange,
		)
	}

	method := payment.MethodUPI
	if dto.Bank != "" && dto.AccountNumber != "" {
		method = payment.MethodBankTransfer
	}

	p := &payment.Payment{
		MerchantID:    m.ID,
		Reference:     dto.Reference,
		TrxnHashKey:   s.hasher.TransactionHash(dto.Reference, m.ID, dto.Amount),
		PaymentType:   payment.TypeDeposit,
		PaymentMethod: method,
		Amount:        dto.Amount,
		Currency:      dto.Currency,
		Status:        payment.StatusPending,
	}

	switch method {
	case payment.MethodUPI:
		upi, ok := m.UPIInfo()
		if !ok {
			return nil, nil, apperrors.NewValidationError("Merchant UPI details not configured", apperrors.ErrCodeMethodNotConfigured)
		}
		upiString := buildUPIString(upi.UPIID, upi.Name, p.Amount, p.TrxnHashKey)
		p.UPIID = &upi.UPIID
		p.UPIPaymentString = &upiString
	case payment.MethodBankTransfer:
		bank, ok := m.BankInfo()
		if !ok {
			return nil, nil, apperrors.NewValidationError("Merchant bank details not configured", apperrors.ErrCodeMethodNotConfigured)
		}
		p.BankName = &bank.BankName
		p.AccountName = &bank.AccountName
		p.AccountNumber = &bank.AccountNumber
		p.IFSCCode = &bank.IFSCCode
	}

	if raw, err := json.Marshal(dto); err == nil {
		p.RequestData = raw
	}

	return s.persistNew(p)
}

// CreateWithdrawal persists a PENDING withdrawal to the customer-supplied
// bank account. Withdrawals are always bank transfers.
func (s *Service) CreateWithdrawal(m *merchant.Merchant, dto *CreatePaymentDTO) (*payment.Payment, *ResponsePayload, error) {
	if err := dto.Validate(); err != nil {
		return nil, nil, err
	}

	if dto.Amount < m.MinWithdrawal || dto.Amount > m.MaxWithdrawal {
		return nil, nil, apperrors.NewValidationError(
			fmt.Sprintf("Withdrawal amount must be between ₹ %d and ₹ %d", m.MinWithdrawal, m.MaxWithdrawal),
			apperrors.ErrCodeAmountOutOfRange,
		)
	}

	if dto.AccountName == "" || dto.AccountNumber == "" || dto.Bank == "" || dto.BankIFSC == "" {
		return nil, nil, apperrors.NewValidationError("Bank account details are required for withdrawal", apperrors.ErrCodeBankDetailsRequired)
	}

	p := &payment.Payment{
		MerchantID:    m.ID,
		Reference:     dto.Reference,
		TrxnHashKey:   s.hasher.TransactionHash(dto.Reference, m.ID, dto.Amount),
		PaymentType:   payment.TypeWithdrawal,
		PaymentMethod: payment.MethodBankTransfer,
		Amount:        dto.Amount,
		Currency:      dto.Currency,
		Status:        payment.StatusPending,
		BankName:      &dto.Bank,
		AccountName:   &dto.AccountName,
		AccountNumber: &dto.AccountNumber,
		IFSCCode:      &dto.BankIFSC,
	}

	if raw, err := json.Marshal(dto); err == nil {
		p.RequestData = raw
	}

	return s.persistNew(p)
}

// BuildLinkPayment fills the method-specific receiver fields on a payment
// built by the payment-link issuer and returns its customer payload. The
// caller owns link validation, usage accounting, and persistence.
func (s *Service) BuildLinkPayment(m *merchant.Merchant, p *payment.Payment) (*ResponsePayload, error) {
	switch p.PaymentMethod {
	case payment.MethodUPI:
		upi, ok := m.UPIInfo()
		if !ok {
			return nil, apperrors.NewValidationError("Merchant UPI details not configured", apperrors.ErrCodeMethodNotConfigured)
		}
		upiString := buildUPIString(upi.UPIID, upi.Name, p.Amount, p.TrxnHashKey)
		p.UPIID = &upi.UPIID
		p.UPIPaymentString = &upiString
	case payment.MethodBankTransfer:
		bank, ok := m.BankInfo()
		if !ok {
			return nil, apperrors.NewValidationError("Merchant bank details not configured", apperrors.ErrCodeMethodNotConfigured)
		}
		p.BankName = &bank.BankName
		p.AccountName = &bank.AccountName
		p.AccountNumber = &bank.AccountNumber
		p.IFSCCode = &bank.IFSCCode
	default:
		return nil, apperrors.NewValidationError("Unsupported payment method", apperrors.ErrCodeValidationFailed)
	}
	return payloadFor(p), nil
}

// TransactionHash re-exposes the hasher for collaborators that build
// payments outside the create path.
func (s *Service) TransactionHash(reference, merchantID string, amount int64) string {
	return s.hasher.TransactionHash(reference, merchantID, amount)
}

func (s *Service) persistNew(p *payment.Payment) (*payment.Payment, *ResponsePayload, error) {
	if err := s.repo.Create(p); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Same (reference, merchant, amount) was already received;
			// hand back the original row so retries stay idempotent.
			existing, getErr := s.repo.GetByHash(p.TrxnHashKey)
			if getErr != nil {
				return nil, nil, apperrors.NewDependencyError("failed to load existing payment", getErr)
			}
			s.logger.Info("duplicate payment request collapsed",
				"payment_id", existing.ID,
				"trxn_hash_key", existing.TrxnHashKey,
				"merchant_id", existing.MerchantID)
			return existing, payloadFor(existing), nil
		}
		s.logger.Error("failed to create payment", "error", err, "merchant_id", p.MerchantID, "reference", p.Reference)
		return nil, nil, apperrors.NewDependencyError("failed to create payment", err)
	}

	s.logger.Info("payment created",
		"payment_id", p.ID,
		"merchant_id", p.MerchantID,
		"reference", p.Reference,
		"type", p.PaymentType,
		"method", p.PaymentMethod,
		"amount", p.Amount)

	if s.bus != nil {
		_ = s.bus.Publish(context.Background(), events.NewPaymentCreatedEvent(p.ID, p.MerchantID, p.Reference, p.Amount, p.PaymentType))
	}

	return p, payloadFor(p), nil
}

// Confirm moves a PENDING payment to CONFIRMED, recording the UTR and the
// verifying actor. Exactly one of any number of concurrent confirmers wins;
// the rest observe AlreadyProcessed.
func (s *Service) Confirm(paymentID, utrNumber, verifiedBy, method string) (*payment.Payment, error) {
	if _, err := s.mustGet(paymentID); err != nil {
		return nil, err
	}

	ok, err := s.repo.ConfirmPending(paymentID, utrNumber, verifiedBy, method)
	if err != nil {
		return nil, apperrors.NewDependencyError("failed to confirm payment", err)
	}
	if !ok {
		return nil, apperrors.ErrAlreadyProcessed
	}

	confirmed, err := s.mustGet(paymentID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment confirmed",
		"payment_id", paymentID,
		"utr_number", utrNumber,
		"verified_by", verifiedBy,
		"verification_method", method)

	if s.bus != nil {
		remarks := ""
		if confirmed.Remarks != nil {
			remarks = *confirmed.Remarks
		}
		_ = s.bus.Publish(context.Background(), events.NewPaymentConfirmedEvent(confirmed.ID, confirmed.MerchantID, confirmed.Reference, confirmed.Amount, remarks))
	}

	return confirmed, nil
}

// Decline moves a PENDING payment to DECLINED with operator remarks.
func (s *Service) Decline(paymentID, remarks, verifiedBy string) (*payment.Payment, error) {
	if _, err := s.mustGet(paymentID); err != nil {
		return nil, err
	}

	ok, err := s.repo.DeclinePending(paymentID, remarks, verifiedBy)
	if err != nil {
		return nil, apperrors.NewDependencyError("failed to decline payment", err)
	}
	if !ok {
		return nil, apperrors.ErrAlreadyProcessed
	}

	declined, err := s.mustGet(paymentID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment declined",
		"payment_id", paymentID,
		"verified_by", verifiedBy,
		"remarks", remarks)

	if s.bus != nil {
		_ = s.bus.Publish(context.Background(), events.NewPaymentDeclinedEvent(declined.ID, declined.MerchantID, declined.Reference, declined.Amount, remarks))
	}

	return declined, nil
}

// SubmitUTR records a customer-supplied UTR on a PENDING payment without
// confirming it; an admin or statement run still has to verify the number.
func (s *Service) SubmitUTR(paymentID, utrNumber string) (*payment.Payment, error) {
	if _, err := s.mustGet(paymentID); err != nil {
		return nil, err
	}

	ok, err := s.repo.SubmitUTRPending(paymentID, utrNumber, "UTR number submitted by customer, awaiting verification")
	if err != nil {
		return nil, apperrors.NewDependencyError("failed to record UTR", err)
	}
	if !ok {
		return nil, apperrors.ErrAlreadyProcessed
	}

	s.logger.Info("customer UTR recorded", "payment_id", paymentID, "utr_number", utrNumber)

	return s.mustGet(paymentID)
}

// CheckByHash returns the merchant-visible status of a payment looked up by
// its transaction hash. Merchants can only see their own payments.
func (s *Service) CheckByHash(merchantID, trxnHashKey string) (*payment.Payment, error) {
	p, err := s.repo.GetByHash(trxnHashKey)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("Transaction not found", apperrors.ErrCodePaymentNotFound)
		}
		return nil, apperrors.NewDependencyError("failed to look up payment", err)
	}
	if p.MerchantID != merchantID {
		return nil, apperrors.ErrForbiddenAccess
	}
	return p, nil
}

// ListPending returns recent PENDING payments for admin verification.
func (s *Service) ListPending(merchantID string, days int) ([]*payment.Payment, error) {
	if days <= 0 {
		days = 7
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	pending, err := s.repo.ListPending(merchantID, since)
	if err != nil {
		return nil, apperrors.NewDependencyError("failed to list pending payments", err)
	}
	return pending, nil
}

func (s *Service) mustGet(paymentID string) (*payment.Payment, error) {
	p, err := s.repo.GetByID(paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPaymentNotFound
		}
		return nil, apperrors.NewDependencyError("failed to load payment", err)
	}
	return p, nil
}

func buildUPIString(upiID, name string, amount int64, trxnHashKey string) string {
	return fmt.Sprintf("upi://pay?pa=%s&pn=%s&am=%d&tr=%s&cu=INR", upiID, url.QueryEscape(name), amount, trxnHashKey)
}

// payloadFor rebuilds the customer-facing response from a persisted payment,
// so duplicate requests get the same payload the first request did.
func payloadFor(p *payment.Payment) *ResponsePayload {
	resp := &ResponsePayload{
		PaymentMethod: p.PaymentMethod,
		TrxnHashKey:   p.TrxnHashKey,
		Amount:        fmt.Sprintf("%d", p.Amount),
		RequestedDate: time.Now().UTC().Format(time.RFC3339),
	}

	switch p.PaymentMethod {
	case payment.MethodUPI:
		info := &UPIReceiver{}
		if p.UPIID != nil {
			info.UPIID = *p.UPIID
		}
		resp.ReceiverInfo = info
		if p.UPIPaymentString != nil {
			resp.UPIString = *p.UPIPaymentString
		}
	case payment.MethodBankTransfer:
		info := &BankReceiver{}
		if p.BankName != nil {
			info.Bank = *p.BankName
		}
		if p.AccountName != nil {
			info.AccountName = *p.AccountName
		}
		if p.AccountNumber != nil {
			info.AccountNumber = *p.AccountNumber
		}
		if p.IFSCCode != nil {
			info.BankIFSC = *p.IFSCCode
		}
		resp.ReceiverBankInfo = info
	}

	return resp
}

// Package paymentlink issues customer-facing, expiry/usage-bounded payment
// requests that terminate in the regular reconciliation flow.
package paymentlink

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/Abhinavnist/payment-system-backend/internal"
	"github.com/Abhinavnist/payment-system-backend/internal/core/datamodel/payment"
	"github.com/Abhinavnist/payment-system-backend/internal/core/datamodel/paymentlink"
	"github.com/Abhinavnist/payment-system-backend/internal/core/events"
	"github.com/Abhinavnist/payment-system-backend/internal/identity"
	paymentpkg "github.com/Abhinavnist/payment-system-backend/internal/payment"
)

// Repository is the link store contract. ConsumeWithPayment must commit the
// conditional used_count increment and the payment insert in one
// transaction; its boolean reports whether the increment won.
type Repository interface {
	identity.CodeStore
	Create(link *paymentlink.PaymentLink) error
	GetByCode(code string) (*paymentlink.PaymentLink, error)
	ConsumeWithPayment(linkID string, p *payment.Payment) (bool, error)
}

type Service struct {
	repo      Repository
	merchants paymentpkg.MerchantStore
	payments  *paymentpkg.Service
	codes     *identity.CodeGenerator
	bus       *events.EventBus
	logger    *slog.Logger
}

func NewService(repo Repository, merchants paymentpkg.MerchantStore, payments *paymentpkg.Service, codes *identity.CodeGenerator, bus *events.EventBus, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		merchants: merchants,
		payments:  payments,
		codes:     codes,
		bus:       bus,
		logger:    logger,
	}
}

// Create issues a new link with a collision-checked unique code.
func (s *Service) Create(merchantID string, dto *CreateLinkDTO) (*paymentlink.PaymentLink, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	code, err := s.codes.UniqueCode()
	if err != nil {
		return nil, err
	}

	link := &paymentlink.PaymentLink{
		MerchantID:  merchantID,
		Title:       dto.Title,
		Description: dto.Description,
		UniqueCode:  code,
		Amount:      dto.Amount,
		Currency:    dto.Currency,
		PaymentType: dto.PaymentType,
		IsActive:    true,
		ExpiresAt:   dto.ExpiresAt,
		MaxUses:     dto.MaxUses,
		SuccessURL:  dto.SuccessURL,
		CancelURL:   dto.CancelURL,
	}

	if err := s.repo.Create(link); err != nil {
		return nil, apperrors.NewDependencyError("failed create payment link", err)
	}

	s.logger.Info("payment link created",
		"link_id", link.ID,
		"merchant_id", merchantID,
		"unique_code", code)

	return link, nil
}

// Page returns the public payment-page data for a link. The link must pass
// validation; customers never see dead links.
func (s *Service) Page(code string) (*PageView, error) {
	link, err := s.getActive(code)
	if err != nil {
		return nil, err
	}
	if err := Validate(link); err != nil {
		return nil, err
	}

	m, err := s.merchants.GetByID(link.MerchantID)
	if err != nil {
		return nil, apperrors.NewDependencyError("failed to load merchant", err)
	}

	return &PageView{
		UniqueCode:   link.UniqueCode,
		Title:        link.Title,
		Description:  link.Description,
		Amount:       link.Amount,
		Currency:     link.Currency,
		PaymentType:  link.PaymentType,
		MerchantName: m.BusinessName,
		ExpiresAt:    link.ExpiresAt,
		SuccessURL:   link.SuccessURL,
		CancelURL:    link.CancelURL,
	}, nil
}

// Validate checks usability in a fixed order so customers get the most
// actionable reason: deactivated beats expired beats used up.
func Validate(link *paymentlink.PaymentLink) error {
	if !link.IsActive {
		return apperrors.ErrLinkInactive
	}
	if link.ExpiresAt != nil && link.ExpiresAt.Before(time.Now().UTC()) {
		return apperrors.ErrLinkExpired
	}
	if link.MaxUses != nil && link.UsedCount >= *link.MaxUses {
		return apperrors.ErrLinkUsageLimit
	}
	return nil
}

// Pay consumes one use of the link: it builds a PENDING payment for the
// customer and commits it atomically with the usage increment. A concurrent
// consumer racing past MaxUses loses on the conditional increment and gets
// the usage-limit error, not an over-used link.
func (s *Service) Pay(code string, dto *CustomerPaymentDTO) (*payment.Payment, *paymentpkg.ResponsePayload, error) {
	if err := dto.Validate(); err != nil {
		return nil, nil, err
	}

	link, err := s.getActive(code)
	if err != nil {
		return nil, nil, err
	}
	if err := Validate(link); err != nil {
		return nil, nil, err
	}

	m, err := s.merchants.GetByID(link.MerchantID)
	if err != nil {
		return nil, nil, apperrors.NewDependencyError("failed to load merchant", err)
	}

	minAmount, maxAmount := m.Bounds(link.PaymentType)
	amount, err := effectiveAmount(link, dto, minAmount, maxAmount)
	if err != nil {
		return nil, nil, err
	}

	reference, err := linkReference(link.UniqueCode)
	if err != nil {
		return nil, nil, apperrors.NewInternalError("failed to generate reference", err)
	}

	p := &payment.Payment{
		MerchantID:    link.MerchantID,
		PaymentLinkID: &link.ID,
		Reference:     reference,
		TrxnHashKey:   s.payments.TransactionHash(reference, link.MerchantID, amount),
		PaymentType:   link.PaymentType,
		PaymentMethod: dto.PaymentMethod,
		Amount:        amount,
		Currency:      link.Currency,
		Status:        payment.StatusPending,
	}
	setCustomer(p, dto)

	if raw, err := json.Marshal(dto); err == nil {
		p.RequestData = raw
	}

	payload, err := s.payments.BuildLinkPayment(m, p)
	if err != nil {
		return nil, nil, err
	}

	consumed, err := s.repo.ConsumeWithPayment(link.ID, p)
	if err != nil {
		return nil, nil, apperrors.NewDependencyError("failed to record link payment", err)
	}
	if !consumed {
		return nil, nil, apperrors.ErrLinkUsageLimit
	}

	s.logger.Info("payment link consumed",
		"link_id", link.ID,
		"payment_id", p.ID,
		"amount", amount,
		"method", dto.PaymentMethod)

	if s.bus != nil {
		_ = s.bus.Publish(context.Background(), events.NewPaymentCreatedEvent(p.ID, p.MerchantID, p.Reference, p.Amount, p.PaymentType))
	}

	return p, payload, nil
}

// SubmitUTR records the customer's bank reference on a link payment for
// later verification.
func (s *Service) SubmitUTR(paymentID string, dto *SubmitUTRDTO) (*payment.Payment, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	return s.payments.SubmitUTR(paymentID, dto.UTRNumber)
}

func (s *Service) getActive(code string) (*paymentlink.PaymentLink, error) {
	link, err := s.repo.GetByCode(code)
	if err != nil {
		return nil, apperrors.ErrLinkNotFound
	}
	return link, nil
}

// effectiveAmount resolves the charge: a fixed-amount link wins, otherwise
// the customer's amount, then merchant bounds apply either way.
func effectiveAmount(link *paymentlink.PaymentLink, dto *CustomerPaymentDTO, min, max int64) (int64, error) {
	var amount int64
	switch {
	case link.Amount != nil:
		amount = *link.Amount
	case dto.CustomAmount != nil:
		amount = *dto.CustomAmount
	default:
		return 0, apperrors.NewValidationError("Amount is required", apperrors.ErrCodeInvalidAmount)
	}

	if amount < min || amount > max {
		return 0, apperrors.NewValidationError(
			fmt.Sprintf("Amount must be between ₹ %d and ₹ %d", min, max),
			apperrors.ErrCodeAmountOutOfRange,
		)
	}
	return amount, nil
}

func setCustomer(p *payment.Payment, dto *CustomerPaymentDTO) {
	p.CustomerName = &dto.Name
	if dto.Email != "" {
		p.CustomerEmail = &dto.Email
	}
	if dto.Phone != "" {
		p.CustomerPhone = &dto.Phone
	}
}

// linkReference builds a per-consumption reference; the random suffix keeps
// transaction hashes distinct across repeated uses of the same link.
func linkReference(code string) (string, error) {
	prefix := code
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return "", err
	}
	return fmt.Sprintf("PLINK-%s-%s", prefix, hex.EncodeToString(suffix)), nil
}

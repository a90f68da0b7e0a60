// Package utr matches bank-issued UTR numbers against pending payments,
// either one at a time (manual admin verification) or in bulk from an
// uploaded bank statement.
package utr

import (
	"log/slog"
	"math"

	errors "github.com/Abhinavnist/payment-system-backend/internal"
	"github.com/Abhinavnist/payment-system-backend/internal/core/datamodel/payment"
	paymentpkg "github.com/Abhinavnist/payment-system-backend/internal/payment"
	"github.com/Abhinavnist/payment-system-backend/internal/statement"
)

// MatchedPayment is one successful statement match in the upload summary.
type MatchedPayment struct {
	PaymentID string `json:"payment_id"`
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	UTR       string `json:"utr"`
}

// ProcessResult summarizes one statement upload. Ambiguous records are the
// ones that matched two or more pending payments equally well; they need a
// manual decision and are never auto-confirmed.
type ProcessResult struct {
	Total           int                `json:"total"`
	Matched         int                `json:"matched"`
	MatchedPayments []MatchedPayment   `json:"matchedPayments"`
	Unmatched       []statement.Record `json:"unmatched"`
	Ambiguous       []statement.Record `json:"ambiguous"`
}

// Service runs UTR verification against the reconciliation engine.
type Service struct {
	payments   *paymentpkg.Service
	parser     *statement.Parser
	tolerance  float64
	windowDays int
	logger     *slog.Logger
}

func NewService(payments *paymentpkg.Service, parser *statement.Parser, tolerance float64, windowDays int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		payments:   payments,
		parser:     parser,
		tolerance:  tolerance,
		windowDays: windowDays,
		logger:     logger,
	}
}

// VerifyByUTR is the direct admin path: the admin already knows which
// payment the UTR belongs to.
func (s *Service) VerifyByUTR(utrNumber, paymentID, verifiedBy string) (*payment.Payment, error) {
	return s.payments.Confirm(paymentID, utrNumber, verifiedBy, payment.VerificationManual)
}

// MatchCandidates is the automated path used when a UTR arrives without a
// payment id. It returns the unique best candidate among pending payments
// in the match window, nil when nothing qualifies, and ErrAmbiguousMatch
// when two or more candidates score equally.
func (s *Service) MatchCandidates(amount *float64, windowDays int) (*payment.Payment, error) {
	if windowDays <= 0 {
		windowDays = s.windowDays
	}
	pending, err := s.payments.ListPending("", windowDays)
	if err != nil {
		return nil, err
	}

	best, ambiguous := selectCandidate(pending, amount, s.tolerance)
	if ambiguous {
		return nil, errors.ErrAmbiguousMatch
	}
	return best, nil
}

// selectCandidate scores pending payments against a statement amount:
// smallest absolute delta wins, oldest created_at breaks a delta tie, and
// an exact tie on both is ambiguous. Without an amount every candidate
// scores zero, so only a lone pending payment (or a strictly oldest one)
// can match.
func selectCandidate(pending []*payment.Payment, amount *float64, tolerance float64) (best *payment.Payment, ambiguous bool) {
	bestDelta := math.Inf(1)

	for _, p := range pending {
		delta := 0.0
		if amount != nil {
			delta = math.Abs(float64(p.Amount) - *amount)
			if delta > float64(p.Amount)*tolerance {
				continue
			}
		}

		switch {
		case best == nil || delta < bestDelta:
			best, bestDelta, ambiguous = p, delta, false
		case delta == bestDelta:
			if p.CreatedAt.Before(best.CreatedAt) {
				best, ambiguous = p, false
			} else if p.CreatedAt.Equal(best.CreatedAt) {
				ambiguous = true
			}
		}
	}

	return best, ambiguous
}

// ProcessStatement parses an uploaded bank statement and auto-confirms
// every record that matches exactly one pending payment. Per-record
// problems never abort the run; they accumulate into the summary.
func (s *Service) ProcessStatement(content []byte, contentType, verifiedBy string) (*ProcessResult, error) {
	records, err := s.parser.Parse(content, contentType)
	if err != nil {
		return nil, err
	}

	pending, err := s.payments.ListPending("", s.windowDays)
	if err != nil {
		return nil, err
	}

	result := &ProcessResult{
		Total:           len(records),
		MatchedPayments: []MatchedPayment{},
		Unmatched:       []statement.Record{},
		Ambiguous:       []statement.Record{},
	}

	for _, rec := range records {
		candidate, ambiguous := selectCandidate(pending, rec.Amount, s.tolerance)
		if ambiguous {
			s.logger.Warn("ambiguous statement record, skipping auto-confirm", "utr", rec.UTR)
			result.Ambiguous = append(result.Ambiguous, rec)
			continue
		}
		if candidate == nil {
			result.Unmatched = append(result.Unmatched, rec)
			continue
		}

		confirmed, err := s.payments.Confirm(candidate.ID, rec.UTR, verifiedBy, payment.VerificationBankStatement)
		if err != nil {
			// a concurrent verifier may have won the conditional update
			s.logger.Error("statement auto-confirm failed", "error", err, "payment_id", candidate.ID, "utr", rec.UTR)
			pending = removePayment(pending, candidate.ID)
			result.Unmatched = append(result.Unmatched, rec)
			continue
		}

		result.Matched++
		result.MatchedPayments = append(result.MatchedPayments, MatchedPayment{
			PaymentID: confirmed.ID,
			Reference: confirmed.Reference,
			Amount:    confirmed.Amount,
			UTR:       rec.UTR,
		})
		pending = removePayment(pending, candidate.ID)
	}

	return result, nil
}

func removePayment(pending []*payment.Payment, id string) []*payment.Payment {
	for i, p := range pending {
		if p.ID == id {
			return append(pending[:i], pending[i+1:]...)
		}
	}
	return pending
}

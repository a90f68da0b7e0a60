// Package statement parses bank statement files into transaction records
// for UTR matching. Banks disagree on column naming, so column detection
// runs on substring vocabularies rather than exact headers; new formats
// are supported by extending the vocabulary, not the parser.
package statement

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	errors "github.com/Abhinavnist/payment-system-backend/internal"
)

// Record is one credit entry extracted from a statement. Only the UTR is
// guaranteed; amount and date are best-effort, depending on the bank format.
type Record struct {
	UTR    string     `json:"utr"`
	Amount *float64   `json:"amount,omitempty"`
	Date   *time.Time `json:"date,omitempty"`
}

// Vocabulary maps a semantic field to the header substrings that identify
// its column. Matching is case-insensitive.
type Vocabulary struct {
	UTR    []string
	Amount []string
	Date   []string
}

// DefaultVocabulary covers the header naming seen across Indian bank
// statement exports.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		UTR:    []string{"utr", "reference", "ref", "transaction id", "txn"},
		Amount: []string{"amount", "amt", "credit", "deposit"},
		Date:   []string{"date", "txn date", "value date"},
	}
}

// columns holds resolved column indexes; -1 means the column was not found.
type columns struct {
	utr    int
	amount int
	date   int
}

// resolve scans a header row for the first column matching each vocabulary
// entry. A header that reads as a date column ("Txn Date") never claims the
// UTR slot, even though "txn" alone would match.
func (v Vocabulary) resolve(header []string) columns {
	cols := columns{utr: -1, amount: -1, date: -1}
	for i, name := range header {
		lower := strings.ToLower(strings.TrimSpace(name))
		isDate := matchesAny(lower, v.Date)
		if cols.date == -1 && isDate {
			cols.date = i
		}
		if cols.utr == -1 && !isDate && matchesAny(lower, v.UTR) {
			cols.utr = i
		}
		if cols.amount == -1 && matchesAny(lower, v.Amount) {
			cols.amount = i
		}
	}
	return cols
}

func matchesAny(header string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(header, p) {
			return true
		}
	}
	return false
}

// Parser turns uploaded statement files into records. Work is bounded by
// the configured byte and row caps so an oversized upload cannot stall
// verification.
type Parser struct {
	vocab    Vocabulary
	maxBytes int64
	maxRows  int
	logger   *slog.Logger
}

func NewParser(vocab Vocabulary, maxBytes int64, maxRows int, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{
		vocab:    vocab,
		maxBytes: maxBytes,
		maxRows:  maxRows,
		logger:   logger,
	}
}

// Parse dispatches on the upload's content type. An unrecognized type is a
// client error naming the type, not a parse failure.
func (p *Parser) Parse(content []byte, contentType string) ([]Record, error) {
	if p.maxBytes > 0 && int64(len(content)) > p.maxBytes {
		return nil, errors.NewValidationError("statement file exceeds the size limit", errors.ErrCodeValidationFailed)
	}

	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "text/csv") || strings.Contains(ct, "application/csv"):
		return p.parseCSV(content)
	case strings.Contains(ct, "excel") || strings.Contains(ct, "spreadsheet"):
		return p.parseXLSX(content)
	case strings.Contains(ct, "text/plain"):
		return p.parseText(content)
	default:
		return nil, errors.NewUnsupportedFormatError(contentType)
	}
}

func parseAmount(raw string) *float64 {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if cleaned == "" {
		return nil
	}
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &amount
}

var dateLayouts = []string{
	"02/01/2006",
	"02-01-2006",
	"2006-01-02",
	"02/01/06",
	"02-01-06",
}

func parseDate(raw string) *time.Time {
	cleaned := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return &t
		}
	}
	return nil
}

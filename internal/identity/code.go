package identity

import (
	"crypto/rand"
	"math/big"

	errors "github.com/Abhinavnist/payment-system-backend/internal"
)

// codeAlphabet excludes visually ambiguous characters (0/O, 1/I) so codes
// survive being read over the phone or retyped from a screenshot.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeStore answers whether a candidate code is already taken. The storage
// layer must still carry a uniqueness constraint; this check only keeps the
// retry loop short.
type CodeStore interface {
	CodeExists(code string) (bool, error)
}

type CodeGenerator struct {
	store       CodeStore
	length      int
	maxAttempts int
}

func NewCodeGenerator(store CodeStore, length, maxAttempts int) *CodeGenerator {
	if length <= 0 {
		length = 10
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &CodeGenerator{store: store, length: length, maxAttempts: maxAttempts}
}

// UniqueCode draws random codes until one is free, bounded by maxAttempts.
func (g *CodeGenerator) UniqueCode() (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		code, err := randomCode(g.length)
		if err != nil {
			return "", errors.NewInternalError("failed to generate random code", err)
		}

		exists, err := g.store.CodeExists(code)
		if err != nil {
			return "", errors.NewDependencyError("failed to check code uniqueness", err)
		}
		if !exists {
			return code, nil
		}
	}
	appErr := errors.NewInternalError("exhausted retries generating a unique code", nil).
		WithDetails(map[string]int{"attempts": g.maxAttempts})
	appErr.Code = errors.ErrCodeCodeExhausted
	return "", appErr
}

func randomCode(length int) (string, error) {
	alphabetLen := big.NewInt(int64(len(codeAlphabet)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

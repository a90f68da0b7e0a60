package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Hasher derives the deterministic transaction hash that doubles as the
// idempotency key for payment creation. The secret keys the digest so the
// hash cannot be forged or inverted by a merchant who knows the inputs.
type Hasher struct {
	secret []byte
}

func NewHasher(secret string) *Hasher {
	return &Hasher{secret: []byte(secret)}
}

// TransactionHash returns a 64-character lowercase hex digest of
// (reference, merchantID, amount). Identical inputs always produce the same
// hash; a unique-constraint hit on insert therefore means "this exact
// request was already received", not a random collision.
func (h *Hasher) TransactionHash(reference, merchantID string, amount int64) string {
	mac := hmac.New(sha256.New, h.secret)
	fmt.Fprintf(mac, "%s|%s|%d", reference, merchantID, amount)
	return hex.EncodeToString(mac.Sum(nil))
}

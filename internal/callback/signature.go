package callback

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Signature produces the webhook signature header value for a payload:
// t=<unix-ts>,v1=<hmac-sha256 hex>, where the MAC covers "<ts>.<payload>"
// keyed with the merchant's webhook secret. The timestamp binds the
// signature to a moment in time so receivers can reject replays.
func Signature(payload []byte, secret string, timestamp int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

// VerifySignature checks a signature header against a payload and secret,
// rejecting timestamps older than tolerance in either direction.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration) bool {
	var ts int64
	for _, part := range strings.Split(header, ",") {
		if rest, ok := strings.CutPrefix(part, "t="); ok {
			parsed, err := strconv.ParseInt(rest, 10, 64)
			if err != nil {
				return false
			}
			ts = parsed
		}
	}
	if ts == 0 {
		return false
	}

	age := time.Since(time.Unix(ts, 0))
	if age < 0 {
		age = -age
	}
	if age > tolerance {
		return false
	}

	expected := Signature(payload, secret, ts)
	return hmac.Equal([]byte(expected), []byte(header))
}

package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Slack request signing, version v0.
const (
	SignatureHeader = "X-Slack-Signature"
	TimestampHeader = "X-Slack-Request-Timestamp"
	signatureVer    = "v0"
	MaxSignatureAge = 5 * time.Minute
)

var (
	ErrMissingSignature = errors.New("missing signature headers")
	ErrStaleSignature   = errors.New("signature timestamp out of range")
	ErrBadSignature     = errors.New("signature mismatch")
)

// Sign computes "v0=" + hex(HMAC-SHA256(secret, "v0:" + timestamp + ":" + body)).
func Sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signatureVer + ":" + timestamp + ":"))
	mac.Write(body)
	return signatureVer + "=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a signed callback body against secret. The digest
// comparison is constant time.
func VerifySignature(secret, timestamp, signature string, body []byte, now time.Time) error {
	if secret == "" || timestamp == "" || signature == "" {
		return ErrMissingSignature
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(timestamp), 10, 64)
	if err != nil {
		return ErrMissingSignature
	}
	age := now.Sub(time.Unix(ts, 0))
	if age > MaxSignatureAge || age < -MaxSignatureAge {
		return ErrStaleSignature
	}
	expected := Sign(secret, timestamp, body)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrBadSignature
	}
	return nil
}

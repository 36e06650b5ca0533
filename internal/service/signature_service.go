package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"storefront-wallet/internal/core/ports"
)

// HMACSignatureService implements ports.SignatureService using HMAC-SHA256.
type HMACSignatureService struct{}

// NewHMACSignatureService creates a new HMAC-SHA256 signature service.
func NewHMACSignatureService() *HMACSignatureService {
	return &HMACSignatureService{}
}

// Sign computes HMAC-SHA256 of payload using secretKey.
// Returns lowercase hex-encoded signature.
func (s *HMACSignatureService) Sign(secretKey string, payload string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks if signature matches HMAC-SHA256(secretKey, payload).
// Uses constant-time comparison to prevent timing attacks.
func (s *HMACSignatureService) Verify(secretKey string, payload string, signature string) bool {
	expected := s.Sign(secretKey, payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}

var (
	errSignatureHeader    = errors.New("malformed Stripe-Signature header")
	errSignatureTimestamp = errors.New("signature timestamp outside tolerance")
	errSignatureMismatch  = errors.New("no matching v1 signature")
)

// StripeSignature is a parsed Stripe-Signature header: t=<unix>,v1=<hex>[,v1=...].
type StripeSignature struct {
	Timestamp  time.Time
	Signatures []string // v1 entries; other schemes are ignored
}

// ParseStripeSignature parses a Stripe-Signature header value.
func ParseStripeSignature(header string) (*StripeSignature, error) {
	sig := &StripeSignature{}
	var ts string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = v
		case "v1":
			sig.Signatures = append(sig.Signatures, v)
		}
	}
	if ts == "" || len(sig.Signatures) == 0 {
		return nil, errSignatureHeader
	}
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return nil, errSignatureHeader
	}
	sig.Timestamp = time.Unix(unix, 0)
	return sig, nil
}

// SignedPayload is the string Stripe signs: "<t>.<body>".
func (s *StripeSignature) SignedPayload(body []byte) string {
	return strconv.FormatInt(s.Timestamp.Unix(), 10) + "." + string(body)
}

// VerifyStripeSignature checks header against body. A zero tolerance disables
// the timestamp check.
func VerifyStripeSignature(signer ports.SignatureService, secret string, body []byte, header string, tolerance time.Duration, now time.Time) error {
	sig, err := ParseStripeSignature(header)
	if err != nil {
		return err
	}
	if tolerance > 0 {
		if age := now.Sub(sig.Timestamp); age > tolerance || age < -tolerance {
			return errSignatureTimestamp
		}
	}
	payload := sig.SignedPayload(body)
	for _, v1 := range sig.Signatures {
		if signer.Verify(secret, payload, v1) {
			return nil
		}
	}
	return errSignatureMismatch
}

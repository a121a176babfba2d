package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"roombook/internal/pkg/config"
)

const (
	CallbackTokenHeader = "X-Callback-Token"
	SignatureHeader     = "X-Signature-256"
)

var (
	ErrMissingCallbackToken = errors.New("missing webhook callback token")
	ErrInvalidCallbackToken = errors.New("invalid webhook callback token")
	ErrMissingSignature     = errors.New("missing webhook signature")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
)

// WebhookVerifier authenticates inbound payment callbacks: the shared
// callback token always, plus an HMAC-SHA256 body signature when a secret
// is configured.
type WebhookVerifier struct {
	callbackToken string
	secret        string
}

func NewWebhookVerifier(cfg config.PaymentConfig) *WebhookVerifier {
	return &WebhookVerifier{callbackToken: cfg.CallbackToken, secret: cfg.WebhookSecret}
}

func (v *WebhookVerifier) Verify(token, signature string, body []byte) error {
	if token == "" {
		return ErrMissingCallbackToken
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(v.callbackToken)) != 1 {
		return ErrInvalidCallbackToken
	}
	if v.secret == "" {
		return nil
	}

	signature, _ = strings.CutPrefix(signature, "sha256=")
	if signature == "" {
		return ErrMissingSignature
	}
	if !hmac.Equal([]byte(Sign(v.secret, body)), []byte(strings.ToLower(signature))) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

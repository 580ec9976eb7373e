package midtrans

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"

	"github.com/anditama/go-shop-backend/internal/domain/payment"
)

// Signature computes the notification signature the provider documents:
// hex(sha512(orderRef + statusCode + grossAmount + serverKey)).
func Signature(orderRef, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderRef + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

var _ payment.Verifier = (*SignatureVerifier)(nil)

// SignatureVerifier authenticates webhook notifications against the merchant
// server key.
type SignatureVerifier struct {
	serverKey string
}

// NewSignatureVerifier creates a verifier for the given server key.
func NewSignatureVerifier(serverKey string) *SignatureVerifier {
	return &SignatureVerifier{serverKey: serverKey}
}

// Verify recomputes the signature from the payload fields and compares it in
// constant time against the supplied one.
func (v *SignatureVerifier) Verify(n *payment.Notification) error {
	want := Signature(n.OrderRef, n.StatusCode, n.GrossAmount, v.serverKey)
	if subtle.ConstantTimeCompare([]byte(want), []byte(n.SignatureKey)) != 1 {
		return payment.ErrInvalidSignature
	}
	return nil
}

package usecases

import "crypto/subtle"

// WebhookVerifier answers the provider's subscription handshake.
type WebhookVerifier struct {
	verifyToken string
}

func NewWebhookVerifier(verifyToken string) *WebhookVerifier {
	return &WebhookVerifier{verifyToken: verifyToken}
}

// Verify returns the challenge and true when mode is "subscribe" and token matches the
// configured verify token. An empty token never matches.
func (v *WebhookVerifier) Verify(mode, token, challenge string) (string, bool) {
	if mode != "subscribe" || token == "" || v.verifyToken == "" {
		return "", false
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(v.verifyToken)) != 1 {
		return "", false
	}
	return challenge, true
}

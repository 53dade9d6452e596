package shipsync

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignBody computes the hex-encoded HMAC-SHA256 signature of body under
// secret. This is the single signature scheme in use: a static shared
// secret configured on both sides.
func SignBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a webhook body against its received signature
// using a constant-time comparison. It must be called on the untouched
// raw request bytes; a parse/re-serialize round trip is not guaranteed
// to reproduce the signed payload.
//
// A missing secret or signature always fails verification; "no secret
// configured" is never treated as "accept everything".
func VerifySignature(rawBody []byte, receivedSignature, secret string) bool {
	if secret == "" || receivedSignature == "" {
		return false
	}
	expected := SignBody(rawBody, secret)
	return hmac.Equal([]byte(expected), []byte(receivedSignature))
}

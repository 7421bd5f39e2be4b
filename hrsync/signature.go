package hrsync

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

const signaturePrefix = "sha256="

var ErrSignatureMismatch = errors.New("webhook signature mismatch")

// ComputeSignature signs the raw request body with the organization's shared
// secret, formatted as "sha256=<hex>".
func ComputeSignature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks the header value against the body in constant time.
// Everything fails the same way: wrong prefix, bad hex, wrong digest.
func VerifySignature(secret string, body []byte, header string) error {
	if !strings.HasPrefix(header, signaturePrefix) {
		return ErrSignatureMismatch
	}
	provided, err := hex.DecodeString(strings.TrimPrefix(header, signaturePrefix))
	if err != nil {
		return ErrSignatureMismatch
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(provided, mac.Sum(nil)) {
		return ErrSignatureMismatch
	}
	return nil
}

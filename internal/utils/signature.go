package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// GenerateHMAC returns the hex HMAC-SHA256 of data
func GenerateHMAC(data, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// WebhookManifest builds the string Mercado Pago signs for a notification.
// Parts that are absent from the request are left out.
func WebhookManifest(dataID, requestID, ts string) string {
	var b strings.Builder
	if dataID != "" {
		b.WriteString("id:" + strings.ToLower(dataID) + ";")
	}
	if requestID != "" {
		b.WriteString("request-id:" + requestID + ";")
	}
	if ts != "" {
		b.WriteString("ts:" + ts + ";")
	}
	return b.String()
}

// ParseSignatureHeader splits an "x-signature: ts=...,v1=..." header
func ParseSignatureHeader(header string) (ts, v1 string, err error) {
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "ts":
			ts = value
		case "v1":
			v1 = value
		}
	}
	if ts == "" || v1 == "" {
		return "", "", fmt.Errorf("malformed signature header")
	}
	return ts, v1, nil
}

// VerifyWebhookSignature checks the x-signature header of a notification
func VerifyWebhookSignature(header, requestID, dataID, secret string) error {
	ts, v1, err := ParseSignatureHeader(header)
	if err != nil {
		return err
	}
	expected := GenerateHMAC(WebhookManifest(dataID, requestID, ts), secret)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(v1))) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

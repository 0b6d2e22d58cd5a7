package scheduling

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// VerifySignature checks an HMAC-SHA256 webhook signature. The authority's
// exact signing input is not pinned down, so every known convention is tried:
// the body alone, "timestamp.body" and "timestamp+body", each compared as hex
// or base64 with an optional "sha256=" prefix. Comparisons are constant time.
func VerifySignature(secret string, body []byte, signature, timestamp string) bool {
	if secret == "" {
		return false
	}
	sig := strings.TrimSpace(signature)
	sig = strings.TrimPrefix(sig, "sha256=")
	if sig == "" {
		return false
	}

	inputs := [][]byte{body}
	if ts := strings.TrimSpace(timestamp); ts != "" {
		inputs = append(inputs,
			append([]byte(ts+"."), body...),
			append([]byte(ts), body...),
		)
	}

	ok := false
	for _, in := range inputs {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(in)
		sum := mac.Sum(nil)

		if hmac.Equal([]byte(strings.ToLower(sig)), []byte(hex.EncodeToString(sum))) {
			ok = true
		}
		if hmac.Equal([]byte(sig), []byte(base64.StdEncoding.EncodeToString(sum))) {
			ok = true
		}
	}
	return ok
}

// Sign produces the hex body-only signature. Used by tests and local tooling.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

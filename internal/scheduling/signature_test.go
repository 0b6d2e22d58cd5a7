package scheduling

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testSecret = "whsec_test"

func macOf(in string) []byte {
	m := hmac.New(sha256.New, []byte(testSecret))
	m.Write([]byte(in))
	return m.Sum(nil)
}

func TestVerifySignature_Conventions(t *testing.T) {
	body := []byte(`{"type":"booking.confirmed","data":{"id":"hb-1"}}`)
	ts := "1731837600"

	assert.True(t, VerifySignature(testSecret, body, Sign(testSecret, body), ""))
	assert.True(t, VerifySignature(testSecret, body, "sha256="+Sign(testSecret, body), ""))
	assert.True(t, VerifySignature(testSecret, body, base64.StdEncoding.EncodeToString(macOf(string(body))), ""))
	assert.True(t, VerifySignature(testSecret, body, hex.EncodeToString(macOf(ts+"."+string(body))), ts))
	assert.True(t, VerifySignature(testSecret, body, hex.EncodeToString(macOf(ts+string(body))), ts))

	// Timestamp conventions need the timestamp header.
	assert.False(t, VerifySignature(testSecret, body, hex.EncodeToString(macOf(ts+"."+string(body))), ""))
}

func TestVerifySignature_AnySingleByteMutationFails(t *testing.T) {
	body := []byte(`{"type":"booking.confirmed","data":{"id":"hb-1"}}`)
	sig := Sign(testSecret, body)

	for i := range body {
		tampered := append([]byte(nil), body...)
		tampered[i] ^= 0x01
		assert.False(t, VerifySignature(testSecret, tampered, sig, ""), "byte %d", i)
	}
}

func TestVerifySignature_RejectsEmpty(t *testing.T) {
	body := []byte(`{}`)
	assert.False(t, VerifySignature("", body, Sign("", body), ""))
	assert.False(t, VerifySignature(testSecret, body, "", ""))
	assert.False(t, VerifySignature(testSecret, body, "sha256=", ""))
}

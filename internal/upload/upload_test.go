package upload

import (
	"crypto/aes"
	"crypto/cipher"
	"testing"
)

func TestDeriveKeyIsThirtyTwoBytes(t *testing.T) {
	key := deriveKey("correct horse battery staple")
	if len(key) != 32 {
		t.Fatalf("key length = %d, want 32", len(key))
	}
}

func TestEncryptCBCRoundTrips(t *testing.T) {
	key := deriveKey("passphrase")
	plaintext := []byte("the quick brown fox jumps over the lazy dog")
	ciphertext, iv, err := encryptCBC(key, plaintext)
	if err != nil {
		t.Fatalf("encryptCBC: %v", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatalf("aes.NewCipher: %v", err)
	}
	mode := cipher.NewCBCDecrypter(block, iv)
	out := make([]byte, len(ciphertext))
	mode.CryptBlocks(out, ciphertext)
	padLen := int(out[len(out)-1])
	out = out[:len(out)-padLen]
	if string(out) != string(plaintext) {
		t.Fatalf("round trip = %q, want %q", out, plaintext)
	}
}

func TestSplitSeverityPrefix(t *testing.T) {
	cases := map[string]bool{
		"INFO#hello":    true,
		"ERROR#boom":    true,
		"VERBOSE2#note": true,
		"no prefix":     false,
	}
	for line, want := range cases {
		_, _, ok := splitSeverityPrefix(line)
		if ok != want {
			t.Errorf("splitSeverityPrefix(%q) ok = %v, want %v", line, ok, want)
		}
	}
}

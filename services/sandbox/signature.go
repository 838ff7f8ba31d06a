package sandbox

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

type signer struct {
	secret []byte
}

func newSigner(secret string) signer {
	return signer{secret: []byte(secret)}
}

// sign returns the hex encoded HMAC-SHA256 over the parts joined by "|".
func (s signer) sign(parts ...string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s signer) valid(signature string, parts ...string) bool {
	expected := s.sign(parts...)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

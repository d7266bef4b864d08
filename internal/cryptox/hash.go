package cryptox

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// NormalizeEmail canonicalizes an email address for hashing: trimmed and
// case-folded. Repeated imports and logins must resolve to the same record,
// so every caller that touches an email goes through this first.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// LookupHash computes the salted one-way index key for a normalized email:
// hex(HMAC-SHA256(salt, email)). Deterministic for a given (email, salt)
// pair; used only for indexing, never for confidentiality.
func LookupHash(normalizedEmail string, salt []byte) string {
	mac := hmac.New(sha256.New, salt)
	mac.Write([]byte(normalizedEmail))
	return hex.EncodeToString(mac.Sum(nil))
}

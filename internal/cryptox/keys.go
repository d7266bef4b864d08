package cryptox

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// KeySize is the AES-256 key length used for every domain key.
const KeySize = 32

// Keychain holds the derived domain keys. Fields protects structured
// personal data (names, roles); Photos protects photo content; TokenEnc
// seals token envelopes and TokenSig signs the claims inside them.
// Compromise of one domain must not compromise another, which is why they
// are expanded under distinct info strings rather than reused.
type Keychain struct {
	Fields   []byte
	Photos   []byte
	TokenEnc []byte
	TokenSig []byte
}

// DeriveKeychain expands the process master secret into the three domain
// keys via HKDF-SHA256. The master secret comes from configuration, is
// loaded once at startup, and is never logged or derived from user input.
func DeriveKeychain(masterSecret []byte) (*Keychain, error) {
	if len(masterSecret) < KeySize {
		return nil, fmt.Errorf("master secret too short: %d bytes", len(masterSecret))
	}

	kc := &Keychain{}
	for _, d := range []struct {
		info string
		dst  *[]byte
	}{
		{"openpass/fields/v1", &kc.Fields},
		{"openpass/photos/v1", &kc.Photos},
		{"openpass/tokens/enc/v1", &kc.TokenEnc},
		{"openpass/tokens/sig/v1", &kc.TokenSig},
	} {
		key := make([]byte, KeySize)
		r := hkdf.New(sha256.New, masterSecret, nil, []byte(d.info))
		if _, err := io.ReadFull(r, key); err != nil {
			return nil, fmt.Errorf("hkdf expand %s: %w", d.info, err)
		}
		*d.dst = key
	}

	return kc, nil
}

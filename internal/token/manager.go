package token

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/openpass-dev/openpass/internal/common"
	"github.com/openpass-dev/openpass/internal/cryptox"
)

// Strict decoding rejects non-zero padding bits in the final symbol, so a
// bit flip anywhere in the token string fails verification, not only flips
// that land inside the envelope.
var b64 = base64.RawURLEncoding.Strict()

// Claims are the statements sealed inside a token envelope: the standard
// subject/iat/exp set plus the purpose tag and, for single-use purposes,
// a random nonce.
type Claims struct {
	jwt.RegisteredClaims
	Purpose string `json:"prp"`
	Nonce   string `json:"nnc,omitempty"`
}

// Manager issues and verifies purpose-scoped tokens. Claims are signed
// with HS256 under sigKey, then the compact JWT is sealed with AES-GCM
// under encKey and base64url-encoded. Sign-then-encrypt keeps the token
// tamper-evident and opaque at the same time.
type Manager struct {
	encKey []byte
	sigKey []byte
	ttls   map[Purpose]time.Duration
	now    func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces the manager's clock, used by tests to control expiry.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager builds a Manager from the token key domain and the
// per-purpose lifetimes configured at startup.
func NewManager(encKey, sigKey []byte, ttls map[Purpose]time.Duration, opts ...Option) *Manager {
	m := &Manager{
		encKey: encKey,
		sigKey: sigKey,
		ttls:   ttls,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Issue creates a token binding subjectID to purpose for the configured
// lifetime. Tokens of single-use purposes additionally carry a fresh
// random nonce.
func (m *Manager) Issue(subjectID string, purpose Purpose) (string, error) {
	if _, err := ParsePurpose(string(purpose)); err != nil {
		return "", err
	}
	ttl, ok := m.ttls[purpose]
	if !ok || ttl <= 0 {
		return "", fmt.Errorf("no ttl configured for purpose %q", purpose)
	}

	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Purpose: string(purpose),
	}

	if purpose.SingleUse() {
		nonce := make([]byte, 16)
		if _, err := rand.Read(nonce); err != nil {
			return "", fmt.Errorf("nonce: %w", err)
		}
		claims.Nonce = hex.EncodeToString(nonce)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.sigKey)
	if err != nil {
		return "", fmt.Errorf("sign claims: %w", err)
	}

	envelope, err := cryptox.Encrypt([]byte(signed), m.encKey)
	if err != nil {
		return "", fmt.Errorf("seal claims: %w", err)
	}

	return b64.EncodeToString(envelope), nil
}

// Verify checks tokenString against expectedPurpose and returns the
// subject id it was issued for. Failures map onto the token error
// taxonomy:
//
//   - common.ErrTokenMalformed: not decodable as a token at all
//   - common.ErrTokenTampered: envelope or signature authentication failed
//   - common.ErrTokenExpired: past expires_at
//   - common.ErrTokenWrongPurpose: valid token, different purpose
//
// A failed verification discards the whole payload; no field of a bad
// token is ever trusted.
func (m *Manager) Verify(tokenString string, expectedPurpose Purpose) (string, error) {
	claims, err := m.VerifyClaims(tokenString, expectedPurpose)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// VerifyClaims is Verify for callers that also need the claims, e.g. to
// consume the single-use nonce of an email login token.
func (m *Manager) VerifyClaims(tokenString string, expectedPurpose Purpose) (*Claims, error) {
	envelope, err := b64.DecodeString(tokenString)
	if err != nil {
		return nil, common.ErrTokenMalformed
	}

	signed, err := cryptox.Decrypt(envelope, m.encKey)
	if err != nil {
		// AEAD failure: either corruption or a different key. From the
		// outside the two are indistinguishable, so both are Tampered.
		return nil, common.ErrTokenTampered
	}

	claims := &Claims{}
	_, err = jwt.ParseWithClaims(string(signed), claims,
		func(t *jwt.Token) (any, error) { return m.sigKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, common.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, common.ErrTokenTampered
	default:
		return nil, common.ErrTokenMalformed
	}

	if claims.Purpose != string(expectedPurpose) {
		return nil, common.ErrTokenWrongPurpose
	}

	return claims, nil
}

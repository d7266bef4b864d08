// Package token issues and verifies the opaque, purpose-scoped, expiring
// tokens that guard every sensitive operation of openpass. A token is a
// signed set of claims sealed inside an authenticated-encryption envelope,
// so a holder can neither read nor forge the subject, purpose or expiry.
// Verification is a pure function of the token string and the clock; the
// manager keeps no per-token state and is safe across worker processes.
package token

import "fmt"

// Purpose declares the one operation class a token is valid for.
type Purpose string

const (
	// PurposeEmailLogin authorizes completing a login from an emailed
	// link. Single-use: carries a nonce consumed via the marker store.
	PurposeEmailLogin Purpose = "email_login"

	// PurposePhotoAccess authorizes reading one member's photo.
	PurposePhotoAccess Purpose = "photo_access"

	// PurposeQrShare authorizes rendering a shared membership card.
	PurposeQrShare Purpose = "qr_share"

	// PurposeEmailProof attests that the subject controls an email
	// address. Single-use like PurposeEmailLogin.
	PurposeEmailProof Purpose = "email_proof"
)

// Purposes returns the closed set of valid purposes.
func Purposes() []Purpose {
	return []Purpose{PurposeEmailLogin, PurposePhotoAccess, PurposeQrShare, PurposeEmailProof}
}

// ParsePurpose converts a string into a Purpose, rejecting anything
// outside the closed set.
func ParsePurpose(s string) (Purpose, error) {
	switch p := Purpose(s); p {
	case PurposeEmailLogin, PurposePhotoAccess, PurposeQrShare, PurposeEmailProof:
		return p, nil
	default:
		return "", fmt.Errorf("unknown token purpose %q", s)
	}
}

// SingleUse reports whether tokens of this purpose carry a nonce that the
// caller must consume through the one-time marker store.
func (p Purpose) SingleUse() bool {
	return p == PurposeEmailLogin || p == PurposeEmailProof
}

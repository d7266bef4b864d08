// Package members is the member identity index: records keyed by a salted
// one-way hash of the email address, with name fields encrypted at rest.
// The plaintext email is never persisted; the hash is the only lookup key.
package members

import "fmt"

// Role is the closed set of member roles carried on a record.
type Role string

const (
	RoleMember Role = "member"
	RoleBoard  Role = "board"
	RoleAdmin  Role = "admin"
)

// ParseRole maps a raw role string onto the closed enum. The empty string
// means plain membership.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleMember, RoleBoard, RoleAdmin:
		return r, nil
	case "":
		return RoleMember, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Member is a decrypted member record as handed to callers. Names are
// decrypted only at this point, never inside the repository.
type Member struct {
	ID        string
	EmailHash string
	FirstName string
	LastName  string
	Role      Role
	JoinYear  int
}

// Record is the at-rest shape of a member row: encrypted name envelopes,
// nothing that identifies the member in plaintext.
type Record struct {
	ID           string
	EmailHash    string
	FirstNameEnc []byte
	LastNameEnc  []byte
	Role         Role
	JoinYear     int
}

// Row is one entry of a bulk import, already split into fields by the
// (out-of-scope) CSV layer.
type Row struct {
	Email     string
	FirstName string
	LastName  string
	Role      string
	JoinYear  int
}

// RowError ties a failed import row to its position and cause.
type RowError struct {
	Index int
	Err   error
}

// Tally reports the outcome of a bulk import. A malformed row fails that
// row only; the import continues.
type Tally struct {
	Imported  int
	Failed    int
	RowErrors []RowError
}

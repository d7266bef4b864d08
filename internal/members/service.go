package members

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/openpass-dev/openpass/internal/common"
	"github.com/openpass-dev/openpass/internal/cryptox"
	"github.com/openpass-dev/openpass/internal/logging"
)

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Service implements the member identity index on top of a Repository.
// Emails are normalized and hashed with the configured salt before any
// lookup; name fields are encrypted under the fields key domain before
// any write.
type Service struct {
	repo      Repository
	fieldsKey []byte
	emailSalt []byte
	dbTimeout time.Duration
	log       logging.Logger
}

// NewService builds the index. fieldsKey and emailSalt come from the
// startup keychain/config and are immutable for the process lifetime.
func NewService(repo Repository, fieldsKey, emailSalt []byte, dbTimeout time.Duration, log logging.Logger) *Service {
	return &Service{
		repo:      repo,
		fieldsKey: fieldsKey,
		emailSalt: emailSalt,
		dbTimeout: dbTimeout,
		log:       log.With("component", "members"),
	}
}

// Hash returns the lookup hash of an email, the identity discriminator
// used by the rate-limit gate and as photo owner subject id.
func (s *Service) Hash(email string) string {
	return cryptox.LookupHash(cryptox.NormalizeEmail(email), s.emailSalt)
}

// Upsert normalizes the email, encrypts the name fields and writes or
// replaces the record keyed by the email hash. Returns the member id,
// stable across re-imports of the same email.
func (s *Service) Upsert(ctx context.Context, row Row) (string, error) {
	if err := validateRow(row); err != nil {
		return "", err
	}

	role, err := ParseRole(row.Role)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrValidation, err)
	}

	firstEnc, err := cryptox.Encrypt([]byte(row.FirstName), s.fieldsKey)
	if err != nil {
		return "", fmt.Errorf("encrypt first name: %w", err)
	}
	lastEnc, err := cryptox.Encrypt([]byte(row.LastName), s.fieldsKey)
	if err != nil {
		return "", fmt.Errorf("encrypt last name: %w", err)
	}

	rec := &Record{
		ID:           uuid.NewString(),
		EmailHash:    s.Hash(row.Email),
		FirstNameEnc: firstEnc,
		LastNameEnc:  lastEnc,
		Role:         role,
		JoinYear:     row.JoinYear,
	}

	ctx, cancel := context.WithTimeout(ctx, s.dbTimeout)
	defer cancel()

	id, err := s.repo.Upsert(ctx, rec)
	if err != nil {
		return "", err
	}

	s.log.Info(ctx, "member upserted", "email_hash", rec.EmailHash, "member_id", id)
	return id, nil
}

// Import processes an ordered batch of rows with partial-failure
// semantics: a malformed row fails that row only and the import
// continues. Duplicate emails within one batch fail the later rows.
// The returned tally reports successes, failures and per-row causes.
func (s *Service) Import(ctx context.Context, rows []Row) (*Tally, error) {
	tally := &Tally{}
	seen := make(map[string]struct{}, len(rows))

	for i, row := range rows {
		if err := validateRow(row); err != nil {
			tally.Failed++
			tally.RowErrors = append(tally.RowErrors, RowError{Index: i, Err: err})
			s.log.Warn(ctx, "import row failed", "row", i, "error", err.Error())
			continue
		}

		hash := s.Hash(row.Email)
		if _, dup := seen[hash]; dup {
			tally.Failed++
			tally.RowErrors = append(tally.RowErrors, RowError{
				Index: i,
				Err:   fmt.Errorf("%w: duplicate email in batch", common.ErrValidation),
			})
			continue
		}

		if _, err := s.Upsert(ctx, row); err != nil {
			tally.Failed++
			tally.RowErrors = append(tally.RowErrors, RowError{Index: i, Err: err})
			s.log.Warn(ctx, "import row failed", "row", i, "error", err.Error())
			continue
		}

		seen[hash] = struct{}{}
		tally.Imported++
	}

	s.log.Info(ctx, "import finished", "imported", tally.Imported, "failed", tally.Failed)
	return tally, nil
}

// Lookup resolves an email to its member record, decrypting the name
// fields at this point only. Unknown emails return common.ErrNotFound;
// callers must not distinguish a missing record from a failed hash match.
func (s *Service) Lookup(ctx context.Context, email string) (*Member, error) {
	hash := s.Hash(email)

	ctx, cancel := context.WithTimeout(ctx, s.dbTimeout)
	defer cancel()

	rec, err := s.repo.GetByEmailHash(ctx, hash)
	if err != nil {
		return nil, err
	}

	first, err := cryptox.Decrypt(rec.FirstNameEnc, s.fieldsKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt first name: %w", err)
	}
	last, err := cryptox.Decrypt(rec.LastNameEnc, s.fieldsKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt last name: %w", err)
	}

	return &Member{
		ID:        rec.ID,
		EmailHash: rec.EmailHash,
		FirstName: string(first),
		LastName:  string(last),
		Role:      rec.Role,
		JoinYear:  rec.JoinYear,
	}, nil
}

func validateRow(row Row) error {
	if !emailRe.MatchString(cryptox.NormalizeEmail(row.Email)) {
		return fmt.Errorf("%w: invalid email", common.ErrValidation)
	}
	if row.FirstName == "" || row.LastName == "" {
		return fmt.Errorf("%w: first and last name are required", common.ErrValidation)
	}
	return nil
}

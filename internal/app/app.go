// Package app wires the openpass security subsystem together and exposes
// the only entry points the rest of the application may call. Key
// material and hashing salts stay inside; callers deal in subject ids,
// tokens, storage ids and decisions.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/openpass-dev/openpass/internal/common"
	"github.com/openpass-dev/openpass/internal/config"
	"github.com/openpass-dev/openpass/internal/cryptox"
	"github.com/openpass-dev/openpass/internal/logging"
	"github.com/openpass-dev/openpass/internal/markers"
	"github.com/openpass-dev/openpass/internal/members"
	"github.com/openpass-dev/openpass/internal/migrations"
	"github.com/openpass-dev/openpass/internal/photos"
	"github.com/openpass-dev/openpass/internal/ratelimit"
	"github.com/openpass-dev/openpass/internal/token"
)

// purgeInterval is how often expired rate-limit counters and one-time
// markers are swept from the shared store.
const purgeInterval = 10 * time.Minute

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	tokens  *token.Manager
	members *members.Service
	photos  *photos.Service
	gate    *ratelimit.Gate
	markers markers.Store
}

// NewApp builds the subsystem from the immutable startup config: derives
// the key domains, opens the database, and constructs every component.
// The config must already be validated.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(parseLevel(cfg.LogLevel))

	secret, err := cfg.MasterSecret()
	if err != nil {
		return nil, err
	}
	keychain, err := cryptox.DeriveKeychain(secret)
	if err != nil {
		return nil, fmt.Errorf("key derivation: %w", err)
	}
	salt, err := cfg.EmailIndexSalt()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	blobs, err := photos.NewS3BlobStore(ctx, photos.S3Settings{
		User:         cfg.S3RootUser,
		Password:     cfg.S3RootPassword,
		Bucket:       cfg.S3Bucket,
		Region:       cfg.S3Region,
		BaseEndpoint: cfg.S3BaseEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	app := &App{
		config: cfg,
		logger: logger,
		db:     db,
		tokens: token.NewManager(keychain.TokenEnc, keychain.TokenSig, cfg.TokenTTLs),
		members: members.NewService(
			members.NewPostgresRepository(db), keychain.Fields, salt, cfg.DatabaseTimeout, logger),
		photos: photos.NewService(
			blobs, photos.NewPostgresPointerRepository(db), keychain.Photos,
			cfg.DatabaseTimeout, cfg.StorageTimeout, logger),
		gate:    ratelimit.NewGate(ratelimit.NewPostgresCounterStore(db), cfg.DatabaseTimeout, logger),
		markers: markers.NewPostgresStore(db),
	}
	return app, nil
}

// Migrate brings the schema up to date using the embedded migrations.
func (a *App) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, a.db, ".")
}

// Close releases the database handle.
func (a *App) Close() error {
	return a.db.Close()
}

func (a *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run migrates the schema and keeps the maintenance janitor going until
// the context is cancelled or a termination signal arrives. The web
// front end runs in the same process and calls the methods below.
func (a *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	a.logger.Info(ctx, "starting openpass core")

	if err := a.Migrate(ctx); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	a.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.runJanitor(ctx)
	}()

	wg.Wait()
	a.logger.Info(ctx, "openpass core stopped")
	return nil
}

// runJanitor periodically drops expired rate-limit counters and one-time
// markers so the shared store does not grow without bound.
func (a *App) runJanitor(ctx context.Context) {
	counters := ratelimit.NewPostgresCounterStore(a.db)

	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purgeCtx, cancel := context.WithTimeout(ctx, a.config.DatabaseTimeout)
			if err := counters.Purge(purgeCtx, time.Now()); err != nil {
				a.logger.Warn(ctx, "counter purge failed", "error", err.Error())
			}
			if err := a.markers.Purge(purgeCtx, time.Now()); err != nil {
				a.logger.Warn(ctx, "marker purge failed", "error", err.Error())
			}
			cancel()
		}
	}
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// IdentityKey maps an email address onto the identity discriminator used
// for member lookups, photo ownership and rate limiting. The plaintext
// email never crosses back over this boundary.
func (a *App) IdentityKey(email string) string {
	return a.members.Hash(email)
}

// IssueToken issues a purpose-scoped token bound to subjectID with the
// configured lifetime.
func (a *App) IssueToken(ctx context.Context, subjectID string, purpose token.Purpose) (string, error) {
	return a.tokens.Issue(subjectID, purpose)
}

// VerifyToken checks a presented token against the expected purpose and
// returns the subject it was issued for. Every failure — malformed,
// tampered, expired or wrong purpose — comes back as the single
// common.ErrInvalidToken so a caller cannot probe why a token failed;
// the precise cause is logged here instead.
func (a *App) VerifyToken(ctx context.Context, tokenString string, purpose token.Purpose) (string, error) {
	subject, err := a.tokens.Verify(tokenString, purpose)
	if err != nil {
		a.logger.Warn(ctx, "token verification failed", "purpose", purpose, "cause", err.Error())
		return "", common.ErrInvalidToken
	}
	return subject, nil
}

// ConsumeSingleUseToken verifies a single-use token and atomically claims
// its nonce. The second presentation of the same token fails like any
// other invalid token.
func (a *App) ConsumeSingleUseToken(ctx context.Context, tokenString string, purpose token.Purpose) (string, error) {
	if !purpose.SingleUse() {
		return "", fmt.Errorf("purpose %q is not single-use", purpose)
	}

	claims, err := a.tokens.VerifyClaims(tokenString, purpose)
	if err != nil {
		a.logger.Warn(ctx, "token verification failed", "purpose", purpose, "cause", err.Error())
		return "", common.ErrInvalidToken
	}

	dbCtx, cancel := context.WithTimeout(ctx, a.config.DatabaseTimeout)
	defer cancel()
	ok, err := a.markers.Consume(dbCtx, claims.Nonce, claims.ExpiresAt.Time)
	if err != nil {
		return "", fmt.Errorf("consume nonce: %w", err)
	}
	if !ok {
		a.logger.Warn(ctx, "token replayed", "purpose", purpose)
		return "", common.ErrInvalidToken
	}

	return claims.Subject, nil
}

// UploadPhoto encrypts and stores owner's photo, atomically replacing any
// previous one, and returns the new storage id.
func (a *App) UploadPhoto(ctx context.Context, ownerSubjectID string, raw []byte) (string, error) {
	return a.photos.Store(ctx, ownerSubjectID, raw)
}

// GetPhoto returns the decrypted photo behind storageID if
// requesterSubjectID is its owner. The requester identity must come from
// a verified session subject or from VerifyToken on a photo-access or
// qr-share token.
func (a *App) GetPhoto(ctx context.Context, storageID, requesterSubjectID string) ([]byte, error) {
	return a.photos.Retrieve(ctx, storageID, requesterSubjectID)
}

// DeletePhoto discards owner's photo. Idempotent when none exists.
func (a *App) DeletePhoto(ctx context.Context, ownerSubjectID string) error {
	return a.photos.Delete(ctx, ownerSubjectID)
}

// ImportMembers upserts a batch of member rows with row-scoped failures.
func (a *App) ImportMembers(ctx context.Context, rows []members.Row) (*members.Tally, error) {
	return a.members.Import(ctx, rows)
}

// LookupMember resolves an email to its decrypted member record, or
// common.ErrNotFound. Unknown and known-but-unreadable emails are not
// distinguishable by the caller.
func (a *App) LookupMember(ctx context.Context, email string) (*members.Member, error) {
	return a.members.Lookup(ctx, email)
}

// CheckRateLimit runs the atomic check-and-increment for an identity and
// operation. Callers must consult it before issuing tokens for
// rate-limited purposes and treat a denial as a normal outcome.
func (a *App) CheckRateLimit(ctx context.Context, identityKey string, operation config.Operation) (ratelimit.Decision, error) {
	rule, err := a.config.Rule(operation)
	if err != nil {
		return ratelimit.Decision{}, err
	}
	return a.gate.Allow(ctx, identityKey, string(operation), rule.Limit, rule.Window), nil
}

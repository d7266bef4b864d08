package photos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openpass-dev/openpass/internal/common"
	"github.com/openpass-dev/openpass/internal/cryptox"
	"github.com/openpass-dev/openpass/internal/logging"
)

// Service implements the encrypted resource store contract: encrypt under
// the photo key domain, persist under a random storage id, re-validate
// ownership on every read. Storage failures surface to the caller; a
// photo is never silently stored unencrypted.
type Service struct {
	blobs          BlobStore
	pointers       PointerRepository
	photoKey       []byte
	dbTimeout      time.Duration
	storageTimeout time.Duration
	log            logging.Logger
}

func NewService(blobs BlobStore, pointers PointerRepository, photoKey []byte, dbTimeout, storageTimeout time.Duration, log logging.Logger) *Service {
	return &Service{
		blobs:          blobs,
		pointers:       pointers,
		photoKey:       photoKey,
		dbTimeout:      dbTimeout,
		storageTimeout: storageTimeout,
		log:            log.With("component", "photos"),
	}
}

// newStorageID generates a storage key uncorrelated with the owner or any
// original filename.
func newStorageID() string {
	d := time.Now()
	return fmt.Sprintf("photos/%d/%02d/%02d/%s", d.Year(), d.Month(), d.Day(), uuid.New())
}

// Store encrypts raw and makes it the owner's live photo. The new
// envelope is durably written before the pointer moves, so a concurrent
// reader sees the old photo or the new one in full, never a partial
// write. The superseded envelope is removed afterwards; from that moment
// its storage id is permanently inaccessible through Retrieve.
func (s *Service) Store(ctx context.Context, ownerHash string, raw []byte) (string, error) {
	envelope, err := cryptox.Encrypt(raw, s.photoKey)
	if err != nil {
		return "", fmt.Errorf("encrypt photo: %w", err)
	}

	storageID := newStorageID()

	putCtx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()
	if err := s.blobs.Put(putCtx, storageID, envelope); err != nil {
		return "", fmt.Errorf("store photo: %w", err)
	}

	swapCtx, cancel := context.WithTimeout(ctx, s.dbTimeout)
	defer cancel()
	old, err := s.pointers.Swap(swapCtx, ownerHash, storageID)
	if err != nil {
		return "", fmt.Errorf("swap photo pointer: %w", err)
	}

	if old != "" {
		delCtx, cancel := context.WithTimeout(ctx, s.storageTimeout)
		defer cancel()
		if err := s.blobs.Delete(delCtx, old); err != nil {
			// The pointer already moved, so the stale blob is
			// unreachable; removal gets retried by the next upload.
			s.log.Warn(ctx, "superseded photo not removed", "storage_id", old, "error", err.Error())
		}
	}

	s.log.Info(ctx, "photo stored", "owner_hash", ownerHash, "storage_id", storageID)
	return storageID, nil
}

// Retrieve decrypts the photo behind storageID for requesterHash. The
// binding between requester and owner is checked on every call, never
// cached: common.ErrNotFound when storageID is not anyone's live photo,
// common.ErrForbidden when it belongs to someone else.
func (s *Service) Retrieve(ctx context.Context, storageID, requesterHash string) ([]byte, error) {
	dbCtx, cancel := context.WithTimeout(ctx, s.dbTimeout)
	defer cancel()
	owner, err := s.pointers.GetOwner(dbCtx, storageID)
	if err != nil {
		return nil, err
	}

	if owner != requesterHash {
		s.log.Warn(ctx, "photo access denied", "storage_id", storageID, "requester_hash", requesterHash)
		return nil, common.ErrForbidden
	}

	getCtx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()
	envelope, err := s.blobs.Get(getCtx, storageID)
	if err != nil {
		return nil, err
	}

	raw, err := cryptox.Decrypt(envelope, s.photoKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt photo %s: %w", storageID, err)
	}
	return raw, nil
}

// Delete removes the owner's photo, pointer first so the blob becomes
// unreachable before it is discarded. Idempotent when no photo exists.
func (s *Service) Delete(ctx context.Context, ownerHash string) error {
	dbCtx, cancel := context.WithTimeout(ctx, s.dbTimeout)
	defer cancel()
	storageID, err := s.pointers.Remove(dbCtx, ownerHash)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		return err
	}

	delCtx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()
	if err := s.blobs.Delete(delCtx, storageID); err != nil {
		return fmt.Errorf("discard photo %s: %w", storageID, err)
	}

	s.log.Info(ctx, "photo deleted", "owner_hash", ownerHash, "storage_id", storageID)
	return nil
}

package photos

import "context"

// PointerRepository maintains the owner→storage_id binding. The pointer
// row, not the blob, decides which envelope is a member's live photo.
type PointerRepository interface {
	// Swap atomically points owner at newStorageID and returns the
	// previous storage id, or "" when the owner had no photo.
	Swap(ctx context.Context, ownerHash, newStorageID string) (old string, err error)

	// GetOwner resolves a storage id to its owner hash, or
	// common.ErrNotFound when the id is not the live photo of anyone.
	GetOwner(ctx context.Context, storageID string) (string, error)

	// Remove deletes the owner's pointer and returns the storage id it
	// held, or common.ErrNotFound when there was none.
	Remove(ctx context.Context, ownerHash string) (string, error)
}

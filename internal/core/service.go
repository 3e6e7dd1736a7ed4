package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"
)

// RemoteStore is the document-store collaborator holding the "servicos"
// collection and the per-user role flags of the "users" collection.
type RemoteStore interface {
	// ListByNewest returns all records ordered by creation timestamp
	// descending. This ordering is a user-facing contract.
	ListByNewest(ctx context.Context) ([]ServiceRecord, error)

	// Get returns the record with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (ServiceRecord, error)

	// Insert stores rec, assigning its ID and DataCadastro. It fails with
	// ErrDuplicateOwner when the owner already has a record (enforced at the
	// schema level, not only by the resolver pre-check).
	Insert(ctx context.Context, rec *ServiceRecord) error

	// Update replaces the stored record matching rec.ID, or ErrNotFound.
	Update(ctx context.Context, rec ServiceRecord) error

	// Delete removes the record with the given id, or ErrNotFound.
	Delete(ctx context.Context, id string) error

	// FindByOwner returns the records owned by userID, oldest first.
	FindByOwner(ctx context.Context, userID string) ([]ServiceRecord, error)

	// Role returns the stored role flag for uid ("" when none).
	Role(ctx context.Context, uid string) (string, error)

	// SetRole replaces the stored role flag for uid.
	SetRole(ctx context.Context, uid, role string) error
}

// BlobStore is the binary-object collaborator for logo images. Put stores the
// blob under key and returns its publicly fetchable URL.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
}

// LogoUpload is an optional image payload accompanying a create or update.
type LogoUpload struct {
	FileName    string
	ContentType string
	Content     io.Reader
}

// Service coordinates the listing cache, the remote collaborators, and the
// authorization rules around record mutation.
type Service struct {
	store   RemoteStore
	blobs   BlobStore
	listing *ListingStore

	// locks serializes writes per record id: a later-issued write on the
	// same record must not start before the earlier one completes. Writes
	// to different records proceed independently.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService wires the service to its collaborators with an empty cache.
// Call Load before serving listings.
func NewService(store RemoteStore, blobs BlobStore) *Service {
	return &Service{
		store:   store,
		blobs:   blobs,
		listing: NewListingStore(),
		locks:   make(map[string]*sync.Mutex),
	}
}

// Listing exposes the in-memory cache for read-side views.
func (s *Service) Listing() *ListingStore { return s.listing }

// Load fetches all records, newest first, into the listing cache.
func (s *Service) Load(ctx context.Context) error {
	records, err := s.store.ListByNewest(ctx)
	if err != nil {
		return remoteErr("store.list", err)
	}
	return s.listing.Replace(records)
}

// Get returns a single record, preferring the cache and falling back to the
// remote store.
func (s *Service) Get(ctx context.Context, id string) (ServiceRecord, error) {
	if rec, ok := s.listing.Get(id); ok {
		return rec, nil
	}
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return ServiceRecord{}, remoteErr("store.get", err)
	}
	return rec, nil
}

// Create registers a new listing for the session's identity.
//
// It fails with ErrUnauthorized for anonymous sessions and with
// ErrDuplicateOwner when the session already owns a record. When a logo is
// supplied it is uploaded first and its URL attached to the record; a failed
// upload aborts the whole operation so no record exists without its logo.
func (s *Service) Create(ctx context.Context, sess SessionContext, in RecordInput, logo *LogoUpload) (ServiceRecord, error) {
	if sess.Identity == nil {
		return ServiceRecord{}, ErrUnauthorized
	}
	if sess.OwnedRecordID != "" {
		return ServiceRecord{}, ErrDuplicateOwner
	}

	rec, err := NewServiceRecord(in, sess.Identity.UID)
	if err != nil {
		return ServiceRecord{}, err
	}

	if logo != nil {
		url, err := s.uploadLogo(ctx, logo)
		if err != nil {
			return ServiceRecord{}, err
		}
		rec.LogoURL = url
	}

	if err := s.store.Insert(ctx, &rec); err != nil {
		return ServiceRecord{}, remoteErr("store.insert", err)
	}

	// Reflect into the cache with the id the store assigned; no re-fetch.
	if err := s.listing.ApplyCreate(rec); err != nil {
		slog.Warn("cache insert after create failed", "id", rec.ID, "error", err)
	}

	slog.Info("service record created", "id", rec.ID, "categoria", rec.Categoria)
	return rec, nil
}

// Update applies a partial field replacement to the record with the given
// id. Only the owner or an administrator may update.
//
// A new logo is uploaded before the record write; if that upload fails the
// previously stored logo reference is kept and the update proceeds without
// replacing the image.
func (s *Service) Update(ctx context.Context, sess SessionContext, id string, patch RecordPatch, logo *LogoUpload) (ServiceRecord, error) {
	unlock := s.lockRecord(id)
	defer unlock()

	current, err := s.Get(ctx, id)
	if err != nil {
		return ServiceRecord{}, err
	}
	if !sess.CanMutate(&current) {
		if sess.Identity == nil {
			return ServiceRecord{}, ErrUnauthorized
		}
		return ServiceRecord{}, ErrForbidden
	}

	next, err := current.Apply(patch)
	if err != nil {
		return ServiceRecord{}, err
	}

	if logo != nil {
		if url, err := s.uploadLogo(ctx, logo); err != nil {
			slog.Warn("logo upload failed on update, keeping previous logo",
				"id", id, "error", err)
		} else {
			next.LogoURL = url
		}
	}

	if err := s.store.Update(ctx, next); err != nil {
		return ServiceRecord{}, remoteErr("store.update", err)
	}

	// In-place cache replacement preserves the record's listing position.
	if err := s.listing.ApplyUpdate(next); err != nil {
		slog.Warn("cache update failed", "id", id, "error", err)
	}

	slog.Info("service record updated", "id", id)
	return next, nil
}

// Delete permanently removes the record with the given id. Only the owner or
// an administrator may delete. There is no soft delete.
func (s *Service) Delete(ctx context.Context, sess SessionContext, id string) error {
	unlock := s.lockRecord(id)
	defer unlock()

	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !sess.CanMutate(&current) {
		if sess.Identity == nil {
			return ErrUnauthorized
		}
		return ErrForbidden
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return remoteErr("store.delete", err)
	}

	s.listing.ApplyDelete(id)
	slog.Info("service record deleted", "id", id)
	return nil
}

// SetUserRole replaces the stored role flag for uid. Only administrators may
// promote or demote, and the role must be one of the known flags. The change
// takes effect on the target's next session resolution.
func (s *Service) SetUserRole(ctx context.Context, sess SessionContext, uid, role string) error {
	if sess.Identity == nil {
		return ErrUnauthorized
	}
	if !sess.IsAdmin {
		return ErrForbidden
	}
	if role != RoleAdmin && role != RoleUser {
		return NewValidationError("papel", "papel deve ser admin ou user")
	}
	if strings.TrimSpace(uid) == "" {
		return NewValidationError("uid", "uid é obrigatório")
	}

	if err := s.store.SetRole(ctx, uid, role); err != nil {
		return remoteErr("store.setRole", err)
	}
	slog.Info("user role changed", "uid", uid, "role", role, "by", sess.Identity.UID)
	return nil
}

// uploadLogo stores the image blob and returns its public URL. Keys follow
// the logos/<unix-ms>_<name> convention.
func (s *Service) uploadLogo(ctx context.Context, logo *LogoUpload) (string, error) {
	name := path.Base(strings.TrimSpace(logo.FileName))
	if name == "" || name == "." || name == "/" {
		name = "logo"
	}
	key := fmt.Sprintf("logos/%d_%s", time.Now().UnixMilli(), name)

	url, err := s.blobs.Put(ctx, key, logo.Content, logo.ContentType)
	if err != nil {
		return "", remoteErr("blob.put", err)
	}
	return url, nil
}

// lockRecord acquires the per-record mutation lock for id and returns its
// release func. Locks are created on first use and kept for the process
// lifetime; the record id space is small (one per provider).
func (s *Service) lockRecord(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

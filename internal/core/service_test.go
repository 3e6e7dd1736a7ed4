package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"testing"
	"time"
)

// fakeRemote is a slice-backed RemoteStore with per-call error injection.
type fakeRemote struct {
	records []ServiceRecord // newest first
	roles   map[string]string
	nextID  int

	failList   error
	failInsert error
	failRole   error
}

func newFakeRemote(records ...ServiceRecord) *fakeRemote {
	return &fakeRemote{records: records, roles: make(map[string]string)}
}

func (f *fakeRemote) ListByNewest(ctx context.Context) ([]ServiceRecord, error) {
	if f.failList != nil {
		return nil, f.failList
	}
	return append([]ServiceRecord(nil), f.records...), nil
}

func (f *fakeRemote) Get(ctx context.Context, id string) (ServiceRecord, error) {
	for _, r := range f.records {
		if r.ID == id {
			return r, nil
		}
	}
	return ServiceRecord{}, ErrNotFound
}

func (f *fakeRemote) Insert(ctx context.Context, rec *ServiceRecord) error {
	if f.failInsert != nil {
		return f.failInsert
	}
	for _, r := range f.records {
		if r.UserID == rec.UserID {
			return ErrDuplicateOwner
		}
	}
	f.nextID++
	rec.ID = fmt.Sprintf("rec-%d", f.nextID)
	rec.DataCadastro = time.Now().UTC()
	f.records = append([]ServiceRecord{*rec}, f.records...)
	return nil
}

func (f *fakeRemote) Update(ctx context.Context, rec ServiceRecord) error {
	for i, r := range f.records {
		if r.ID == rec.ID {
			f.records[i] = rec
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeRemote) Delete(ctx context.Context, id string) error {
	for i, r := range f.records {
		if r.ID == id {
			f.records = append(f.records[:i], f.records[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeRemote) FindByOwner(ctx context.Context, userID string) ([]ServiceRecord, error) {
	var out []ServiceRecord
	// records are newest first; owner lookup wants oldest first
	for i := len(f.records) - 1; i >= 0; i-- {
		if f.records[i].UserID == userID {
			out = append(out, f.records[i])
		}
	}
	return out, nil
}

func (f *fakeRemote) Role(ctx context.Context, uid string) (string, error) {
	if f.failRole != nil {
		return "", f.failRole
	}
	return f.roles[uid], nil
}

func (f *fakeRemote) SetRole(ctx context.Context, uid, role string) error {
	if f.failRole != nil {
		return f.failRole
	}
	f.roles[uid] = role
	return nil
}

// fakeBlobs records puts and can fail on demand.
type fakeBlobs struct {
	keys     []string
	failNext error
}

func (f *fakeBlobs) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return "", err
	}
	f.keys = append(f.keys, key)
	return "https://blobs.example.com/" + key, nil
}

func ownerSession(uid string) SessionContext {
	return SessionContext{Identity: &Identity{UID: uid, Email: uid + "@example.com"}}
}

func loadedService(t *testing.T, remote *fakeRemote, blobs BlobStore) *Service {
	t.Helper()
	if blobs == nil {
		blobs = &fakeBlobs{}
	}
	svc := NewService(remote, blobs)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return svc
}

func TestService_LoadRemoteFailure(t *testing.T) {
	remote := newFakeRemote()
	remote.failList = errors.New("connection refused")

	svc := NewService(remote, &fakeBlobs{})
	err := svc.Load(context.Background())

	var re *RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("Load() error = %v, want RemoteError", err)
	}
}

func TestService_CreateAnonymous(t *testing.T) {
	svc := loadedService(t, newFakeRemote(), nil)

	_, err := svc.Create(context.Background(), Anonymous(), validInput(), nil)
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
}

func TestService_Create(t *testing.T) {
	remote := newFakeRemote()
	svc := loadedService(t, remote, nil)

	rec, err := svc.Create(context.Background(), ownerSession("u1"), validInput(), nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if rec.ID == "" {
		t.Error("store-assigned ID missing")
	}
	if rec.DataCadastro.IsZero() {
		t.Error("store-assigned DataCadastro missing")
	}

	// The cache reflects the new record at the front without a reload.
	got := svc.Listing().Records()
	if len(got) != 1 || got[0].ID != rec.ID {
		t.Errorf("listing = %v, want [%s]", idsOf(got), rec.ID)
	}
}

func TestService_CreateDuplicateOwnerPrecheck(t *testing.T) {
	remote := newFakeRemote(ServiceRecord{ID: "mine", UserID: "u1"})
	svc := loadedService(t, remote, nil)

	sess := ownerSession("u1")
	sess.OwnedRecordID = "mine"

	_, err := svc.Create(context.Background(), sess, validInput(), nil)
	if !errors.Is(err, ErrDuplicateOwner) {
		t.Fatalf("error = %v, want ErrDuplicateOwner", err)
	}
	if len(remote.records) != 1 {
		t.Errorf("store grew to %d records on rejected create", len(remote.records))
	}
}

func TestService_CreateDuplicateOwnerStoreEnforced(t *testing.T) {
	// The resolver pre-check can be stale; the store-level rejection must
	// still surface as ErrDuplicateOwner.
	remote := newFakeRemote(ServiceRecord{ID: "mine", UserID: "u1"})
	svc := loadedService(t, remote, nil)

	_, err := svc.Create(context.Background(), ownerSession("u1"), validInput(), nil)
	if !errors.Is(err, ErrDuplicateOwner) {
		t.Fatalf("error = %v, want ErrDuplicateOwner", err)
	}
}

func TestService_CreateWithLogo(t *testing.T) {
	blobs := &fakeBlobs{}
	svc := loadedService(t, newFakeRemote(), blobs)

	logo := &LogoUpload{FileName: "marca.png", ContentType: "image/png", Content: strings.NewReader("png-bytes")}
	rec, err := svc.Create(context.Background(), ownerSession("u1"), validInput(), logo)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if len(blobs.keys) != 1 {
		t.Fatalf("blob puts = %d, want 1", len(blobs.keys))
	}
	key := blobs.keys[0]
	if !strings.HasPrefix(key, "logos/") || !strings.HasSuffix(key, "_marca.png") {
		t.Errorf("blob key = %q, want logos/<ms>_marca.png", key)
	}
	if rec.LogoURL != "https://blobs.example.com/"+key {
		t.Errorf("LogoURL = %q, want blob URL", rec.LogoURL)
	}
}

func TestService_CreateLogoFailureAborts(t *testing.T) {
	remote := newFakeRemote()
	blobs := &fakeBlobs{failNext: errors.New("bucket unavailable")}
	svc := loadedService(t, remote, blobs)

	logo := &LogoUpload{FileName: "marca.png", ContentType: "image/png", Content: strings.NewReader("x")}
	_, err := svc.Create(context.Background(), ownerSession("u1"), validInput(), logo)

	var re *RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("error = %v, want RemoteError", err)
	}
	if len(remote.records) != 0 {
		t.Error("record created despite failed logo upload")
	}
	if svc.Listing().Len() != 0 {
		t.Error("cache grew despite failed logo upload")
	}
}

func TestService_UpdateByOwner(t *testing.T) {
	remote := newFakeRemote(
		ServiceRecord{ID: "b", Nome: "B", Servico: "S", Telefone: "t", Categoria: "Reparos", Estado: "SP", Cidade: "Campinas", UserID: "u2"},
		ServiceRecord{ID: "a", Nome: "A", Servico: "S", Telefone: "t", Categoria: "Reparos", Estado: "SP", Cidade: "Campinas", UserID: "u1"},
	)
	svc := loadedService(t, remote, nil)

	tel := "(19) 98888-0000"
	rec, err := svc.Update(context.Background(), ownerSession("u1"), "a", RecordPatch{Telefone: &tel}, nil)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if rec.Telefone != tel {
		t.Errorf("Telefone = %q, want %q", rec.Telefone, tel)
	}

	// The update must not reorder the listing.
	if got := idsOf(svc.Listing().Records()); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Errorf("listing order = %v, want [b a]", got)
	}
	stored, _ := remote.Get(context.Background(), "a")
	if stored.Telefone != tel {
		t.Error("store not updated")
	}
}

func TestService_UpdateByStranger(t *testing.T) {
	remote := newFakeRemote(ServiceRecord{ID: "a", Nome: "A", Servico: "S", Telefone: "t", Categoria: "Reparos", Estado: "SP", Cidade: "Campinas", UserID: "u1"})
	svc := loadedService(t, remote, nil)

	nome := "Invasor"
	_, err := svc.Update(context.Background(), ownerSession("u2"), "a", RecordPatch{Nome: &nome}, nil)
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("error = %v, want ErrForbidden", err)
	}
}

func TestService_UpdateByAdmin(t *testing.T) {
	remote := newFakeRemote(ServiceRecord{ID: "a", Nome: "A", Servico: "S", Telefone: "t", Categoria: "Reparos", Estado: "SP", Cidade: "Campinas", UserID: "u1"})
	svc := loadedService(t, remote, nil)

	sess := ownerSession("admin-1")
	sess.IsAdmin = true

	nome := "Corrigido"
	rec, err := svc.Update(context.Background(), sess, "a", RecordPatch{Nome: &nome}, nil)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if rec.Nome != nome {
		t.Errorf("Nome = %q, want %q", rec.Nome, nome)
	}
	if rec.UserID != "u1" {
		t.Errorf("UserID = %q, admin edit must not reassign ownership", rec.UserID)
	}
}

func TestService_UpdateAnonymous(t *testing.T) {
	remote := newFakeRemote(ServiceRecord{ID: "a", UserID: "u1"})
	svc := loadedService(t, remote, nil)

	nome := "x"
	_, err := svc.Update(context.Background(), Anonymous(), "a", RecordPatch{Nome: &nome}, nil)
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
}

func TestService_UpdateLogoFailureKeepsPrevious(t *testing.T) {
	remote := newFakeRemote(ServiceRecord{
		ID: "a", Nome: "A", Servico: "S", Telefone: "t", Categoria: "Reparos",
		Estado: "SP", Cidade: "Campinas", UserID: "u1",
		LogoURL: "https://blobs.example.com/logos/1_old.png",
	})
	blobs := &fakeBlobs{failNext: errors.New("bucket unavailable")}
	svc := loadedService(t, remote, blobs)

	tel := "(19) 97777-0000"
	logo := &LogoUpload{FileName: "new.png", ContentType: "image/png", Content: strings.NewReader("x")}
	rec, err := svc.Update(context.Background(), ownerSession("u1"), "a", RecordPatch{Telefone: &tel}, logo)
	if err != nil {
		t.Fatalf("Update() error = %v, want logo failure tolerated", err)
	}
	if rec.LogoURL != "https://blobs.example.com/logos/1_old.png" {
		t.Errorf("LogoURL = %q, want previous logo kept", rec.LogoURL)
	}
	if rec.Telefone != tel {
		t.Error("field update lost alongside logo failure")
	}
}

func TestService_DeleteByOwner(t *testing.T) {
	remote := newFakeRemote(ServiceRecord{ID: "a", UserID: "u1"})
	svc := loadedService(t, remote, nil)

	if err := svc.Delete(context.Background(), ownerSession("u1"), "a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if svc.Listing().Len() != 0 {
		t.Error("record still cached after delete")
	}
	if _, err := remote.Get(context.Background(), "a"); !errors.Is(err, ErrNotFound) {
		t.Error("record still stored after delete")
	}
}

func TestService_DeleteByStranger(t *testing.T) {
	remote := newFakeRemote(ServiceRecord{ID: "a", UserID: "u1"})
	svc := loadedService(t, remote, nil)

	if err := svc.Delete(context.Background(), ownerSession("u2"), "a"); !errors.Is(err, ErrForbidden) {
		t.Errorf("error = %v, want ErrForbidden", err)
	}
	if svc.Listing().Len() != 1 {
		t.Error("record vanished on forbidden delete")
	}
}

func TestService_DeleteUnknown(t *testing.T) {
	svc := loadedService(t, newFakeRemote(), nil)
	if err := svc.Delete(context.Background(), ownerSession("u1"), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestService_GetFallsBackToRemote(t *testing.T) {
	remote := newFakeRemote(ServiceRecord{ID: "a", UserID: "u1"})
	svc := NewService(remote, &fakeBlobs{}) // cache never loaded

	rec, err := svc.Get(context.Background(), "a")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec.ID != "a" {
		t.Errorf("ID = %q, want a", rec.ID)
	}
}

func TestResolve_Anonymous(t *testing.T) {
	svc := loadedService(t, newFakeRemote(), nil)

	sess, err := svc.Resolve(context.Background(), nil)
	if err != nil {
		t.Fatalf("Resolve(nil) error = %v", err)
	}
	if sess.Identity != nil || sess.IsAdmin || sess.OwnedRecordID != "" {
		t.Errorf("Resolve(nil) = %+v, want anonymous", sess)
	}
}

func TestResolve_AdminFlagAndOwnedRecord(t *testing.T) {
	remote := newFakeRemote(ServiceRecord{ID: "a", UserID: "u1"})
	remote.roles["u1"] = RoleAdmin
	svc := loadedService(t, remote, nil)

	sess, err := svc.Resolve(context.Background(), &Identity{UID: "u1"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !sess.IsAdmin {
		t.Error("IsAdmin = false, want true for stored admin role")
	}
	if sess.OwnedRecordID != "a" {
		t.Errorf("OwnedRecordID = %q, want a", sess.OwnedRecordID)
	}
}

func TestResolve_NonAdminRole(t *testing.T) {
	remote := newFakeRemote()
	remote.roles["u1"] = "moderator"
	svc := loadedService(t, remote, nil)

	sess, err := svc.Resolve(context.Background(), &Identity{UID: "u1"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if sess.IsAdmin {
		t.Error("IsAdmin = true for non-admin role flag")
	}
}

func TestResolve_MultipleOwnedUsesOldest(t *testing.T) {
	// Newest-first store order: "newer" precedes "older".
	remote := newFakeRemote(
		ServiceRecord{ID: "newer", UserID: "u1", DataCadastro: time.Now()},
		ServiceRecord{ID: "older", UserID: "u1", DataCadastro: time.Now().Add(-time.Hour)},
	)
	svc := loadedService(t, remote, nil)

	sess, err := svc.Resolve(context.Background(), &Identity{UID: "u1"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if sess.OwnedRecordID != "older" {
		t.Errorf("OwnedRecordID = %q, want the oldest (older)", sess.OwnedRecordID)
	}
}

func TestResolve_RemoteFailure(t *testing.T) {
	remote := newFakeRemote()
	remote.failRole = errors.New("connection refused")
	svc := loadedService(t, remote, nil)

	sess, err := svc.Resolve(context.Background(), &Identity{UID: "u1"})
	var re *RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("error = %v, want RemoteError", err)
	}
	if sess.Identity != nil || sess.IsAdmin {
		t.Errorf("degraded session = %+v, want zero rights", sess)
	}
}

func TestCanMutate(t *testing.T) {
	rec := ServiceRecord{ID: "a", UserID: "u1"}

	if Anonymous().CanMutate(&rec) {
		t.Error("anonymous CanMutate = true")
	}
	if !ownerSession("u1").CanMutate(&rec) {
		t.Error("owner CanMutate = false")
	}
	if ownerSession("u2").CanMutate(&rec) {
		t.Error("stranger CanMutate = true")
	}
	admin := ownerSession("u3")
	admin.IsAdmin = true
	if !admin.CanMutate(&rec) {
		t.Error("admin CanMutate = false")
	}
}

func TestService_SetUserRole(t *testing.T) {
	admin := ownerSession("admin-1")
	admin.IsAdmin = true

	t.Run("admin promotes", func(t *testing.T) {
		remote := newFakeRemote()
		svc := loadedService(t, remote, nil)

		if err := svc.SetUserRole(context.Background(), admin, "u1", RoleAdmin); err != nil {
			t.Fatalf("SetUserRole() error = %v", err)
		}
		if got := remote.roles["u1"]; got != RoleAdmin {
			t.Errorf("stored role = %q, want %q", got, RoleAdmin)
		}
	})

	t.Run("admin demotes", func(t *testing.T) {
		remote := newFakeRemote()
		remote.roles["u1"] = RoleAdmin
		svc := loadedService(t, remote, nil)

		if err := svc.SetUserRole(context.Background(), admin, "u1", RoleUser); err != nil {
			t.Fatalf("SetUserRole() error = %v", err)
		}
		if got := remote.roles["u1"]; got != RoleUser {
			t.Errorf("stored role = %q, want %q", got, RoleUser)
		}
	})

	t.Run("non-admin forbidden", func(t *testing.T) {
		remote := newFakeRemote()
		svc := loadedService(t, remote, nil)

		err := svc.SetUserRole(context.Background(), ownerSession("u2"), "u1", RoleAdmin)
		if !errors.Is(err, ErrForbidden) {
			t.Errorf("error = %v, want ErrForbidden", err)
		}
		if _, ok := remote.roles["u1"]; ok {
			t.Error("role stored despite forbidden caller")
		}
	})

	t.Run("anonymous unauthorized", func(t *testing.T) {
		svc := loadedService(t, newFakeRemote(), nil)

		err := svc.SetUserRole(context.Background(), Anonymous(), "u1", RoleAdmin)
		if !errors.Is(err, ErrUnauthorized) {
			t.Errorf("error = %v, want ErrUnauthorized", err)
		}
	})

	t.Run("unknown role rejected", func(t *testing.T) {
		svc := loadedService(t, newFakeRemote(), nil)

		err := svc.SetUserRole(context.Background(), admin, "u1", "moderator")
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("error = %v, want ValidationError", err)
		}
	})

	t.Run("empty uid rejected", func(t *testing.T) {
		svc := loadedService(t, newFakeRemote(), nil)

		err := svc.SetUserRole(context.Background(), admin, "  ", RoleAdmin)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("error = %v, want ValidationError", err)
		}
	})
}

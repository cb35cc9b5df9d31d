package file

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/hitoshi/fileshare/internal/model"
	"github.com/hitoshi/fileshare/internal/repository"
)

// --- モック定義 ---

type mockByteStore struct {
	saveFn func(originalName string, r io.Reader) (string, error)

	savedNames []string
}

// compile-time interface check
var _ ByteStore = (*mockByteStore)(nil)

func (m *mockByteStore) Save(originalName string, r io.Reader) (string, error) {
	m.savedNames = append(m.savedNames, originalName)
	if m.saveFn != nil {
		return m.saveFn(originalName, r)
	}
	io.Copy(io.Discard, r)
	return "uploads/1700000000000-" + originalName, nil
}

type mockFileRepo struct {
	createBatchFn   func(ctx context.Context, records []*model.FileRecord) error
	listByOwnerIDFn func(ctx context.Context, ownerID string) ([]*model.FileRecord, error)

	batches [][]*model.FileRecord
}

// compile-time interface check
var _ repository.FileRepository = (*mockFileRepo)(nil)

func (m *mockFileRepo) CreateBatch(ctx context.Context, records []*model.FileRecord) error {
	m.batches = append(m.batches, records)
	if m.createBatchFn != nil {
		return m.createBatchFn(ctx, records)
	}
	return nil
}

func (m *mockFileRepo) ListByOwnerID(ctx context.Context, ownerID string) ([]*model.FileRecord, error) {
	if m.listByOwnerIDFn != nil {
		return m.listByOwnerIDFn(ctx, ownerID)
	}
	return []*model.FileRecord{}, nil
}

// --- テスト ---

func TestService_SaveAll_StoresBytesAndInsertsBatch(t *testing.T) {
	store := &mockByteStore{}
	repo := &mockFileRepo{}
	service := NewService(store, repo)

	uploads := []Upload{
		{Name: "a.txt", Reader: strings.NewReader("aaa")},
		{Name: "b.txt", Reader: strings.NewReader("bbb")},
	}

	records, err := service.SaveAll(context.Background(), "user-1", uploads)
	if err != nil {
		t.Fatalf("SaveAll returned error: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	for i, rec := range records {
		if rec.OwnerID != "user-1" {
			t.Errorf("records[%d].OwnerID = %q, want %q", i, rec.OwnerID, "user-1")
		}
		if rec.ID == "" {
			t.Errorf("records[%d].ID should be set", i)
		}
		if rec.StoragePath == "" {
			t.Errorf("records[%d].StoragePath should be set", i)
		}
	}
	if records[0].Name != "a.txt" || records[1].Name != "b.txt" {
		t.Errorf("record names = %q, %q, want a.txt, b.txt", records[0].Name, records[1].Name)
	}

	// メタデータは1バッチで挿入される
	if len(repo.batches) != 1 {
		t.Fatalf("batches = %d, want 1", len(repo.batches))
	}
	if len(repo.batches[0]) != 2 {
		t.Errorf("batch size = %d, want 2", len(repo.batches[0]))
	}
}

func TestService_SaveAll_ZeroUploads_Succeeds(t *testing.T) {
	store := &mockByteStore{}
	repo := &mockFileRepo{}
	service := NewService(store, repo)

	records, err := service.SaveAll(context.Background(), "user-1", nil)
	if err != nil {
		t.Fatalf("SaveAll returned error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("records = %d, want 0", len(records))
	}
	if len(store.savedNames) != 0 {
		t.Errorf("savedNames = %v, want none", store.savedNames)
	}
}

func TestService_SaveAll_StoreError_NoBatchInsert(t *testing.T) {
	store := &mockByteStore{
		saveFn: func(originalName string, r io.Reader) (string, error) {
			return "", errors.New("disk full")
		},
	}
	repo := &mockFileRepo{}
	service := NewService(store, repo)

	_, err := service.SaveAll(context.Background(), "user-1", []Upload{
		{Name: "a.txt", Reader: strings.NewReader("aaa")},
	})
	if err == nil {
		t.Fatal("expected error when byte store fails")
	}
	if len(repo.batches) != 0 {
		t.Errorf("CreateBatch should not be called after store failure, batches = %d", len(repo.batches))
	}
}

func TestService_SaveAll_BatchInsertError_ReturnsError(t *testing.T) {
	store := &mockByteStore{}
	repo := &mockFileRepo{
		createBatchFn: func(ctx context.Context, records []*model.FileRecord) error {
			return errors.New("unique violation")
		},
	}
	service := NewService(store, repo)

	_, err := service.SaveAll(context.Background(), "user-1", []Upload{
		{Name: "a.txt", Reader: strings.NewReader("aaa")},
	})
	if err == nil {
		t.Fatal("expected error when batch insert fails")
	}
	// バイト列は保存済み（ロールバックしない）
	if len(store.savedNames) != 1 {
		t.Errorf("savedNames = %v, want [a.txt]", store.savedNames)
	}
}

func TestService_ListByOwner(t *testing.T) {
	repo := &mockFileRepo{
		listByOwnerIDFn: func(ctx context.Context, ownerID string) ([]*model.FileRecord, error) {
			if ownerID != "user-1" {
				t.Errorf("ownerID = %q, want %q", ownerID, "user-1")
			}
			return []*model.FileRecord{
				{ID: "rec-1", OwnerID: "user-1", Name: "a.txt"},
			}, nil
		},
	}
	service := NewService(&mockByteStore{}, repo)

	records, err := service.ListByOwner(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListByOwner returned error: %v", err)
	}
	if len(records) != 1 || records[0].ID != "rec-1" {
		t.Errorf("records = %+v, want single rec-1", records)
	}
}

func TestService_ListByOwner_RepoError(t *testing.T) {
	repo := &mockFileRepo{
		listByOwnerIDFn: func(ctx context.Context, ownerID string) ([]*model.FileRecord, error) {
			return nil, errors.New("db down")
		},
	}
	service := NewService(&mockByteStore{}, repo)

	if _, err := service.ListByOwner(context.Background(), "user-1"); err == nil {
		t.Fatal("expected error when repository fails")
	}
}

package attachment

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/metarepo/internal/domain"
	"github.com/kailas-cloud/metarepo/internal/domain/record"
	"github.com/kailas-cloud/metarepo/internal/domain/search/order"
)

// --- Mocks ---

type mockRepo struct {
	parent      record.Record
	parentErr   error
	byUUID      map[string]record.Record
	nextID      int64
	deleted     []int64
	listTotal   int
	lastLimit   int
	lastResID   int64
	listQueried bool
}

func newMockRepo() *mockRepo {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	parent := record.Reconstruct(3, domain.KindResource, "res-1", 7, 0, 0, 0, "english",
		"https://example.org", "article", "Parent", "Parent body", nil, "", "", now, now)
	return &mockRepo{parent: parent, byUUID: map[string]record.Record{}, nextID: 100}
}

func hydrate(rec *record.Record, id int64) record.Record {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	return record.Reconstruct(id, rec.Kind(), rec.UUID(), rec.ApplicationID(), 0,
		rec.ResourceID(), rec.FormatID(), rec.Language(), "", "", "", "",
		rec.Value(), "Parent", "Parent body", now, now)
}

func (m *mockRepo) GetResource(_ context.Context, _ int64, _ string) (record.Record, error) {
	if m.parentErr != nil {
		return record.Record{}, m.parentErr
	}
	return m.parent, nil
}

func (m *mockRepo) CreateAttachment(_ context.Context, rec *record.Record, _ int64) (record.Record, error) {
	if _, exists := m.byUUID[rec.UUID()]; exists {
		return record.Record{}, domain.ErrAlreadyExists
	}
	h := hydrate(rec, m.nextID)
	m.nextID++
	m.byUUID[h.UUID()] = h
	return h, nil
}

func (m *mockRepo) UpdateAttachment(_ context.Context, rec *record.Record) (record.Record, error) {
	h := hydrate(rec, rec.ID())
	m.byUUID[h.UUID()] = h
	return h, nil
}

func (m *mockRepo) GetAttachment(_ context.Context, _ domain.Kind, _ int64, uuid string) (record.Record, error) {
	rec, ok := m.byUUID[uuid]
	if !ok {
		return record.Record{}, domain.ErrNotFound
	}
	return rec, nil
}

func (m *mockRepo) ListAttachments(_ context.Context, _ domain.Kind, _, resourceID int64, _ *order.Spec, limit, _ int) ([]record.Record, int, error) {
	m.listQueried = true
	m.lastLimit = limit
	m.lastResID = resourceID
	return nil, m.listTotal, nil
}

func (m *mockRepo) Delete(_ context.Context, _ domain.Kind, id int64) error {
	m.deleted = append(m.deleted, id)
	return nil
}

type mockIndexer struct {
	indexed   []int64
	deindexed []int64
}

func (m *mockIndexer) IndexRecord(rec *record.Record) error {
	m.indexed = append(m.indexed, rec.ID())
	return nil
}

func (m *mockIndexer) DeleteRecord(_ domain.Kind, id int64) error {
	m.deindexed = append(m.deindexed, id)
	return nil
}

type mockUsers struct{}

func (mockUsers) EnsureUser(_ context.Context, _ int64, _ string) (int64, error) {
	return 0, nil
}

// --- Helpers ---

func app() domain.Application {
	return domain.NewApplication(7, "app-uuid", "test")
}

func newService(t *testing.T, kind domain.Kind, repo *mockRepo, idx *mockIndexer) *Service {
	t.Helper()
	svc, err := New(kind, repo, idx, mockUsers{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc
}

// --- Tests ---

func TestNewRejectsNonAttachmentKind(t *testing.T) {
	if _, err := New(domain.KindResource, newMockRepo(), &mockIndexer{}, mockUsers{}); err == nil {
		t.Fatal("expected error for resource kind")
	}
}

func TestCreateAttachesToParentAndIndexes(t *testing.T) {
	repo := newMockRepo()
	idx := &mockIndexer{}
	svc := newService(t, domain.KindMetadata, repo, idx)

	rec, err := svc.Create(context.Background(), app(), "res-1", &Params{
		Value: json.RawMessage(`{"topic":"storage"}`),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.ResourceID() != 3 {
		t.Errorf("ResourceID = %d, want parent id 3", rec.ResourceID())
	}
	if rec.UUID() == "" {
		t.Error("expected a generated uuid")
	}
	if len(idx.indexed) != 1 {
		t.Errorf("indexed = %v, want one doc", idx.indexed)
	}
}

func TestCreateMissingParent(t *testing.T) {
	repo := newMockRepo()
	repo.parentErr = domain.ErrResourceNotFound
	svc := newService(t, domain.KindStats, repo, &mockIndexer{})

	_, err := svc.Create(context.Background(), app(), "missing", &Params{
		Value: json.RawMessage(`{}`),
	})
	if !errors.Is(err, domain.ErrResourceNotFound) {
		t.Errorf("err = %v, want ErrResourceNotFound", err)
	}
}

func TestCreateRejectsInvalidJSON(t *testing.T) {
	svc := newService(t, domain.KindMetadata, newMockRepo(), &mockIndexer{})
	_, err := svc.Create(context.Background(), app(), "res-1", &Params{
		Value: json.RawMessage(`{broken`),
	})
	if !errors.Is(err, domain.ErrInvalidRecord) {
		t.Errorf("err = %v, want ErrInvalidRecord", err)
	}
}

func TestUpdateReindexes(t *testing.T) {
	repo := newMockRepo()
	idx := &mockIndexer{}
	svc := newService(t, domain.KindMetadata, repo, idx)
	ctx := context.Background()

	created, err := svc.Create(ctx, app(), "res-1", &Params{
		UUID:  "meta-1",
		Value: json.RawMessage(`{"v":1}`),
	})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := svc.Update(ctx, app(), "meta-1", &Params{Value: json.RawMessage(`{"v":2}`)})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.ID() != created.ID() {
		t.Errorf("updated id = %d, want %d", updated.ID(), created.ID())
	}
	if len(idx.indexed) != 2 {
		t.Errorf("indexed = %v, want create + update", idx.indexed)
	}
}

func TestDeleteDeindexes(t *testing.T) {
	repo := newMockRepo()
	idx := &mockIndexer{}
	svc := newService(t, domain.KindStats, repo, idx)
	ctx := context.Background()

	created, err := svc.Create(ctx, app(), "res-1", &Params{
		UUID:  "stat-1",
		Value: json.RawMessage(`{"views":1}`),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, app(), "stat-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != created.ID() {
		t.Errorf("deleted = %v", repo.deleted)
	}
	if len(idx.deindexed) != 1 || idx.deindexed[0] != created.ID() {
		t.Errorf("deindexed = %v", idx.deindexed)
	}
}

func TestListNarrowsToParent(t *testing.T) {
	repo := newMockRepo()
	repo.listTotal = 4
	svc := newService(t, domain.KindMetadata, repo, &mockIndexer{})

	res, err := svc.List(context.Background(), app(), "res-1", nil, 1, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if res.TotalCount() != 4 {
		t.Errorf("total = %d, want 4", res.TotalCount())
	}
	if repo.lastResID != 3 {
		t.Errorf("resource filter = %d, want 3", repo.lastResID)
	}
}

func TestListZeroPerPage(t *testing.T) {
	repo := newMockRepo()
	repo.listTotal = 4
	svc := newService(t, domain.KindMetadata, repo, &mockIndexer{})

	res, err := svc.List(context.Background(), app(), "", nil, 1, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if res.TotalCount() != 0 {
		t.Errorf("total = %d, want 0", res.TotalCount())
	}
	if repo.listQueried {
		t.Error("empty page size must not query")
	}
}

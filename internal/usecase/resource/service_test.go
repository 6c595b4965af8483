package resource

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/metarepo/internal/domain"
	"github.com/kailas-cloud/metarepo/internal/domain/record"
	"github.com/kailas-cloud/metarepo/internal/domain/search/order"
)

// --- Mocks ---

type mockRepo struct {
	byUUID      map[string]record.Record
	attachments map[domain.Kind][]record.Record
	nextID      int64
	created     []record.Record
	updated     []record.Record
	deleted     []int64
	listTotal   int
	lastLimit   int
	lastOffset  int
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		byUUID:      map[string]record.Record{},
		attachments: map[domain.Kind][]record.Record{},
		nextID:      1,
	}
}

func hydrate(rec *record.Record, id int64) record.Record {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	return record.Reconstruct(id, rec.Kind(), rec.UUID(), rec.ApplicationID(), 0, 0,
		rec.FormatID(), rec.Language(), rec.URI(), rec.ResourceType(), rec.Title(),
		rec.Content(), nil, "", "", now, now)
}

func (m *mockRepo) CreateResource(_ context.Context, rec *record.Record, _ int64) (record.Record, error) {
	if _, exists := m.byUUID[rec.UUID()]; exists {
		return record.Record{}, domain.ErrAlreadyExists
	}
	h := hydrate(rec, m.nextID)
	m.nextID++
	m.byUUID[h.UUID()] = h
	m.created = append(m.created, h)
	return h, nil
}

func (m *mockRepo) UpdateResource(_ context.Context, rec *record.Record) (record.Record, error) {
	h := hydrate(rec, rec.ID())
	m.byUUID[h.UUID()] = h
	m.updated = append(m.updated, h)
	return h, nil
}

func (m *mockRepo) GetResource(_ context.Context, _ int64, uuid string) (record.Record, error) {
	rec, ok := m.byUUID[uuid]
	if !ok {
		return record.Record{}, domain.ErrResourceNotFound
	}
	return rec, nil
}

func (m *mockRepo) ListResources(_ context.Context, _ int64, _ *order.Spec, limit, offset int) ([]record.Record, int, error) {
	m.lastLimit, m.lastOffset = limit, offset
	return nil, m.listTotal, nil
}

func (m *mockRepo) Delete(_ context.Context, _ domain.Kind, id int64) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockRepo) AttachmentsOfResource(_ context.Context, kind domain.Kind, _ int64) ([]record.Record, error) {
	return m.attachments[kind], nil
}

type mockIndexer struct {
	indexed   []int64
	batches   map[domain.Kind]int
	deindexed []int64
	indexErr  error
}

func newMockIndexer() *mockIndexer {
	return &mockIndexer{batches: map[domain.Kind]int{}}
}

func (m *mockIndexer) IndexRecord(rec *record.Record) error {
	if m.indexErr != nil {
		return m.indexErr
	}
	m.indexed = append(m.indexed, rec.ID())
	return nil
}

func (m *mockIndexer) IndexBatch(kind domain.Kind, recs []record.Record) error {
	m.batches[kind] += len(recs)
	return nil
}

func (m *mockIndexer) DeleteRecord(_ domain.Kind, id int64) error {
	m.deindexed = append(m.deindexed, id)
	return nil
}

type mockUsers struct {
	lastUUID string
}

func (m *mockUsers) EnsureUser(_ context.Context, _ int64, uuid string) (int64, error) {
	m.lastUUID = uuid
	if uuid == "" {
		return 0, nil
	}
	return 42, nil
}

// --- Helpers ---

func app() domain.Application {
	return domain.NewApplication(7, "app-uuid", "test")
}

func validParams() *Params {
	return &Params{
		URI:          "https://example.org/doc",
		ResourceType: "article",
		Title:        "A Title",
		Content:      "Body text.",
		Language:     "english",
	}
}

// --- Tests ---

func TestCreateGeneratesUUIDAndIndexes(t *testing.T) {
	repo := newMockRepo()
	idx := newMockIndexer()
	svc := New(repo, idx, &mockUsers{})

	rec, err := svc.Create(context.Background(), app(), validParams())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.UUID() == "" {
		t.Error("expected a generated uuid")
	}
	if rec.ID() == 0 {
		t.Error("expected a storage id")
	}
	if len(idx.indexed) != 1 || idx.indexed[0] != rec.ID() {
		t.Errorf("indexed = %v, want [%d]", idx.indexed, rec.ID())
	}
}

func TestCreateRejectsInvalidParams(t *testing.T) {
	svc := New(newMockRepo(), newMockIndexer(), &mockUsers{})
	p := validParams()
	p.Content = ""
	_, err := svc.Create(context.Background(), app(), p)
	if !errors.Is(err, domain.ErrInvalidRecord) {
		t.Errorf("err = %v, want ErrInvalidRecord", err)
	}
}

func TestCreateDuplicateUUID(t *testing.T) {
	repo := newMockRepo()
	svc := New(repo, newMockIndexer(), &mockUsers{})
	ctx := context.Background()

	p := validParams()
	p.UUID = "fixed-uuid"
	if _, err := svc.Create(ctx, app(), p); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	_, err := svc.Create(ctx, app(), p)
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestCreateIndexFailurePropagates(t *testing.T) {
	idx := newMockIndexer()
	idx.indexErr = errors.New("index io")
	svc := New(newMockRepo(), idx, &mockUsers{})
	if _, err := svc.Create(context.Background(), app(), validParams()); err == nil {
		t.Fatal("expected error")
	}
}

func TestUpdateReindexesAttachmentsOnTextChange(t *testing.T) {
	repo := newMockRepo()
	idx := newMockIndexer()
	svc := New(repo, idx, &mockUsers{})
	ctx := context.Background()

	p := validParams()
	p.UUID = "res-1"
	created, err := svc.Create(ctx, app(), p)
	if err != nil {
		t.Fatal(err)
	}
	repo.attachments[domain.KindMetadata] = []record.Record{hydrate(&created, 50)}
	repo.attachments[domain.KindStats] = []record.Record{hydrate(&created, 60)}

	up := validParams()
	up.Title = "A Different Title"
	if _, err := svc.Update(ctx, app(), "res-1", up); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if idx.batches[domain.KindMetadata] != 1 || idx.batches[domain.KindStats] != 1 {
		t.Errorf("batches = %v, want one refresh per attachment kind", idx.batches)
	}
}

func TestUpdateSkipsAttachmentRefreshWhenTextUnchanged(t *testing.T) {
	repo := newMockRepo()
	idx := newMockIndexer()
	svc := New(repo, idx, &mockUsers{})
	ctx := context.Background()

	p := validParams()
	p.UUID = "res-1"
	if _, err := svc.Create(ctx, app(), p); err != nil {
		t.Fatal(err)
	}

	up := validParams()
	up.URI = "https://example.org/moved"
	if _, err := svc.Update(ctx, app(), "res-1", up); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(idx.batches) != 0 {
		t.Errorf("batches = %v, want none", idx.batches)
	}
}

func TestDeleteRemovesAttachmentIndexDocs(t *testing.T) {
	repo := newMockRepo()
	idx := newMockIndexer()
	svc := New(repo, idx, &mockUsers{})
	ctx := context.Background()

	p := validParams()
	p.UUID = "res-1"
	created, err := svc.Create(ctx, app(), p)
	if err != nil {
		t.Fatal(err)
	}
	repo.attachments[domain.KindMetadata] = []record.Record{hydrate(&created, 50)}

	if err := svc.Delete(ctx, app(), "res-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != created.ID() {
		t.Errorf("deleted rows = %v", repo.deleted)
	}
	want := map[int64]bool{created.ID(): true, 50: true}
	for _, id := range idx.deindexed {
		delete(want, id)
	}
	if len(want) != 0 {
		t.Errorf("deindexed = %v, missing %v", idx.deindexed, want)
	}
}

func TestListPaginationSemantics(t *testing.T) {
	repo := newMockRepo()
	repo.listTotal = 9
	svc := New(repo, newMockIndexer(), &mockUsers{})
	ctx := context.Background()

	// Non-positive page size: empty set, zero total, no query.
	res, err := svc.List(ctx, app(), nil, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalCount() != 0 {
		t.Errorf("total = %d, want 0", res.TotalCount())
	}

	// Non-positive page: true total, no rows.
	res, err = svc.List(ctx, app(), nil, 0, 5)
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalCount() != 9 || repo.lastLimit != 0 {
		t.Errorf("total = %d, limit = %d; want 9 and 0", res.TotalCount(), repo.lastLimit)
	}

	// Regular page maps to limit/offset.
	if _, err = svc.List(ctx, app(), nil, 3, 5); err != nil {
		t.Fatal(err)
	}
	if repo.lastLimit != 5 || repo.lastOffset != 10 {
		t.Errorf("limit/offset = %d/%d, want 5/10", repo.lastLimit, repo.lastOffset)
	}
}

func TestGetMissing(t *testing.T) {
	svc := New(newMockRepo(), newMockIndexer(), &mockUsers{})
	_, err := svc.Get(context.Background(), app(), "nope")
	if !errors.Is(err, domain.ErrResourceNotFound) {
		t.Errorf("err = %v, want ErrResourceNotFound", err)
	}
}

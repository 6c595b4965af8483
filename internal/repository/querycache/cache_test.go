package querycache

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/metarepo/internal/db"
	"github.com/kailas-cloud/metarepo/internal/domain"
	"github.com/kailas-cloud/metarepo/internal/domain/search/dictionary"
	"github.com/kailas-cloud/metarepo/internal/domain/search/query"
)

type fakeStore struct {
	data    map[string][]byte
	ttls    map[string]time.Duration
	failGet bool
	failSet bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (f *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	if f.failGet {
		return nil, errors.New("boom")
	}
	v, ok := f.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (f *fakeStore) Set(_ context.Context, key string, value []byte) error {
	if f.failSet {
		return errors.New("boom")
	}
	f.data[key] = value
	return nil
}

func (f *fakeStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if f.failSet {
		return errors.New("boom")
	}
	f.data[key] = value
	f.ttls[key] = ttl
	return nil
}

func newCache(s store) *Cache {
	return New(s, "metarepo:", nil, zap.NewNop())
}

func TestExpressionRoundTrip(t *testing.T) {
	s := newFakeStore()
	c := newCache(s)
	ctx := context.Background()

	if _, ok := c.GetExpression(ctx, dictionary.English, "running fox", false); ok {
		t.Fatal("unexpected hit on empty cache")
	}

	expr := query.New(dictionary.English, []string{"run", "fox"}, false)
	c.PutExpression(ctx, "running fox", &expr)

	got, ok := c.GetExpression(ctx, dictionary.English, "running fox", false)
	if !ok {
		t.Fatal("expected hit after put")
	}
	if got.String() != "run & fox" {
		t.Errorf("cached expression = %q", got.String())
	}
}

func TestExpressionKeyDiscriminates(t *testing.T) {
	s := newFakeStore()
	c := newCache(s)
	ctx := context.Background()

	expr := query.New(dictionary.English, []string{"run"}, false)
	c.PutExpression(ctx, "running", &expr)

	if _, ok := c.GetExpression(ctx, dictionary.Simple, "running", false); ok {
		t.Error("different dictionary must miss")
	}
	if _, ok := c.GetExpression(ctx, dictionary.English, "running", true); ok {
		t.Error("different prefix flag must miss")
	}
	if _, ok := c.GetExpression(ctx, dictionary.English, "walking", false); ok {
		t.Error("different raw text must miss")
	}
}

func TestResultIDsRoundTrip(t *testing.T) {
	s := newFakeStore()
	c := newCache(s)
	ctx := context.Background()

	if _, ok := c.FreshTimestamp(ctx, 7, domain.KindResource, "abc", "relevance"); ok {
		t.Fatal("unexpected freshness on empty cache")
	}

	window := 24 * time.Hour
	c.StoreIDs(ctx, 7, domain.KindResource, "abc", "relevance", 1700000000, []int64{5, 3, 9}, window)

	ts, ok := c.FreshTimestamp(ctx, 7, domain.KindResource, "abc", "relevance")
	if !ok || ts != 1700000000 {
		t.Fatalf("FreshTimestamp = %d, %v", ts, ok)
	}
	ids, ok := c.IDs(ctx, 7, domain.KindResource, "abc", "relevance", ts)
	if !ok {
		t.Fatal("expected ids hit")
	}
	if len(ids) != 3 || ids[0] != 5 || ids[1] != 3 || ids[2] != 9 {
		t.Errorf("ids = %v, want [5 3 9]", ids)
	}

	if got := s.ttls[c.freshnessKey(7, domain.KindResource, "abc", "relevance")]; got != window {
		t.Errorf("freshness ttl = %v, want %v", got, window)
	}
	if got := s.ttls[c.idsKey(7, domain.KindResource, "abc", "relevance", ts)]; got != window+time.Minute {
		t.Errorf("ids ttl = %v, want %v", got, window+time.Minute)
	}
}

func TestResultKeyDiscriminates(t *testing.T) {
	s := newFakeStore()
	c := newCache(s)
	ctx := context.Background()

	c.StoreIDs(ctx, 7, domain.KindResource, "abc", "relevance", 100, []int64{1}, time.Hour)

	type key struct {
		appID    int64
		kind     domain.Kind
		exprHash string
		orderKey string
	}
	for _, other := range []key{
		{8, domain.KindResource, "abc", "relevance"},
		{7, domain.KindMetadata, "abc", "relevance"},
		{7, domain.KindResource, "def", "relevance"},
		{7, domain.KindResource, "abc", "title:asc"},
	} {
		if _, ok := c.FreshTimestamp(ctx, other.appID, other.kind, other.exprHash, other.orderKey); ok {
			t.Errorf("key %+v must not see another key's freshness", other)
		}
	}
}

func TestStoreFailuresDegradeToMisses(t *testing.T) {
	s := newFakeStore()
	s.failGet = true
	s.failSet = true
	c := newCache(s)
	ctx := context.Background()

	if _, ok := c.GetExpression(ctx, dictionary.English, "x", false); ok {
		t.Error("failing Get must read as miss")
	}
	if _, ok := c.FreshTimestamp(ctx, 1, domain.KindStats, "h", "relevance"); ok {
		t.Error("failing Get must read as no freshness")
	}
	// Writes must not panic or propagate errors.
	expr := query.New(dictionary.English, []string{"x"}, false)
	c.PutExpression(ctx, "x", &expr)
	c.StoreIDs(ctx, 1, domain.KindStats, "h", "relevance", 1, []int64{1}, time.Hour)
}

func TestEmptyIDListRoundTrip(t *testing.T) {
	s := newFakeStore()
	c := newCache(s)
	ctx := context.Background()

	c.StoreIDs(ctx, 7, domain.KindResource, "none", "relevance", 50, nil, time.Hour)

	ts, ok := c.FreshTimestamp(ctx, 7, domain.KindResource, "none", "relevance")
	if !ok {
		t.Fatal("empty result sets must still cache")
	}
	ids, ok := c.IDs(ctx, 7, domain.KindResource, "none", "relevance", ts)
	if !ok {
		t.Fatal("expected ids hit")
	}
	if len(ids) != 0 {
		t.Errorf("ids = %v, want empty", ids)
	}
}

func TestMalformedIDListReadsAsMiss(t *testing.T) {
	s := newFakeStore()
	c := newCache(s)
	ctx := context.Background()

	s.data[c.idsKey(7, domain.KindResource, "abc", "relevance", 9)] = []byte("garbage")
	if _, ok := c.IDs(ctx, 7, domain.KindResource, "abc", "relevance", 9); ok {
		t.Error("malformed payload must read as miss")
	}
}

package chunks

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/calmbox/calmbox/internal/db"
	"github.com/calmbox/calmbox/internal/domain"
)

type mockStore struct {
	searchResult *db.SearchResult
	rows         []map[string]string
	err          error
	gotQuery     *db.KNNQuery
	gotKeys      []string
}

func (m *mockStore) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	m.gotQuery = q
	if m.err != nil {
		return nil, m.err
	}
	return m.searchResult, nil
}

func (m *mockStore) HGetAllMulti(_ context.Context, keys []string) ([]map[string]string, error) {
	m.gotKeys = keys
	if m.err != nil {
		return nil, m.err
	}
	return m.rows, nil
}

func TestSearchKNN_BuildsQuery(t *testing.T) {
	store := &mockStore{searchResult: &db.SearchResult{}}
	repo := New(store, "calmbox:")

	vec := []float32{0.1, 0.2}
	_, err := repo.SearchKNN(context.Background(), vec, 48, domain.ChunkFilter{
		Dimension:     "D1",
		Tags:          []string{"scn_aftershock", "psy_panic"},
		StatusExclude: domain.StatusDisabled,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	q := store.gotQuery
	if q.IndexName != "calmbox:chunks:idx" {
		t.Errorf("index = %q", q.IndexName)
	}
	if q.K != 48 {
		t.Errorf("k = %d", q.K)
	}
	if !reflect.DeepEqual(q.Vector, vec) {
		t.Errorf("vector = %v", q.Vector)
	}

	wantMust := []db.TagMatch{
		{Field: "dimension", Values: []string{"D1"}},
		{Field: "tags", Values: []string{"scn_aftershock", "psy_panic"}},
	}
	if !reflect.DeepEqual(q.Predicate.Must, wantMust) {
		t.Errorf("must = %+v, want %+v", q.Predicate.Must, wantMust)
	}
	wantNot := []db.TagMatch{{Field: "status", Values: []string{domain.StatusDisabled}}}
	if !reflect.DeepEqual(q.Predicate.MustNot, wantNot) {
		t.Errorf("must_not = %+v, want %+v", q.Predicate.MustNot, wantNot)
	}
}

func TestSearchKNN_EmptyFilterEmptyPredicate(t *testing.T) {
	store := &mockStore{searchResult: &db.SearchResult{}}
	repo := New(store, "calmbox:")

	if _, err := repo.SearchKNN(context.Background(), []float32{0.1}, 5, domain.ChunkFilter{}); err != nil {
		t.Fatalf("search: %v", err)
	}

	if !store.gotQuery.Predicate.IsEmpty() {
		t.Errorf("predicate = %+v, want empty", store.gotQuery.Predicate)
	}
}

func TestSearchKNN_ParsesEntries(t *testing.T) {
	store := &mockStore{searchResult: &db.SearchResult{
		Total: 1,
		Entries: []db.SearchEntry{{
			Key:      "calmbox:chunks:c_001",
			Distance: 0.42,
			Fields: map[string]string{
				"display_id":    "k_001",
				"group_id":      "g_aftershock",
				"text":          "余震通常比主震弱。",
				"dimension":     "D1",
				"status":        domain.StatusEnabled,
				"quality_score": "4.5",
				"tags":          "scn_aftershock|psy_panic",
			},
		}},
	}}
	repo := New(store, "calmbox:")

	got, err := repo.SearchKNN(context.Background(), []float32{0.1}, 5, domain.ChunkFilter{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("results = %d, want 1", len(got))
	}

	r := got[0]
	if r.ChunkID != "c_001" {
		t.Errorf("chunk id = %q, want key prefix stripped", r.ChunkID)
	}
	if r.Distance != 0.42 {
		t.Errorf("distance = %v", r.Distance)
	}
	if r.QualityScore != 4.5 {
		t.Errorf("quality = %v", r.QualityScore)
	}
	if !reflect.DeepEqual(r.Tags, []string{"scn_aftershock", "psy_panic"}) {
		t.Errorf("tags = %v", r.Tags)
	}
}

func TestSearchKNN_NilResult(t *testing.T) {
	repo := New(&mockStore{}, "calmbox:")

	got, err := repo.SearchKNN(context.Background(), []float32{0.1}, 5, domain.ChunkFilter{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if got != nil {
		t.Errorf("results = %v, want nil on empty index", got)
	}
}

func TestSearchKNN_StoreError(t *testing.T) {
	wantErr := errors.New("index missing")
	repo := New(&mockStore{err: wantErr}, "calmbox:")

	if _, err := repo.SearchKNN(context.Background(), []float32{0.1}, 5, domain.ChunkFilter{}); !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want wrapped store error", err)
	}
}

func TestFetchByIDs(t *testing.T) {
	store := &mockStore{rows: []map[string]string{
		{"text": "留在掩护物旁。", "status": domain.StatusEnabled, "quality_score": "3"},
		{}, // pruned chunk
	}}
	repo := New(store, "calmbox:")

	got, err := repo.FetchByIDs(context.Background(), []string{"c_001", "c_gone"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if !reflect.DeepEqual(store.gotKeys, []string{"calmbox:chunks:c_001", "calmbox:chunks:c_gone"}) {
		t.Errorf("keys = %v", store.gotKeys)
	}
	if len(got) != 1 || got[0].ChunkID != "c_001" {
		t.Errorf("chunks = %+v, want missing id skipped", got)
	}
	if got[0].QualityScore != 3 {
		t.Errorf("quality = %v", got[0].QualityScore)
	}
}

func TestFetchByIDs_Empty(t *testing.T) {
	store := &mockStore{}
	repo := New(store, "calmbox:")

	got, err := repo.FetchByIDs(context.Background(), nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got != nil || store.gotKeys != nil {
		t.Errorf("expected no store call for empty ids")
	}
}

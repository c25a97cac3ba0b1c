package vectorstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

func newTestChromemStore(t *testing.T) *ChromemStore {
	t.Helper()
	store, err := NewChromemStore("", false, nil)
	if err != nil {
		t.Fatalf("NewChromemStore() error = %v", err)
	}
	return store
}

func testPoints(documentID string, n int) []Point {
	points := make([]Point, n)
	for i := range points {
		vec := []float32{0, 0, 0}
		vec[i%3] = 1
		points[i] = Point{
			ID:   fmt.Sprintf("%s-%d", documentID, i),
			Vec:  vec,
			Text: fmt.Sprintf("chunk %d of %s", i, documentID),
			Meta: map[string]string{MetaDocumentID: documentID, "chunk_index": fmt.Sprint(i)},
		}
	}
	return points
}

func TestChromemStore_UpsertCountDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestChromemStore(t)

	if err := store.EnsureCollection(ctx, "docs"); err != nil {
		t.Fatalf("EnsureCollection() error = %v", err)
	}

	if err := store.Upsert(ctx, "docs", testPoints("a.md", 3)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := store.Upsert(ctx, "docs", testPoints("b.md", 2)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	count, err := store.Count(ctx, "docs")
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 5 {
		t.Errorf("Count() = %d, want 5", count)
	}

	// Re-upserting the same ids replaces instead of duplicating
	if err := store.Upsert(ctx, "docs", testPoints("a.md", 3)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if count, _ := store.Count(ctx, "docs"); count != 5 {
		t.Errorf("Count() after re-upsert = %d, want 5", count)
	}

	if err := store.DeleteByDocument(ctx, "docs", "a.md"); err != nil {
		t.Fatalf("DeleteByDocument() error = %v", err)
	}
	if count, _ := store.Count(ctx, "docs"); count != 2 {
		t.Errorf("Count() after delete = %d, want 2", count)
	}
}

func TestChromemStore_MissingCollection(t *testing.T) {
	ctx := context.Background()
	store := newTestChromemStore(t)

	count, err := store.Count(ctx, "missing")
	if err != nil || count != 0 {
		t.Errorf("Count() = %d, %v, want 0, nil", count, err)
	}
	if err := store.DeleteByDocument(ctx, "missing", "a.md"); err != nil {
		t.Errorf("DeleteByDocument() error = %v", err)
	}
	results, err := store.Search(ctx, "missing", []float32{1, 0, 0}, 3, nil)
	if err != nil || len(results) != 0 {
		t.Errorf("Search() = %v, %v, want empty", results, err)
	}
}

func TestChromemStore_Search(t *testing.T) {
	ctx := context.Background()
	store := newTestChromemStore(t)

	if err := store.Upsert(ctx, "docs", testPoints("a.md", 3)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := store.Upsert(ctx, "docs", testPoints("b.md", 3)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	tests := []struct {
		name    string
		k       int
		filters map[string]string
		want    int
		wantErr bool
	}{
		{name: "top 2", k: 2, want: 2},
		{name: "k larger than collection", k: 50, want: 6},
		{name: "filtered by document", k: 10, filters: map[string]string{MetaDocumentID: "b.md"}, want: 3},
		{name: "zero k", k: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := store.Search(ctx, "docs", []float32{1, 0, 0}, tt.k, tt.filters)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Search() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(results) != tt.want {
				t.Fatalf("Search() returned %d results, want %d", len(results), tt.want)
			}
			if results[0].Meta["chunk_index"] != "0" {
				t.Errorf("best match chunk_index = %s, want 0", results[0].Meta["chunk_index"])
			}
			if results[0].Text == "" {
				t.Error("Search() result text is empty")
			}
			for _, r := range results {
				if tt.filters != nil && r.Meta[MetaDocumentID] != "b.md" {
					t.Errorf("filtered result from %s", r.Meta[MetaDocumentID])
				}
			}
		})
	}
}

func TestChromemStore_ConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	store := newTestChromemStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doc := fmt.Sprintf("doc-%d.md", i)
			if err := store.DeleteByDocument(ctx, "docs", doc); err != nil {
				t.Errorf("DeleteByDocument() error = %v", err)
			}
			if err := store.Upsert(ctx, "docs", testPoints(doc, 4)); err != nil {
				t.Errorf("Upsert() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if count, _ := store.Count(ctx, "docs"); count != 64 {
		t.Errorf("Count() = %d, want 64", count)
	}
}

func TestChromemStore_Persistent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewChromemStore(dir, false, nil)
	if err != nil {
		t.Fatalf("NewChromemStore() error = %v", err)
	}
	if err := store.Upsert(ctx, "docs", testPoints("a.md", 2)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	reopened, err := NewChromemStore(dir, false, nil)
	if err != nil {
		t.Fatalf("NewChromemStore() reopen error = %v", err)
	}
	if count, _ := reopened.Count(ctx, "docs"); count != 2 {
		t.Errorf("Count() after reopen = %d, want 2", count)
	}
}

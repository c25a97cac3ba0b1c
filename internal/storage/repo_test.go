package storage

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"testing"
)

func TestCollectionRepo_GetOrCreateByName(t *testing.T) {
	ctx := context.Background()
	repo := NewCollectionRepo(newTestDB(t))

	first, err := repo.GetOrCreateByName(ctx, "docs")
	if err != nil {
		t.Fatalf("GetOrCreateByName() error = %v", err)
	}
	if first.ID == 0 || first.Name != "docs" {
		t.Errorf("GetOrCreateByName() = %+v", first)
	}
	if first.CreatedAt.IsZero() {
		t.Error("GetOrCreateByName() CreatedAt is zero")
	}

	second, err := repo.GetOrCreateByName(ctx, "docs")
	if err != nil {
		t.Fatalf("GetOrCreateByName() second call error = %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("GetOrCreateByName() ID = %d, want %d", second.ID, first.ID)
	}

	if _, err := repo.GetOrCreateByName(ctx, ""); err == nil {
		t.Error("GetOrCreateByName(\"\") expected error")
	}
}

func TestCollectionRepo_GetOrCreateByName_Concurrent(t *testing.T) {
	ctx := context.Background()
	repo := NewCollectionRepo(newTestDB(t))

	ids := make([]int, 16)
	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			coll, err := repo.GetOrCreateByName(ctx, "shared")
			if err != nil {
				t.Errorf("GetOrCreateByName() error = %v", err)
				return
			}
			ids[i] = coll.ID
		}()
	}
	wg.Wait()

	for i, id := range ids {
		if id != ids[0] {
			t.Errorf("caller %d got ID %d, want %d", i, id, ids[0])
		}
	}
}

func TestCollectionRepo_GetByNameAndListAll(t *testing.T) {
	ctx := context.Background()
	repo := NewCollectionRepo(newTestDB(t))

	if _, err := repo.GetByName(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByName() error = %v, want ErrNotFound", err)
	}

	for _, name := range []string{"zeta", "alpha"} {
		if _, err := repo.GetOrCreateByName(ctx, name); err != nil {
			t.Fatalf("GetOrCreateByName() error = %v", err)
		}
	}

	all, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(all) != 2 || all[0].Name != "alpha" || all[1].Name != "zeta" {
		t.Errorf("ListAll() = %+v, want alpha, zeta", all)
	}
}

func TestDocumentRepo_Upsert(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	coll, err := NewCollectionRepo(db).GetOrCreateByName(ctx, "docs")
	if err != nil {
		t.Fatalf("GetOrCreateByName() error = %v", err)
	}
	repo := NewDocumentRepo(db)

	if _, err := repo.GetByPath(ctx, coll.ID, "/notes/a.md"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetByPath() error = %v, want ErrNotFound", err)
	}

	doc := &DocumentRecord{CollectionID: coll.ID, Path: "/notes/a.md", Title: "A", Hash: "h1", Size: 10, ChunkCount: 2}
	if err := repo.Upsert(ctx, doc); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if doc.ID == "" {
		t.Fatal("Upsert() did not assign an ID")
	}

	got, err := repo.GetByPath(ctx, coll.ID, "/notes/a.md")
	if err != nil {
		t.Fatalf("GetByPath() error = %v", err)
	}
	if got.Hash != "h1" || got.Title != "A" || got.ChunkCount != 2 || got.Size != 10 {
		t.Errorf("GetByPath() = %+v", got)
	}

	// Update keeps the original ID even if the caller supplies another
	update := &DocumentRecord{ID: "other", CollectionID: coll.ID, Path: "/notes/a.md", Title: "A2", Hash: "h2", ChunkCount: 5}
	if err := repo.Upsert(ctx, update); err != nil {
		t.Fatalf("Upsert() update error = %v", err)
	}
	if update.ID != doc.ID {
		t.Errorf("Upsert() update ID = %s, want %s", update.ID, doc.ID)
	}

	got, err = repo.GetByPath(ctx, coll.ID, "/notes/a.md")
	if err != nil {
		t.Fatalf("GetByPath() error = %v", err)
	}
	if got.Hash != "h2" || got.Title != "A2" || got.ChunkCount != 5 {
		t.Errorf("GetByPath() after update = %+v", got)
	}

	count, err := repo.CountByCollection(ctx, coll.ID)
	if err != nil {
		t.Fatalf("CountByCollection() error = %v", err)
	}
	if count != 1 {
		t.Errorf("CountByCollection() = %d, want 1", count)
	}
}

func TestChunkRepo_ReplaceForDocument(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	coll, err := NewCollectionRepo(db).GetOrCreateByName(ctx, "docs")
	if err != nil {
		t.Fatalf("GetOrCreateByName() error = %v", err)
	}
	docs := NewDocumentRepo(db)
	repo := NewChunkRepo(db)

	doc := &DocumentRecord{ID: "doc-1", CollectionID: coll.ID, Path: "/a.md", Hash: "h"}
	if err := docs.Upsert(ctx, doc); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	empty := &DocumentRecord{ID: "doc-2", CollectionID: coll.ID, Path: "/b.md", Hash: "h"}
	if err := docs.Upsert(ctx, empty); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	makeChunks := func(prefix string, n int) []*ChunkRecord {
		chunks := make([]*ChunkRecord, n)
		for i := range chunks {
			chunks[i] = &ChunkRecord{
				ID:          fmt.Sprintf("%s-%d", prefix, i),
				DocumentID:  doc.ID,
				ChunkIndex:  i,
				StartPos:    i * 8,
				EndPos:      i*8 + 10,
				HeadingPath: "# A",
				Text:        "0123456789",
			}
		}
		return chunks
	}

	if err := repo.ReplaceForDocument(ctx, doc.ID, makeChunks("v1", 3)); err != nil {
		t.Fatalf("ReplaceForDocument() error = %v", err)
	}
	if err := repo.ReplaceForDocument(ctx, doc.ID, makeChunks("v2", 2)); err != nil {
		t.Fatalf("ReplaceForDocument() second call error = %v", err)
	}

	ids, err := repo.ListIDsByDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("ListIDsByDocument() error = %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"v2-0", "v2-1"}) {
		t.Errorf("ListIDsByDocument() = %v, want [v2-0 v2-1]", ids)
	}

	chunk, err := repo.GetByID(ctx, "v2-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if chunk.StartPos != 8 || chunk.EndPos != 18 || chunk.HeadingPath != "# A" {
		t.Errorf("GetByID() = %+v", chunk)
	}
	if _, err := repo.GetByID(ctx, "v1-0"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() replaced chunk error = %v, want ErrNotFound", err)
	}

	lengths, err := repo.ListLengthsByCollection(ctx, coll.ID)
	if err != nil {
		t.Fatalf("ListLengthsByCollection() error = %v", err)
	}
	sort.Ints(lengths)
	if !reflect.DeepEqual(lengths, []int{10, 10}) {
		t.Errorf("ListLengthsByCollection() = %v, want [10 10]", lengths)
	}

	withoutChunks, err := docs.CountWithoutChunks(ctx, coll.ID)
	if err != nil {
		t.Fatalf("CountWithoutChunks() error = %v", err)
	}
	if withoutChunks != 1 {
		t.Errorf("CountWithoutChunks() = %d, want 1", withoutChunks)
	}
}

func TestChunkRepo_ReplaceForDocument_RollsBack(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	coll, err := NewCollectionRepo(db).GetOrCreateByName(ctx, "docs")
	if err != nil {
		t.Fatalf("GetOrCreateByName() error = %v", err)
	}
	if err := NewDocumentRepo(db).Upsert(ctx, &DocumentRecord{ID: "doc-1", CollectionID: coll.ID, Path: "/a.md", Hash: "h"}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	repo := NewChunkRepo(db)

	good := []*ChunkRecord{{ID: "c0", DocumentID: "doc-1", ChunkIndex: 0, EndPos: 5, Text: "hello"}}
	if err := repo.ReplaceForDocument(ctx, "doc-1", good); err != nil {
		t.Fatalf("ReplaceForDocument() error = %v", err)
	}

	// The second chunk reuses an ID, so the whole replacement must be rolled back
	bad := []*ChunkRecord{
		{ID: "n0", DocumentID: "doc-1", ChunkIndex: 0, EndPos: 5, Text: "world"},
		{ID: "n0", DocumentID: "doc-1", ChunkIndex: 1, StartPos: 3, EndPos: 8, Text: "ld!!!"},
	}
	if err := repo.ReplaceForDocument(ctx, "doc-1", bad); err == nil {
		t.Fatal("ReplaceForDocument() expected error for duplicate IDs")
	}

	ids, err := repo.ListIDsByDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("ListIDsByDocument() error = %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"c0"}) {
		t.Errorf("ListIDsByDocument() after failed replace = %v, want [c0]", ids)
	}
}

func TestChunkRepo_ForeignKeyAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewChunkRepo(newTestDB(t))

	orphan := []*ChunkRecord{{ID: "x", DocumentID: "missing", EndPos: 1, Text: "x"}}
	if err := repo.ReplaceForDocument(ctx, "missing", orphan); err == nil {
		t.Error("ReplaceForDocument() expected foreign key error")
	}

	mismatched := []*ChunkRecord{{ID: "y", DocumentID: "other", EndPos: 1, Text: "y"}}
	if err := repo.ReplaceForDocument(ctx, "missing", mismatched); err == nil {
		t.Error("ReplaceForDocument() expected error for chunk of another document")
	}

	if err := repo.DeleteByDocument(ctx, "missing"); err != nil {
		t.Errorf("DeleteByDocument() error = %v", err)
	}
	ids, err := repo.ListIDsByDocument(ctx, "missing")
	if err != nil || len(ids) != 0 {
		t.Errorf("ListIDsByDocument() = %v, %v, want empty", ids, err)
	}
}

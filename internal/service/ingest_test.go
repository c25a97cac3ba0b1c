package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/mock/gomock"

	"shard-markdown/internal/batch"
	"shard-markdown/internal/ingest"
	"shard-markdown/internal/service"
	"shard-markdown/internal/service/mocks"
	"shard-markdown/internal/storage"
	"shard-markdown/internal/vectorstore"
)

func init() {
	// Set default logger to discard output for cleaner test output
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testContext() context.Context {
	return context.Background()
}

// writeNotes creates a small markdown tree and returns its root.
func writeNotes(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"a.md":           "# A",
		"b.markdown":     "# B",
		"sub/c.md":       "# C",
		"readme.txt":     "not markdown",
		".git/config.md": "hidden",
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	return root
}

func TestNewIngestService(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := service.NewIngestService(mocks.NewMockBatchProcessor(ctrl), mocks.NewMockIndex(ctrl), "documents", nil)
	if svc == nil {
		t.Fatal("NewIngestService() returned nil")
	}
}

func TestIngestService_Process(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	root := writeNotes(t)
	empty := t.TempDir()
	mockProcessor := mocks.NewMockBatchProcessor(ctrl)
	svc := service.NewIngestService(mockProcessor, mocks.NewMockIndex(ctrl), "documents", nil)

	tests := []struct {
		name         string
		req          service.ProcessRequest
		mockSetup    func()
		wantErr      bool
		checkErrType func(error) bool
		wantTotal    int
	}{
		{
			name: "recursive scan with default collection",
			req:  service.ProcessRequest{Paths: []string{root}, Recursive: true},
			mockSetup: func() {
				want := []string{
					filepath.Join(root, "a.md"),
					filepath.Join(root, "b.markdown"),
					filepath.Join(root, "sub", "c.md"),
				}
				mockProcessor.EXPECT().
					Process(gomock.Any(), "documents", want).
					Return(&batch.Result{Collection: "documents", Total: 3, Successful: 3, Failed: []batch.Failure{}}, nil)
			},
			wantTotal: 3,
		},
		{
			name: "top level only with explicit collection",
			req:  service.ProcessRequest{Paths: []string{root}, Collection: "notes"},
			mockSetup: func() {
				mockProcessor.EXPECT().
					Process(gomock.Any(), "notes", gomock.Len(2)).
					Return(&batch.Result{Collection: "notes", Total: 2, Successful: 2, Failed: []batch.Failure{}}, nil)
			},
			wantTotal: 2,
		},
		{
			name:      "no paths",
			req:       service.ProcessRequest{},
			mockSetup: func() {},
			wantErr:   true,
			checkErrType: func(err error) bool {
				var validationErr *service.ValidationError
				return errors.As(err, &validationErr) && validationErr.Field == "paths"
			},
		},
		{
			name:      "blank path",
			req:       service.ProcessRequest{Paths: []string{" "}},
			mockSetup: func() {},
			wantErr:   true,
			checkErrType: func(err error) bool {
				var validationErr *service.ValidationError
				return errors.As(err, &validationErr)
			},
		},
		{
			name:      "missing path",
			req:       service.ProcessRequest{Paths: []string{filepath.Join(root, "missing")}},
			mockSetup: func() {},
			wantErr:   true,
			checkErrType: func(err error) bool {
				return errors.Is(err, service.ErrInvalidInput) && errors.Is(err, os.ErrNotExist)
			},
		},
		{
			name:      "no markdown files",
			req:       service.ProcessRequest{Paths: []string{empty}, Recursive: true},
			mockSetup: func() {},
			wantErr:   true,
			checkErrType: func(err error) bool {
				return errors.Is(err, service.ErrInvalidInput) && errors.Is(err, batch.ErrNoDocuments)
			},
		},
		{
			name: "invalid configuration",
			req:  service.ProcessRequest{Paths: []string{filepath.Join(root, "a.md")}},
			mockSetup: func() {
				mockProcessor.EXPECT().
					Process(gomock.Any(), "documents", gomock.Any()).
					Return(nil, batch.ErrInvalidConfiguration)
			},
			wantErr: true,
			checkErrType: func(err error) bool {
				return errors.Is(err, service.ErrInvalidInput)
			},
		},
		{
			name: "accounting error keeps result",
			req:  service.ProcessRequest{Paths: []string{filepath.Join(root, "a.md")}},
			mockSetup: func() {
				mockProcessor.EXPECT().
					Process(gomock.Any(), "documents", gomock.Any()).
					Return(&batch.Result{Total: 1}, batch.ErrAccounting)
			},
			wantErr:   true,
			wantTotal: 1,
			checkErrType: func(err error) bool {
				return errors.Is(err, batch.ErrAccounting) && errors.Is(err, service.ErrInternal) && !errors.Is(err, service.ErrInvalidInput)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()

			res, err := svc.Process(testContext(), tt.req)
			if (err != nil) != tt.wantErr {
				t.Errorf("Process() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.checkErrType != nil && !tt.checkErrType(err) {
				t.Errorf("Process() error type check failed: %v", err)
			}
			if tt.wantTotal > 0 && (res == nil || res.Total != tt.wantTotal) {
				t.Errorf("Process() result = %+v, want total %d", res, tt.wantTotal)
			}
		})
	}
}

func TestIngestService_Stats(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockIndex := mocks.NewMockIndex(ctrl)
	svc := service.NewIngestService(mocks.NewMockBatchProcessor(ctrl), mockIndex, "documents", nil)

	tests := []struct {
		name         string
		collection   string
		mockSetup    func()
		wantErr      bool
		wantNotFound bool
		wantInternal bool
		wantDocs     int
	}{
		{
			name:       "found",
			collection: "notes",
			mockSetup: func() {
				mockIndex.EXPECT().Stats(gomock.Any(), "notes").Return(&ingest.CollectionStats{Collection: "notes", Documents: 4}, nil)
			},
			wantDocs: 4,
		},
		{
			name:       "unknown collection",
			collection: "missing",
			mockSetup: func() {
				mockIndex.EXPECT().Stats(gomock.Any(), "missing").Return(nil, storage.ErrNotFound)
			},
			wantErr:      true,
			wantNotFound: true,
		},
		{
			name:       "storage failure",
			collection: "notes",
			mockSetup: func() {
				mockIndex.EXPECT().Stats(gomock.Any(), "notes").Return(nil, errors.New("disk I/O error"))
			},
			wantErr:      true,
			wantInternal: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()

			stats, err := svc.Stats(testContext(), tt.collection)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Stats() expected error")
				}
				if got := errors.Is(err, service.ErrNotFound); got != tt.wantNotFound {
					t.Errorf("Stats() error = %v, ErrNotFound = %v, want %v", err, got, tt.wantNotFound)
				}
				if got := errors.Is(err, service.ErrInternal); got != tt.wantInternal {
					t.Errorf("Stats() error = %v, ErrInternal = %v, want %v", err, got, tt.wantInternal)
				}
				return
			}
			if err != nil {
				t.Fatalf("Stats() unexpected error: %v", err)
			}
			if stats.Documents != tt.wantDocs {
				t.Errorf("Stats() Documents = %d, want %d", stats.Documents, tt.wantDocs)
			}
		})
	}

	var validationErr *service.ValidationError
	if _, err := svc.Stats(testContext(), ""); !errors.As(err, &validationErr) {
		t.Errorf("Stats() error = %v, want ValidationError", err)
	}
}

func TestIngestService_Query(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockIndex := mocks.NewMockIndex(ctrl)
	svc := service.NewIngestService(mocks.NewMockBatchProcessor(ctrl), mockIndex, "documents", nil)

	mockIndex.EXPECT().
		Query(gomock.Any(), "documents", "install", 3, map[string]string(nil)).
		Return([]vectorstore.SearchResult{{PointID: "p1", Score: 0.9}}, nil)

	results, err := svc.Query(testContext(), service.QueryRequest{Text: "install", K: 3})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(results) != 1 || results[0].PointID != "p1" {
		t.Errorf("Query() = %+v", results)
	}

	mockIndex.EXPECT().
		Query(gomock.Any(), "notes", "install", 1, gomock.Any()).
		Return(nil, errors.New("connection refused"))
	if _, err := svc.Query(testContext(), service.QueryRequest{Collection: "notes", Text: "install", K: 1}); !errors.Is(err, service.ErrExternalService) {
		t.Errorf("Query() error = %v, want ErrExternalService", err)
	}

	invalid := []service.QueryRequest{
		{Text: "", K: 3},
		{Text: "install", K: 0},
	}
	for _, req := range invalid {
		var validationErr *service.ValidationError
		if _, err := svc.Query(testContext(), req); !errors.As(err, &validationErr) {
			t.Errorf("Query(%+v) error = %v, want ValidationError", req, err)
		}
	}
}

func TestIngestService_Health(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	down := errors.New("down")
	svc := service.NewIngestService(mocks.NewMockBatchProcessor(ctrl), mocks.NewMockIndex(ctrl), "documents", map[string]service.HealthCheck{
		"database":     func(context.Context) error { return nil },
		"vector_store": func(context.Context) error { return down },
	})

	got := svc.Health(testContext())
	if len(got) != 2 {
		t.Fatalf("Health() returned %d checks, want 2", len(got))
	}
	if got["database"] != nil {
		t.Errorf("Health() database = %v, want nil", got["database"])
	}
	if !errors.Is(got["vector_store"], down) {
		t.Errorf("Health() vector_store = %v, want %v", got["vector_store"], down)
	}
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/mock/gomock"

	"shard-markdown/internal/service/mocks"
)

func TestHealthHandler_ServeHTTP(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tests := []struct {
		name       string
		method     string
		checks     map[string]error
		wantStatus int
		wantState  string
		wantIssues []string
	}{
		{
			name:       "healthy",
			method:     http.MethodGet,
			checks:     map[string]error{"database": nil, "vector_store": nil},
			wantStatus: http.StatusOK,
			wantState:  "healthy",
		},
		{
			name:       "vector store down",
			method:     http.MethodGet,
			checks:     map[string]error{"database": nil, "vector_store": errors.New("connection refused")},
			wantStatus: http.StatusServiceUnavailable,
			wantState:  "unhealthy",
			wantIssues: []string{"vector_store_unavailable"},
		},
		{
			name:       "everything down",
			method:     http.MethodGet,
			checks:     map[string]error{"vector_store": errors.New("x"), "database": errors.New("y")},
			wantStatus: http.StatusServiceUnavailable,
			wantState:  "unhealthy",
			wantIssues: []string{"database_unavailable", "vector_store_unavailable"},
		},
		{
			name:       "method not allowed",
			method:     http.MethodPost,
			wantStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockIngestService := mocks.NewMockIngestService(ctrl)
			if tt.checks != nil {
				mockIngestService.EXPECT().Health(gomock.Any()).Return(tt.checks)
			}

			handler := NewHealthHandler(mockIngestService)
			req := httptest.NewRequest(tt.method, "/api/health", nil)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("ServeHTTP() status = %v, want %v", w.Code, tt.wantStatus)
			}
			if tt.wantState == "" {
				return
			}

			var resp HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Status != tt.wantState {
				t.Errorf("ServeHTTP() status field = %v, want %v", resp.Status, tt.wantState)
			}
			if len(resp.Checks) != len(tt.checks) {
				t.Errorf("ServeHTTP() checks = %v, want %d entries", resp.Checks, len(tt.checks))
			}
			if len(resp.Issues) != len(tt.wantIssues) {
				t.Fatalf("ServeHTTP() issues = %v, want %v", resp.Issues, tt.wantIssues)
			}
			for i := range tt.wantIssues {
				if resp.Issues[i] != tt.wantIssues[i] {
					t.Errorf("ServeHTTP() issues[%d] = %v, want %v", i, resp.Issues[i], tt.wantIssues[i])
				}
			}
		})
	}
}

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wrale/healthbot-connect/cmd/healthbot/handlers/common/test"
)

func TestHealthHandler(t *testing.T) {
	version := "1.0.0"

	tests := []struct {
		name      string
		checkFunc func(ctx context.Context) error
		wantCode  int
		wantBody  Response
	}{
		{
			name:      "healthy system",
			checkFunc: func(ctx context.Context) error { return nil },
			wantCode:  http.StatusOK,
			wantBody: Response{
				Status:  "healthy",
				Version: version,
				Details: map[string]ComponentStatus{"store": {Status: "healthy"}},
			},
		},
		{
			name:      "store unhealthy",
			checkFunc: func(ctx context.Context) error { return errors.New("connection refused") },
			wantCode:  http.StatusServiceUnavailable,
			wantBody: Response{
				Status:  "unhealthy",
				Version: version,
				Details: map[string]ComponentStatus{"store": {Status: "unhealthy", Message: "connection refused"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &test.MockService{CheckHealthFunc: tt.checkFunc}
			handler := New(map[string]Checker{"store": svc}).WithVersion(version)

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			if w.Code != tt.wantCode {
				t.Errorf("status code = %v, want %v", w.Code, tt.wantCode)
			}
			if got := w.Header().Get("Content-Type"); got != "application/json" {
				t.Errorf("Content-Type = %v, want application/json", got)
			}

			var got Response
			if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if diff := cmp.Diff(tt.wantBody, got); diff != "" {
				t.Errorf("response mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

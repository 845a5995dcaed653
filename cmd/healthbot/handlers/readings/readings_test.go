package readings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"

	"github.com/wrale/healthbot-connect/cmd/healthbot/handlers/common"
	"github.com/wrale/healthbot-connect/cmd/healthbot/handlers/common/test"
	"github.com/wrale/healthbot-connect/internal/health"
	"github.com/wrale/healthbot-connect/internal/kv"
)

var now = time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T, seed ...health.Reading) (http.Handler, *health.Store, *[]string) {
	t.Helper()
	store := health.NewStore(kv.NewMemoryStore())
	if len(seed) > 0 {
		if err := store.Append(context.Background(), seed); err != nil {
			t.Fatal(err)
		}
	}
	var marked []string
	svc := &test.MockService{
		MarkSyncedFunc: func(_ context.Context, id string) error {
			marked = append(marked, id)
			return nil
		},
	}
	h := New(Config{Store: store, Service: svc, Clock: func() time.Time { return now }})

	r := chi.NewRouter()
	r.Get("/api/readings", h.List)
	r.Get("/api/readings/latest", h.Latest)
	r.Post("/api/readings", h.Create)
	return r, store, &marked
}

func TestList(t *testing.T) {
	hr1 := health.New("bluetooth_hr", now.Add(-2*time.Minute), health.HeartRate, 61)
	hr2 := health.New("bluetooth_hr", now.Add(-time.Minute), health.HeartRate, 64)
	steps := health.New("fitbit", now.Add(-time.Hour), health.Steps, 8000)
	router, _, _ := setup(t, hr1, steps, hr2)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		want       []health.Reading
	}{
		{"all", "", http.StatusOK, []health.Reading{hr1, steps, hr2}},
		{"by type", "?type=heart_rate", http.StatusOK, []health.Reading{hr1, hr2}},
		{"no readings of type", "?type=oxygen", http.StatusOK, []health.Reading{}},
		{"unknown type", "?type=mood", http.StatusBadRequest, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/readings"+tt.query, nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %v, want %v", w.Code, tt.wantStatus)
			}
			if tt.want == nil {
				return
			}
			var resp ListResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if diff := cmp.Diff(tt.want, resp.Readings); diff != "" {
				t.Errorf("readings mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLatest(t *testing.T) {
	older := health.New("withings", now.Add(-48*time.Hour), health.Weight, 71.2)
	newer := health.New("bluetooth_scale", now.Add(-time.Hour), health.Weight, 70.9)
	router, _, _ := setup(t, newer, older)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/readings/latest?type=weight", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %v, want %v", w.Code, http.StatusOK)
	}
	var got health.Reading
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if diff := cmp.Diff(newer, got); diff != "" {
		t.Errorf("latest mismatch (-want +got):\n%s", diff)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/readings/latest?type=sleep", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status without readings = %v, want %v", w.Code, http.StatusNotFound)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/readings/latest", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status without type = %v, want %v", w.Code, http.StatusBadRequest)
	}
}

func TestCreate(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		want       *health.Reading
		wantDetail string
	}{
		{
			name:       "defaults unit and timestamp",
			body:       `{"type":"blood_glucose","value":96}`,
			wantStatus: http.StatusCreated,
			want:       &health.Reading{Source: "manual", Timestamp: now, Type: health.BloodGlucose, Value: 96, Unit: "mg/dL"},
		},
		{
			name:       "explicit canonical unit",
			body:       `{"type":"weight","value":72.5,"unit":"kg","timestamp":"2024-05-20T07:30:00Z"}`,
			wantStatus: http.StatusCreated,
			want: &health.Reading{
				Source:    "manual",
				Timestamp: time.Date(2024, 5, 20, 7, 30, 0, 0, time.UTC),
				Type:      health.Weight,
				Value:     72.5,
				Unit:      "kg",
			},
		},
		{
			name:       "wrong unit",
			body:       `{"type":"weight","value":160,"unit":"lb"}`,
			wantStatus: http.StatusBadRequest,
			wantDetail: `invalid unit "lb": weight must be recorded in kg`,
		},
		{
			name:       "out of range",
			body:       `{"type":"heart_rate","value":400}`,
			wantStatus: http.StatusBadRequest,
			wantDetail: `invalid value "400": heart_rate must be between 20 and 250 bpm`,
		},
		{
			name:       "malformed",
			body:       `{"type":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, store, marked := setup(t)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/readings", strings.NewReader(tt.body)))
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %v, want %v: %s", w.Code, tt.wantStatus, w.Body.String())
			}

			stored, err := store.All(context.Background())
			if err != nil {
				t.Fatal(err)
			}

			if tt.want == nil {
				if len(stored) != 0 {
					t.Errorf("stored %d readings after rejected input", len(stored))
				}
				if tt.wantDetail != "" {
					var resp common.ErrorResponse
					if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
						t.Fatalf("Failed to decode response: %v", err)
					}
					if resp.Details != tt.wantDetail {
						t.Errorf("details = %q, want %q", resp.Details, tt.wantDetail)
					}
				}
				return
			}

			if diff := cmp.Diff([]health.Reading{*tt.want}, stored); diff != "" {
				t.Errorf("stored mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff([]string{"manual_entry"}, *marked); diff != "" {
				t.Errorf("marked mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

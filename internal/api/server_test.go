package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appengine "github.com/cogsched/cogsched/internal/app/engine"
	"github.com/cogsched/cogsched/internal/config"
	"github.com/cogsched/cogsched/internal/domain"
	"github.com/cogsched/cogsched/internal/infra/sqlite"
	"github.com/cogsched/cogsched/internal/parser"
)

func setupServer(t *testing.T) http.Handler {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	t0 := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	cfg := config.NewManager(config.Default())
	eng := appengine.New(cfg, db, parser.Regex{}, appengine.Options{Now: func() time.Time { return t0 }})
	return NewServer(eng, cfg, db).Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v\n%s", err, w.Body.String())
	}
	return out
}

func TestHealth(t *testing.T) {
	h := setupServer(t)
	w := doJSON(t, h, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode(t, w)
	if resp["status"] != "healthy" || resp["service"] != "cognitive-scheduler" {
		t.Errorf("resp = %v", resp)
	}
}

func TestSchedule(t *testing.T) {
	h := setupServer(t)
	w := doJSON(t, h, http.MethodPost, "/api/schedule", map[string]any{
		"tasks": []map[string]any{
			{"title": "Graph Theory", "category": "math", "difficulty": 8, "duration_minutes": 120, "cognitive_load": 8.2},
		},
		"available_from": "09:00",
		"available_to":   "18:00",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)

	blocks, ok := resp["schedule"].([]interface{})
	if !ok || len(blocks) == 0 {
		t.Fatalf("schedule missing: %v", resp)
	}
	if _, ok := resp["energy_curve"].([]interface{}); !ok {
		t.Error("energy_curve missing")
	}
	if _, ok := resp["fatigue_curve"].([]interface{}); !ok {
		t.Error("fatigue_curve missing")
	}
	if resp["persisted"] != true {
		t.Error("persisted should be true")
	}
	gam, ok := resp["gamification"].(map[string]interface{})
	if !ok || gam["xp"].(float64) <= 0 {
		t.Errorf("gamification = %v", resp["gamification"])
	}
}

func TestSchedule_InvalidWindow(t *testing.T) {
	h := setupServer(t)
	w := doJSON(t, h, http.MethodPost, "/api/schedule", map[string]any{
		"tasks":          []map[string]any{{"title": "X", "difficulty": 5, "duration_minutes": 25}},
		"available_from": "18:00",
		"available_to":   "09:00",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestChat(t *testing.T) {
	h := setupServer(t)
	w := doJSON(t, h, http.MethodPost, "/api/chat", map[string]any{
		"message":        "study calculus for 2 hours and review notes for 30 min",
		"available_from": "09:00",
		"available_to":   "17:00",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	parsed, ok := resp["parsed_tasks"].([]interface{})
	if !ok || len(parsed) != 2 {
		t.Errorf("parsed_tasks = %v, want 2", resp["parsed_tasks"])
	}
}

func TestChat_UnparsableMessage(t *testing.T) {
	h := setupServer(t)
	w := doJSON(t, h, http.MethodPost, "/api/chat", map[string]any{"message": "hi!"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestTLXFeedback(t *testing.T) {
	h := setupServer(t)

	var resp map[string]interface{}
	for i := 0; i < 3; i++ {
		w := doJSON(t, h, http.MethodPost, "/api/tlx-feedback", map[string]any{
			"block_index": 0, "mental_demand": 5, "effort": 5,
		})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", w.Code, w.Body.String())
		}
		resp = decode(t, w)
	}

	if resp["status"] != "ok" {
		t.Errorf("status = %v", resp["status"])
	}
	if resp["tlx_entries"].(float64) < 3 {
		t.Errorf("tlx_entries = %v, want >= 3", resp["tlx_entries"])
	}
	weights := resp["updated_weights"].(map[string]interface{})
	cw := weights["fatigue_consec_weight"].(float64)
	if cw < 0.05 || cw > 0.60 {
		t.Errorf("fatigue_consec_weight %v outside clamp", cw)
	}
	if cw <= 0.40 {
		t.Errorf("fatigue_consec_weight %v should have risen above the default", cw)
	}
}

func TestConfig_PutUnknownKeyRejected(t *testing.T) {
	h := setupServer(t)

	w := doJSON(t, h, http.MethodPut, "/api/config", map[string]any{"bogus_key": 99})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	w = doJSON(t, h, http.MethodGet, "/api/config", nil)
	resp := decode(t, w)
	if resp["quantum_min"].(float64) != 25 {
		t.Errorf("config changed after rejected update: quantum_min = %v", resp["quantum_min"])
	}
}

func TestConfig_PutKnownKey(t *testing.T) {
	h := setupServer(t)

	w := doJSON(t, h, http.MethodPut, "/api/config", map[string]any{"quantum_min": 20})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, h, http.MethodGet, "/api/config", nil)
	resp := decode(t, w)
	if resp["quantum_min"].(float64) != 20 {
		t.Errorf("quantum_min = %v, want 20", resp["quantum_min"])
	}
}

func TestProfile_RoundTrip(t *testing.T) {
	h := setupServer(t)

	p := domain.DefaultProfile()
	p.Chronotype = domain.ChronoLate
	p.DailyCommitments = []string{"10:00-11:00 Lecture"}
	w := doJSON(t, h, http.MethodPut, "/api/profile", p)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT status = %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, h, http.MethodGet, "/api/profile", nil)
	resp := decode(t, w)
	if resp["chronotype"] != "late" {
		t.Errorf("chronotype = %v, want late", resp["chronotype"])
	}
}

func TestProfile_InvalidRejected(t *testing.T) {
	h := setupServer(t)
	p := domain.DefaultProfile()
	p.StressLevel = 9
	w := doJSON(t, h, http.MethodPut, "/api/profile", p)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCalendarExport(t *testing.T) {
	h := setupServer(t)

	// No schedule yet: 404.
	w := doJSON(t, h, http.MethodGet, "/api/calendar/export", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}

	doJSON(t, h, http.MethodPost, "/api/schedule", map[string]any{
		"tasks":          []map[string]any{{"title": "Essay", "category": "writing", "difficulty": 5, "duration_minutes": 50}},
		"available_from": "09:00",
		"available_to":   "12:00",
	})

	w = doJSON(t, h, http.MethodGet, "/api/calendar/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), "SUMMARY:Essay") {
		t.Errorf("ICS missing event:\n%s", w.Body.String())
	}
}

func TestUserIsolation(t *testing.T) {
	h := setupServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/tlx-feedback",
		strings.NewReader(`{"block_index":0,"mental_demand":5,"effort":5}`))
	req.Header.Set("X-User-ID", "bob")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	// Another user's count starts at zero.
	w2 := doJSON(t, h, http.MethodPost, "/api/tlx-feedback", map[string]any{
		"block_index": 0, "mental_demand": 4, "effort": 4,
	})
	resp := decode(t, w2)
	if resp["tlx_entries"].(float64) != 1 {
		t.Errorf("tlx_entries = %v, want 1 for a fresh user", resp["tlx_entries"])
	}
}

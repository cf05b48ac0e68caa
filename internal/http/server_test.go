package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"nutrilog/internal/core"
	"nutrilog/internal/goals"
	ledgermem "nutrilog/internal/ledger/memory"
)

func newTestServer(t *testing.T) (*Server, *ledgermem.Store) {
	t.Helper()
	store := ledgermem.New()
	gs, err := goals.Open(filepath.Join(t.TempDir(), "goals.yaml"))
	if err != nil {
		t.Fatalf("goals.Open: %v", err)
	}
	srv := NewServer(":0", store, gs, nil)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, store
}

func postForm(t *testing.T, srv *Server, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func get(srv *Server, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestIndexAndHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := get(srv, "/")
	if rr.Code != 200 {
		t.Fatalf("index status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "nutrilog") {
		t.Fatalf("index body missing heading")
	}

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rr := get(srv, path)
		if rr.Code != 200 {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestCreateEntryValidationAndSuccess(t *testing.T) {
	srv, store := newTestServer(t)

	// Wrong method
	rr := get(srv, "/entries")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}

	// Invalid calories
	rr = postForm(t, srv, "/entries", url.Values{"calories": {"abc"}, "protein": {"20"}})
	if rr.Code != 422 {
		t.Fatalf("expected 422, got %d", rr.Code)
	}

	// Negative protein
	rr = postForm(t, srv, "/entries", url.Values{"calories": {"300"}, "protein": {"-5"}})
	if rr.Code != 422 {
		t.Fatalf("expected 422, got %d", rr.Code)
	}

	// Bad date
	rr = postForm(t, srv, "/entries", url.Values{"date": {"not-a-date"}, "calories": {"300"}, "protein": {"20"}})
	if rr.Code != 422 {
		t.Fatalf("expected 422 for bad date, got %d", rr.Code)
	}

	// Success, label optional
	rr = postForm(t, srv, "/entries", url.Values{
		"date": {"2026-08-30"}, "time": {"12:30"},
		"calories": {"320"}, "protein": {"24.5"}, "label": {"oatmeal"},
	})
	if rr.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "success") {
		t.Fatalf("expected success in body: %s", rr.Body.String())
	}

	entries, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 1 || entries[0].Label != "oatmeal" || entries[0].Calories != 320 {
		t.Fatalf("stored entries = %+v", entries)
	}
}

func TestUpdateAndDeleteEntry(t *testing.T) {
	srv, store := newTestServer(t)

	id, err := store.Append(context.Background(), core.FoodEntry{
		Date:     core.NewDate(2026, 8, 30),
		Time:     core.TimeOfDay{Hour: 8},
		Calories: 400,
		Protein:  30,
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	// Update
	rr := postForm(t, srv, "/entries/update", url.Values{
		"id": {"1"}, "date": {"2026-08-30"}, "time": {"09:00"},
		"calories": {"450"}, "protein": {"35"}, "label": {"eggs"},
	})
	if rr.Code != 200 {
		t.Fatalf("update status=%d: %s", rr.Code, rr.Body.String())
	}
	entries, _ := store.Load(context.Background())
	if len(entries) != 1 || entries[0].Calories != 450 || entries[0].ID != id {
		t.Fatalf("entries after update = %+v", entries)
	}

	// Update missing id
	rr = postForm(t, srv, "/entries/update", url.Values{
		"id": {"99"}, "date": {"2026-08-30"}, "calories": {"1"}, "protein": {"1"},
	})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}

	// Delete
	rr = postForm(t, srv, "/entries/delete", url.Values{"id": {"1"}})
	if rr.Code != 200 {
		t.Fatalf("delete status=%d", rr.Code)
	}
	// Deleting again is still 200
	rr = postForm(t, srv, "/entries/delete", url.Values{"id": {"1"}})
	if rr.Code != 200 {
		t.Fatalf("repeat delete status=%d", rr.Code)
	}
	entries, _ = store.Load(context.Background())
	if len(entries) != 0 {
		t.Fatalf("entries after delete = %+v", entries)
	}
}

func TestGoalsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := get(srv, "/goals")
	if rr.Code != 200 {
		t.Fatalf("goals form status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "2200") {
		t.Fatalf("goals form missing default: %s", rr.Body.String())
	}

	rr = postForm(t, srv, "/goals", url.Values{"calories": {"2500"}, "protein": {"150"}})
	if rr.Code != 200 {
		t.Fatalf("goals update status=%d: %s", rr.Code, rr.Body.String())
	}

	rr = postForm(t, srv, "/goals", url.Values{"calories": {"0"}, "protein": {"150"}})
	if rr.Code != 422 {
		t.Fatalf("expected 422 for zero goal, got %d", rr.Code)
	}
}

func TestDailyProgressPartial(t *testing.T) {
	srv, store := newTestServer(t)

	_, err := store.Append(context.Background(), core.FoodEntry{
		Date:     core.NewDate(2026, 8, 30),
		Time:     core.TimeOfDay{Hour: 12, Minute: 30},
		Label:    "lunch",
		Calories: 1100,
		Protein:  65,
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	rr := get(srv, "/ui/daily-progress?date=2026-08-30")
	if rr.Code != 200 {
		t.Fatalf("daily progress status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "1100") || !strings.Contains(body, "lunch") {
		t.Fatalf("daily progress body missing data: %s", body)
	}
	// 1100 / 2200 default goal
	if !strings.Contains(body, "50%") {
		t.Fatalf("daily progress missing percentage: %s", body)
	}

	// Second request is served from cache and stays consistent.
	rr = get(srv, "/ui/daily-progress?date=2026-08-30")
	if rr.Code != 200 || !strings.Contains(rr.Body.String(), "1100") {
		t.Fatalf("cached daily progress wrong: %d", rr.Code)
	}
}

func TestHistoryAndTrendPartials(t *testing.T) {
	srv, store := newTestServer(t)

	for i, cal := range []float64{1800, 2100} {
		_, err := store.Append(context.Background(), core.FoodEntry{
			Date:     core.NewDate(2026, 8, 25+i),
			Time:     core.TimeOfDay{Hour: 19},
			Calories: cal,
			Protein:  90,
		})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	rr := get(srv, "/ui/history?start=2026-08-25&end=2026-08-27")
	if rr.Code != 200 {
		t.Fatalf("history status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "2026-08-25") || !strings.Contains(body, "2026-08-27") {
		t.Fatalf("history body missing range days: %s", body)
	}
	if !strings.Contains(body, "1800") || !strings.Contains(body, "2100") {
		t.Fatalf("history body missing totals: %s", body)
	}

	rr = get(srv, "/ui/trend?days=7")
	if rr.Code != 200 {
		t.Fatalf("trend status=%d", rr.Code)
	}
}

func TestExportCSV(t *testing.T) {
	srv, store := newTestServer(t)

	_, err := store.Append(context.Background(), core.FoodEntry{
		Date:     core.NewDate(2026, 8, 30),
		Time:     core.TimeOfDay{Hour: 7, Minute: 15},
		Label:    "yogurt",
		Calories: 150,
		Protein:  12,
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	rr := get(srv, "/export")
	if rr.Code != 200 {
		t.Fatalf("export status=%d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("export content type = %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Fatalf("export disposition = %q", cd)
	}
	body := rr.Body.String()
	if !strings.HasPrefix(body, "date,time,calories,protein,label\n") {
		t.Fatalf("export missing header: %s", body)
	}
	if !strings.Contains(body, "2026-08-30,07:15:00,150,12,yogurt") {
		t.Fatalf("export missing row: %s", body)
	}

	// Range that excludes the entry
	rr = get(srv, "/export?start=2026-09-01&end=2026-09-02")
	if rr.Code != 200 {
		t.Fatalf("ranged export status=%d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "yogurt") {
		t.Fatalf("ranged export leaked entry: %s", rr.Body.String())
	}

	// Bad range
	rr = get(srv, "/export?start=bogus&end=2026-09-02")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad range, got %d", rr.Code)
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := get(srv, "/")
	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("X-Content-Type-Options = %q", got)
	}
	if got := rr.Header().Get("Content-Security-Policy"); got == "" {
		t.Fatal("missing Content-Security-Policy header")
	}
}

package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatusChecker(t *testing.T) {
	var s Status
	check := s.Checker()
	if err := check(); !errors.Is(err, ErrNoRunYet) {
		t.Errorf("before first run: err = %v", err)
	}

	s.Record(errors.New("render failed"))
	if err := check(); err == nil {
		t.Errorf("failed run reported healthy")
	}

	s.Record(nil)
	if err := check(); err != nil {
		t.Errorf("successful run: err = %v", err)
	}
	if at, runs, _ := s.Last(); runs != 2 || at.IsZero() {
		t.Errorf("runs = %d, at = %v", runs, at)
	}
}

func TestHandler(t *testing.T) {
	var s Status
	h := Handler(map[string]Checker{"last_run": s.Checker()})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("code = %d, want 503", rec.Code)
	}

	s.Record(nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("code = %d, want 200", rec.Code)
	}
	var rep report
	if err := json.NewDecoder(rec.Body).Decode(&rep); err != nil {
		t.Fatal(err)
	}
	if rep.Status != "ok" || rep.Checks["last_run"] != "ok" {
		t.Errorf("report = %+v", rep)
	}
}

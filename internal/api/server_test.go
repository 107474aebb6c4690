package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rlpappan/pvcaptest/app"
	domain "github.com/rlpappan/pvcaptest/domain/captest"
	"github.com/rlpappan/pvcaptest/domain/core"
	"github.com/rlpappan/pvcaptest/internal/testkit"
)

func newTestServer() *Server {
	return NewServer(app.NewCapacityService(), NewMemoryStore())
}

// writeDataset writes a synthetic plant dataset as CSV and returns its path.
func writeDataset(t *testing.T, dir, name string, noise float64) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := (testkit.Plant{Rows: 20, Noise: noise}).WriteCSV(path); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func postRun(t *testing.T, s *Server, params app.RunParams) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(params)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/runs", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestCreateRun_InvalidBody(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateRun_MissingFiles(t *testing.T) {
	s := newTestServer()
	rec := postRun(t, s, app.RunParams{Nameplate: 20000, Tolerance: "+/- 10"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for missing dataset files", rec.Code)
	}
}

func TestCreateRun_UnreadableFiles(t *testing.T) {
	s := newTestServer()
	rec := postRun(t, s, app.RunParams{
		DASFile:   "/nonexistent/das.csv",
		SimFile:   "/nonexistent/sim.csv",
		Nameplate: 20000,
		Tolerance: "+/- 10",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for unreadable dataset files", rec.Code)
	}
}

func TestCreateRun_BadTolerance(t *testing.T) {
	dir := t.TempDir()
	s := newTestServer()
	rec := postRun(t, s, app.RunParams{
		DASFile:   writeDataset(t, dir, "das.csv", 5),
		SimFile:   writeDataset(t, dir, "sim.csv", 3),
		Nameplate: 20000,
		Tolerance: "* 10",
		Condition: domain.ReportingCondition{POA: 800, TAmb: 22, WVel: 2},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for bad tolerance", rec.Code)
	}
}

func TestRunLifecycle(t *testing.T) {
	dir := t.TempDir()
	s := newTestServer()

	rec := postRun(t, s, app.RunParams{
		DASFile:   writeDataset(t, dir, "das.csv", 5),
		SimFile:   writeDataset(t, dir, "sim.csv", 3),
		Nameplate: 20000,
		Tolerance: "+/- 10",
		Condition: domain.ReportingCondition{POA: 800, TAmb: 22, WVel: 2},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var outcome app.RunOutcome
	if err := json.Unmarshal(rec.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("decode outcome: %v", err)
	}
	if outcome.Result == nil || !outcome.Result.Pass {
		t.Fatalf("outcome = %+v, want a passing result", outcome.Result)
	}
	id := outcome.ID.String()

	// fetch the stored run
	req := httptest.NewRequest(http.MethodGet, "/runs/"+id, nil)
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var fetched struct {
		Run   map[string]interface{}   `json:"run"`
		Steps []map[string]interface{} `json:"steps"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &fetched); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	if len(fetched.Steps) != 2 {
		t.Errorf("stored %d filter steps, want 2", len(fetched.Steps))
	}

	// rendered report
	req = httptest.NewRequest(http.MethodGet, "/runs/"+id+"/report", nil)
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("report status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("report content type = %q, want text/html", ct)
	}
	if !strings.Contains(rec.Body.String(), "Capacity Test Report") {
		t.Error("report body missing title")
	}

	// listing includes the run
	req = httptest.NewRequest(http.MethodGet, "/runs", nil)
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", rec.Code)
	}
	var runs []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &runs); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("listed %d runs, want 1", len(runs))
	}
}

func TestReportCache_ConcurrentRunsAndReports(t *testing.T) {
	dir := t.TempDir()
	s := newTestServer()
	params := app.RunParams{
		DASFile:   writeDataset(t, dir, "das.csv", 5),
		SimFile:   writeDataset(t, dir, "sim.csv", 3),
		Nameplate: 20000,
		Tolerance: "+/- 10",
		Condition: domain.ReportingCondition{POA: 800, TAmb: 22, WVel: 2},
	}

	rec := postRun(t, s, params)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var outcome app.RunOutcome
	if err := json.Unmarshal(rec.Body.Bytes(), &outcome); err != nil {
		t.Fatal(err)
	}
	id := outcome.ID.String()
	body, err := json.Marshal(params)
	if err != nil {
		t.Fatal(err)
	}

	// Cache writes from new runs must not race cache reads from report
	// fetches; each request runs on its own goroutine under net/http.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/runs", bytes.NewReader(body))
			s.ServeHTTP(httptest.NewRecorder(), req)
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				req := httptest.NewRequest(http.MethodGet, "/runs/"+id+"/report", nil)
				s.ServeHTTP(httptest.NewRecorder(), req)
			}
		}()
	}
	wg.Wait()

	req := httptest.NewRequest(http.MethodGet, "/runs/"+id+"/report", nil)
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("report status after concurrent access = %d, want 200", rec.Code)
	}
}

func TestGetRun_BadID(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/runs/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/runs/"+core.NewRunID().String(), nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetReport_NotFound(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/runs/"+core.NewRunID().String()+"/report", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

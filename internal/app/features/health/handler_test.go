package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/therapytrack/internal/app/features/health"
	folderstore "github.com/dalemusser/therapytrack/internal/app/store/folders"
	"github.com/dalemusser/therapytrack/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context, *readpref.ReadPref) error { return p.err }

type fakeCounter int64

func (c fakeCounter) CountIncomplete(context.Context) (int64, error) { return int64(c), nil }

type response struct {
	Status            string `json:"status"`
	Database          string `json:"database"`
	Error             string `json:"error"`
	IncompleteFolders *int64 `json:"incomplete_folders"`
}

func serve(t *testing.T, h *health.Handler) (*httptest.ResponseRecorder, response) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Serve(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}
	var resp response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return rec, resp
}

func TestServe_Connected(t *testing.T) {
	rec, resp := serve(t, health.NewHandler(fakePinger{}, fakeCounter(2), zap.NewNop()))

	if rec.Code != http.StatusOK {
		t.Errorf("status code: got %d, want 200", rec.Code)
	}
	if resp.Status != "ok" || resp.Database != "connected" {
		t.Errorf("response = %+v", resp)
	}
	if resp.IncompleteFolders == nil || *resp.IncompleteFolders != 2 {
		t.Errorf("incomplete_folders = %v, want 2", resp.IncompleteFolders)
	}
}

func TestServe_Disconnected(t *testing.T) {
	rec, resp := serve(t, health.NewHandler(fakePinger{err: errors.New("no reachable servers")}, nil, zap.NewNop()))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status code: got %d, want 503", rec.Code)
	}
	if resp.Status != "error" || resp.Database != "disconnected" || resp.Error == "" {
		t.Errorf("response = %+v", resp)
	}
}

func TestServe_RealDatabase(t *testing.T) {
	db := testutil.SetupTestDB(t)
	rec, resp := serve(t, health.NewHandler(db.Client(), folderstore.New(db), zap.NewNop()))

	if rec.Code != http.StatusOK {
		t.Errorf("status code: got %d, want 200", rec.Code)
	}
	if resp.IncompleteFolders == nil || *resp.IncompleteFolders != 0 {
		t.Errorf("incomplete_folders = %v, want 0", resp.IncompleteFolders)
	}
}

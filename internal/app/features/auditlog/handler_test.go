package auditlog_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/therapytrack/internal/app/features/auditlog"
	"github.com/dalemusser/therapytrack/internal/app/store/audit"
	"github.com/dalemusser/therapytrack/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type stubEvents struct {
	events []audit.Event
	total  int64
	err    error
	got    audit.QueryFilter
	since  time.Time
	limit  int64
}

func (s *stubEvents) Query(_ context.Context, f audit.QueryFilter) ([]audit.Event, error) {
	s.got = f
	return s.events, s.err
}

func (s *stubEvents) CountByFilter(context.Context, audit.QueryFilter) (int64, error) {
	return s.total, s.err
}

func (s *stubEvents) GetFailedCreations(_ context.Context, since time.Time, limit int64) ([]audit.Event, error) {
	s.since, s.limit = since, limit
	return s.events, s.err
}

func serve(h *auditlog.Handler, target string) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	auditlog.Routes(h).ServeHTTP(rec, testutil.NewRequest(http.MethodGet, target))
	return rec
}

func TestServeList_FiltersAndPaging(t *testing.T) {
	folder := primitive.NewObjectID()
	events := &stubEvents{
		events: []audit.Event{{
			ID:        primitive.NewObjectID(),
			Category:  audit.CategorySchedule,
			EventType: audit.EventFolderCreated,
			FolderID:  &folder,
			Success:   true,
		}},
		total: 120,
	}
	h := auditlog.NewHandler(events, zap.NewNop())

	rec := serve(h, "/?folder="+folder.Hex()+"&category=schedule&start_date=2025-03-01&end_date=2025-03-31&page=2")
	rec.AssertStatus(t, http.StatusOK)

	var body struct {
		Items []struct {
			FolderID  string `json:"folder_id"`
			EventType string `json:"event_type"`
		} `json:"items"`
		Page       int  `json:"page"`
		TotalPages int  `json:"total_pages"`
		HasPrev    bool `json:"has_prev"`
		HasNext    bool `json:"has_next"`
	}
	rec.DecodeJSON(t, &body)

	if len(body.Items) != 1 || body.Items[0].FolderID != folder.Hex() || body.Items[0].EventType != audit.EventFolderCreated {
		t.Errorf("items = %+v", body.Items)
	}
	if body.Page != 2 || body.TotalPages != 3 || !body.HasPrev || !body.HasNext {
		t.Errorf("paging = %+v", body)
	}

	f := events.got
	if f.FolderID == nil || *f.FolderID != folder || f.Category != audit.CategorySchedule {
		t.Errorf("filter = %+v", f)
	}
	if f.Offset != 50 || f.Limit != 50 {
		t.Errorf("Offset/Limit = %d/%d, want 50/50", f.Offset, f.Limit)
	}
	if f.StartTime == nil || f.EndTime == nil || !f.EndTime.After(*f.StartTime) {
		t.Errorf("time range = %v..%v", f.StartTime, f.EndTime)
	}
}

func TestServeList_BadID(t *testing.T) {
	h := auditlog.NewHandler(&stubEvents{}, zap.NewNop())
	rec := serve(h, "/?owner=nope")
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, "owner must be a valid id")
}

func TestServeList_StoreError(t *testing.T) {
	h := auditlog.NewHandler(&stubEvents{err: errors.New("down")}, zap.NewNop())
	rec := serve(h, "/")
	rec.AssertStatus(t, http.StatusInternalServerError)
}

func TestServeList_EmptyIsArray(t *testing.T) {
	h := auditlog.NewHandler(&stubEvents{}, zap.NewNop())
	rec := serve(h, "/")
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"items":[]`)
}

func TestServeFailed(t *testing.T) {
	folder := primitive.NewObjectID()
	events := &stubEvents{events: []audit.Event{{
		ID:            primitive.NewObjectID(),
		Category:      audit.CategoryMaintenance,
		EventType:     audit.EventCompensationDeferred,
		FolderID:      &folder,
		FailureReason: "primary stepped down",
	}}}
	h := auditlog.NewHandler(events, zap.NewNop())

	rec := serve(h, "/failed?since=2025-03-01")
	rec.AssertStatus(t, http.StatusOK)

	var body struct {
		Items []struct {
			FolderID      string `json:"folder_id"`
			EventType     string `json:"event_type"`
			FailureReason string `json:"failure_reason"`
		} `json:"items"`
	}
	rec.DecodeJSON(t, &body)
	if len(body.Items) != 1 || body.Items[0].FolderID != folder.Hex() || body.Items[0].FailureReason != "primary stepped down" {
		t.Errorf("items = %+v", body.Items)
	}
	if want := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC); !events.since.Equal(want) {
		t.Errorf("since = %v, want %v", events.since, want)
	}
	if events.limit != 50 {
		t.Errorf("limit = %d, want 50", events.limit)
	}
}

func TestServeFailed_DefaultsAndErrors(t *testing.T) {
	events := &stubEvents{}
	h := auditlog.NewHandler(events, zap.NewNop())

	rec := serve(h, "/failed")
	rec.AssertStatus(t, http.StatusOK)
	if age := time.Since(events.since); age < 23*time.Hour || age > 25*time.Hour {
		t.Errorf("default since is %v ago, want about 24h", age)
	}

	rec = serve(h, "/failed?since=yesterday")
	rec.AssertStatus(t, http.StatusBadRequest)

	h = auditlog.NewHandler(&stubEvents{err: errors.New("down")}, zap.NewNop())
	rec = serve(h, "/failed")
	rec.AssertStatus(t, http.StatusInternalServerError)
}

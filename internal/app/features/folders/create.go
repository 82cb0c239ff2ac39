package folders

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/dalemusser/therapytrack/internal/app/system/limits"
	"github.com/dalemusser/therapytrack/internal/app/system/recurrence"
	"github.com/dalemusser/therapytrack/internal/app/system/scheduling"
	"github.com/dalemusser/therapytrack/internal/app/system/timeouts"
	"github.com/dalemusser/therapytrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IdempotencyHeader carries an optional client key that makes a repeated
// create for the same owner return 409 instead of a second folder.
const IdempotencyHeader = "Idempotency-Key"

type createRequest struct {
	OwnerID     string `json:"owner_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	StartDate   string `json:"start_date"` // YYYY-MM-DD; empty means today
	models.ScheduleSpec
	Activate bool `json:"activate"`
}

// HandleCreate handles POST /folders.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in createRequest
	if err := decodeJSON(w, r, limits.MaxScheduleRequestSize, &in); err != nil {
		writeError(w, http.StatusBadRequest, string(scheduling.KindValidation), "invalid JSON body: "+err.Error())
		return
	}

	owner, err := primitive.ObjectIDFromHex(in.OwnerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, string(scheduling.KindValidation), "owner_id must be a valid id")
		return
	}
	if h.Limiter != nil {
		allowed := h.Limiter.Allow(owner.Hex())
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(h.Limiter.Remaining(owner.Hex())))
		if !allowed {
			retry := h.Limiter.RetryAfter(owner.Hex())
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many schedules created for this owner; try again later")
			return
		}
	}

	var start time.Time
	if in.StartDate != "" {
		start, err = time.ParseInLocation(recurrence.DateLayout, in.StartDate, time.UTC)
		if err != nil {
			writeError(w, http.StatusBadRequest, string(scheduling.KindValidation), "start_date must be YYYY-MM-DD")
			return
		}
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "create schedule")
	defer cancel()

	res, err := h.Scheduler.Create(ctx, scheduling.Request{
		OwnerID:        owner,
		Name:           in.Name,
		Description:    in.Description,
		StartDate:      start,
		Schedule:       in.ScheduleSpec,
		Activate:       in.Activate,
		IdempotencyKey: r.Header.Get(IdempotencyHeader),
	})
	if err != nil {
		h.writeServiceError(w, "create schedule", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

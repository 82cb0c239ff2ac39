package folders

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dalemusser/therapytrack/internal/app/system/scheduling"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type errorBody struct {
	Kind        string `json:"kind"`
	Message     string `json:"message"`
	FolderID    string `json:"folder_id,omitempty"`
	Written     int    `json:"written,omitempty"`
	Failed      int    `json:"failed,omitempty"`
	Skipped     int    `json:"skipped,omitempty"`
	Compensated *bool  `json:"compensated,omitempty"`
}

// decodeJSON reads a JSON body of at most limit bytes and rejects unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, map[string]errorBody{"error": {Kind: kind, Message: msg}})
}

var statusByKind = map[scheduling.Kind]int{
	scheduling.KindValidation:  http.StatusBadRequest,
	scheduling.KindDuplicate:   http.StatusConflict,
	scheduling.KindNotFound:    http.StatusNotFound,
	scheduling.KindConflict:    http.StatusConflict,
	scheduling.KindCanceled:    499, // client closed request
	scheduling.KindTimeout:     http.StatusGatewayTimeout,
	scheduling.KindPersistence: http.StatusInternalServerError,
}

// writeServiceError maps a scheduling error onto a JSON error response.
// Write counts are included for failed creations.
func (h *Handler) writeServiceError(w http.ResponseWriter, op string, err error) {
	var se *scheduling.Error
	if !errors.As(err, &se) {
		h.Log.Error(op, zap.Error(err))
		writeError(w, http.StatusInternalServerError, string(scheduling.KindPersistence), "internal error")
		return
	}

	status, ok := statusByKind[se.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	if status >= 500 {
		h.Log.Error(op, zap.Error(err))
	}

	body := errorBody{
		Kind:    string(se.Kind),
		Message: se.Message,
		Written: se.Written,
		Failed:  se.Failed,
		Skipped: se.Skipped,
	}
	if !se.FolderID.IsZero() {
		body.FolderID = se.FolderID.Hex()
	}
	if se.Written+se.Failed+se.Skipped > 0 {
		c := se.Compensated
		body.Compensated = &c
	}
	writeJSON(w, status, map[string]errorBody{"error": body})
}

// objectIDParam parses the chi URL parameter name as an ObjectID and writes
// a 400 when it is malformed.
func objectIDParam(w http.ResponseWriter, r *http.Request, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, string(scheduling.KindValidation), "invalid "+name)
		return primitive.NilObjectID, false
	}
	return id, true
}

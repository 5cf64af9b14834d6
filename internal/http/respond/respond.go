package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/coopsolar/backoffice/internal/notify"
	"github.com/coopsolar/backoffice/internal/status"
)

type errorResponse struct {
	Error string `json:"error"`
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Error maps err onto an HTTP status: invalid status 422, missing entity
// 404, lost concurrent update 409, everything else 500.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	code := StatusCode(err)

	msg := err.Error()
	if code == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = "internal error"
	}

	JSON(w, code, errorResponse{Error: msg})
}

// BadRequest reports malformed input.
func BadRequest(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

func StatusCode(err error) int {
	switch {
	case errors.Is(err, status.ErrInvalidStatus):
		return http.StatusUnprocessableEntity
	case errors.Is(err, status.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, status.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, status.ErrPersistence), errors.Is(err, status.ErrCorruptHistory):
		return http.StatusInternalServerError
	}

	var v validation
	if errors.As(err, &v) {
		return http.StatusUnprocessableEntity
	}

	return http.StatusInternalServerError
}

// validation marks domain input errors that map to 422.
type validation interface {
	error
	Validation() bool
}

// Invalid wraps a domain validation error so that Error reports it as 422.
func Invalid(err error) error {
	if err == nil {
		return nil
	}

	return invalidError{err}
}

type invalidError struct{ error }

func (e invalidError) Validation() bool { return true }
func (e invalidError) Unwrap() error    { return e.error }

type TransitionEntry struct {
	Timestamp      time.Time `json:"timestamp"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
}

type HistoryResponse struct {
	ID        uuid.UUID         `json:"id"`
	Status    string            `json:"status"`
	Initial   string            `json:"initial_status"`
	Historico []TransitionEntry `json:"historico_status"`
}

// History renders the transition log of an entity.
func History[S status.Value](id uuid.UUID, t status.Tracker[S]) HistoryResponse {
	return HistoryResponse{
		ID:        id,
		Status:    string(t.Current()),
		Initial:   string(t.Initial()),
		Historico: Entries(t),
	}
}

func Entries[S status.Value](t status.Tracker[S]) []TransitionEntry {
	history := t.History()

	out := make([]TransitionEntry, len(history))
	for i, tr := range history {
		out[i] = TransitionEntry{
			Timestamp:      tr.Timestamp,
			PreviousStatus: string(tr.PreviousStatus),
			NewStatus:      string(tr.NewStatus),
		}
	}

	return out
}

type TransitionResponse struct {
	ID       uuid.UUID          `json:"id"`
	Previous string             `json:"previous_status"`
	Status   string             `json:"status"`
	NoOp     bool               `json:"noop"`
	Derived  map[string]*string `json:"derived,omitempty"`
	Message  string             `json:"mensagem"`
}

// Transition renders the result of a status update.
func Transition[S status.Value](entity string, id uuid.UUID, res status.Result[S]) TransitionResponse {
	resp := TransitionResponse{
		ID:       id,
		Previous: string(res.Previous),
		Status:   string(res.Status),
		NoOp:     res.NoOp(),
		Message: notify.Message(status.Outcome{
			Entity: entity,
			ID:     id,
			From:   string(res.Previous),
			To:     string(res.Status),
			NoOp:   res.NoOp(),
		}),
	}

	if len(res.Derived) > 0 {
		resp.Derived = make(map[string]*string, len(res.Derived))

		for _, c := range res.Derived {
			if c.Value == nil {
				resp.Derived[c.Field] = nil
				continue
			}

			v := c.Value.Format(time.RFC3339)
			resp.Derived[c.Field] = &v
		}
	}

	return resp
}

type StatusRequest struct {
	Status string `json:"status"`
}

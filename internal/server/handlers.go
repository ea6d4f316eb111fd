package server

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/fakeyudi/gaslog/internal/recording"
	"github.com/fakeyudi/gaslog/internal/state"
)

// Control request results reported to the metrics.
const (
	ControlApplied = "applied"
	ControlNoop    = "noop"
	ControlIgnored = "ignored"
	ControlFailed  = "failed"
)

// DataResponse is the body of GET /data.
type DataResponse struct {
	Data string `json:"data"`
}

// FilesResponse is the body of GET /files.
type FilesResponse struct {
	Files []string `json:"files"`
}

// Reading is a timestamped sensor value.
type Reading struct {
	Timestamp time.Time `json:"timestamp"`
	Value     string    `json:"value"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	State     string     `json:"state"`
	Session   string     `json:"session,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	Latest    *Reading   `json:"latest"`
	Files     []string   `json:"files"`
}

type handler struct {
	store   *state.Store
	ctrl    Controller
	page    PageSource
	files   *FileSource
	metrics Metrics
	logger  *slog.Logger
}

func (h *handler) index(w http.ResponseWriter, r *http.Request) {
	page, err := h.page.Load()
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Landing page unavailable", "error", err)
		http.Error(w, "landing page unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

func (h *handler) data(w http.ResponseWriter, r *http.Request) {
	var resp DataResponse
	if smp, ok := h.store.LatestSample(); ok {
		resp.Data = smp.Value
	}
	writeJSON(w, resp)
}

func (h *handler) control(w http.ResponseWriter, r *http.Request) {
	// The action may come from the query string or a form body.
	if err := r.ParseForm(); err != nil {
		h.logger.WarnContext(r.Context(), "Ignoring unreadable control request", "error", err)
		h.metrics.ControlRequest(ControlIgnored)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	values := r.Form["action"]
	action, ok := recording.ParseActionValues(values)
	if !ok {
		h.logger.WarnContext(r.Context(), "Ignoring control request", "action", values)
		h.metrics.ControlRequest(ControlIgnored)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	applied, err := h.ctrl.Dispatch(action)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Control action failed", "action", action, "error", err)
		if action == recording.ActionStart && !applied {
			h.metrics.ControlRequest(ControlFailed)
			if errors.Is(err, recording.ErrClosed) {
				http.Error(w, "shutting down", http.StatusServiceUnavailable)
				return
			}
			http.Error(w, "could not start session", http.StatusInternalServerError)
			return
		}
	}

	if applied {
		h.metrics.ControlRequest(ControlApplied)
	} else {
		h.logger.DebugContext(r.Context(), "Control action had no effect", "action", action)
		h.metrics.ControlRequest(ControlNoop)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listFiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, FilesResponse{Files: h.store.History()})
}

func (h *handler) viewFile(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	f, err := h.files.Open(name)
	if err != nil {
		if errors.Is(err, ErrUnsafeName) {
			h.logger.WarnContext(r.Context(), "Rejected file name", "name", name)
		} else if !errors.Is(err, fs.ErrNotExist) {
			h.logger.WarnContext(r.Context(), "Could not open session file", "name", name, "error", err)
		}
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := io.Copy(w, f); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to send session file", "name", name, "error", err)
	}
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{State: state.Idle.String(), Files: h.store.History()}
	if sess, ok := h.store.CurrentSession(); ok {
		created := sess.CreatedAt
		resp.State = sess.Status.String()
		resp.Session = sess.ID
		resp.CreatedAt = &created
	}
	if smp, ok := h.store.LatestSample(); ok {
		resp.Latest = &Reading{Timestamp: smp.Timestamp, Value: smp.Value}
	}
	writeJSON(w, resp)
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

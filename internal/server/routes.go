package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/fakeyudi/gaslog/internal/recording"
	"github.com/fakeyudi/gaslog/internal/state"
)

// Controller executes recording actions.
type Controller interface {
	Dispatch(a recording.Action) (bool, error)
}

// PageSource supplies the landing page.
type PageSource interface {
	Load() ([]byte, error)
}

// Metrics records request outcomes. All methods must be safe for concurrent
// use.
type Metrics interface {
	ControlRequest(result string)
	ObserveHTTP(route string, code int, d time.Duration)
	Handler() http.Handler
}

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Store      *state.Store
	Controller Controller
	Page       PageSource
	Files      *FileSource
	Metrics    Metrics // optional; /metrics is served only when set
	Logger     *slog.Logger
}

// NewHandler returns the complete HTTP handler: routes plus middleware.
func NewHandler(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := d.Metrics
	if m == nil {
		m = nopMetrics{}
	}
	h := &handler{
		store:   d.Store,
		ctrl:    d.Controller,
		page:    d.Page,
		files:   d.Files,
		metrics: m,
		logger:  logger,
	}

	r := mux.NewRouter()
	// Paths are matched as sent; "/view_file/../x" must not be cleaned and
	// redirected to "/x".
	r.SkipClean(true)

	r.HandleFunc("/", h.index).Methods(http.MethodGet)
	r.HandleFunc("/data", h.data).Methods(http.MethodGet)
	r.HandleFunc("/control", h.control).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/files", h.listFiles).Methods(http.MethodGet)
	r.HandleFunc("/view_file/{name}", h.viewFile).Methods(http.MethodGet)
	r.HandleFunc("/status", h.status).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler()).Methods(http.MethodGet)
	}

	notFound := instrument(m, "unmatched", http.HandlerFunc(http.NotFound))
	r.NotFoundHandler = notFound
	r.MethodNotAllowedHandler = notFound
	r.Use(routeMetrics(m))

	return withMiddleware(r, logger)
}

type nopMetrics struct{}

func (nopMetrics) ControlRequest(string)                  {}
func (nopMetrics) ObserveHTTP(string, int, time.Duration) {}
func (nopMetrics) Handler() http.Handler                  { return http.NotFoundHandler() }

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"crisiswatch/internal/domain/metrics"
	"crisiswatch/internal/services/dashboard"
	"crisiswatch/internal/services/daterange"
	"crisiswatch/internal/services/report"
	"crisiswatch/internal/services/swarm"
	"crisiswatch/pkg/errors"
	"crisiswatch/pkg/logger"
)

// DashboardService is what the HTTP layer needs from the dashboard service
type DashboardService interface {
	View(ctx context.Context, company string, period daterange.Period) (*dashboard.View, error)
	Generate(ctx context.Context, company string, observer swarm.Observer) (*metrics.CompanyMetrics, error)
	Store(ctx context.Context, m *metrics.CompanyMetrics)
	Project(m *metrics.CompanyMetrics, period daterange.Period) (*dashboard.View, error)
}

var _ DashboardService = (*dashboard.Service)(nil)

// DashboardHandler serves dashboard views over HTTP
type DashboardHandler struct {
	service DashboardService
	now     func() time.Time
	log     *logger.Logger
}

// NewDashboardHandler creates the handler
func NewDashboardHandler(service DashboardService, log *logger.Logger) *DashboardHandler {
	return &DashboardHandler{
		service: service,
		now:     time.Now,
		log:     log.Component("dashboard_api"),
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type periodsResponse struct {
	Periods []daterange.Period `json:"periods"`
	Default daterange.Period   `json:"default"`
}

// HandleDashboard serves GET /api/v1/dashboard?company=&period=[&format=text]
func (h *DashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		h.writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}

	q := r.URL.Query()
	period, err := daterange.ParsePeriod(q.Get("period"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	view, err := h.service.View(r.Context(), q.Get("company"), period)
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	h.respond(w, r, view)
}

// HandleRefresh serves POST /api/v1/dashboard/refresh?company=&period=,
// bypassing the cache and storing the regenerated metrics
func (h *DashboardHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		h.writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}

	q := r.URL.Query()
	period, err := daterange.ParsePeriod(q.Get("period"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	m, err := h.service.Generate(r.Context(), q.Get("company"), nil)
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	h.service.Store(r.Context(), m)

	view, err := h.service.Project(m, period)
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	h.respond(w, r, view)
}

// HandlePeriods lists supported periods
func (h *DashboardHandler) HandlePeriods(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, periodsResponse{Periods: daterange.Periods, Default: daterange.Period30d})
}

func (h *DashboardHandler) respond(w http.ResponseWriter, r *http.Request, view *dashboard.View) {
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(report.Summary(view.View, h.now())))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *DashboardHandler) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.log.Errorw("Dashboard request failed", "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, errors.ErrInvalidInput), errors.Is(err, errors.ErrInvalidPeriod):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, errors.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

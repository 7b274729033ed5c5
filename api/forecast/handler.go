// Package forecast exposes the forecast pipeline over HTTP.
package forecast

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/kilianp07/fleetcast/core/artifact"
	"github.com/kilianp07/fleetcast/core/calendar"
	coreforecast "github.com/kilianp07/fleetcast/core/forecast"
	"github.com/kilianp07/fleetcast/core/forecastlog"
	"github.com/kilianp07/fleetcast/core/model"
	coremon "github.com/kilianp07/fleetcast/core/monitoring"
	"github.com/kilianp07/fleetcast/core/prediction"
	"github.com/kilianp07/fleetcast/infra/logger"
	"github.com/kilianp07/fleetcast/pkg/export"
)

// DefaultHorizon is used when a forecast request omits the horizon.
const DefaultHorizon = 5

// Handler serves the forecast endpoints.
type Handler struct {
	forecaster     coreforecast.Forecaster
	source         artifact.Source
	logs           forecastlog.LogStore
	logsToken      string
	defaultHorizon int
	now            func() time.Time
	log            logger.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogStore enables GET /api/forecast/logs. When token is non-empty the
// request must carry "Authorization: Bearer <token>".
func WithLogStore(store forecastlog.LogStore, token string) Option {
	return func(h *Handler) {
		h.logs = store
		h.logsToken = token
	}
}

// WithDefaultHorizon overrides DefaultHorizon.
func WithDefaultHorizon(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.defaultHorizon = n
		}
	}
}

// WithClock sets the clock used for default anchors and dates.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// WithLogger replaces the default component logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

// NewHandler returns a handler serving forecasts from f. src provides the
// bundle reported by /api/entities and /healthz.
func NewHandler(f coreforecast.Forecaster, src artifact.Source, opts ...Option) *Handler {
	h := &Handler{
		forecaster:     f,
		source:         src,
		defaultHorizon: DefaultHorizon,
		now:            time.Now,
		log:            logger.New("api"),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

func requestContext(r *http.Request) context.Context {
	ctx := r.Context()
	if id := chimw.GetReqID(ctx); id != "" {
		ctx = coreforecast.WithRequestID(ctx, id)
	}
	return ctx
}

// statusFor maps a pipeline error to an HTTP status.
func statusFor(err error) int {
	var qe *QueryError
	if errors.As(err, &qe) {
		return http.StatusBadRequest
	}
	switch coreforecast.Outcome(err) {
	case coreforecast.OutcomeUnknownEntity, coreforecast.OutcomeInvalidHorizon, coreforecast.OutcomeInvalidPeriod:
		return http.StatusBadRequest
	case coreforecast.OutcomeBackendUnavailable:
		return http.StatusServiceUnavailable
	case coreforecast.OutcomeCanceled:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Warnf("encode response: %v", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	info := coreforecast.Describe(err)
	var qe *QueryError
	if errors.As(err, &qe) {
		info.Code = "bad_request"
	}
	h.writeJSON(w, statusFor(err), info)
}

// writeInternal reports failures outside the forecast pipeline, which are
// not seen by the forecast observers.
func (h *Handler) writeInternal(w http.ResponseWriter, r *http.Request, err error) {
	h.log.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
	coremon.CaptureException(err, map[string]string{"path": r.URL.Path})
	h.writeJSON(w, http.StatusInternalServerError, coreforecast.ErrorInfo{Error: err.Error(), Code: coreforecast.OutcomeError})
}

// Forecast handles GET /api/forecast.
func (h *Handler) Forecast(w http.ResponseWriter, r *http.Request) {
	q, err := parseForecastQuery(r.URL.Query(), calendar.Current(h.now), h.defaultHorizon)
	if err != nil {
		h.writeError(w, err)
		return
	}
	anchor, err := model.NewPeriod(q.Year, q.Month)
	if err != nil {
		h.writeError(w, err)
		return
	}
	res, err := h.forecaster.Forecast(requestContext(r), anchor, q.Horizon, q.Entity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	switch q.Format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="forecast_`+anchor.Key()+`.csv"`)
		if err := export.WriteCSV(w, res); err != nil {
			h.log.Warnf("write csv: %v", err)
		}
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := export.WriteChartHTML(w, res); err != nil {
			h.log.Warnf("write chart: %v", err)
		}
	default:
		h.writeJSON(w, http.StatusOK, res)
	}
}

// Predict handles GET /api/predict.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	q, err := parsePredictQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, err)
		return
	}
	period, err := model.NewPeriod(q.Year, q.Month)
	if err != nil {
		h.writeError(w, err)
		return
	}
	res, err := h.forecaster.Predict(requestContext(r), period, q.Entity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

type daysResponse struct {
	Entity string              `json:"entity"`
	Start  string              `json:"start_date"`
	Days   int                 `json:"days"`
	Values []model.DayForecast `json:"values"`
}

// Days handles GET /api/forecast/days.
func (h *Handler) Days(w http.ResponseWriter, r *http.Request) {
	q, err := parseDaysQuery(r.URL.Query(), h.now().UTC())
	if err != nil {
		h.writeError(w, err)
		return
	}
	days, err := h.forecaster.ForecastDays(requestContext(r), q.Start, q.Days, q.Entity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if q.Format == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		if err := export.WriteDaysCSV(w, days, q.Entity, ""); err != nil {
			h.log.Warnf("write csv: %v", err)
		}
		return
	}
	h.writeJSON(w, http.StatusOK, daysResponse{
		Entity: q.Entity,
		Start:  q.Start.Format(calendar.DateLayout),
		Days:   len(days),
		Values: days,
	})
}

type entity struct {
	Label   string `json:"label"`
	Display string `json:"display"`
	Code    int    `json:"code"`
}

type entitiesResponse struct {
	BundleVersion string   `json:"bundle_version"`
	Count         int      `json:"count"`
	Entities      []entity `json:"entities"`
}

// Entities handles GET /api/entities.
func (h *Handler) Entities(w http.ResponseWriter, _ *http.Request) {
	b := h.source.Current()
	if b == nil {
		h.writeError(w, &prediction.BackendUnavailableError{Backend: "none", Cause: artifact.ErrNoBundle})
		return
	}
	labels := b.Encoder.Labels()
	resp := entitiesResponse{BundleVersion: b.Version, Count: len(labels), Entities: make([]entity, len(labels))}
	for i, l := range labels {
		resp.Entities[i] = entity{Label: l, Display: b.Encoder.Display(l), Code: i}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// Logs handles GET /api/forecast/logs.
func (h *Handler) Logs(w http.ResponseWriter, r *http.Request) {
	if h.logs == nil {
		http.NotFound(w, r)
		return
	}
	if h.logsToken != "" && !bearerMatches(r.Header.Get("Authorization"), h.logsToken) {
		h.writeJSON(w, http.StatusUnauthorized, coreforecast.ErrorInfo{Error: "unauthorized", Code: "unauthorized"})
		return
	}
	q, err := parseLogsQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, err)
		return
	}
	records, err := h.logs.Query(r.Context(), forecastlog.LogQuery{
		Start:   q.Start,
		End:     q.End,
		Entity:  q.Entity,
		Kind:    q.Kind,
		Outcome: q.Outcome,
		Limit:   q.Limit,
	})
	if err != nil {
		h.writeInternal(w, r, err)
		return
	}
	if records == nil {
		records = []forecastlog.LogRecord{}
	}
	h.writeJSON(w, http.StatusOK, records)
}

type healthResponse struct {
	Status        string `json:"status"`
	BundleVersion string `json:"bundle_version,omitempty"`
	Backend       string `json:"backend,omitempty"`
	Entities      int    `json:"entities,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Health handles GET /healthz. It answers 503 until a bundle with a usable
// backend is installed.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	b := h.source.Current()
	if b == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Error: artifact.ErrNoBundle.Error()})
		return
	}
	resp := healthResponse{
		Status:        "ok",
		BundleVersion: b.Version,
		Backend:       prediction.Kind(b.Backend),
		Entities:      b.Encoder.Len(),
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := prediction.Ping(ctx, b.Backend); err != nil {
		resp.Status = "unavailable"
		resp.Error = err.Error()
		h.writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func bearerMatches(header, token string) bool {
	got, ok := strings.CutPrefix(header, "Bearer ")
	return ok && subtle.ConstantTimeCompare([]byte(got), []byte(token)) == 1
}

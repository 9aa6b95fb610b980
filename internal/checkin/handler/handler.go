package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"eventdesk/internal/checkin/models"
	"eventdesk/internal/checkin/service"
	"eventdesk/internal/platform/metrics"
	"eventdesk/internal/platform/middleware"
	regmodels "eventdesk/internal/registration/models"
	id "eventdesk/pkg/domain"
	dErrors "eventdesk/pkg/domain-errors"
	"eventdesk/pkg/platform/httputil"
	"eventdesk/pkg/requestcontext"
)

// Service defines the check-in operations exposed over HTTP.
type Service interface {
	ScanQR(ctx context.Context, raw string, actor service.Actor) (models.Result, error)
	CheckInByCode(ctx context.Context, code string, method models.Method, actor service.Actor) (models.Result, error)
	BulkCheckIn(ctx context.Context, codes []string, actor service.Actor) (*models.BulkResult, error)
	Undo(ctx context.Context, registrationID id.RegistrationID, actor service.Actor) error
	ListCheckIns(ctx context.Context, eventID id.EventID, filter models.Filter) ([]*models.CheckIn, error)
	Stats(ctx context.Context, eventID id.EventID) (*models.Stats, error)
	Lookup(ctx context.Context, eventID id.EventID, query string) ([]*regmodels.Registration, error)
}

// Handler serves the check-in desk endpoints.
type Handler struct {
	logger       *slog.Logger
	checkins     Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
	timeout      time.Duration
}

func New(checkins Service, logger *slog.Logger, metrics *metrics.Metrics, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		checkins:     checkins,
		metrics:      metrics,
		jwtValidator: jwtValidator,
		timeout:      30 * time.Second,
	}
}

// WithTimeout overrides the per-request deadline.
func (h *Handler) WithTimeout(d time.Duration) *Handler {
	if d > 0 {
		h.timeout = d
	}
	return h
}

// Register registers the check-in routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Recovery(h.logger))
		r.Use(middleware.RequestID)
		r.Use(middleware.ClientMetadata)
		r.Use(middleware.Logger(h.logger))
		r.Use(middleware.Timeout(h.timeout))
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.LatencyMiddleware(h.metrics))
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

		r.Post("/checkin/scan", h.handleScan)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(h.logger))
			r.Post("/checkin/manual", h.handleManual)
			r.Post("/checkin/bulk", h.handleBulk)
			r.Delete("/checkin/registrations/{registrationID}", h.handleUndo)
			r.Get("/events/{eventID}/checkins", h.handleListCheckIns)
			r.Get("/events/{eventID}/checkins/stats", h.handleStats)
			r.Get("/events/{eventID}/lookup", h.handleLookup)
		})
	})
}

type scanRequest struct {
	Payload string `json:"payload"`
}

type manualRequest struct {
	Code   string `json:"code"`
	Method string `json:"method,omitempty"`
}

type bulkRequest struct {
	Codes []string `json:"codes"`
}

func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req scanRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Payload == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "payload is required"))
		return
	}

	res, err := h.checkins.ScanQR(ctx, req.Payload, actorFrom(ctx))
	if err != nil {
		h.writeServiceError(ctx, w, "qr scan failed", err)
		return
	}
	writeResult(w, res)
}

func (h *Handler) handleManual(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req manualRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	method := models.MethodManual
	if req.Method != "" {
		parsed, err := models.ParseMethod(req.Method)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		method = parsed
	}

	res, err := h.checkins.CheckInByCode(ctx, req.Code, method, actorFrom(ctx))
	if err != nil {
		h.writeServiceError(ctx, w, "manual check-in failed", err)
		return
	}
	writeResult(w, res)
}

func (h *Handler) handleBulk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req bulkRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	out, err := h.checkins.BulkCheckIn(ctx, req.Codes, actorFrom(ctx))
	if err != nil {
		h.writeServiceError(ctx, w, "bulk check-in failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleUndo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	registrationID, err := id.ParseRegistrationID(chi.URLParam(r, "registrationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.checkins.Undo(ctx, registrationID, actorFrom(ctx)); err != nil {
		h.writeServiceError(ctx, w, "undo check-in failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListCheckIns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var filter models.Filter
	if raw := r.URL.Query().Get("method"); raw != "" {
		method, err := models.ParseMethod(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.Method = &method
	}

	list, err := h.checkins.ListCheckIns(ctx, eventID, filter)
	if err != nil {
		h.writeServiceError(ctx, w, "list check-ins failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"checkins": list})
}

type statsResponse struct {
	*models.Stats
	AttendanceRate float64 `json:"attendance_rate"`
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	stats, err := h.checkins.Stats(ctx, eventID)
	if err != nil {
		h.writeServiceError(ctx, w, "check-in stats failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, statsResponse{Stats: stats, AttendanceRate: stats.AttendanceRate()})
}

func (h *Handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	regs, err := h.checkins.Lookup(ctx, eventID, r.URL.Query().Get("q"))
	if err != nil {
		h.writeServiceError(ctx, w, "registration lookup failed", err)
		return
	}
	out := make([]*regmodels.RegistrationResponse, 0, len(regs))
	for _, reg := range regs {
		resp := regmodels.ToResponse(reg)
		resp.QRCodeData = ""
		out = append(out, resp)
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"registrations": out})
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
	}
	httputil.WriteError(w, err)
}

func actorFrom(ctx context.Context) service.Actor {
	return service.Actor{
		UserID: requestcontext.UserID(ctx),
		Admin:  requestcontext.IsAdmin(ctx),
	}
}

// writeResult renders the stable success or failure shape.
func writeResult(w http.ResponseWriter, res models.Result) {
	if res.OK() {
		httputil.WriteJSON(w, http.StatusOK, res.Success)
		return
	}
	httputil.WriteJSON(w, statusForReason(res.Reason()), res.Failure)
}

func statusForReason(reason models.Reason) int {
	switch reason {
	case models.ReasonNotFound:
		return http.StatusNotFound
	case models.ReasonAlreadyCheckedIn:
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

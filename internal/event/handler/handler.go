package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"eventdesk/internal/event/models"
	"eventdesk/internal/platform/metrics"
	"eventdesk/internal/platform/middleware"
	id "eventdesk/pkg/domain"
	dErrors "eventdesk/pkg/domain-errors"
	"eventdesk/pkg/platform/httputil"
)

// Service defines the event operations exposed over HTTP.
type Service interface {
	Create(ctx context.Context, req *models.CreateEventRequest) (*models.Event, error)
	Get(ctx context.Context, eventID id.EventID) (*models.Event, error)
	Publish(ctx context.Context, eventID id.EventID) (*models.Event, error)
	Cancel(ctx context.Context, eventID id.EventID) (*models.Event, error)
	Complete(ctx context.Context, eventID id.EventID) (*models.Event, error)
}

type Handler struct {
	logger       *slog.Logger
	events       Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
	timeout      time.Duration
}

func New(events Service, logger *slog.Logger, metrics *metrics.Metrics, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		events:       events,
		metrics:      metrics,
		jwtValidator: jwtValidator,
		timeout:      10 * time.Second,
	}
}

// WithTimeout overrides the per-request deadline.
func (h *Handler) WithTimeout(d time.Duration) *Handler {
	if d > 0 {
		h.timeout = d
	}
	return h
}

// Register registers the event routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Recovery(h.logger))
		r.Use(middleware.RequestID)
		r.Use(middleware.Logger(h.logger))
		r.Use(middleware.Timeout(h.timeout))
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.LatencyMiddleware(h.metrics))
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

		r.Get("/events/{eventID}", h.handleGet)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(h.logger))
			r.Post("/admin/events", h.handleCreate)
			r.Post("/admin/events/{eventID}/publish", h.transition("publish", h.events.Publish))
			r.Post("/admin/events/{eventID}/cancel", h.transition("cancel", h.events.Cancel))
			r.Post("/admin/events/{eventID}/complete", h.transition("complete", h.events.Complete))
		})
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.CreateEventRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	e, err := h.events.Create(ctx, &req)
	if err != nil {
		h.writeServiceError(ctx, w, "create event failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, models.ToResponse(e))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	e, err := h.events.Get(ctx, eventID)
	if err != nil {
		h.writeServiceError(ctx, w, "get event failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToResponse(e))
}

type transitionFunc func(ctx context.Context, eventID id.EventID) (*models.Event, error)

func (h *Handler) transition(name string, fn transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		e, err := fn(ctx, eventID)
		if err != nil {
			h.writeServiceError(ctx, w, name+" event failed", err)
			return
		}
		h.logger.InfoContext(ctx, "event status changed",
			"event_id", e.ID.String(),
			"status", e.Status,
			"request_id", middleware.GetRequestID(ctx),
		)
		httputil.WriteJSON(w, http.StatusOK, models.ToResponse(e))
	}
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "error", err, "request_id", middleware.GetRequestID(ctx))
	}
	httputil.WriteError(w, err)
}

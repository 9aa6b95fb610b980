package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"eventdesk/internal/platform/metrics"
	"eventdesk/internal/platform/middleware"
	"eventdesk/internal/registration/models"
	id "eventdesk/pkg/domain"
	dErrors "eventdesk/pkg/domain-errors"
	"eventdesk/pkg/platform/httputil"
	"eventdesk/pkg/requestcontext"
)

// Service defines the registration operations exposed over HTTP.
type Service interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.Registration, error)
	Get(ctx context.Context, registrationID id.RegistrationID) (*models.Registration, error)
	Confirm(ctx context.Context, registrationID id.RegistrationID) (*models.Registration, error)
	Cancel(ctx context.Context, registrationID id.RegistrationID) (*models.Registration, error)
	RegenerateQR(ctx context.Context, registrationID id.RegistrationID) (*models.Registration, error)
	ListByEvent(ctx context.Context, eventID id.EventID, scope models.Scope) ([]*models.Registration, error)
}

type Handler struct {
	logger        *slog.Logger
	registrations Service
	metrics       *metrics.Metrics
	jwtValidator  middleware.JWTValidator
	timeout       time.Duration
}

func New(registrations Service, logger *slog.Logger, metrics *metrics.Metrics, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:        logger,
		registrations: registrations,
		metrics:       metrics,
		jwtValidator:  jwtValidator,
		timeout:       10 * time.Second,
	}
}

// WithTimeout overrides the per-request deadline.
func (h *Handler) WithTimeout(d time.Duration) *Handler {
	if d > 0 {
		h.timeout = d
	}
	return h
}

// Register registers the registration routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Recovery(h.logger))
		r.Use(middleware.RequestID)
		r.Use(middleware.Logger(h.logger))
		r.Use(middleware.Timeout(h.timeout))
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.LatencyMiddleware(h.metrics))
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

		r.Post("/events/{eventID}/registrations", h.handleRegister)
		r.Get("/registrations/{registrationID}", h.handleGet)
		r.Post("/registrations/{registrationID}/cancel", h.handleCancel)
		r.Post("/registrations/{registrationID}/qr", h.handleRegenerateQR)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(h.logger))
			r.Post("/registrations/{registrationID}/confirm", h.handleConfirm)
			r.Get("/events/{eventID}/registrations", h.handleList)
		})
	})
}

// registerRequest lets an attendee override the display name and email
// carried by their token.
type registerRequest struct {
	HolderName  string `json:"holder_name,omitempty"`
	HolderEmail string `json:"holder_email,omitempty"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var body registerRequest
	if r.ContentLength != 0 {
		if err := httputil.DecodeJSON(r, &body); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	profile := requestcontext.UserProfile(ctx)
	req := &models.RegisterRequest{
		EventID:     eventID,
		UserID:      requestcontext.UserID(ctx),
		HolderName:  firstNonEmpty(body.HolderName, profile.Name),
		HolderEmail: firstNonEmpty(body.HolderEmail, profile.Email),
	}

	reg, err := h.registrations.Register(ctx, req)
	if err != nil {
		h.writeServiceError(ctx, w, "registration failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, models.ToResponse(reg))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToResponse(reg))
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, "cancel registration failed", h.registrations.Cancel)
}

func (h *Handler) handleRegenerateQR(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, "regenerate qr failed", h.registrations.RegenerateQR)
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	registrationID, err := id.ParseRegistrationID(chi.URLParam(r, "registrationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	reg, err := h.registrations.Confirm(ctx, registrationID)
	if err != nil {
		h.writeServiceError(ctx, w, "confirm registration failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToResponse(reg))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	scope, err := scopeFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	regs, err := h.registrations.ListByEvent(ctx, eventID, scope)
	if err != nil {
		h.writeServiceError(ctx, w, "list registrations failed", err)
		return
	}
	out := make([]*models.RegistrationResponse, 0, len(regs))
	for _, reg := range regs {
		resp := models.ToResponse(reg)
		resp.QRCodeData = ""
		out = append(out, resp)
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"registrations": out})
}

type registrationAction func(ctx context.Context, registrationID id.RegistrationID) (*models.Registration, error)

// act runs fn on a registration the caller owns, or any registration for admins.
func (h *Handler) act(w http.ResponseWriter, r *http.Request, msg string, fn registrationAction) {
	ctx := r.Context()
	reg, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	updated, err := fn(ctx, reg.ID)
	if err != nil {
		h.writeServiceError(ctx, w, msg, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToResponse(updated))
}

// loadOwned hides registrations of other attendees behind not_found.
func (h *Handler) loadOwned(w http.ResponseWriter, r *http.Request) (*models.Registration, bool) {
	ctx := r.Context()
	registrationID, err := id.ParseRegistrationID(chi.URLParam(r, "registrationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return nil, false
	}
	reg, err := h.registrations.Get(ctx, registrationID)
	if err != nil {
		h.writeServiceError(ctx, w, "get registration failed", err)
		return nil, false
	}
	if !requestcontext.IsAdmin(ctx) && reg.UserID != requestcontext.UserID(ctx) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "registration not found"))
		return nil, false
	}
	return reg, true
}

func scopeFromQuery(r *http.Request) (models.Scope, error) {
	q := r.URL.Query()
	var scope models.Scope
	if raw := q.Get("status"); raw != "" {
		status, err := models.ParseStatus(raw)
		if err != nil {
			return scope, err
		}
		scope.Status = &status
	}
	if raw := q.Get("checked_in"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return scope, dErrors.New(dErrors.CodeInvalidInput, "checked_in must be a boolean")
		}
		scope.CheckedIn = &v
	}
	scope.Query = q.Get("q")
	return scope, nil
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "error", err, "request_id", middleware.GetRequestID(ctx))
	}
	httputil.WriteError(w, err)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

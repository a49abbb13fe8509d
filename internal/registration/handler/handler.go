package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"startingline/internal/registration/models"
	"startingline/internal/registration/service"
	id "startingline/pkg/domain"
	dErrors "startingline/pkg/domain-errors"
	"startingline/pkg/platform/httputil"
	"startingline/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Registrar

// Registrar is the registration coordinator as seen by HTTP.
type Registrar interface {
	Register(ctx context.Context, cart *models.Cart) (*models.Result, error)
	Capacity(ctx context.Context, distanceID id.DistanceID) (*models.CapacityView, error)
}

type Handler struct {
	registrar Registrar
	validate  *validator.Validate
	logger    *slog.Logger
	submit    func(http.Handler) http.Handler
}

// New builds the registration handler. submit wraps the submission route
// and may be nil.
func New(registrar Registrar, validate *validator.Validate, logger *slog.Logger, submit func(http.Handler) http.Handler) *Handler {
	if validate == nil {
		validate = NewValidator()
	}
	if submit == nil {
		submit = func(next http.Handler) http.Handler { return next }
	}
	return &Handler{
		registrar: registrar,
		validate:  validate,
		logger:    logger,
		submit:    submit,
	}
}

// Register mounts the registration routes.
func (h *Handler) Register(r chi.Router) {
	r.With(h.submit).Post("/registrations", h.handleRegister)
	r.Get("/distances/{id}/capacity", h.handleCapacity)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var req RegisterRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid registration request",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	if err := h.validate.StructCtx(ctx, &req); err != nil {
		httputil.WriteError(w, validationError(err))
		return
	}
	cart, err := req.ToCart()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.registrar.Register(ctx, cart)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusCreated, service.AssembleResult(result))
}

func (h *Handler) handleCapacity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	distanceID, err := id.ParseDistanceID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid distance id"))
		return
	}

	view, err := h.registrar.Capacity(ctx, distanceID)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "failed to load capacity",
				"error", err,
				"distance_id", distanceID.String(),
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, toCapacityResponse(view))
}

// Package handler exposes a signed-in account's saved participants so a
// returning runner can prefill the next checkout.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	accountmodels "startingline/internal/account/models"
	"startingline/internal/participant/models"
	id "startingline/pkg/domain"
	dErrors "startingline/pkg/domain-errors"
	"startingline/pkg/platform/httputil"
	"startingline/pkg/platform/sentinel"
	"startingline/pkg/requestcontext"
)

type ProfileFinder interface {
	FindByAccountID(ctx context.Context, accountID id.AccountID) (*accountmodels.Profile, error)
}

type Lister interface {
	List(ctx context.Context, profileID id.ProfileID) ([]*models.SavedParticipant, error)
}

type Handler struct {
	profiles ProfileFinder
	saved    Lister
	logger   *slog.Logger
}

func New(profiles ProfileFinder, saved Lister, logger *slog.Logger) *Handler {
	return &Handler{profiles: profiles, saved: saved, logger: logger}
}

// Register mounts the routes. requireAuth must populate the account in the
// request context.
func (h *Handler) Register(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.With(requireAuth).Get("/profiles/me/saved-participants", h.handleList)
}

type SavedParticipantResponse struct {
	ID                     string `json:"id"`
	FirstName              string `json:"first_name"`
	LastName               string `json:"last_name"`
	Email                  string `json:"email"`
	Mobile                 string `json:"mobile,omitempty"`
	DateOfBirth            string `json:"date_of_birth"`
	Disabled               bool   `json:"disabled"`
	MedicalAidName         string `json:"medical_aid_name,omitempty"`
	MedicalAidNumber       string `json:"medical_aid_number,omitempty"`
	EmergencyContactName   string `json:"emergency_contact_name,omitempty"`
	EmergencyContactNumber string `json:"emergency_contact_number,omitempty"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := requestcontext.AccountID(ctx)
	if accountID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	profile, err := h.profiles.FindByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Accounts that never checked out have nothing saved yet.
			httputil.WriteSuccess(w, http.StatusOK, []SavedParticipantResponse{})
			return
		}
		h.logger.ErrorContext(ctx, "failed to load profile",
			"error", err,
			"account_id", accountID.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile"))
		return
	}

	list, err := h.saved.List(ctx, profile.ID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list saved participants",
			"error", err,
			"profile_id", profile.ID.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}

	out := make([]SavedParticipantResponse, 0, len(list))
	for _, p := range list {
		out = append(out, SavedParticipantResponse{
			ID:                     p.ID.String(),
			FirstName:              p.FirstName,
			LastName:               p.LastName,
			Email:                  p.Email,
			Mobile:                 p.Mobile,
			DateOfBirth:            p.DateOfBirth.Format(time.DateOnly),
			Disabled:               p.Disabled,
			MedicalAidName:         p.MedicalAidName,
			MedicalAidNumber:       p.MedicalAidNumber,
			EmergencyContactName:   p.EmergencyContactName,
			EmergencyContactNumber: p.EmergencyContactNumber,
		})
	}
	httputil.WriteSuccess(w, http.StatusOK, out)
}

package countdown_api

import (
	"context"
	"fmt"
	"net/http"

	"ms-marketplace/internal/apperrors"
	"ms-marketplace/internal/auth"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"
	"ms-marketplace/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Timers interface {
	Start(ctx context.Context, name, subject string) (models.CountdownStatus, error)
	Status(ctx context.Context, name, subject string) (models.CountdownStatus, error)
	Cancel(ctx context.Context, name, subject string) error
}

type Handler struct {
	Timers Timers
	Logger *logger.Logger
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/countdowns/{name}", func(r chi.Router) {
		r.Post("/", h.Start)
		r.Get("/", h.Status)
		r.Delete("/", h.Cancel)
	})
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	userID := auth.UserID(r.Context())
	h.Logger.Info("API", fmt.Sprintf("StartCountdown: name=%s userID=%s", name, userID))

	status, err := h.Timers.Start(r.Context(), name, userID)
	if err != nil {
		h.fail(w, "StartCountdown", err)
		return
	}
	_ = utils.WriteSuccess(w, http.StatusCreated, "countdown started", status)
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	status, err := h.Timers.Status(r.Context(), name, auth.UserID(r.Context()))
	if err != nil {
		h.fail(w, "CountdownStatus", err)
		return
	}
	_ = utils.WriteSuccess(w, http.StatusOK, "countdown status", status)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := h.Timers.Cancel(r.Context(), name, auth.UserID(r.Context())); err != nil {
		h.fail(w, "CancelCountdown", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if apperrors.HTTPStatus(err) >= http.StatusInternalServerError {
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
	} else {
		h.Logger.Warn("API", fmt.Sprintf("%s: %v", op, err))
	}
	_ = utils.WriteError(w, err)
}

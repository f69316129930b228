package analytics_api

import (
	"context"
	"fmt"
	"net/http"

	"ms-marketplace/internal/analytics"
	"ms-marketplace/internal/apperrors"
	"ms-marketplace/internal/auth"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/utils"

	"github.com/go-chi/chi/v5"
)

type AnalyticsService interface {
	GetInstructorSummary(ctx context.Context, instructorID string) ([]analytics.CourseSummary, error)
	GetCourseAnalytics(ctx context.Context, instructorID, courseID string) (*analytics.CourseAnalytics, error)
}

// Handler serves sales analytics to course instructors.
type Handler struct {
	Service AnalyticsService
	Logger  *logger.Logger
}

func NewHandler(service AnalyticsService, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/analytics/courses", func(r chi.Router) {
		r.Get("/", h.GetInstructorSummary)
		r.Get("/{courseID}", h.GetCourseAnalytics)
	})
}

func (h *Handler) GetInstructorSummary(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	h.Logger.Info("API", fmt.Sprintf("GetInstructorSummary: userID=%s", userID))

	summary, err := h.Service.GetInstructorSummary(r.Context(), userID)
	if err != nil {
		h.fail(w, "GetInstructorSummary", err)
		return
	}
	_ = utils.WriteSuccess(w, http.StatusOK, "course sales summary", summary)
}

func (h *Handler) GetCourseAnalytics(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	userID := auth.UserID(r.Context())
	h.Logger.Info("API", fmt.Sprintf("GetCourseAnalytics: courseID=%s userID=%s", courseID, userID))

	result, err := h.Service.GetCourseAnalytics(r.Context(), userID, courseID)
	if err != nil {
		h.fail(w, "GetCourseAnalytics", err)
		return
	}
	_ = utils.WriteSuccess(w, http.StatusOK, "course analytics", result)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if apperrors.HTTPStatus(err) >= http.StatusInternalServerError {
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
	} else {
		h.Logger.Warn("API", fmt.Sprintf("%s: %v", op, err))
	}
	_ = utils.WriteError(w, err)
}

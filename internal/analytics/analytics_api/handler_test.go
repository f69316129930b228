package analytics_api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ms-marketplace/internal/analytics"
	"ms-marketplace/internal/analytics/analytics_api"
	"ms-marketplace/internal/apperrors"
	"ms-marketplace/internal/auth"
	"ms-marketplace/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAnalyticsService struct {
	mock.Mock
}

func (m *MockAnalyticsService) GetInstructorSummary(ctx context.Context, instructorID string) ([]analytics.CourseSummary, error) {
	args := m.Called(ctx, instructorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]analytics.CourseSummary), args.Error(1)
}

func (m *MockAnalyticsService) GetCourseAnalytics(ctx context.Context, instructorID, courseID string) (*analytics.CourseAnalytics, error) {
	args := m.Called(ctx, instructorID, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analytics.CourseAnalytics), args.Error(1)
}

func newRouter(svc *MockAnalyticsService) chi.Router {
	h := analytics_api.NewHandler(svc, logger.Nop())
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), "inst-1")))
		})
	})
	r.Route("/api", h.RegisterRoutes)
	return r
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestGetInstructorSummary(t *testing.T) {
	svc := new(MockAnalyticsService)
	svc.On("GetInstructorSummary", mock.Anything, "inst-1").
		Return([]analytics.CourseSummary{{CourseID: "go-101", Enrollments: 3, TotalRevenue: 300}}, nil)

	rec := get(newRouter(svc), "/api/analytics/courses")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []analytics.CourseSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, 3, body.Data[0].Enrollments)
	svc.AssertExpectations(t)
}

func TestGetCourseAnalytics(t *testing.T) {
	svc := new(MockAnalyticsService)
	svc.On("GetCourseAnalytics", mock.Anything, "inst-1", "go-101").
		Return(&analytics.CourseAnalytics{CourseID: "go-101", TotalRevenue: 180}, nil)

	rec := get(newRouter(svc), "/api/analytics/courses/go-101")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_revenue":180`)
}

func TestGetCourseAnalytics_NotInstructor(t *testing.T) {
	svc := new(MockAnalyticsService)
	svc.On("GetCourseAnalytics", mock.Anything, "inst-1", "k8s-201").
		Return(nil, apperrors.Forbidden("not_course_instructor", "You are not the instructor of this course"))

	rec := get(newRouter(svc), "/api/analytics/courses/k8s-201")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_course_instructor")
}

package analytics_test

import (
	"context"
	"testing"
	"time"

	"ms-marketplace/internal/analytics"
	"ms-marketplace/internal/apperrors"
	"ms-marketplace/internal/models"
	"ms-marketplace/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) *analytics.Service {
	t.Helper()
	bunDB := testutil.NewSQLite(t, (*models.Course)(nil), (*models.Order)(nil))
	ctx := context.Background()

	courses := []models.Course{
		{CourseID: "go-101", Title: "Go Basics", Price: 100, InstructorID: "inst-1", Published: true},
		{CourseID: "go-1010", Title: "Go Advanced", Price: 300, InstructorID: "inst-1"},
		{CourseID: "k8s-201", Title: "Kubernetes", Price: 300, InstructorID: "inst-2", Published: true},
	}
	_, err := bunDB.NewInsert().Model(&courses).Exec(ctx)
	require.NoError(t, err)

	day1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)
	orders := []models.Order{
		{OrderID: "o1", UserID: "u1", CourseIDs: []string{"go-101"}, Status: models.OrderCompleted, Subtotal: 100, Price: 100, CreatedAt: day1},
		{OrderID: "o2", UserID: "u2", CourseIDs: []string{"go-101", "k8s-201"}, Status: models.OrderCompleted, Subtotal: 400, Discount: 80, Price: 320, CouponCode: "SAVE20", CreatedAt: day2},
		{OrderID: "o3", UserID: "u3", CourseIDs: []string{"go-101"}, Status: models.OrderPending, Subtotal: 100, Price: 100, CreatedAt: day2},
		{OrderID: "o4", UserID: "u4", CourseIDs: []string{"go-1010"}, Status: models.OrderCompleted, Subtotal: 300, Price: 300, CreatedAt: day2},
	}
	_, err = bunDB.NewInsert().Model(&orders).Exec(ctx)
	require.NoError(t, err)

	return analytics.NewService(analytics.NewDB(bunDB))
}

func TestGetCourseAnalytics(t *testing.T) {
	svc := setup(t)

	got, err := svc.GetCourseAnalytics(context.Background(), "inst-1", "go-101")
	require.NoError(t, err)

	// o3 is pending and o4 is a different course with a similar ID
	assert.Equal(t, 2, got.Enrollments)
	// o1 full price plus a quarter of o2 (100 of 400 list)
	assert.Equal(t, 180.0, got.TotalRevenue)
	assert.Equal(t, 200.0, got.TotalBeforeDisc)

	require.Len(t, got.DailySales, 2)
	assert.Equal(t, "2026-03-01", got.DailySales[0].Date)
	assert.Equal(t, 100.0, got.DailySales[0].Revenue)
	assert.Equal(t, 80.0, got.DailySales[1].Revenue)

	require.Len(t, got.CouponUsage, 1)
	assert.Equal(t, "SAVE20", got.CouponUsage[0].CouponCode)
	assert.Equal(t, 1, got.CouponUsage[0].UsageCount)
	assert.Equal(t, 20.0, got.CouponUsage[0].TotalDiscount)
}

func TestGetCourseAnalytics_Ownership(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	_, err := svc.GetCourseAnalytics(ctx, "inst-1", "k8s-201")
	assert.Equal(t, apperrors.KindBlocked, apperrors.KindOf(err))

	_, err = svc.GetCourseAnalytics(ctx, "inst-1", "nope")
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestGetInstructorSummary(t *testing.T) {
	svc := setup(t)

	summary, err := svc.GetInstructorSummary(context.Background(), "inst-1")
	require.NoError(t, err)
	require.Len(t, summary, 2)

	assert.Equal(t, "go-1010", summary[0].CourseID)
	assert.Equal(t, 300.0, summary[0].TotalRevenue)
	assert.False(t, summary[0].Published)
	assert.Equal(t, "go-101", summary[1].CourseID)
	assert.Equal(t, 2, summary[1].Enrollments)

	none, err := svc.GetInstructorSummary(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

package analytics

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"ms-marketplace/internal/apperrors"
	"ms-marketplace/internal/models"
	"ms-marketplace/internal/pricing"
)

type DBLayer interface {
	GetCoursesByInstructor(ctx context.Context, instructorID string) ([]models.Course, error)
	GetCourse(ctx context.Context, courseID string) (*models.Course, error)
	GetCompletedOrdersWithCourse(ctx context.Context, courseID string) ([]models.Order, error)
	GetCoursePrices(ctx context.Context, ids []string) (map[string]float64, error)
}

// Service handles analytics operations
type Service struct {
	db DBLayer
}

// NewService creates a new analytics service
func NewService(db DBLayer) *Service {
	return &Service{db: db}
}

// CourseAnalytics is the sales breakdown of one course.
type CourseAnalytics struct {
	CourseID        string              `json:"course_id"`
	Title           string              `json:"title"`
	Enrollments     int                 `json:"enrollments"`
	TotalRevenue    float64             `json:"total_revenue"`
	TotalBeforeDisc float64             `json:"total_before_discounts"`
	DailySales      []DailySalesMetrics `json:"daily_sales"`
	CouponUsage     []CouponUsage       `json:"coupon_usage"`
}

// CourseSummary contains basic revenue information for a course
type CourseSummary struct {
	CourseID     string  `json:"course_id"`
	Title        string  `json:"title"`
	Published    bool    `json:"published"`
	Enrollments  int     `json:"enrollments"`
	TotalRevenue float64 `json:"total_revenue"`
}

// DailySalesMetrics contains metrics for a single day
type DailySalesMetrics struct {
	Date        string  `json:"date"`
	Revenue     float64 `json:"revenue"`
	Enrollments int     `json:"enrollments"`
}

// CouponUsage tracks how often each coupon was used to buy the course
type CouponUsage struct {
	CouponCode    string  `json:"coupon_code"`
	UsageCount    int     `json:"usage_count"`
	TotalDiscount float64 `json:"total_discount_amount"`
}

// GetCourseAnalytics returns sales analytics for a course owned by instructorID.
func (s *Service) GetCourseAnalytics(ctx context.Context, instructorID, courseID string) (*CourseAnalytics, error) {
	course, err := s.ownedCourse(ctx, instructorID, courseID)
	if err != nil {
		return nil, err
	}

	orders, err := s.db.GetCompletedOrdersWithCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	prices, err := s.pricesFor(ctx, orders)
	if err != nil {
		return nil, err
	}

	result := &CourseAnalytics{
		CourseID:    course.CourseID,
		Title:       course.Title,
		DailySales:  []DailySalesMetrics{},
		CouponUsage: []CouponUsage{},
	}
	daily := map[string]*DailySalesMetrics{}
	coupons := map[string]*CouponUsage{}

	for _, o := range orders {
		share := courseShare(o, courseID, prices)
		gross := prices[courseID]
		revenue := o.Price * share

		result.Enrollments++
		result.TotalRevenue += revenue
		result.TotalBeforeDisc += gross

		day := o.CreatedAt.UTC().Format("2006-01-02")
		if daily[day] == nil {
			daily[day] = &DailySalesMetrics{Date: day}
		}
		daily[day].Revenue += revenue
		daily[day].Enrollments++

		if o.CouponCode != "" {
			if coupons[o.CouponCode] == nil {
				coupons[o.CouponCode] = &CouponUsage{CouponCode: o.CouponCode}
			}
			coupons[o.CouponCode].UsageCount++
			coupons[o.CouponCode].TotalDiscount += o.Discount * share
		}
	}

	result.TotalRevenue = pricing.Round(result.TotalRevenue)
	result.TotalBeforeDisc = pricing.Round(result.TotalBeforeDisc)
	for _, d := range daily {
		d.Revenue = pricing.Round(d.Revenue)
		result.DailySales = append(result.DailySales, *d)
	}
	sort.Slice(result.DailySales, func(i, j int) bool { return result.DailySales[i].Date < result.DailySales[j].Date })
	for _, c := range coupons {
		c.TotalDiscount = pricing.Round(c.TotalDiscount)
		result.CouponUsage = append(result.CouponUsage, *c)
	}
	sort.Slice(result.CouponUsage, func(i, j int) bool { return result.CouponUsage[i].CouponCode < result.CouponUsage[j].CouponCode })

	return result, nil
}

// GetInstructorSummary returns one line per course taught by instructorID.
func (s *Service) GetInstructorSummary(ctx context.Context, instructorID string) ([]CourseSummary, error) {
	courses, err := s.db.GetCoursesByInstructor(ctx, instructorID)
	if err != nil {
		return nil, err
	}

	summaries := make([]CourseSummary, 0, len(courses))
	for _, c := range courses {
		a, err := s.GetCourseAnalytics(ctx, instructorID, c.CourseID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, CourseSummary{
			CourseID:     c.CourseID,
			Title:        c.Title,
			Published:    c.Published,
			Enrollments:  a.Enrollments,
			TotalRevenue: a.TotalRevenue,
		})
	}
	return summaries, nil
}

func (s *Service) ownedCourse(ctx context.Context, instructorID, courseID string) (*models.Course, error) {
	course, err := s.db.GetCourse(ctx, courseID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("course_not_found", "Course not found")
	}
	if err != nil {
		return nil, err
	}
	if course.InstructorID != instructorID {
		return nil, apperrors.Forbidden("not_course_instructor", "You are not the instructor of this course")
	}
	return course, nil
}

func (s *Service) pricesFor(ctx context.Context, orders []models.Order) (map[string]float64, error) {
	seen := map[string]bool{}
	var ids []string
	for _, o := range orders {
		for _, id := range o.CourseIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return s.db.GetCoursePrices(ctx, ids)
}

// courseShare is the fraction of an order attributed to one course, by list
// price. Carts of free courses split evenly.
func courseShare(o models.Order, courseID string, prices map[string]float64) float64 {
	var total float64
	for _, id := range o.CourseIDs {
		total += prices[id]
	}
	if total <= 0 {
		return 1 / float64(len(o.CourseIDs))
	}
	return prices[courseID] / total
}

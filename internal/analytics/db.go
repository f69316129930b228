package analytics

import (
	"context"
	"fmt"

	"ms-marketplace/internal/models"

	"github.com/uptrace/bun"
)

// DB handles analytics database operations
type DB struct {
	bun *bun.DB
}

// NewDB creates a new analytics DB handler
func NewDB(db *bun.DB) *DB {
	return &DB{bun: db}
}

// GetCoursesByInstructor → every course taught by an instructor, published or not
func (db *DB) GetCoursesByInstructor(ctx context.Context, instructorID string) ([]models.Course, error) {
	courses := []models.Course{}
	err := db.bun.NewSelect().
		Model(&courses).
		Where("instructor_id = ?", instructorID).
		Order("title ASC").
		Scan(ctx)
	return courses, err
}

// GetCourse → one course by ID
func (db *DB) GetCourse(ctx context.Context, courseID string) (*models.Course, error) {
	var course models.Course
	err := db.bun.NewSelect().
		Model(&course).
		Where("course_id = ?", courseID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// GetCompletedOrdersWithCourse → completed orders whose cart contains the course.
// The text match narrows the scan; the exact membership check happens in Go.
func (db *DB) GetCompletedOrdersWithCourse(ctx context.Context, courseID string) ([]models.Order, error) {
	var candidates []models.Order
	err := db.bun.NewSelect().
		Model(&candidates).
		Where("status = ?", models.OrderCompleted).
		Where("CAST(course_ids AS TEXT) LIKE ?", fmt.Sprintf("%%%q%%", courseID)).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	orders := make([]models.Order, 0, len(candidates))
	for _, o := range candidates {
		for _, id := range o.CourseIDs {
			if id == courseID {
				orders = append(orders, o)
				break
			}
		}
	}
	return orders, nil
}

// GetCoursePrices → list prices of the given courses keyed by ID
func (db *DB) GetCoursePrices(ctx context.Context, ids []string) (map[string]float64, error) {
	prices := make(map[string]float64, len(ids))
	if len(ids) == 0 {
		return prices, nil
	}
	var courses []models.Course
	err := db.bun.NewSelect().
		Model(&courses).
		Column("course_id", "price").
		Where("course_id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range courses {
		prices[c.CourseID] = c.Price.Float()
	}
	return prices, nil
}

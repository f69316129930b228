package db

import (
	"context"
	"fmt"

	"ms-marketplace/internal/apperrors"
	"ms-marketplace/internal/models"

	"github.com/uptrace/bun"
)

type CourseDB struct {
	Bun *bun.DB
}

// GetCoursesByIDs → fetch published courses in the order they were asked for.
// Duplicate IDs are collapsed; any missing ID is a not-found error.
func (d *CourseDB) GetCoursesByIDs(ctx context.Context, ids []string) ([]models.Course, error) {
	if len(ids) == 0 {
		return []models.Course{}, nil
	}

	var courses []models.Course
	err := d.Bun.NewSelect().
		Model(&courses).
		Where("course_id IN (?)", bun.In(ids)).
		Where("published = ?", true).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.Course, len(courses))
	for _, c := range courses {
		byID[c.CourseID] = c
	}

	seen := make(map[string]bool, len(ids))
	result := make([]models.Course, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		c, ok := byID[id]
		if !ok {
			return nil, apperrors.NotFound("course_not_found", fmt.Sprintf("Course %s is not available", id))
		}
		result = append(result, c)
	}
	return result, nil
}

// CreateCourse → insert new course
func (d *CourseDB) CreateCourse(ctx context.Context, course models.Course) error {
	_, err := d.Bun.NewInsert().Model(&course).Exec(ctx)
	return err
}

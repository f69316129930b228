package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// Price is a course price. Decoding never fails: anything that is not a
// number, or a string holding one, becomes 0.
type Price float64

func (p *Price) UnmarshalJSON(data []byte) error {
	*p = 0
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}

	switch val := v.(type) {
	case float64:
		*p = Price(val)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			*p = Price(f)
		}
	}
	if math.IsNaN(float64(*p)) || math.IsInf(float64(*p), 0) {
		*p = 0
	}
	return nil
}

func (p Price) Float() float64 {
	return float64(p)
}

type Course struct {
	bun.BaseModel `bun:"table:courses"`

	CourseID     string    `bun:"course_id,pk" json:"id"`
	Title        string    `bun:"title,notnull" json:"title"`
	Price        Price     `bun:"price" json:"price"`
	Instructor   string    `bun:"instructor" json:"instructor"`
	InstructorID string    `bun:"instructor_id" json:"instructor_id"`
	Category     string    `bun:"category" json:"category"`
	Published    bool      `bun:"published" json:"published"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// LineItem is one course in a cart.
type LineItem struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Price      Price  `json:"price"`
	Instructor string `json:"instructor"`
}

func (c Course) LineItem() LineItem {
	return LineItem{
		ID:         c.CourseID,
		Title:      c.Title,
		Price:      c.Price,
		Instructor: c.Instructor,
	}
}

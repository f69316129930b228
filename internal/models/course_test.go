package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrice_UnmarshalCoercesNonNumeric(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want float64
	}{
		{"number", `149.9`, 149.9},
		{"numeric string", `"49.50"`, 49.5},
		{"garbage string", `"free"`, 0},
		{"null", `null`, 0},
		{"bool", `true`, 0},
		{"object", `{"amount": 10}`, 0},
		{"NaN string", `"NaN"`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var item LineItem
			err := json.Unmarshal([]byte(`{"id":"c1","price":`+tt.raw+`}`), &item)
			require.NoError(t, err)
			assert.Equal(t, tt.want, item.Price.Float())
		})
	}
}

func TestCourse_LineItem(t *testing.T) {
	c := Course{CourseID: "go-101", Title: "Go Basics", Price: 49, Instructor: "Ada"}
	item := c.LineItem()
	assert.Equal(t, LineItem{ID: "go-101", Title: "Go Basics", Price: 49, Instructor: "Ada"}, item)
}

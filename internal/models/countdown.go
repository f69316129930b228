package models

import "time"

type CountdownStatus struct {
	Name             string    `json:"name"`
	Active           bool      `json:"active"`
	RemainingSeconds int       `json:"remaining_seconds"`
	ExpiresAt        time.Time `json:"expires_at,omitempty"`
}

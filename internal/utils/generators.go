package utils

import (
	"os"
	"strings"

	"github.com/google/uuid"
)

// NewOrderID returns a fresh order identifier.
func NewOrderID() string {
	return "ord_" + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// NewInstanceID names this process for cross-instance messaging.
func NewInstanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "marketplace"
	}
	return host + "-" + uuid.New().String()[:8]
}

package utils

import (
	"github.com/google/uuid"
)

// NewID returns a random identifier for entities and sessions.
func NewID() string {
	return uuid.New().String()
}

package util

import "github.com/google/uuid"

// NewID returns a new random identifier suitable for goals and runs.
func NewID() string {
	return uuid.NewString()
}

// Package capability implements the pluggable tool subsystem that lets
// agents invoke structured capabilities (APIs, computations, side effects)
// with schema validated inputs and consistent error handling.
package capability

import (
	"fmt"

	"github.com/hupe1980/goalmesh/internal/util"
)

// ValidationError represents input validation errors with detailed
// information.
type ValidationError = util.ValidationError

// CapabilityError represents errors that occur during capability execution.
type CapabilityError struct {
	Capability string `json:"capability"`        // Name of the capability that failed
	Message    string `json:"message"`           // Error message
	Code       string `json:"code"`              // Error code for categorization
	Details    any    `json:"details,omitempty"` // Additional error details
}

func (e *CapabilityError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("capability error [%s] in %s: %s", e.Code, e.Capability, e.Message)
	}
	return fmt.Sprintf("capability error in %s: %s", e.Capability, e.Message)
}

// NewCapabilityError creates a new CapabilityError with the specified details.
func NewCapabilityError(capability, message, code string) *CapabilityError {
	return &CapabilityError{
		Capability: capability,
		Message:    message,
		Code:       code,
	}
}

package capability

import (
	"context"
	"fmt"

	"github.com/hupe1980/goalmesh/core"
	"github.com/hupe1980/goalmesh/internal/util"
)

// FunctionCapability is a generic adapter that exposes a plain Go function
// as a capability.
//
// Responsibilities:
//   - Holds a lightweight JSON-Schema-like input specification
//   - Validates step inputs against that schema before execution
//   - Invokes the wrapped function with the owning agent's memory log
//   - Normalizes error handling so callers receive *CapabilityError with
//     consistent codes:
//     VALIDATION_ERROR -> schema / input mismatch
//     EXECUTION_ERROR  -> underlying function returned an error
//     (custom codes preserved if the function returns *CapabilityError)
//
// A FunctionCapability has no internal mutable state after construction and
// is safe for concurrent use by multiple goroutines.
type FunctionCapability struct {
	// Capability identifier (snake_case recommended)
	name string
	// Human-readable description shown to the planning service
	description string
	// JSON schema describing accepted inputs
	inputSchema map[string]any
	// User supplied implementation
	fn func(ctx context.Context, input map[string]any, mem core.Memory) (core.StepResult, error)
}

// Compile-time interface assertion.
var _ core.Capability = (*FunctionCapability)(nil)

// NewFunctionCapability constructs a FunctionCapability from explicit schema
// and function.
//
// Example:
//
//	weather := NewFunctionCapability(
//	  "check_weather",
//	  "Check the weather forecast for a destination",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "destination": map[string]any{"type": "string"},
//	      "days":        map[string]any{"type": "integer"},
//	    },
//	    "required": []string{"destination"},
//	  },
//	  func(ctx context.Context, input map[string]any, mem core.Memory) (core.StepResult, error) {
//	    return core.OKResult(map[string]any{"forecast": "sunny"}), nil
//	  },
//	)
func NewFunctionCapability(
	name, description string,
	inputSchema map[string]any,
	fn func(ctx context.Context, input map[string]any, mem core.Memory) (core.StepResult, error),
) *FunctionCapability {
	return &FunctionCapability{
		name:        name,
		description: description,
		inputSchema: inputSchema,
		fn:          fn,
	}
}

// NewFunctionCapabilityFromStruct derives the input schema from a struct
// using reflection, equivalent to util.CreateSchema(structType).
func NewFunctionCapabilityFromStruct(
	name, description string,
	structType any,
	fn func(ctx context.Context, input map[string]any, mem core.Memory) (core.StepResult, error),
) *FunctionCapability {
	return NewFunctionCapability(name, description, util.CreateSchema(structType), fn)
}

// Name returns the unique step type this capability serves.
func (c *FunctionCapability) Name() string { return c.name }

// Description returns the short natural language description exposed to the
// planning service.
func (c *FunctionCapability) Description() string { return c.description }

// InputSchema returns the (minimal) JSON schema describing expected inputs.
func (c *FunctionCapability) InputSchema() map[string]any { return c.inputSchema }

// Execute validates the provided input against the declared schema then
// invokes the underlying function. Validation failures surface as an
// error-shaped StepResult since a malformed input will not become valid on
// retry; execution failures are wrapped as *CapabilityError so the executor
// retries them.
func (c *FunctionCapability) Execute(ctx context.Context, input map[string]any, mem core.Memory) (core.StepResult, error) {
	if err := util.ValidateInput(input, c.inputSchema); err != nil {
		return core.ErrorResult(fmt.Sprintf("input validation failed for %s: %v", c.name, err)), nil
	}

	result, err := c.fn(ctx, input, mem)
	if err != nil {
		if capErr, ok := err.(*CapabilityError); ok {
			return core.StepResult{}, capErr
		}
		return core.StepResult{}, &CapabilityError{
			Capability: c.name,
			Message:    err.Error(),
			Code:       "EXECUTION_ERROR",
		}
	}
	return result, nil
}

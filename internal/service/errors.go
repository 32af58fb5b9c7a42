package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrVersionConflict = errors.New("offer version conflict")
)

// FieldError is a single field-level validation finding.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// RouteValidationError carries every field error found while building or
// consuming a route, so a caller sees the whole set at once.
type RouteValidationError struct {
	Errors []FieldError
}

func (e *RouteValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return "route validation failed: " + strings.Join(parts, "; ")
}

// BusinessRuleError marks a structurally valid request that violates a
// domain rule, e.g. an illegal status transition.
type BusinessRuleError struct {
	Code    string
	Message string
}

func (e *BusinessRuleError) Error() string {
	return e.Message
}

// CostCalculationError wraps an unexpected failure during cost computation,
// preserving the original message.
type CostCalculationError struct {
	Op    string
	Cause error
}

func (e *CostCalculationError) Error() string {
	return fmt.Sprintf("cost calculation failed during %s: %v", e.Op, e.Cause)
}

func (e *CostCalculationError) Unwrap() error {
	return e.Cause
}

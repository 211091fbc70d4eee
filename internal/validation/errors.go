// Package validation holds the error taxonomy shared by the calculators and the API layer.
package validation

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrInvalidInput marks out-of-range or inconsistent input. Every Errors value unwraps to it.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound marks absent reference data, such as an unknown crop.
	ErrNotFound = errors.New("not found")

	// ErrUpstreamUnavailable marks a failed call to an external data provider.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrNumericDomain marks a computation that left its mathematical domain.
	ErrNumericDomain = errors.New("numeric domain error")
)

// FieldError represents a single violated input bound
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Errors is a list of field errors returned as one error.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Error()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e Errors) Unwrap() error {
	return ErrInvalidInput
}

// Collector accumulates field errors for a single request.
type Collector struct {
	errs Errors
}

// Add records a field error with the given code.
func (c *Collector) Add(field, code, format string, args ...interface{}) {
	c.errs = append(c.errs, FieldError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
	})
}

// Range records an OUT_OF_RANGE error when value lies outside [min, max].
// NaN and infinities are reported as NOT_FINITE.
func (c *Collector) Range(field string, value, min, max float64) {
	if !c.Finite(field, value) {
		return
	}
	if value < min || value > max {
		c.Add(field, "OUT_OF_RANGE", "must be between %g and %g, got %g", min, max, value)
	}
}

// Positive records a NOT_POSITIVE error when value <= 0.
func (c *Collector) Positive(field string, value float64) {
	if !c.Finite(field, value) {
		return
	}
	if value <= 0 {
		c.Add(field, "NOT_POSITIVE", "must be greater than 0, got %g", value)
	}
}

// NonNegative records a NEGATIVE error when value < 0.
func (c *Collector) NonNegative(field string, value float64) {
	if !c.Finite(field, value) {
		return
	}
	if value < 0 {
		c.Add(field, "NEGATIVE", "must be >= 0, got %g", value)
	}
}

// Finite records a NOT_FINITE error for NaN or an infinity and reports whether value passed.
func (c *Collector) Finite(field string, value float64) bool {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		c.Add(field, "NOT_FINITE", "must be a finite number, got %g", value)
		return false
	}
	return true
}

// OneOf records an UNSUPPORTED_VALUE error when value is not in allowed.
func (c *Collector) OneOf(field, value string, allowed ...string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	c.Add(field, "UNSUPPORTED_VALUE", "must be one of [%s], got %q", strings.Join(allowed, ", "), value)
}

// Err returns the collected errors, or nil when there are none.
func (c *Collector) Err() error {
	if len(c.errs) == 0 {
		return nil
	}
	out := make(Errors, len(c.errs))
	copy(out, c.errs)
	return out
}

// Fields extracts the field errors from err, if any.
func Fields(err error) []FieldError {
	var errs Errors
	if errors.As(err, &errs) {
		return errs
	}
	return nil
}

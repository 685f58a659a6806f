// Package cerr defines the four fatal error kinds the backend can raise.
// None are recoverable inside the compiler; they propagate to the caller
// unchanged, matching the "fatal to the compilation unit" contract.
package cerr

import "fmt"

// ConfigurationError signals an unsupported thread count or a malformed
// Layout, detected before any segment work begins.
type ConfigurationError struct {
	Reason string
	Cause  error
}

func (e *ConfigurationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Cause }

// Configuration builds a ConfigurationError, optionally wrapping cause.
func Configuration(reason string, cause error) error {
	return &ConfigurationError{Reason: reason, Cause: cause}
}

// EncodingError signals an operand that exceeds the field width the Layout
// assigned to it.
type EncodingError struct {
	Operand string
	Value   uint64
	Width   int
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding error: operand %s value %d overflows %d-bit field", e.Operand, e.Value, e.Width)
}

// Encoding builds an EncodingError for operand exceeding a width-bit field.
func Encoding(operand string, value uint64, width int) error {
	return &EncodingError{Operand: operand, Value: value, Width: width}
}

// IOError signals a read/write failure on any stream or store.
type IOError struct {
	Op    string
	Cause error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io error during %s: %v", e.Op, e.Cause)
}

func (e *IOError) Unwrap() error { return e.Cause }

// IO wraps cause as a fatal IOError encountered while performing op.
func IO(op string, cause error) error {
	if cause == nil {
		return nil
	}
	return &IOError{Op: op, Cause: cause}
}

// InvariantViolation signals that tile grouping produced an impossible
// shape, or that a segment or its store received an operation it cannot
// service in its current state (an emit after Close, a read before Close).
type InvariantViolation struct {
	Reason string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation: %s", e.Reason)
}

// Invariant builds an InvariantViolation with the given reason.
func Invariant(reason string) error {
	return &InvariantViolation{Reason: reason}
}

package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCode represents a specific error type for timetable operations.
type ErrorCode string

const (
	// ErrCodeMalformedTable indicates a cell whose field count matches no session layout.
	// Callers degrade to best-effort extraction.
	ErrCodeMalformedTable ErrorCode = "MALFORMED_TABLE"
	// ErrCodeUnknownWeekday indicates a target date outside the weekday table.
	ErrCodeUnknownWeekday ErrorCode = "UNKNOWN_WEEKDAY"
	// ErrCodeRecurrenceParse indicates a date token rule of unknown shape.
	// The rule is treated as never active.
	ErrCodeRecurrenceParse ErrorCode = "RECURRENCE_PARSE"
	// ErrCodeExtractionFailed indicates the source document could not be read as a grid.
	ErrCodeExtractionFailed ErrorCode = "EXTRACTION_FAILED"
	// ErrCodeInvalidConfig indicates invalid configuration values.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	// ErrCodeDeliveryFailed indicates the transport refused a message.
	ErrCodeDeliveryFailed ErrorCode = "DELIVERY_FAILED"
)

// ScheduleError represents a structured error for timetable operations.
type ScheduleError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *ScheduleError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ScheduleError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *ScheduleError) WithContext(key string, value interface{}) *ScheduleError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// GetCode returns the error code.
func (e *ScheduleError) GetCode() ErrorCode {
	return e.Code
}

// MalformedTable creates a malformed table error for the given cell text.
func MalformedTable(msg string, cell string) *ScheduleError {
	return (&ScheduleError{Code: ErrCodeMalformedTable, Message: msg}).WithContext("cell", cell)
}

// UnknownWeekday creates an unknown weekday error.
func UnknownWeekday(day time.Weekday) *ScheduleError {
	return &ScheduleError{
		Code:    ErrCodeUnknownWeekday,
		Message: fmt.Sprintf("weekday not in timetable: %d", int(day)),
	}
}

// RecurrenceParse creates a recurrence parse error for one rule.
func RecurrenceParse(rule string, cause error) *ScheduleError {
	return (&ScheduleError{
		Code:    ErrCodeRecurrenceParse,
		Message: fmt.Sprintf("unrecognized date rule %q", rule),
		Cause:   cause,
	}).WithContext("rule", rule)
}

// ExtractionFailed creates an extraction error.
func ExtractionFailed(path string, cause error) *ScheduleError {
	return (&ScheduleError{Code: ErrCodeExtractionFailed, Message: "failed to extract timetable grid", Cause: cause}).
		WithContext("path", path)
}

// InvalidConfig creates an invalid configuration error.
func InvalidConfig(msg string) *ScheduleError {
	return &ScheduleError{Code: ErrCodeInvalidConfig, Message: msg}
}

// DeliveryFailed creates a delivery error.
func DeliveryFailed(msg string, cause error) *ScheduleError {
	return &ScheduleError{Code: ErrCodeDeliveryFailed, Message: msg, Cause: cause}
}

// IsCode checks if an error, or any error it wraps or joins, is of a specific code.
func IsCode(err error, code ErrorCode) bool {
	switch e := err.(type) {
	case nil:
		return false
	case *ScheduleError:
		return e.Code == code || IsCode(e.Cause, code)
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if IsCode(inner, code) {
				return true
			}
		}
		return false
	}
	return IsCode(stderrors.Unwrap(err), code)
}

// GetCodeFromError extracts the code of the first ScheduleError in err's tree.
// Returns the provided default code if there is none.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	var se *ScheduleError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return defaultCode
}

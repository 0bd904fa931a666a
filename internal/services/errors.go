package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrBusiness      = errors.New("business error")
	ErrExternal      = errors.New("external service error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// BusinessError is a failure that belongs to one work item. The batch runner
// records it on the item and continues with the next one.
type BusinessError struct {
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *BusinessError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrBusiness}
	}
	return []error{ErrBusiness, e.Err}
}

// Business returns a BusinessError with a formatted message.
func Business(format string, args ...any) error {
	return &BusinessError{Message: fmt.Sprintf(format, args...)}
}

// AsBusiness tags err as a business error, keeping it in the chain.
func AsBusiness(message string, err error) error {
	return &BusinessError{Message: strings.TrimSpace(message), Err: err}
}

// IsBusiness reports whether err carries the business marker.
func IsBusiness(err error) bool {
	return errors.Is(err, ErrBusiness)
}

// Message returns the text stored on a failed work item: the business message
// when err is a BusinessError, the full error text otherwise.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var business *BusinessError
	if errors.As(err, &business) {
		return business.Error()
	}
	return strings.TrimSpace(err.Error())
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

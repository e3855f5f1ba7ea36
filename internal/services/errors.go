package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"reflect"
	"sort"
	"strings"

	"shopfront/internal/repositories"

	"github.com/go-playground/validator/v10"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrInvalidSize       = errors.New("invalid size")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrSizeNotFound      = errors.New("size not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrConflict          = errors.New("already exists")
	ErrTransient         = errors.New("storage temporarily unavailable")
)

// ValidationError carries one message per offending field. It matches
// ErrValidation with errors.Is.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, e.Fields[k])
	}
	return e.Message + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateInput runs the struct tags of s and converts failures into a
// ValidationError keyed by JSON field name.
func validateInput(s interface{}, message string) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldKey(fe)] = fieldMessage(fe)
	}
	return &ValidationError{Message: message, Fields: fields}
}

func fieldKey(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters long", field, fe.Param())
	case "number":
		return fmt.Sprintf("%s must contain only digits", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	}
	return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
}

// storeError marks timeouts and connection failures as ErrTransient and
// passes everything else through.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %v", ErrTransient, err)
	case errors.As(err, &netErr):
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	return err
}

// productError maps repository sentinels for product lookups.
func productError(err error, productID string) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return fmt.Errorf("product %s: %w", productID, ErrNotFound)
	case errors.Is(err, repositories.ErrSizeNotFound):
		return fmt.Errorf("product %s: %w", productID, ErrInvalidSize)
	case errors.Is(err, repositories.ErrInsufficientStock):
		return fmt.Errorf("product %s: %w", productID, ErrInsufficientStock)
	case errors.Is(err, repositories.ErrDuplicate):
		return fmt.Errorf("product %s: %w", productID, ErrConflict)
	}
	return storeError(err)
}

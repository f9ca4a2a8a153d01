package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
)

// ConfigError reports malformed linkage or fusion configuration. It is
// raised while building components, before any record is processed.
type ConfigError struct {
	Component string
	Field     string
	index     *int
	Message   string
	cause     error
}

func NewConfigError(msg string) *ConfigError {
	return &ConfigError{Message: msg}
}

// NewConfigErrorf formats the message; a %w operand is kept as the cause.
func NewConfigErrorf(format string, args ...any) *ConfigError {
	wrapped := fmt.Errorf(format, args...)
	return &ConfigError{
		Message: wrapped.Error(),
		cause:   stderrors.Unwrap(wrapped),
	}
}

// WrapConfigError converts err into a ConfigError, keeping an existing one.
func WrapConfigError(err error) *ConfigError {
	if err == nil {
		return nil
	}

	var configErr *ConfigError
	if stderrors.As(err, &configErr) {
		return configErr
	}

	return &ConfigError{Message: err.Error(), cause: err}
}

func (e *ConfigError) Error() string {
	path := []string{}
	if e.Component != "" {
		path = append(path, e.Component)
	}
	if e.Field != "" {
		path = append(path, fmt.Sprintf("field '%s'", e.Field))
	}
	if e.index != nil {
		path = append(path, fmt.Sprintf("index %d", *e.index))
	}

	if len(path) == 0 {
		return e.Message
	}

	return strings.Join(path, " -> ") + ": " + e.Message
}

func (e *ConfigError) Unwrap() error {
	return e.cause
}

func (e *ConfigError) AddComponent(component string) *ConfigError {
	e.Component = component
	return e
}

func (e *ConfigError) AddField(field string) *ConfigError {
	e.Field = field
	return e
}

func (e *ConfigError) AddIndex(index int) *ConfigError {
	e.index = &index
	return e
}

func (e *ConfigError) ToHTTPError() *httperror.HTTPError {
	httpErr := httperror.NewHTTPError(http.StatusBadRequest, e.Error()).AddMetaValue("component", e.Component).AddMetaValue("field", e.Field)
	if e.index != nil {
		httpErr = httpErr.AddMetaValue("index", strconv.Itoa(*e.index))
	}
	return httpErr
}

func IsConfigError(err error) bool {
	var configErr *ConfigError
	return stderrors.As(err, &configErr)
}

package types

import (
	"errors"
	"fmt"
)

// ConfigError reports invalid pipeline parameters (chunk size/overlap etc).
type ConfigError struct {
	Param   string
	Message string
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Param, e.Message)
}

func NewConfigError(param, format string, args ...any) ConfigError {
	return ConfigError{Param: param, Message: fmt.Sprintf(format, args...)}
}

// ExternalServiceError wraps a failure of one of the external collaborators
// (embedding endpoint, vector store, reranker, LLM, web search).
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e ExternalServiceError) Unwrap() error {
	return e.Err
}

func NewExternalServiceError(service string, err error) ExternalServiceError {
	return ExternalServiceError{Service: service, Err: err}
}

// EmptyResponseError is returned when no usable text could be recovered from
// a model response.
type EmptyResponseError struct {
	Source string
}

func (e EmptyResponseError) Error() string {
	return fmt.Sprintf("no text recoverable from %s response", e.Source)
}

// IsRetryable reports whether an error is worth another attempt. Validation
// and config errors never are; external service failures may be transient.
func IsRetryable(err error) bool {
	var ve ValidationError
	var ce ConfigError
	var ee EmptyResponseError
	if errors.As(err, &ve) || errors.As(err, &ce) || errors.As(err, &ee) {
		return false
	}
	return true
}

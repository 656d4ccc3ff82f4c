// Package apierr defines the error taxonomy shared by every HTTP surface and
// renders it as {"error":{"code","message"}}.
package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindUpstream
	KindConfig
)

// Code returns the wire code for k.
func (k Kind) Code() string {
	switch k {
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindNotFound:
		return "NOT_FOUND"
	case KindUpstream:
		return "UPSTREAM"
	case KindConfig:
		return "CONFIG"
	default:
		return "INTERNAL"
	}
}

// Status returns the HTTP status for k.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified error with a caller-safe message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind.Code(), e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind.Code(), e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Upstream(err error, message string) *Error {
	return &Error{Kind: KindUpstream, Message: message, Err: err}
}

func Config(err error, message string) *Error {
	return &Error{Kind: KindConfig, Message: message, Err: err}
}

func Internal(err error, message string) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

type body struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Write renders err. Unclassified errors are logged and reported as a generic
// INTERNAL message so storage details never reach the caller.
func Write(w http.ResponseWriter, err error) {
	var b body
	var e *Error
	if errors.As(err, &e) {
		b.Error.Code = e.Kind.Code()
		b.Error.Message = e.Message
		if e.Kind == KindInternal || e.Kind == KindConfig {
			log.Printf("[apierr] %v", err)
		}
	} else {
		e = &Error{Kind: KindInternal}
		b.Error.Code = e.Kind.Code()
		b.Error.Message = "Internal server error"
		log.Printf("[apierr] unclassified: %v", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Kind.Status())
	_ = json.NewEncoder(w).Encode(b)
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

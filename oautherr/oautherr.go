// Package oautherr defines the RFC 6749 §5.2 error taxonomy shared by
// every endpoint the authorization core exposes, plus the HTTP status
// each kind maps to.
package oautherr

import (
	"errors"
	"net/http"
)

// Kind is one of the error codes RFC 6749/7636/7662/7009 define for the
// token, authorize, introspection, and revocation endpoints.
type Kind string

const (
	InvalidRequest          Kind = "invalid_request"
	InvalidClient           Kind = "invalid_client"
	InvalidGrant            Kind = "invalid_grant"
	UnauthorizedClient      Kind = "unauthorized_client"
	UnsupportedGrantType    Kind = "unsupported_grant_type"
	InvalidScope            Kind = "invalid_scope"
	AccessDenied            Kind = "access_denied"
	ServerError             Kind = "server_error"
	TemporarilyUnavailable  Kind = "temporarily_unavailable"
	UnsupportedResponseType Kind = "unsupported_response_type"
)

// statusCodes maps each Kind to the HTTP status its endpoint must
// respond with. invalid_client additionally triggers a 401 with a
// WWW-Authenticate challenge when client authentication was attempted
// via the Authorization header; callers needing that header set it
// themselves, since oautherr only models the body shape.
var statusCodes = map[Kind]int{
	InvalidRequest:          http.StatusBadRequest,
	InvalidClient:           http.StatusUnauthorized,
	InvalidGrant:            http.StatusBadRequest,
	UnauthorizedClient:      http.StatusBadRequest,
	UnsupportedGrantType:    http.StatusBadRequest,
	InvalidScope:            http.StatusBadRequest,
	AccessDenied:            http.StatusForbidden,
	ServerError:             http.StatusInternalServerError,
	TemporarilyUnavailable:  http.StatusServiceUnavailable,
	UnsupportedResponseType: http.StatusBadRequest,
}

// Error is the error type every package in the authorization core
// returns for a condition the HTTP layer must translate into one of the
// RFC error responses.
type Error struct {
	Kind        Kind
	Description string
	Err         error
}

func (e *Error) Error() string {
	if e.Description != "" {
		return string(e.Kind) + ": " + e.Description
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error with no wrapped cause.
func New(kind Kind, description string) *Error {
	return &Error{Kind: kind, Description: description}
}

// Wrap builds an Error that carries err as its cause, for logging at the
// HTTP boundary without leaking internals into the response body.
func Wrap(kind Kind, description string, err error) *Error {
	return &Error{Kind: kind, Description: description, Err: err}
}

// StatusCode returns the HTTP status err maps to, defaulting to 500 for
// errors that aren't an *Error at all.
func StatusCode(err error) int {
	var oe *Error
	if errors.As(err, &oe) {
		if status, ok := statusCodes[oe.Kind]; ok {
			return status
		}
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

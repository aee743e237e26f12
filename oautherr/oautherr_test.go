package oautherr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusCodeMapping(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{InvalidRequest, http.StatusBadRequest},
		{InvalidClient, http.StatusUnauthorized},
		{InvalidGrant, http.StatusBadRequest},
		{AccessDenied, http.StatusForbidden},
		{ServerError, http.StatusInternalServerError},
		{TemporarilyUnavailable, http.StatusServiceUnavailable},
	}
	for _, c := range cases {
		if got := StatusCode(New(c.kind, "")); got != c.want {
			t.Errorf("StatusCode(%s) = %d, want %d", c.kind, got, c.want)
		}
	}
}

func TestStatusCodeNonOAuthError(t *testing.T) {
	if got := StatusCode(errors.New("boom")); got != http.StatusInternalServerError {
		t.Errorf("StatusCode(plain error) = %d, want 500", got)
	}
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("db unavailable")
	wrapped := Wrap(ServerError, "could not load client", cause)

	if !errors.Is(wrapped, cause) {
		t.Errorf("expected errors.Is to find the wrapped cause")
	}

	var oe *Error
	if !errors.As(fmt.Errorf("context: %w", wrapped), &oe) {
		t.Fatalf("expected errors.As to unwrap to *Error")
	}
	if oe.Kind != ServerError {
		t.Errorf("unexpected kind %s", oe.Kind)
	}
}

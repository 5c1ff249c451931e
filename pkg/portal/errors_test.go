package portal

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrors_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"wrapped transport", fmt.Errorf("get loans: %w", ErrTransport), ErrTransport, true},
		{"status error", &StatusError{Method: "GET", Route: "/loans", StatusCode: 500}, ErrUnexpectedStatus, true},
		{"mismatch is validation", ErrPasswordMismatch, ErrValidation, true},
		{"validation error", &ValidationError{Fields: map[string]string{"email": "bad"}}, ErrValidation, true},
		{"different sentinel", ErrTimeout, ErrTransport, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.want {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.want)
			}
		})
	}
}

func TestHelpers(t *testing.T) {
	if !IsTransport(fmt.Errorf("x: %w", ErrCircuitOpen)) {
		t.Error("Circuit open should count as transport")
	}
	if !IsTransport(ErrTimeout) {
		t.Error("Timeout should count as transport")
	}
	if IsTransport(&StatusError{StatusCode: 500}) {
		t.Error("Status errors are not transport failures")
	}
	if !IsNotAuthenticated(ErrTokenNotFound) || !IsNotAuthenticated(ErrNotAuthenticated) {
		t.Error("Missing token should mean not authenticated")
	}
	if !IsValidation(ErrPasswordMismatch) {
		t.Error("Password mismatch should be a validation error")
	}
	if !IsCircuitOpen(fmt.Errorf("x: %w", ErrCircuitOpen)) {
		t.Error("Expected circuit open")
	}
}

func TestStatusCode(t *testing.T) {
	err := fmt.Errorf("fetch loans: %w", &StatusError{Method: "GET", Route: "/loans", StatusCode: 404})
	if got := StatusCode(err); got != 404 {
		t.Errorf("Expected 404, got %d", got)
	}
	if got := StatusCode(ErrTransport); got != 0 {
		t.Errorf("Expected 0, got %d", got)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "none"},
		{ErrCircuitOpen, "circuit_breaker_open"},
		{ErrTimeout, "timeout"},
		{ErrTransport, "transport"},
		{ErrPasswordMismatch, "validation"},
		{ErrUnexpectedContent, "content"},
		{ErrTokenNotFound, "unauthenticated"},
		{&StatusError{StatusCode: 401}, "unauthorized"},
		{&StatusError{StatusCode: 403}, "unauthorized"},
		{&StatusError{StatusCode: 502}, "server_error"},
		{&StatusError{StatusCode: 404}, "client_error"},
		{errors.New("json: cannot unmarshal object"), "serialization"},
		{errors.New("boom"), "other"},
	}

	for _, tt := range tests {
		if got := ClassifyError(tt.err); got != tt.want {
			t.Errorf("ClassifyError(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestValidationError_Messages(t *testing.T) {
	ve := &ValidationError{Fields: map[string]string{
		"username": "Username is required",
		"email":    "Invalid email address",
	}}

	msgs := ve.Messages()
	if len(msgs) != 2 || msgs[0] != "Invalid email address" || msgs[1] != "Username is required" {
		t.Errorf("Unexpected messages %v", msgs)
	}

	want := "portal: validation failed: email: Invalid email address; username: Username is required"
	if ve.Error() != want {
		t.Errorf("Error() = %q, want %q", ve.Error(), want)
	}
}

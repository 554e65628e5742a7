package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	err := NewValidationError("bad input", "column vin")
	if err.Error() != "validation: bad input (column vin)" {
		t.Fatalf("unexpected message: %s", err.Error())
	}

	cause := errors.New("dial tcp: refused")
	netErr := NewNetworkError("management api unreachable", cause)
	if netErr.Error() != "network: management api unreachable: dial tcp: refused" {
		t.Fatalf("unexpected message: %s", netErr.Error())
	}
	if !errors.Is(netErr, cause) {
		t.Fatalf("expected cause to be unwrapped")
	}
}

func TestIsType_Wrapped(t *testing.T) {
	err := fmt.Errorf("apply: %w", NewProcessingError("statement failed", nil))
	if !IsType(err, ErrorTypeProcessing) {
		t.Fatalf("expected wrapped processing error to be detected")
	}
	if IsType(err, ErrorTypeNetwork) {
		t.Fatalf("did not expect network type")
	}
	if IsType(errors.New("plain"), ErrorTypeProcessing) {
		t.Fatalf("plain errors have no type")
	}
}

func TestGetStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", NewValidationError("x"), http.StatusBadRequest},
		{"not found", NewNotFoundError("x"), http.StatusNotFound},
		{"conflict", NewConflictError("x", nil), http.StatusConflict},
		{"unauthorized", NewUnauthorizedError("x"), http.StatusUnauthorized},
		{"plain", errors.New("x"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetStatusCode(tt.err); got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	if ExitCode(nil) != 0 {
		t.Fatalf("nil error should exit 0")
	}
	if ExitCode(NewValidationError("x")) != 2 {
		t.Fatalf("validation should exit 2")
	}
	if ExitCode(fmt.Errorf("wrap: %w", NewConflictError("x", nil))) != 3 {
		t.Fatalf("conflict should exit 3")
	}
	if ExitCode(NewNetworkError("x", nil)) != 4 {
		t.Fatalf("network should exit 4")
	}
	if ExitCode(errors.New("x")) != 1 {
		t.Fatalf("plain error should exit 1")
	}
}

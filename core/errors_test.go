package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestBackendErrorFormat(t *testing.T) {
	err := &BackendError{
		Backend: "pixai",
		Status:  422,
		Body:    `{"message":"bad params"}`,
		Message: "task rejected",
		Err:     ErrParse,
	}

	msg := err.Error()
	if !strings.Contains(msg, "pixai") {
		t.Errorf("Error() = %q, want backend name included", msg)
	}
	if !strings.Contains(msg, "status=422") {
		t.Errorf("Error() = %q, want status included", msg)
	}
}

func TestBackendErrorUnwrap(t *testing.T) {
	err := &BackendError{Backend: "novelai", Message: "no images in bundle", Err: ErrParse}

	if !errors.Is(err, ErrParse) {
		t.Error("errors.Is(err, ErrParse) = false, want true")
	}

	wrapped := fmt.Errorf("generate: %w", err)
	var be *BackendError
	if !errors.As(wrapped, &be) {
		t.Fatal("errors.As failed to recover *BackendError")
	}
	if be.Backend != "novelai" {
		t.Errorf("Backend = %q, want novelai", be.Backend)
	}
}

func TestSentinelsDistinct(t *testing.T) {
	sentinels := []error{
		ErrInvalidRequest, ErrUnknownBackend, ErrMissingCredential,
		ErrProvider, ErrTimeout, ErrParse, ErrNetwork, ErrDecode,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("sentinel %d matches sentinel %d", i, j)
			}
		}
	}
}

package services_test

import (
	"errors"
	"strings"
	"testing"

	"docsort/internal/services"
)

func TestWrapCarriesMarkerAndCause(t *testing.T) {
	cause := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "classify", "call model", "model unavailable", cause)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatal("marker lost")
	}
	if !errors.Is(err, cause) {
		t.Fatal("cause lost")
	}
	if !strings.Contains(err.Error(), "classify: call model: model unavailable") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestWrapNilMarkerDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "embed", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want services.FailureKind
	}{
		{services.Wrap(services.ErrValidation, "extract", "", "empty file", nil), services.FailureReview},
		{services.Wrap(services.ErrConfiguration, "commit", "", "no target", nil), services.FailureReview},
		{services.Wrap(services.ErrNotFound, "chunk", "", "gone", nil), services.FailureReview},
		{services.Wrap(services.ErrExternalTool, "classify", "", "down", nil), services.FailureError},
		{errors.New("plain"), services.FailureError},
	}
	for _, tc := range cases {
		if got := services.Classify(tc.err); got != tc.want {
			t.Fatalf("Classify(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

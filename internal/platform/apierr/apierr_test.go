package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIsCodeMatchesWrappedError(t *testing.T) {
	base := errors.New("connection refused")
	err := fmt.Errorf("resolving skill: %w", Unavailable(base))

	if !IsCode(err, CodeUnavailable) {
		t.Fatalf("IsCode(%q): want=true got=false", CodeUnavailable)
	}
	if IsCode(err, CodeDuplicateEntity) {
		t.Fatalf("IsCode(%q): want=false got=true", CodeDuplicateEntity)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped base error to survive")
	}
}

func TestStatusOf(t *testing.T) {
	if got := StatusOf(Unavailable(errors.New("down"))); got != http.StatusServiceUnavailable {
		t.Fatalf("status: want=%d got=%d", http.StatusServiceUnavailable, got)
	}
	if got := StatusOf(errors.New("plain")); got != http.StatusInternalServerError {
		t.Fatalf("status: want=%d got=%d", http.StatusInternalServerError, got)
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(NotFound(errors.New("missing"))); got != CodeNotFound {
		t.Fatalf("code: want=%q got=%q", CodeNotFound, got)
	}
	if got := CodeOf(errors.New("plain")); got != "internal" {
		t.Fatalf("code: want=%q got=%q", "internal", got)
	}
}

package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfWrapped(t *testing.T) {
	base := New(NotFound, CodeNotFound, "photo not found")
	wrapped := fmt.Errorf("delete photo: %w", base)

	if got := KindOf(wrapped); got != NotFound {
		t.Errorf("KindOf = %v, want %v", got, NotFound)
	}
	if got := CodeOf(wrapped); got != CodeNotFound {
		t.Errorf("CodeOf = %q", got)
	}
}

func TestPlainErrorIsInfrastructure(t *testing.T) {
	err := errors.New("disk on fire")
	if KindOf(err) != Infrastructure {
		t.Error("plain error should be infrastructure")
	}
	if CodeOf(err) != CodeInfrastructure {
		t.Error("plain error should carry infrastructure code")
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("sql: connection refused")
	err := Infra("list photos", cause)
	if !errors.Is(err, cause) {
		t.Error("errors.Is should see the cause")
	}
	if err.Error() != "list photos: sql: connection refused" {
		t.Errorf("Error() = %q", err.Error())
	}
}

package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidProject, "bad element %q", "maplayer")

	if err.Code != ErrCodeInvalidProject {
		t.Errorf("code = %s, want %s", err.Code, ErrCodeInvalidProject)
	}
	if !strings.Contains(err.Error(), "INVALID_PROJECT") {
		t.Errorf("Error() missing code: %s", err.Error())
	}
	if !strings.Contains(err.Error(), `"maplayer"`) {
		t.Errorf("Error() missing formatted message: %s", err.Error())
	}
}

func TestWrap(t *testing.T) {
	cause := stderrors.New("unexpected EOF")
	err := Wrap(ErrCodeLoadFailed, cause, "parse project.qgs")

	if !stderrors.Is(err, cause) {
		t.Error("wrapped error should match cause via errors.Is")
	}
	if !strings.Contains(err.Error(), "unexpected EOF") {
		t.Errorf("Error() missing cause: %s", err.Error())
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code Code
		want bool
	}{
		{"Match", New(ErrCodeNotFoundLayer, "missing"), ErrCodeNotFoundLayer, true},
		{"Mismatch", New(ErrCodeNotFoundLayer, "missing"), ErrCodeNotFoundStyle, false},
		{"Wrapped", fmt.Errorf("outer: %w", New(ErrCodeEmptySelection, "nothing selected")), ErrCodeEmptySelection, true},
		{"Plain", stderrors.New("plain"), ErrCodeInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(New(ErrCodeSerializeFailed, "disk full")); got != ErrCodeSerializeFailed {
		t.Errorf("GetCode = %s, want %s", got, ErrCodeSerializeFailed)
	}
	if got := GetCode(stderrors.New("plain")); got != "" {
		t.Errorf("GetCode = %q, want empty", got)
	}
}

func TestUserMessage(t *testing.T) {
	err := New(ErrCodeInvalidSelection, "unknown theme %q", "Hiver")
	if got := UserMessage(err); got != `unknown theme "Hiver"` {
		t.Errorf("UserMessage = %q", got)
	}
	plain := stderrors.New("plain failure")
	if got := UserMessage(plain); got != "plain failure" {
		t.Errorf("UserMessage = %q", got)
	}
}

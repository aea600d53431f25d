package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "without cause",
			err:  New(NotFound, "contest not found"),
			want: "[NOT_FOUND] contest not found",
		},
		{
			name: "with cause",
			err:  &AppError{Code: StorageFailure, Message: "query contests", Err: errors.New("disk I/O error")},
			want: "[STORAGE_FAILURE] query contests: disk I/O error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrapNil(t *testing.T) {
	if err := Wrap(StorageFailure, "noop", nil); err != nil {
		t.Errorf("Wrap(nil) = %v, want nil", err)
	}
}

func TestIsThroughFmtWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("refresh: %w", Wrap(ExternalFailure, "create event", cause))

	if !Is(err, ExternalFailure) {
		t.Error("Is(ExternalFailure) = false, want true")
	}
	if Is(err, StorageFailure) {
		t.Error("Is(StorageFailure) = true, want false")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the original cause")
	}
	if CodeOf(errors.New("plain")) != "" {
		t.Error("CodeOf(plain) should be empty")
	}
	if Is(nil, NotFound) {
		t.Error("Is(nil) should be false")
	}
}

package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestSyncError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *SyncError
		want string
	}{
		{
			name: "without wrapped error",
			err:  New(CodeGradeLevelNotFound, "no grade level in catalog"),
			want: "GRADE_LEVEL_NOT_FOUND: no grade level in catalog",
		},
		{
			name: "with wrapped error",
			err:  Wrap(fmt.Errorf("connection refused"), CodeSourceUnavailable, "schools request failed"),
			want: "SOURCE_UNAVAILABLE: schools request failed: connection refused",
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

func TestSyncError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	syncErr := Wrap(inner, "CODE", "msg")
	if !errors.Is(syncErr, inner) {
		t.Errorf("errors.Is(syncErr, inner) = false, want true")
	}
}

func TestNotFound_SentinelChain(t *testing.T) {
	err := ErrGradeLevelNotFoundf(13)
	if !IsNotFound(err) {
		t.Errorf("IsNotFound() = false, want true")
	}
	if errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("not-found error must not match ErrSourceUnavailable")
	}

	syncErr, ok := IsSyncError(fmt.Errorf("outer: %w", err))
	if !ok {
		t.Fatalf("IsSyncError() = false, want true")
	}
	if syncErr.Code != CodeGradeLevelNotFound {
		t.Errorf("Code = %q, want %q", syncErr.Code, CodeGradeLevelNotFound)
	}
}

func TestSourceFailure(t *testing.T) {
	cause := fmt.Errorf("dial tcp: timeout")
	err := SourceFailure(cause, "active staff request failed")

	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("errors.Is(err, ErrSourceUnavailable) = false, want true")
	}
	if !errors.Is(err, cause) {
		t.Errorf("errors.Is(err, cause) = false, want true")
	}
	if IsNotFound(err) {
		t.Errorf("source failure must not look like a not-found miss")
	}
}

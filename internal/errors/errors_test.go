package errors

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
			name: "error without cause",
			err: &AppError{
				Code:    ErrCodeNotFound,
				Message: "job not found",
			},
			want: "job not found",
		},
		{
			name: "error with cause",
			err: &AppError{
				Code:    ErrCodeInternal,
				Message: "failed to dispatch",
				Cause:   errors.New("underlying error"),
			},
			want: "failed to dispatch: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := &AppError{
		Code:    ErrCodeInternal,
		Message: "wrapped error",
		Cause:   cause,
	}

	if unwrapped := err.Unwrap(); !errors.Is(unwrapped, cause) {
		t.Errorf("AppError.Unwrap() = %v, want %v", unwrapped, cause)
	}
}

func TestConstructorsSetCodes(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		code ErrorCode
	}{
		{"invalid tier", InvalidTier("unknown tier"), ErrCodeInvalidTier},
		{"invalid tier formatted", InvalidTierf("tier %q", "gold"), ErrCodeInvalidTier},
		{"validation", Validation("bad hint"), ErrCodeValidation},
		{"validation formatted", Validationf("hint %d out of range", 200), ErrCodeValidation},
		{"not found", NotFound("missing"), ErrCodeNotFound},
		{"not found formatted", NotFoundf("job %s missing", "abc"), ErrCodeNotFound},
		{"conflict", Conflict("already terminal"), ErrCodeConflict},
		{"internal", Internal("boom"), ErrCodeInternal},
		{"canceled", Canceled("caller gave up"), ErrCodeCanceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %v, want %v", tt.err.Code, tt.code)
			}
			if tt.err.Message == "" {
				t.Error("Message should not be empty")
			}
		})
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("dial failed")
	err := Wrap(cause, ErrCodeInternal, "save snapshot")

	if err.Code != ErrCodeInternal {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInternal)
	}
	if !errors.Is(err, cause) {
		t.Error("wrapped error should match cause via errors.Is")
	}

	if Wrap(nil, ErrCodeInternal, "ignored") != nil {
		t.Error("Wrap(nil) should return nil")
	}
	if Wrapf(nil, ErrCodeInternal, "ignored %d", 1) != nil {
		t.Error("Wrapf(nil) should return nil")
	}
}

func TestCodeCheckers(t *testing.T) {
	tests := []struct {
		name  string
		check func(error) bool
		err   error
		want  bool
	}{
		{"invalid tier match", IsInvalidTier, InvalidTier("x"), true},
		{"invalid tier mismatch", IsInvalidTier, Validation("x"), false},
		{"validation match", IsValidation, Validation("x"), true},
		{"not found match", IsNotFound, NotFound("x"), true},
		{"not found wrapped", IsNotFound, fmt.Errorf("op: %w", NotFound("x")), true},
		{"conflict match", IsConflict, Conflict("x"), true},
		{"canceled match", IsCanceled, Canceled("x"), true},
		{"plain error", IsNotFound, errors.New("x"), false},
		{"nil error", IsValidation, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.check(tt.err); got != tt.want {
				t.Errorf("check = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(Conflict("state")); got != ErrCodeConflict {
		t.Errorf("GetCode = %v, want %v", got, ErrCodeConflict)
	}
	if got := GetCode(fmt.Errorf("op: %w", Canceled("x"))); got != ErrCodeCanceled {
		t.Errorf("GetCode wrapped = %v, want %v", got, ErrCodeCanceled)
	}
	if got := GetCode(errors.New("plain")); got != "" {
		t.Errorf("GetCode plain = %v, want empty", got)
	}
	if got := GetCode(nil); got != "" {
		t.Errorf("GetCode(nil) = %v, want empty", got)
	}
}

package lode

import (
	"errors"
	"testing"
)

type timeoutError struct{}

func (timeoutError) Error() string { return "i/o wait" }
func (timeoutError) Timeout() bool { return true }

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind error
	}{
		{"typed timeout", timeoutError{}, ErrTimeout},
		{"context deadline exceeded", errors.New("context deadline exceeded"), ErrTimeout},
		{"AccessDenied response", errors.New("AccessDenied: you do not have access"), ErrAccessDenied},
		{"HTTP 403", errors.New("received status 403"), ErrAccessDenied},
		{"permission denied", errors.New("open /data/strata: permission denied"), ErrPermissionDenied},
		{"no space left on device", errors.New("write /data: no space left on device"), ErrDiskFull},
		{"no such file", errors.New("open /missing: no such file or directory"), ErrNotFound},
		{"NoSuchKey S3", errors.New("NoSuchKey: The specified key does not exist"), ErrNotFound},
		{"SlowDown S3", errors.New("SlowDown: please reduce request rate"), ErrThrottled},
		{"HTTP 429", errors.New("received status 429"), ErrThrottled},
		{"ExpiredToken", errors.New("ExpiredToken: the security token has expired"), ErrAuth},
		{"connection refused", errors.New("dial tcp 127.0.0.1:9000: connection refused"), ErrNetwork},
		{"unrecognized", errors.New("something completely unexpected happened"), ErrUnclassified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyError(tt.err); !errors.Is(got, tt.wantKind) {
				t.Errorf("classifyError(%q) = %v, want %v", tt.err, got, tt.wantKind)
			}
		})
	}
}

func TestClassifyError_Nil(t *testing.T) {
	if got := classifyError(nil); got != nil {
		t.Errorf("classifyError(nil) = %v, want nil", got)
	}
}

func TestStorageError(t *testing.T) {
	inner := errors.New("open /data: permission denied")
	err := wrapError(inner, "append", "strata")

	if !errors.Is(err, ErrPermissionDenied) {
		t.Error("should match its kind")
	}
	if !errors.Is(err, inner) {
		t.Error("should unwrap to the underlying error")
	}
	var se *StorageError
	if !errors.As(err, &se) || se.Op != "append" || se.Path != "strata" {
		t.Errorf("StorageError = %+v", se)
	}
	if wrapError(nil, "append", "strata") != nil {
		t.Error("nil error should stay nil")
	}
}

package pipeline

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestErrorWrapping(t *testing.T) {
	cause := errors.New("socket closed")
	err := NewError(KindNetworkTimeout, "remote", cause)

	if !errors.Is(err, cause) {
		t.Error("wrapped cause not reachable via errors.Is")
	}

	wrapped := fmt.Errorf("outer: %w", err)
	if KindOf(wrapped) != KindNetworkTimeout {
		t.Errorf("kind lost through wrapping: got %v", KindOf(wrapped))
	}
}

func TestKindOfUnclassified(t *testing.T) {
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Error("plain error should classify as unknown")
	}
	if KindOf(nil) != KindUnknown {
		t.Error("nil error should classify as unknown")
	}
}

func TestRetryableKinds(t *testing.T) {
	retryable := []ErrorKind{KindNetworkTimeout, KindServerError, KindRateLimited}
	terminal := []ErrorKind{KindUnknown, KindInputInvalid, KindNoInternet, KindAuthFailed, KindEmptyResult, KindBusy, KindCanceled}

	for _, k := range retryable {
		if !IsRetryable(NewError(k, "x", nil)) {
			t.Errorf("%v should be retryable", k)
		}
	}
	for _, k := range terminal {
		if IsRetryable(NewError(k, "x", nil)) {
			t.Errorf("%v should not be retryable", k)
		}
	}
}

func TestRepairableKinds(t *testing.T) {
	repairable := []ErrorKind{KindUnsupportedLanguage, KindUnsupportedVoice, KindGenerationFailed, KindFormatConversionFailed}
	for _, k := range repairable {
		if !IsRepairable(NewError(k, "x", nil)) {
			t.Errorf("%v should be repairable", k)
		}
	}
	if IsRepairable(NewError(KindServerError, "x", nil)) {
		t.Error("server errors are not repairable")
	}
}

func TestRetryAfterOf(t *testing.T) {
	err := &Error{Kind: KindRateLimited, Component: "remote", RetryAfter: 3 * time.Second}
	if got := RetryAfterOf(err); got != 3*time.Second {
		t.Errorf("got %v, want 3s", got)
	}
	if got := RetryAfterOf(errors.New("plain")); got != 0 {
		t.Errorf("got %v, want zero for unhinted error", got)
	}
}

func TestErrorString(t *testing.T) {
	err := NewError(KindRateLimited, "remote", errors.New("slow down"))
	want := "remote: rate limited: slow down"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

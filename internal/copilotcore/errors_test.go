package copilotcore

import (
	"errors"
	"testing"
)

func TestErrorKindRoundTrip(t *testing.T) {
	err := InvalidInput("bad event").WithContext("entity_id", "light.kitchen")
	if !IsKind(err, KindInvalidInput) {
		t.Error("expected IsKind to match InvalidInput")
	}
	if IsKind(err, KindNotFound) {
		t.Error("expected IsKind to not match NotFound")
	}
	if err.Context["entity_id"] != "light.kitchen" {
		t.Error("expected context to be attached")
	}
}

func TestStorageFailureWrapsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := StorageFailure(cause, "flush failed")
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find wrapped cause")
	}
	if !IsKind(err, KindStorageFailure) {
		t.Error("expected KindStorageFailure")
	}
}

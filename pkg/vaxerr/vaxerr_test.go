package vaxerr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	err := New(KindInsufficientStock, "batch %s is exhausted", "B-001")
	if KindOf(err) != KindInsufficientStock {
		t.Errorf("expected %s, got %s", KindInsufficientStock, KindOf(err))
	}
	if err.Error() != "batch B-001 is exhausted" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	inner := NotFound("vaccine")
	wrapped := fmt.Errorf("create scheduling: %w", inner)
	if KindOf(wrapped) != KindNotFound {
		t.Errorf("expected kind to survive wrapping, got %s", KindOf(wrapped))
	}
}

func TestKindOf_Plain(t *testing.T) {
	if KindOf(errors.New("boom")) != "" {
		t.Error("plain errors must have no kind")
	}
}

func TestIsKind(t *testing.T) {
	err := New(KindIntervalNotMet, "wait 20 more days")
	if !IsKind(err, KindIntervalNotMet) {
		t.Error("expected IsKind to match")
	}
	if IsKind(err, KindExceededDoses) {
		t.Error("expected IsKind to reject other kinds")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NotFound("batch"), http.StatusNotFound},
		{New(KindDuplicateScheduling, "dup"), http.StatusConflict},
		{New(KindInsufficientStock, "empty"), http.StatusConflict},
		{New(KindSchedulingAlreadyComplete, "done"), http.StatusConflict},
		{New(KindInvalidDoseNumber, "dose 9"), http.StatusUnprocessableEntity},
		{New(KindConflictingInput, "both"), http.StatusUnprocessableEntity},
		{New(KindForbidden, "nope"), http.StatusForbidden},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

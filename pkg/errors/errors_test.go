package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("row lock timeout")
	err := Wrap(CodeDependency, cause, "refund payment")

	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to be reachable via errors.Is")
	}
	if err.Code() != CodeDependency {
		t.Fatalf("unexpected code %s", err.Code())
	}
	if err.Error() != "DEPENDENCY_ERROR: refund payment" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestAsThroughWrapping(t *testing.T) {
	inner := New(CodeStateConflict, "capture not allowed from cancelled")
	outer := fmt.Errorf("handling request: %w", inner)

	typed := As(outer)
	if typed == nil {
		t.Fatal("expected typed error through fmt wrapping")
	}
	if typed.Code() != CodeStateConflict {
		t.Fatalf("unexpected code %s", typed.Code())
	}
	if !HasCode(outer, CodeStateConflict) {
		t.Fatal("HasCode should match through wrapping")
	}
}

func TestMetadataFor(t *testing.T) {
	tests := []struct {
		code   Code
		status int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeStateConflict, http.StatusUnprocessableEntity},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeDependency, http.StatusBadGateway},
		{Code("NOT_A_CODE"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		if got := MetadataFor(tc.code).HTTPStatus; got != tc.status {
			t.Fatalf("%s: expected status %d, got %d", tc.code, tc.status, got)
		}
	}
}

func TestDumpCollectsChain(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(CodeDependency, cause, "gateway authorize")

	dump := Dump(err)
	if dump.Code != CodeDependency {
		t.Fatalf("unexpected code %s", dump.Code)
	}
	if len(dump.Chain) < 2 {
		t.Fatalf("expected full chain, got %v", dump.Chain)
	}
}

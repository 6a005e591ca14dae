package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeIncompleteProfile, status: http.StatusBadRequest, publicMsg: "profile is incomplete", detailsOK: true},
		{code: CodeAlreadyProcessed, status: http.StatusBadRequest, publicMsg: "request already processed", detailsOK: true},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeStorage, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeSequenceUnavailable, status: http.StatusServiceUnavailable, publicMsg: "order numbering unavailable", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeStorage, cause, "load order")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeStorage {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
	if !Is(fmt.Errorf("outer: %w", wrapped), CodeStorage) {
		t.Fatalf("Is should see through fmt wrapping")
	}
	if CodeOf(cause) != CodeInternal {
		t.Fatalf("untyped errors should report internal")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(CodeAlreadyProcessed, "request already processed").
		WithDetails(map[string]any{"current_status": "approved"})
	details, ok := err.Details().(map[string]any)
	if !ok || details["current_status"] != "approved" {
		t.Fatalf("unexpected details %#v", err.Details())
	}
}

func TestDumpCapturesPgFields(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "orders_order_number_key", TableName: "orders"}
	err := Wrap(CodeStorage, fmt.Errorf("insert order: %w", pgErr), "create order")

	dump := Dump(err)
	if dump.Code != CodeStorage || !dump.Retryable {
		t.Fatalf("unexpected code metadata %+v", dump)
	}
	if dump.PGCode != "23505" || dump.PGConstraint != "orders_order_number_key" {
		t.Fatalf("pg fields not captured: %+v", dump)
	}
	if len(dump.Chain) != 3 {
		t.Fatalf("expected 3 chain entries got %d", len(dump.Chain))
	}
}

func TestDumpCapturesSQLiteConstraint(t *testing.T) {
	err := Wrap(CodeConflict, stdErrors.New("UNIQUE constraint failed: orders.order_number"), "order number already issued")

	dump := Dump(err)
	if dump.SQLiteConstraint != "orders.order_number" {
		t.Fatalf("expected sqlite constraint captured, got %+v", dump)
	}
	if dump.PGCode != "" {
		t.Fatalf("sqlite errors carry no pg code: %+v", dump)
	}
}

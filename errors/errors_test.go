package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

// TestAppErrorError tests the Error method with and without a cause.
func TestAppErrorError(t *testing.T) {
	err := New(ErrCodeNotFound, "fixture missing")
	if err.Error() != "NOT_FOUND: fixture missing" {
		t.Errorf("unexpected message: %q", err.Error())
	}

	err.WithCause(fmt.Errorf("stat failed"))
	if err.Error() != "NOT_FOUND: fixture missing (cause: stat failed)" {
		t.Errorf("unexpected message with cause: %q", err.Error())
	}
	if !stderrors.Is(err, err.Cause) {
		t.Error("expected Unwrap to expose the cause")
	}
}

// TestNewFatalDetection tests that lifecycle codes are marked fatal.
func TestNewFatalDetection(t *testing.T) {
	tests := []struct {
		code  ErrorCode
		fatal bool
	}{
		{ErrCodeConsistency, true},
		{ErrCodeConfiguration, true},
		{ErrCodeNotFound, false},
		{ErrCodeInvalidInput, false},
		{ErrCodeDatabaseError, false},
	}
	for _, tt := range tests {
		if got := New(tt.code, "x").Fatal; got != tt.fatal {
			t.Errorf("New(%s).Fatal = %v, want %v", tt.code, got, tt.fatal)
		}
	}
}

// TestConstructors tests the code carried by each constructor.
func TestConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		code ErrorCode
	}{
		{"NotFound", NotFound("fixture", "~Mage_Catalog/products"), ErrCodeNotFound},
		{"InvalidInput", InvalidInput("scope", "unknown scope"), ErrCodeInvalidInput},
		{"Validation", Validation("bad row"), ErrCodeInvalidInput},
		{"MissingField", MissingField("entity_id"), ErrCodeMissingField},
		{"Consistency", Consistency("already applied"), ErrCodeConsistency},
		{"Configuration", Configuration("no database"), ErrCodeConfiguration},
		{"Newf", Newf(ErrCodeInternal, "%s resolved to %T", "eav_config", 1), ErrCodeInternal},
		{"DatabaseError", DatabaseError(fmt.Errorf("locked")), ErrCodeDatabaseError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %s, want %s", tt.err.Code, tt.code)
			}
		})
	}
}

// TestNotFoundMessage tests that the id is quoted in the message when present.
func TestNotFoundMessage(t *testing.T) {
	if got := NotFound("fixture", "").Message; got != "fixture not found" {
		t.Errorf("unexpected message: %q", got)
	}
	err := NotFound("fixture", "products")
	if err.Message != `fixture "products" not found` {
		t.Errorf("unexpected message: %q", err.Message)
	}
	if err.Details["id"] != "products" {
		t.Errorf("expected id detail, got %v", err.Details)
	}
}

// TestDetailMap tests that details are copied out.
func TestDetailMap(t *testing.T) {
	err := Validation("bad").WithDetail("table", "core_store").WithDetail("row", 2)
	m := err.DetailMap()
	if m["table"] != "core_store" || m["row"] != 2 {
		t.Errorf("unexpected details: %v", m)
	}
	m["row"] = 3
	if err.Details["row"] != 2 {
		t.Error("DetailMap must return a copy")
	}
	if New(ErrCodeNotFound, "x").DetailMap() == nil {
		t.Error("expected an empty map")
	}
}

// TestInspection tests the Is* helpers through wrapping.
func TestInspection(t *testing.T) {
	wrapped := fmt.Errorf("apply: %w", Consistency("slot occupied"))

	if _, ok := AsAppError(wrapped); !ok {
		t.Error("expected wrapped error to be an AppError")
	}
	if !IsConsistency(wrapped) {
		t.Error("expected IsConsistency")
	}
	if !IsFatal(wrapped) {
		t.Error("expected IsFatal")
	}
	if IsNotFound(wrapped) || IsInvalid(wrapped) || IsConfiguration(wrapped) {
		t.Error("unexpected code match")
	}
	if CodeOf(fmt.Errorf("plain")) != "" {
		t.Error("expected empty code for plain error")
	}
	if !IsInvalid(MissingField("x")) {
		t.Error("expected MissingField to count as invalid")
	}
	if _, ok := AsAppError(fmt.Errorf("plain")); ok {
		t.Error("expected AsAppError to fail on plain error")
	}
}

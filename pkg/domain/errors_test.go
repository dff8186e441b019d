package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestValidationErrorCollectsAllFields(t *testing.T) {
	verr := &ValidationError{Entity: EntityProduct}
	verr.Add("name", "product name is required")
	verr.Add("price", "price must be greater than 0")
	if verr.Empty() {
		t.Fatalf("expected violations")
	}
	if msg, ok := verr.FieldMessage("price"); !ok || !strings.Contains(msg, "greater than 0") {
		t.Fatalf("missing price message, got %q ok=%v", msg, ok)
	}
	if _, ok := verr.FieldMessage("sku"); ok {
		t.Fatalf("unexpected sku violation")
	}
	text := verr.Error()
	if !strings.Contains(text, "name") || !strings.Contains(text, "price") {
		t.Fatalf("error text should mention every field: %s", text)
	}
}

func TestReferentialIntegrityErrorMessage(t *testing.T) {
	err := &ReferentialIntegrityError{Entity: EntityCategory, Name: "Electronics", Dependents: 3}
	if got := err.Error(); got != `cannot delete category "Electronics": in use by 3 products` {
		t.Fatalf("unexpected message: %s", got)
	}
}

func TestIsRetryable(t *testing.T) {
	base := errors.New("connection reset")
	wrapped := fmt.Errorf("save: %w", &StoreError{Op: "write", Entity: EntityOrder, Err: base})
	if !IsRetryable(wrapped) {
		t.Fatalf("store errors should be retryable")
	}
	if IsRetryable(&NotFoundError{Entity: EntityOrder, ID: "o1"}) {
		t.Fatalf("not-found should not be retryable")
	}
	if !errors.Is(wrapped, base) {
		t.Fatalf("expected unwrap chain to reach base error")
	}
}

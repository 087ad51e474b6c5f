package model

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestAssignmentActive(t *testing.T) {
	a := &Assignment{ID: 1}
	if !a.Active() {
		t.Error("expected assignment without removal time to be active")
	}

	now := time.Now()
	a.RemovedAt = &now
	if a.Active() {
		t.Error("expected removed assignment to be closed")
	}
}

func TestItemInputActiveDefaultsToTrue(t *testing.T) {
	var in ItemInput
	if !in.Active() {
		t.Error("expected nil is_active to mean active")
	}

	inactive := false
	in.IsActive = &inactive
	if in.Active() {
		t.Error("expected explicit false to be respected")
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{ErrItemNotFound, true},
		{fmt.Errorf("transfer 7: %w", ErrLocationNotFound), true},
		{ErrRecordNotFound, true},
		{ErrAlreadyClosed, false},
		{ErrInvariantViolation, false},
		{nil, false},
	}

	for _, tt := range tests {
		if got := IsNotFound(tt.err); got != tt.want {
			t.Errorf("IsNotFound(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestValidateItemInput(t *testing.T) {
	valid := ItemInput{Name: "Laptop", ItemTypeID: 1, PurchaseDate: "2024-02-29",
		Cost: decimal.NewNullDecimal(decimal.RequireFromString("1200.00"))}
	if err := Validate(valid); err != nil {
		t.Errorf("expected valid input, got %v", err)
	}
	valid.Cost = decimal.NewNullDecimal(decimal.RequireFromString("12.3400"))
	if err := Validate(valid); err != nil {
		t.Errorf("trailing zeros should be accepted, got %v", err)
	}

	tests := []struct {
		name string
		in   ItemInput
		want string
	}{
		{"missing name", ItemInput{ItemTypeID: 1}, "name is required"},
		{"missing type", ItemInput{Name: "x"}, "item_type_id is required"},
		{"bad date", ItemInput{Name: "x", ItemTypeID: 1, PurchaseDate: "29.02.2024"}, "purchase_date must be a date"},
		{"negative cost", ItemInput{Name: "x", ItemTypeID: 1,
			Cost: decimal.NewNullDecimal(decimal.NewFromInt(-1))}, "cost must be between"},
		{"cost too large", ItemInput{Name: "x", ItemTypeID: 1,
			Cost: decimal.NewNullDecimal(decimal.RequireFromString("100000000"))}, "cost must be between"},
		{"cost with four decimals", ItemInput{Name: "x", ItemTypeID: 1,
			Cost: decimal.NewNullDecimal(decimal.RequireFromString("12.3456"))}, "at most 2 decimal places"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.in)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected %q in %q", tt.want, err.Error())
			}
		})
	}
}

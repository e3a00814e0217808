package errors

import (
	"math"
	"strings"
	"testing"
)

func TestValidateID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "sofa", false},
		{"valid with dash", "coffee-table", false},
		{"valid with dot", "bed.1", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 200), true},
		{"space", "coffee table", true},
		{"null byte", "foo\x00bar", true},
		{"newline", "foo\nbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateID("asset", tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidInput) {
				t.Errorf("ValidateID(%q) code = %v", tt.input, GetCode(err))
			}
		})
	}
}

func TestValidateWeight(t *testing.T) {
	tests := []struct {
		weight  float64
		wantErr bool
	}{
		{0, false},
		{1.5, false},
		{math.Inf(1), false},
		{-1, true},
		{math.Inf(-1), true},
		{math.NaN(), true},
	}

	for _, tt := range tests {
		err := ValidateWeight("c", tt.weight)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateWeight(%v) error = %v, wantErr %v", tt.weight, err, tt.wantErr)
		}
	}
}

func TestValidateFinite(t *testing.T) {
	if err := ValidateFinite("x", 1, 2, 3); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateFinite("x", 1, math.NaN()); err == nil {
		t.Error("expected error for NaN")
	}
	if err := ValidateFinite("x", math.Inf(1)); err == nil {
		t.Error("expected error for +Inf")
	}
}

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"room.toml", false},
		{"", true},
		{"../room.toml", true},
		{"a/b.toml", true},
		{"a\\b.toml", true},
	}

	for _, tt := range tests {
		if err := ValidateFilename(tt.input); (err != nil) != tt.wantErr {
			t.Errorf("ValidateFilename(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}

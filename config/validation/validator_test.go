package validation

import (
	"errors"
	"reflect"
	"testing"

	"modelkombat/internal/apperrors"
)

func TestValidateRounds(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		rounds  int
		wantErr bool
	}{
		{0, true},
		{1, false},
		{3, false},
		{10, false},
		{11, true},
		{-4, true},
	}

	for _, tt := range tests {
		err := v.ValidateRounds(tt.rounds)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateRounds(%d) error = %v, wantErr %v", tt.rounds, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, apperrors.ErrValidationFailure) {
			t.Errorf("ValidateRounds(%d) should wrap ErrValidationFailure, got %v", tt.rounds, err)
		}
	}
}

func TestValidateModelID(t *testing.T) {
	v := NewValidator()

	valid := []string{"openai/gpt-4o", "m1", "anthropic/claude-3.5-sonnet:beta"}
	for _, id := range valid {
		if err := v.ValidateModelID(id); err != nil {
			t.Errorf("ValidateModelID(%q) unexpected error: %v", id, err)
		}
	}

	invalid := []string{"", "   ", "openai/gpt 4o", "bad\tid", "x\x00y"}
	for _, id := range invalid {
		if err := v.ValidateModelID(id); err == nil {
			t.Errorf("ValidateModelID(%q) expected error", id)
		}
	}
}

func TestValidateCredential(t *testing.T) {
	v := NewValidator()
	if err := v.ValidateCredential(" "); err == nil {
		t.Error("blank credential should be rejected")
	}
	if err := v.ValidateCredential("sk-or-v1-abc"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNormalizeModels(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil", nil, []string{}},
		{"trim and dedupe", []string{" a ", "b", "a", "", "c", "b"}, []string{"a", "b", "c"}},
		{"order preserved", []string{"z", "y", "x"}, []string{"z", "y", "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := v.NormalizeModels(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeModels(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

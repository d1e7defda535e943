package validation

import (
	"strings"
	"unicode"

	"modelkombat/config/models"
	"modelkombat/internal/apperrors"
)

// Validator validates configuration mutations before they touch state
type Validator struct {
}

// NewValidator creates a new Validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateRounds checks the refinement round count is within bounds
func (v *Validator) ValidateRounds(rounds int) error {
	if rounds < models.MinRefinementRounds || rounds > models.MaxRefinementRounds {
		return apperrors.Validation("refinement rounds must be between %d and %d, got %d",
			models.MinRefinementRounds, models.MaxRefinementRounds, rounds)
	}
	return nil
}

// ValidateModelID checks a model identifier is usable as a key.
// Ids are not checked against the catalog.
func (v *Validator) ValidateModelID(modelID string) error {
	if strings.TrimSpace(modelID) == "" {
		return apperrors.Validation("model id cannot be empty")
	}
	for _, r := range modelID {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return apperrors.Validation("model id %q contains whitespace or control characters", modelID)
		}
	}
	return nil
}

// ValidateCredential checks a plaintext credential is present
func (v *Validator) ValidateCredential(credential string) error {
	if strings.TrimSpace(credential) == "" {
		return apperrors.Validation("API key cannot be empty")
	}
	return nil
}

// NormalizeModels trims and deduplicates model ids, preserving first-seen order.
// Empty ids are removed.
func (v *Validator) NormalizeModels(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	result := make([]string, 0, len(ids))

	for _, id := range ids {
		trimmed := strings.TrimSpace(id)
		if trimmed == "" || seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		result = append(result, trimmed)
	}

	return result
}

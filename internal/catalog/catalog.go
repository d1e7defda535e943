// Package catalog classifies model catalog entries for display: flagship
// detection and grouping by provider namespace.
package catalog

import (
	"strings"

	"modelkombat/config/models"
)

// OtherProvider is the group for ids without a provider namespace
const OtherProvider = "other"

// Annotated is a catalog entry with its display classification
type Annotated struct {
	models.CatalogEntry
	Provider string `json:"provider"`
	Flagship bool   `json:"flagship"`
	Enabled  bool   `json:"enabled"`
}

// IsFlagship reports whether modelID matches any reference flagship id.
// The match is case-insensitive and succeeds when either string contains the
// other, so dated or suffixed slugs like "openai/gpt-4o-2024-11-20" still match.
func IsFlagship(modelID string) bool {
	id := strings.ToLower(strings.TrimSpace(modelID))
	if id == "" {
		return false
	}
	for _, ref := range flagshipModels {
		ref = strings.ToLower(ref)
		if strings.Contains(id, ref) || strings.Contains(ref, id) {
			return true
		}
	}
	return false
}

// ProviderOf returns the namespace before the first "/", or OtherProvider
func ProviderOf(modelID string) string {
	provider, _, found := strings.Cut(modelID, "/")
	if !found || provider == "" {
		return OtherProvider
	}
	return provider
}

// GroupByProvider buckets entries by provider, keeping catalog order within each group
func GroupByProvider(entries []models.CatalogEntry) map[string][]models.CatalogEntry {
	groups := make(map[string][]models.CatalogEntry)
	for _, e := range entries {
		p := ProviderOf(e.ID)
		groups[p] = append(groups[p], e)
	}
	return groups
}

// Providers returns provider names in order of first appearance in entries
func Providers(entries []models.CatalogEntry) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range entries {
		p := ProviderOf(e.ID)
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// Annotate classifies each entry. enabled may be nil.
func Annotate(entries []models.CatalogEntry, enabled []string) []Annotated {
	on := make(map[string]bool, len(enabled))
	for _, id := range enabled {
		on[id] = true
	}

	out := make([]Annotated, 0, len(entries))
	for _, e := range entries {
		out = append(out, Annotated{
			CatalogEntry: e,
			Provider:     ProviderOf(e.ID),
			Flagship:     IsFlagship(e.ID),
			Enabled:      on[e.ID],
		})
	}
	return out
}

// Filter returns the entries for which keep returns true, in order
func Filter(entries []Annotated, keep func(Annotated) bool) []Annotated {
	var out []Annotated
	for _, e := range entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

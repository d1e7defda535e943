package models

import (
	"slices"
	"time"
)

// Defaults for a configuration that has never been saved. These are the single
// source of truth for NewConfig and validation.
const (
	LocalUserID = "local-user"

	DefaultRefinementRounds = 3
	MinRefinementRounds     = 1
	MaxRefinementRounds     = 10
)

// Config is the per-user model configuration record
type Config struct {
	UserID                  string     `json:"userId"`
	Credential              string     `json:"credential,omitempty"` // obfuscated, see internal/crypto
	EnabledModelIDs         []string   `json:"enabledModelIds"`
	DefaultRefinerID        string     `json:"defaultRefinerId,omitempty"`
	DefaultJudgeID          string     `json:"defaultJudgeId,omitempty"`
	DefaultRefinementRounds int        `json:"defaultRefinementRounds"`
	LastCatalogSyncTime     *time.Time `json:"lastCatalogSyncTime,omitempty"`
}

// CatalogEntry is one model offered by the remote service
type CatalogEntry struct {
	ID          string `json:"id"` // <provider>/<model-slug>
	DisplayName string `json:"displayName,omitempty"`
}

// NewConfig returns a config for userID with all defaults populated
func NewConfig(userID string) *Config {
	return &Config{
		UserID:                  userID,
		EnabledModelIDs:         []string{},
		DefaultRefinementRounds: DefaultRefinementRounds,
	}
}

// Clone returns a deep copy so callers can mutate without touching shared state
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := *c
	out.EnabledModelIDs = slices.Clone(c.EnabledModelIDs)
	if out.EnabledModelIDs == nil {
		out.EnabledModelIDs = []string{}
	}
	if c.LastCatalogSyncTime != nil {
		t := *c.LastCatalogSyncTime
		out.LastCatalogSyncTime = &t
	}
	return &out
}

// IsEnabled reports whether modelID is in the enabled set
func (c *Config) IsEnabled(modelID string) bool {
	return slices.Contains(c.EnabledModelIDs, modelID)
}

// Name returns the display name, falling back to the id
func (e CatalogEntry) Name() string {
	if e.DisplayName != "" {
		return e.DisplayName
	}
	return e.ID
}

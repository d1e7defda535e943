package config

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"modelkombat/config/models"
	"modelkombat/config/storage"
)

const (
	// LocalNamespace is the key the local backend stores the config under
	LocalNamespace = "model-kombat-llm-config"
	// ConfigCollection is the document collection of the account backend
	ConfigCollection = "llm-configs"
)

// Backend persists one configuration record per user
type Backend interface {
	// Load returns the stored config and whether one exists
	Load(ctx context.Context, userID string) (*models.Config, bool, error)
	// Save writes cfg for userID
	Save(ctx context.Context, userID string, cfg *models.Config) error
	// Clear resets the stored record for userID to defaults
	Clear(ctx context.Context, userID string) error
}

// LocalBackend keeps the config in a process-local key-value file.
// There is a single record regardless of user.
type LocalBackend struct {
	store *storage.FileStore
}

// NewLocalBackend creates a LocalBackend over store
func NewLocalBackend(store *storage.FileStore) *LocalBackend {
	return &LocalBackend{store: store}
}

func (b *LocalBackend) Load(ctx context.Context, userID string) (*models.Config, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	raw, found, err := b.store.Get(LocalNamespace)
	if err != nil || !found {
		return nil, false, err
	}

	var cfg models.Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, false, fmt.Errorf("failed to parse stored config: %w", err)
	}
	return &cfg, true, nil
}

func (b *LocalBackend) Save(ctx context.Context, userID string, cfg *models.Config) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	return b.store.Set(LocalNamespace, data)
}

func (b *LocalBackend) Clear(ctx context.Context, userID string) error {
	return b.Save(ctx, userID, models.NewConfig(userID))
}

// AccountBackend keeps one document per user in the document store and
// writes with set-with-merge.
type AccountBackend struct {
	docs *storage.DocumentStore
}

// NewAccountBackend creates an AccountBackend over docs
func NewAccountBackend(docs *storage.DocumentStore) *AccountBackend {
	return &AccountBackend{docs: docs}
}

func (b *AccountBackend) Load(ctx context.Context, userID string) (*models.Config, bool, error) {
	raw, found, err := b.docs.Get(ctx, ConfigCollection, userID)
	if err != nil || !found {
		return nil, false, err
	}

	var cfg models.Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, false, fmt.Errorf("failed to parse stored config for %s: %w", userID, err)
	}
	return &cfg, true, nil
}

func (b *AccountBackend) Save(ctx context.Context, userID string, cfg *models.Config) error {
	return b.docs.SetMerge(ctx, ConfigCollection, userID, documentFields(userID, cfg))
}

func (b *AccountBackend) Clear(ctx context.Context, userID string) error {
	data, err := json.Marshal(models.NewConfig(userID))
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	return b.docs.Set(ctx, ConfigCollection, userID, data)
}

// documentFields flattens cfg for a merge. Empty optional fields are sent as
// null so a merge clears them instead of keeping the old value.
func documentFields(userID string, cfg *models.Config) map[string]any {
	enabled := cfg.EnabledModelIDs
	if enabled == nil {
		enabled = []string{}
	}
	fields := map[string]any{
		"userId":                  userID,
		"enabledModelIds":         enabled,
		"defaultRefinementRounds": cfg.DefaultRefinementRounds,
		"credential":              nullable(cfg.Credential),
		"defaultRefinerId":        nullable(cfg.DefaultRefinerID),
		"defaultJudgeId":          nullable(cfg.DefaultJudgeID),
		"lastCatalogSyncTime":     nil,
	}
	if cfg.LastCatalogSyncTime != nil {
		fields["lastCatalogSyncTime"] = cfg.LastCatalogSyncTime.UTC().Format(time.RFC3339Nano)
	}
	return fields
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

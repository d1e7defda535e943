package tui

import (
	"modelkombat/config/models"
)

// ConfigLoadedMsg is sent when the configuration is loaded
type ConfigLoadedMsg struct {
	Config    *models.Config
	Catalog   []models.CatalogEntry
	LastError string
	Err       error
}

// CatalogSyncedMsg is sent when a catalog sync completes
type CatalogSyncedMsg struct {
	Catalog []models.CatalogEntry
	Err     error
}

// ConfigChangedMsg is sent after a mutation; Title describes it on success
type ConfigChangedMsg struct {
	Title string
	Err   error
}

// CredentialSavedMsg is sent when an API key was verified and stored
type CredentialSavedMsg struct {
	Err error
}

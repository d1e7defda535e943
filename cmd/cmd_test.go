package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"modelkombat/config"
	"modelkombat/config/models"
	"modelkombat/config/storage"
	"modelkombat/internal/apperrors"
	"modelkombat/internal/ratings"
	"modelkombat/internal/server"
)

const validKey = "sk-or-v1-cli-test-valid"

// fakeOpenRouter serves the key check, the catalog and chat completions
func fakeOpenRouter(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+validKey {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"message":"invalid key"}}`))
			return
		}
		switch r.URL.Path {
		case "/auth/key":
			w.Write([]byte(`{"data":{"label":"cli"}}`))
		case "/models":
			w.Write([]byte(`{"data":[{"id":"openai/gpt-4o","name":"GPT-4o"},{"id":"acme/tiny-1"},{"id":"anthropic/claude-3.5-sonnet"}]}`))
		case "/chat/completions":
			body, _ := io.ReadAll(r.Body)
			model := gjson.GetBytes(body, "model").String()
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"id":"c1","object":"chat.completion","model":%q,"choices":[{"index":0,"message":{"role":"assistant","content":"answer from %s"},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":4,"total_tokens":7}}`, model, model)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// setupEnv points settings at a temp data dir and the fake service
func setupEnv(t *testing.T, backend string) string {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("MODELKOMBAT_DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("MODELKOMBAT_BACKEND", backend)
	t.Setenv("MODELKOMBAT_API_BASE_URL", fakeOpenRouter(t).URL)
	t.Setenv("MODELKOMBAT_LOGGING_LEVEL", "error")
	return filepath.Join(dir, "data")
}

// execute runs one CLI invocation and returns stdout and stderr
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func mustExecute(t *testing.T, args ...string) string {
	t.Helper()
	stdout, stderr, err := execute(t, args...)
	require.NoError(t, err, "modelkombat %s\nstderr: %s", strings.Join(args, " "), stderr)
	return stdout
}

func TestCommandTree(t *testing.T) {
	root := newRootCmd()
	for _, path := range [][]string{
		{"key", "set"}, {"key", "verify"}, {"key", "show"},
		{"login"}, {"logout"},
		{"models", "sync"}, {"models", "list"}, {"models", "toggle"},
		{"defaults", "refiner"}, {"defaults", "judge"}, {"defaults", "rounds"},
		{"rounds"}, {"refine"},
		{"ratings", "list"}, {"ratings", "rate"}, {"ratings", "winner"}, {"ratings", "stats"},
		{"status"}, {"clear"}, {"serve"}, {"tui"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
		assert.NotEmpty(t, cmd.Short, "%v has no short description", path)
		if cmd.HasSubCommands() {
			continue
		}
		assert.NotNil(t, cmd.RunE, "%v has no RunE", path)
	}
}

func TestKeyLifecycle(t *testing.T) {
	setupEnv(t, config.BackendLocal)

	out := mustExecute(t, "key", "show")
	assert.Contains(t, out, "No API key configured")

	_, stderr, err := execute(t, "key", "set", "sk-or-v1-wrong-key")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrCredentialInvalid)
	assert.Contains(t, stderr, "Failed to save API key")

	_, stderr, err = execute(t, "key", "set", validKey)
	require.NoError(t, err)
	assert.Contains(t, stderr, "API key saved")

	out = mustExecute(t, "key", "show")
	assert.Contains(t, out, "sk-or-****")
	assert.NotContains(t, out, validKey)

	_, stderr, err = execute(t, "key", "verify")
	require.NoError(t, err)
	assert.Contains(t, stderr, "✅")
}

func TestModelsAndRounds(t *testing.T) {
	setupEnv(t, config.BackendLocal)
	mustExecute(t, "key", "set", validKey)

	mustExecute(t, "models", "sync", "--force")
	out := mustExecute(t, "models", "list")
	assert.Contains(t, out, "openai/gpt-4o")
	assert.Contains(t, out, "GPT-4o")
	assert.Contains(t, out, "acme/tiny-1")

	out = mustExecute(t, "models", "list", "--flagship")
	assert.Contains(t, out, "anthropic/claude-3.5-sonnet")
	assert.NotContains(t, out, "acme/tiny-1")

	out = mustExecute(t, "models", "list", "--provider", "acme")
	assert.Contains(t, out, "acme/tiny-1")
	assert.NotContains(t, out, "openai/gpt-4o")

	out = mustExecute(t, "rounds", "2")
	assert.Contains(t, out, "openrouter/auto (automatic selection)")

	out = mustExecute(t, "models", "toggle", "acme/tiny-1", "openai/gpt-4o")
	assert.Contains(t, out, "Enabled models (2)")

	out = mustExecute(t, "rounds", "3")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "acme/tiny-1")
	assert.Contains(t, lines[1], "openai/gpt-4o")
	assert.Contains(t, lines[2], "acme/tiny-1")

	out = mustExecute(t, "models", "list", "--enabled")
	assert.Contains(t, out, "✓")
	assert.NotContains(t, out, "anthropic/claude-3.5-sonnet")

	out = mustExecute(t, "models", "toggle", "acme/tiny-1")
	assert.Contains(t, out, "Enabled models (1)")
}

func TestModelsSyncWithoutKey(t *testing.T) {
	setupEnv(t, config.BackendLocal)

	_, _, err := execute(t, "models", "sync")
	assert.ErrorIs(t, err, apperrors.ErrCredentialInvalid)
}

func TestDefaults(t *testing.T) {
	setupEnv(t, config.BackendLocal)

	for _, n := range []string{"0", "11", "many"} {
		_, _, err := execute(t, "defaults", "rounds", n)
		assert.ErrorIs(t, err, apperrors.ErrValidationFailure, "rounds %s", n)
	}
	mustExecute(t, "defaults", "rounds", "5")
	mustExecute(t, "defaults", "refiner", "openai/gpt-4o")
	mustExecute(t, "defaults", "judge", "anthropic/claude-3.5-sonnet")

	_, _, err := execute(t, "defaults", "judge")
	assert.ErrorIs(t, err, apperrors.ErrValidationFailure)

	out := mustExecute(t, "status")
	assert.Contains(t, out, "Default rounds: 5")
	assert.Contains(t, out, "Default refiner: openai/gpt-4o")
	assert.Contains(t, out, "Default judge: anthropic/claude-3.5-sonnet")
	assert.Contains(t, out, "API key: not set")

	mustExecute(t, "defaults", "judge", "--unset")
	out = mustExecute(t, "status")
	assert.Contains(t, out, "Default judge: none")

	out = mustExecute(t, "rounds")
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 5)
}

func TestClear(t *testing.T) {
	setupEnv(t, config.BackendLocal)
	mustExecute(t, "key", "set", validKey)
	mustExecute(t, "models", "toggle", "acme/tiny-1")
	mustExecute(t, "defaults", "rounds", "7")

	_, stderr, err := execute(t, "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Configuration cleared")

	out := mustExecute(t, "status")
	assert.Contains(t, out, "API key: not set")
	assert.Contains(t, out, "Enabled models: 0")
	assert.Contains(t, out, fmt.Sprintf("Default rounds: %d", models.DefaultRefinementRounds))
	assert.Contains(t, out, "Last catalog sync: never")
}

func TestAccountBackendSession(t *testing.T) {
	dataDir := setupEnv(t, config.BackendAccount)

	_, _, err := execute(t, "status")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotAuthenticated)
	assert.Contains(t, err.Error(), "modelkombat login")

	mustExecute(t, "login", "bob")
	mustExecute(t, "defaults", "rounds", "4")
	out := mustExecute(t, "status")
	assert.Contains(t, out, "User: bob (account backend)")
	assert.Contains(t, out, "Default rounds: 4")

	// another user starts from defaults
	mustExecute(t, "login", "carol")
	out = mustExecute(t, "status")
	assert.Contains(t, out, fmt.Sprintf("Default rounds: %d", models.DefaultRefinementRounds))

	mustExecute(t, "logout")
	_, _, err = execute(t, "defaults", "rounds", "2")
	assert.ErrorIs(t, err, apperrors.ErrNotAuthenticated)

	// bob's record survived in the document store
	docs, err := storage.OpenDocumentStore(filepath.Join(dataDir, "documents"))
	require.NoError(t, err)
	defer docs.Close()
	cfg, found, err := config.NewAccountBackend(docs).Load(context.Background(), "bob")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 4, cfg.DefaultRefinementRounds)
}

func TestLoginToken(t *testing.T) {
	setupEnv(t, config.BackendAccount)

	_, _, err := execute(t, "login", "bob", "--token")
	assert.ErrorContains(t, err, "jwt_secret")

	t.Setenv("MODELKOMBAT_SERVER_JWT_SECRET", "cli-secret")
	out := mustExecute(t, "login", "bob", "--token")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	userID, err := server.ParseToken("cli-secret", lines[len(lines)-1])
	require.NoError(t, err)
	assert.Equal(t, "bob", userID)
}

func TestDotEnv(t *testing.T) {
	setupEnv(t, config.BackendAccount)
	// t.Setenv restores the variable afterwards; unset it so .env can fill it
	t.Setenv("MODELKOMBAT_SERVER_JWT_SECRET", "")
	require.NoError(t, os.Unsetenv("MODELKOMBAT_SERVER_JWT_SECRET"))
	require.NoError(t, os.WriteFile(".env", []byte("MODELKOMBAT_SERVER_JWT_SECRET=dotenv-secret\n"), 0600))

	out := mustExecute(t, "login", "bob", "--token")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	userID, err := server.ParseToken("dotenv-secret", lines[len(lines)-1])
	require.NoError(t, err)
	assert.Equal(t, "bob", userID)
}

func TestRefineAndRatings(t *testing.T) {
	setupEnv(t, config.BackendLocal)

	_, _, err := execute(t, "refine", "hello")
	assert.ErrorIs(t, err, apperrors.ErrCredentialInvalid)

	mustExecute(t, "key", "set", validKey)
	mustExecute(t, "models", "toggle", "acme/tiny-1", "openai/gpt-4o")

	out := mustExecute(t, "refine", "--project", "p1", "-n", "3", "write", "a", "haiku")
	assert.Contains(t, out, "round 1 · acme/tiny-1")
	assert.Contains(t, out, "round 2 · openai/gpt-4o")
	assert.Contains(t, out, "round 3 · acme/tiny-1")
	assert.Contains(t, out, "answer from openai/gpt-4o")
	assert.Contains(t, out, "Project: p1")

	out = mustExecute(t, "ratings", "list", "--project", "p1")
	assert.Contains(t, out, "openai/gpt-4o")

	_, _, err = execute(t, "ratings", "rate", "missing-id", "3")
	assert.ErrorIs(t, err, ratings.ErrNotFound)
}

func TestRatingsCommands(t *testing.T) {
	dataDir := setupEnv(t, config.BackendLocal)

	docs, err := storage.OpenDocumentStore(filepath.Join(dataDir, "documents"))
	require.NoError(t, err)
	store := ratings.NewStore(docs)
	ctx := context.Background()
	var ids []string
	for i, model := range []string{"m1", "m2", "m1", "m2"} {
		r, err := store.Add(ctx, ratings.Response{ProjectID: "p1", ModelID: model, Round: i, Content: "c"})
		require.NoError(t, err)
		ids = append(ids, r.ID)
	}
	require.NoError(t, docs.Close())

	mustExecute(t, "ratings", "rate", ids[0], "3")
	mustExecute(t, "ratings", "rate", ids[1], "5")
	mustExecute(t, "ratings", "rate", ids[3], "4")
	out := mustExecute(t, "ratings", "rate", ids[3], "clear")
	assert.Contains(t, out, "Cleared rating")
	mustExecute(t, "ratings", "rate", ids[3], "4")
	mustExecute(t, "ratings", "winner", ids[1])

	_, _, err = execute(t, "ratings", "rate", ids[2], "6")
	assert.ErrorIs(t, err, apperrors.ErrValidationFailure)
	_, _, err = execute(t, "ratings", "rate", ids[2], "five")
	assert.ErrorIs(t, err, apperrors.ErrValidationFailure)

	out = mustExecute(t, "ratings", "stats", "--project", "p1")
	// overall: (3+5+4)/3 ratings, 1 win over 4 responses
	assert.Contains(t, out, "4.00")
	assert.Contains(t, out, "25%")
	// m2: (5+4)/2, 1 win over 2
	assert.Contains(t, out, "4.50")
	assert.Contains(t, out, "50%")

	out = mustExecute(t, "ratings", "list")
	assert.Contains(t, out, "🏆")

	mustExecute(t, "ratings", "winner", ids[1], "--unset")
	out = mustExecute(t, "ratings", "list")
	assert.NotContains(t, out, "🏆")
}

func TestServerWiring(t *testing.T) {
	setupEnv(t, config.BackendLocal)
	mustExecute(t, "defaults", "rounds", "6")

	settings, err := config.LoadSettings("")
	require.NoError(t, err)
	a, err := openApp(settings, zap.NewNop(), io.Discard)
	require.NoError(t, err)
	defer a.Close()

	handler := newServer(settings, a).Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/config", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.LocalUserID, gjson.Get(rec.Body.String(), "userId").String())
	assert.Equal(t, int64(6), gjson.Get(rec.Body.String(), "defaultRefinementRounds").Int())

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	t.Setenv("MODELKOMBAT_SERVER_METRICS_ENABLED", "false")
	settings, err = config.LoadSettings("")
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	newServer(settings, a).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBadSettings(t *testing.T) {
	setupEnv(t, config.BackendLocal)

	_, _, err := execute(t, "--config", "missing.yaml", "status")
	assert.ErrorContains(t, err, "read settings")

	t.Setenv("MODELKOMBAT_BACKEND", "cloud")
	_, _, err = execute(t, "status")
	assert.ErrorContains(t, err, "backend must be")
}

func TestVersion(t *testing.T) {
	SetVersionInfo("1.2.3", "abc123", "2025-01-01")
	t.Cleanup(func() { SetVersionInfo("", "", "") })

	out, _, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "modelkombat 1.2.3")
	assert.Contains(t, out, "Commit: abc123")
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	if abs, err := filepath.Abs(dir); err == nil {
		t.Setenv("PWD", abs)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			panic("testing.Chdir: " + err.Error())
		}
	})
}

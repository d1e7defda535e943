package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "nested", "store.json"))
	require.NoError(t, err)
	return s
}

func TestFileStoreGetMissing(t *testing.T) {
	s := newTestFileStore(t)

	_, found, err := s.Get("model-kombat-llm-config")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFileStoreSetGetDelete(t *testing.T) {
	s := newTestFileStore(t)

	require.NoError(t, s.Set("model-kombat-llm-config", []byte(`{"userId":"local-user","defaultRefinementRounds":3}`)))
	require.NoError(t, s.Set("other", []byte(`"kept"`)))

	raw, found, err := s.Get("model-kombat-llm-config")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(3), gjson.GetBytes(raw, "defaultRefinementRounds").Int())

	require.NoError(t, s.Delete("model-kombat-llm-config"))
	_, found, err = s.Get("model-kombat-llm-config")
	require.NoError(t, err)
	assert.False(t, found)

	raw, found, err = s.Get("other")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, `"kept"`, string(raw))
}

func TestFileStoreKeyWithPathSyntax(t *testing.T) {
	s := newTestFileStore(t)

	require.NoError(t, s.Set("a.b", []byte(`1`)))
	raw, found, err := s.Get("a.b")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "1", string(raw))

	_, found, err = s.Get("a")
	require.NoError(t, err)
	assert.False(t, found, "dotted key must not create a nested object")
}

func TestFileStoreRejectsInvalidJSON(t *testing.T) {
	s := newTestFileStore(t)
	assert.Error(t, s.Set("k", []byte("{not json")))
}

func TestFileStoreCorruptFile(t *testing.T) {
	s := newTestFileStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("garbage"), 0600))

	_, _, err := s.Get("k")
	assert.Error(t, err)
}

func TestFileStorePermissionsAndBackups(t *testing.T) {
	s := newTestFileStore(t)

	for i := 0; i < DefaultBackupRetention+3; i++ {
		require.NoError(t, s.Set("k", []byte(`{"n":1}`)))
	}

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	backups, err := NewBackupManager(DefaultBackupRetention).ListBackups(s.Path())
	require.NoError(t, err)
	assert.LessOrEqual(t, len(backups), DefaultBackupRetention)
}

func TestBackupRestore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.json")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0600))

	bm := NewBackupManager(0)
	assert.Equal(t, DefaultBackupRetention, bm.MaxBackups)

	backup, err := bm.CreateBackup(path)
	require.NoError(t, err)
	assert.NotEmpty(t, backup)

	require.NoError(t, os.WriteFile(path, []byte("v2"), 0600))
	require.NoError(t, bm.RestoreFromLatestBackup(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))
}

func TestBackupMissingSource(t *testing.T) {
	backup, err := NewBackupManager(1).CreateBackup(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, backup)
	assert.Error(t, NewBackupManager(1).RestoreFromLatestBackup(filepath.Join(t.TempDir(), "absent")))
}

func newTestDocumentStore(t *testing.T) *DocumentStore {
	t.Helper()
	s, err := OpenDocumentStore("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDocumentStoreSetMerge(t *testing.T) {
	ctx := context.Background()
	s := newTestDocumentStore(t)

	_, found, err := s.Get(ctx, "llm-configs", "alice")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.SetMerge(ctx, "llm-configs", "alice", map[string]any{
		"userId":                  "alice",
		"credential":              "abc",
		"defaultRefinementRounds": 3,
	}))
	require.NoError(t, s.SetMerge(ctx, "llm-configs", "alice", map[string]any{
		"credential":      nil,
		"enabledModelIds": []string{"m1", "m2"},
	}))

	doc, found, err := s.Get(ctx, "llm-configs", "alice")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "alice", gjson.GetBytes(doc, "userId").String())
	assert.Equal(t, gjson.Null, gjson.GetBytes(doc, "credential").Type)
	assert.Equal(t, int64(3), gjson.GetBytes(doc, "defaultRefinementRounds").Int())
	assert.Equal(t, `["m1","m2"]`, gjson.GetBytes(doc, "enabledModelIds").Raw)
}

func TestDocumentStoreListAndDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestDocumentStore(t)

	require.NoError(t, s.Set(ctx, "responses", "r1", []byte(`{"id":"r1"}`)))
	require.NoError(t, s.Set(ctx, "responses", "r2", []byte(`{"id":"r2"}`)))
	require.NoError(t, s.Set(ctx, "llm-configs", "u1", []byte(`{"userId":"u1"}`)))

	docs, err := s.List(ctx, "responses")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "r1", gjson.GetBytes(docs[0], "id").String())

	require.NoError(t, s.Delete(ctx, "responses", "r1"))
	require.NoError(t, s.Delete(ctx, "responses", "missing"))
	docs, err = s.List(ctx, "responses")
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestDocumentStoreCancelledContext(t *testing.T) {
	s := newTestDocumentStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := s.Get(ctx, "llm-configs", "alice")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.SetMerge(ctx, "llm-configs", "alice", map[string]any{"a": 1}), context.Canceled)
}

package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ddrelay/internal/domain"
)

func TestStores_MissingFilesLoadEmpty(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	ids, err := NewCheckedStore(dir).Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	entries, err := NewRehostStore(dir).Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	diaries, err := NewArchiveStore(dir).Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, diaries)
}

func TestCheckedStore_RoundTripAndFormat(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewCheckedStore(dir)

	require.NoError(t, store.Save(ctx, []string{"thread-1", "thread-2"}))

	ids, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"thread-1", "thread-2"}, ids)

	raw, err := os.ReadFile(filepath.Join(dir, CheckedFile))
	require.NoError(t, err)
	assert.JSONEq(t, `["thread-1","thread-2"]`, string(raw))
}

func TestRehostStore_Format(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	require.NoError(t, NewRehostStore(dir).Save(ctx, map[string]string{
		"https://forum.example.com/a.png": "https://i.imgur.com/a.png",
	}))

	raw, err := os.ReadFile(filepath.Join(dir, RehostFile))
	require.NoError(t, err)
	assert.JSONEq(t, `{"https://forum.example.com/a.png":"https://i.imgur.com/a.png"}`, string(raw))
}

func TestArchiveStore_Format(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewArchiveStore(dir)

	archived := []domain.ArchivedDiary{
		{ID: "thread-1", URL: "https://forum/1", SubmissionID: "t3_abc", CommentIDs: []string{"c1", "c2"}, Posted: true},
	}
	require.NoError(t, store.Save(ctx, archived))

	raw, err := os.ReadFile(filepath.Join(dir, ArchiveFile))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"thread-1","url":"https://forum/1","submissionId":"t3_abc","commentIds":["c1","c2"],"posted":true}]`, string(raw))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, archived, loaded)
}

func TestLoad_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, CheckedFile), []byte("{not json"), 0o600))

	_, err := NewCheckedStore(dir).Load(context.Background())
	assert.ErrorContains(t, err, "decode")
}

func TestSave_CreatesDirAndLeavesNoTempFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")

	require.NoError(t, NewCheckedStore(dir).Save(context.Background(), nil))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, CheckedFile, entries[0].Name())
}

func TestTransactionManager_RunsFn(t *testing.T) {
	called := false
	err := NewTransactionManager().WithTransaction(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})

	assert.NoError(t, err)
	assert.True(t, called)
}

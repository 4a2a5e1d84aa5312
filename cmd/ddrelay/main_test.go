package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ddrelay/internal/config"
	"ddrelay/internal/storage/jsonfile"
)

func TestSetupLogger_Levels(t *testing.T) {
	ctx := context.Background()

	assert.True(t, setupLogger("debug").Enabled(ctx, slog.LevelDebug))
	assert.False(t, setupLogger("info").Enabled(ctx, slog.LevelDebug))
	assert.False(t, setupLogger("warn").Enabled(ctx, slog.LevelInfo))
	assert.True(t, setupLogger("error").Enabled(ctx, slog.LevelError))
	assert.True(t, setupLogger("bogus").Enabled(ctx, slog.LevelInfo))
}

func TestAcquireLock_SecondInstanceRefused(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "ddrelay.lock")

	first, err := acquireLock(path)
	require.NoError(t, err)

	_, err = acquireLock(path)
	assert.ErrorContains(t, err, "another instance")

	require.NoError(t, first.Unlock())

	again, err := acquireLock(path)
	require.NoError(t, err)
	require.NoError(t, again.Unlock())
}

func TestOpenStores_JSONDriver(t *testing.T) {
	dir := t.TempDir()
	stores, closeStores, err := openStores(context.Background(), config.StorageConfig{
		Driver: config.DriverJSON,
		Dir:    dir,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer closeStores()

	assert.IsType(t, &jsonfile.CheckedStore{}, stores.Checked)
	assert.IsType(t, &jsonfile.RehostStore{}, stores.Rehosted)
	assert.IsType(t, &jsonfile.ArchiveStore{}, stores.Archive)
	assert.IsType(t, &jsonfile.TransactionManager{}, stores.TxManager)
}

func TestWriteMessages_Plain(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, writeMessages(&buf, []string{"> one", "> two"}, false))

	assert.Equal(t,
		"--- message 1/2 (5 chars) ---\n> one\n--- message 2/2 (5 chars) ---\n> two\n",
		buf.String(),
	)
}

func TestWriteMessages_HTML(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, writeMessages(&buf, []string{"> quoted *light* and **strong**"}, true))

	out := buf.String()
	assert.Contains(t, out, "<blockquote>")
	assert.Contains(t, out, "<em>light</em>")
	assert.Contains(t, out, "<strong>strong</strong>")
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	root := newRootCommand()

	for _, name := range []string{"run", "once", "preview"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}

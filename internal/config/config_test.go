package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsAndEnvExpansion(t *testing.T) {
	t.Setenv("DDRELAY_TEST_IMGUR_ID", "client-42")
	path := writeConfig(t, `
forum:
  front_page_url: https://forum.example.com/
  article_prefix: https://forum.example.com/
imgur:
  client_id: ${DDRELAY_TEST_IMGUR_ID}
subreddits:
  - name: paradoxplaza
    all_games: true
  - name: stellaris
    games: [Stellaris]
    flairs:
      Stellaris: Dev Diary
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "client-42", cfg.Imgur.ClientID)
	assert.Zero(t, cfg.Forum.Timeout, "requests are unbounded unless configured")
	assert.Zero(t, cfg.Imgur.Timeout, "uploads are unbounded unless configured")
	assert.Equal(t, 3, cfg.Forum.Retry.MaxAttempts)
	assert.Equal(t, 10000, cfg.Transcode.MessageLimit)
	assert.Equal(t, DriverJSON, cfg.Storage.Driver)
	assert.Equal(t, filepath.Join(".", "ddrelay.lock"), cfg.Storage.LockFile)
	assert.Equal(t, time.Minute, cfg.Sync.Interval)
	assert.Zero(t, cfg.Sync.Expiration)
	assert.Zero(t, cfg.Sync.TickTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	require.Len(t, cfg.Subreddits, 2)
	assert.Equal(t, "Dev Diary", cfg.Subreddits[1].Flairs["Stellaris"])
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "read config file")
}

func TestLoad_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing front page", "forum:\n  article_prefix: x\n"},
		{"bad driver", "forum:\n  front_page_url: https://f.example.com\n  article_prefix: x\nstorage:\n  driver: mongo\n"},
		{"unnamed subreddit", "forum:\n  front_page_url: https://f.example.com\n  article_prefix: x\nsubreddits:\n  - all_games: true\n"},
		{"poster without broker", "forum:\n  front_page_url: https://f.example.com\n  article_prefix: x\nposter:\n  enabled: true\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.ErrorContains(t, err, "validate config")
		})
	}
}

func TestSubredditConfig_Accepts(t *testing.T) {
	all := SubredditConfig{Name: "all", AllGames: true}
	some := SubredditConfig{Name: "eu4", Games: []string{"Europa Universalis IV"}}

	assert.True(t, all.Accepts("Anything"))
	assert.True(t, some.Accepts("Europa Universalis IV"))
	assert.False(t, some.Accepts("Stellaris"))
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "dd", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=dd sslmode=disable", d.DSN())
}

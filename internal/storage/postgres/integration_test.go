//go:build integration

package postgres

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"ddrelay/internal/domain"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	migrationsPath, err := filepath.Abs("../../../migrations")
	s.Require().NoError(err)

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.WithInitScripts(filepath.Join(migrationsPath, "001_create_state.up.sql")),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect("postgres", connStr)
	s.Require().NoError(err)
	s.db = db
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM checked_articles")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM rehosted_media")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM diary_archive")
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func (s *PostgresIntegrationSuite) TestCheckedStore_EmptyLoad() {
	ids, err := NewCheckedStore(s.db).Load(s.ctx)
	s.NoError(err)
	s.Empty(ids)
}

func (s *PostgresIntegrationSuite) TestCheckedStore_PreservesOrderAndIgnoresDuplicates() {
	store := NewCheckedStore(s.db)

	s.NoError(store.Save(s.ctx, []string{"c", "a", "b"}))
	s.NoError(store.Save(s.ctx, []string{"c", "a", "b", "d"}))

	ids, err := store.Load(s.ctx)
	s.NoError(err)
	s.Equal([]string{"c", "a", "b", "d"}, ids)
}

func (s *PostgresIntegrationSuite) TestRehostStore_NeverOverwrites() {
	store := NewRehostStore(s.db)

	s.NoError(store.Save(s.ctx, map[string]string{
		"https://forum/a.png": "https://i.imgur.com/a.png",
		"https://forum/b.png": "https://i.imgur.com/b.png",
	}))
	s.NoError(store.Save(s.ctx, map[string]string{
		"https://forum/a.png": "https://i.imgur.com/other.png",
	}))

	entries, err := store.Load(s.ctx)
	s.NoError(err)
	s.Equal(map[string]string{
		"https://forum/a.png": "https://i.imgur.com/a.png",
		"https://forum/b.png": "https://i.imgur.com/b.png",
	}, entries)
}

func (s *PostgresIntegrationSuite) TestArchiveStore_RoundTrip() {
	store := NewArchiveStore(s.db)

	diaries := []domain.ArchivedDiary{
		{ID: "1", URL: "https://forum/1", SubmissionID: "t3_x", CommentIDs: []string{"c1", "c2"}, Posted: true},
		{ID: "2", URL: "https://forum/2", CommentIDs: []string{}},
	}
	s.NoError(store.Save(s.ctx, diaries))
	s.NoError(store.Save(s.ctx, []domain.ArchivedDiary{{ID: "1", URL: "https://forum/changed"}}))

	loaded, err := store.Load(s.ctx)
	s.NoError(err)
	s.Equal(diaries, loaded)
}

func (s *PostgresIntegrationSuite) TestTransaction_Commit() {
	tm := NewTransactionManager(s.db)
	store := NewCheckedStore(s.db)

	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		return store.Save(ctx, []string{"tx-1"})
	})
	s.NoError(err)

	ids, err := store.Load(s.ctx)
	s.NoError(err)
	s.Equal([]string{"tx-1"}, ids)
}

func (s *PostgresIntegrationSuite) TestTransaction_Rollback() {
	tm := NewTransactionManager(s.db)
	checked := NewCheckedStore(s.db)
	archive := NewArchiveStore(s.db)

	s.NoError(checked.Save(s.ctx, []string{"pre-existing"}))

	boom := errors.New("boom")
	err := tm.WithTransaction(s.ctx, func(ctx context.Context) error {
		if err := checked.Save(ctx, []string{"rolled-back"}); err != nil {
			return err
		}
		if err := archive.Save(ctx, []domain.ArchivedDiary{{ID: "rolled-back", URL: "https://forum/x"}}); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	ids, err := checked.Load(s.ctx)
	s.NoError(err)
	s.Equal([]string{"pre-existing"}, ids)

	diaries, err := archive.Load(s.ctx)
	s.NoError(err)
	s.Empty(diaries)
}

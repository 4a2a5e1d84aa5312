package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// CheckedStore keeps the ids of every listing entry already examined.
// Rows are append-only; seq preserves the order ids were first seen.
type CheckedStore struct {
	db *sqlx.DB
}

func NewCheckedStore(db *sqlx.DB) *CheckedStore {
	return &CheckedStore{db: db}
}

func (s *CheckedStore) Load(ctx context.Context) ([]string, error) {
	var ids []string
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &ids,
		`SELECT article_id FROM checked_articles ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("select checked articles: %w", err)
	}
	return ids, nil
}

func (s *CheckedStore) Save(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query := `
		INSERT INTO checked_articles (article_id)
		SELECT id FROM unnest($1::text[]) WITH ORDINALITY AS t(id, ord)
		ORDER BY ord
		ON CONFLICT (article_id) DO NOTHING`

	if _, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("insert checked articles: %w", err)
	}
	return nil
}

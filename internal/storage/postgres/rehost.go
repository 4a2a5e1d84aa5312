package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type RehostStore struct {
	db *sqlx.DB
}

func NewRehostStore(db *sqlx.DB) *RehostStore {
	return &RehostStore{db: db}
}

type rehostRow struct {
	SourceURL   string `db:"source_url"`
	RehostedURL string `db:"rehosted_url"`
}

func (s *RehostStore) Load(ctx context.Context) (map[string]string, error) {
	var rows []rehostRow
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows,
		`SELECT source_url, rehosted_url FROM rehosted_media`)
	if err != nil {
		return nil, fmt.Errorf("select rehosted media: %w", err)
	}

	entries := make(map[string]string, len(rows))
	for _, r := range rows {
		entries[r.SourceURL] = r.RehostedURL
	}
	return entries, nil
}

// Save inserts mappings not yet stored. Existing mappings are never
// rewritten.
func (s *RehostStore) Save(ctx context.Context, entries map[string]string) error {
	if len(entries) == 0 {
		return nil
	}

	sources := make([]string, 0, len(entries))
	targets := make([]string, 0, len(entries))
	for src, dst := range entries {
		sources = append(sources, src)
		targets = append(targets, dst)
	}

	query := `
		INSERT INTO rehosted_media (source_url, rehosted_url)
		SELECT * FROM unnest($1::text[], $2::text[])
		ON CONFLICT (source_url) DO NOTHING`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, pq.Array(sources), pq.Array(targets))
	if err != nil {
		return fmt.Errorf("insert rehosted media: %w", err)
	}
	return nil
}

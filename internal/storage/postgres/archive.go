package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"ddrelay/internal/domain"
)

type ArchiveStore struct {
	db *sqlx.DB
}

func NewArchiveStore(db *sqlx.DB) *ArchiveStore {
	return &ArchiveStore{db: db}
}

type archiveRow struct {
	DiaryID      string         `db:"diary_id"`
	URL          string         `db:"url"`
	SubmissionID string         `db:"submission_id"`
	CommentIDs   pq.StringArray `db:"comment_ids"`
	Posted       bool           `db:"posted"`
}

func (s *ArchiveStore) Load(ctx context.Context) ([]domain.ArchivedDiary, error) {
	var rows []archiveRow
	query := `
		SELECT diary_id, url, submission_id, comment_ids, posted
		FROM diary_archive
		ORDER BY seq`

	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows, query); err != nil {
		return nil, fmt.Errorf("select diary archive: %w", err)
	}

	diaries := make([]domain.ArchivedDiary, 0, len(rows))
	for _, r := range rows {
		diaries = append(diaries, domain.ArchivedDiary{
			ID:           r.DiaryID,
			URL:          r.URL,
			SubmissionID: r.SubmissionID,
			CommentIDs:   []string(r.CommentIDs),
			Posted:       r.Posted,
		})
	}
	return diaries, nil
}

// Save appends diaries that are not archived yet. An archived diary is
// final; later saves of the same id are ignored.
func (s *ArchiveStore) Save(ctx context.Context, diaries []domain.ArchivedDiary) error {
	query := `
		INSERT INTO diary_archive (diary_id, url, submission_id, comment_ids, posted)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (diary_id) DO NOTHING`

	exec := GetExecutor(ctx, s.db)
	for _, d := range diaries {
		commentIDs := d.CommentIDs
		if commentIDs == nil {
			commentIDs = []string{}
		}
		_, err := exec.ExecContext(ctx, query, d.ID, d.URL, d.SubmissionID, pq.Array(commentIDs), d.Posted)
		if err != nil {
			return fmt.Errorf("insert archived diary %s: %w", d.ID, err)
		}
	}
	return nil
}

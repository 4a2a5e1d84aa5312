package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"ddrelay/internal/domain"
)

type Source interface {
	FetchListing(ctx context.Context) ([]domain.ArticleStub, error)
	FetchDetail(ctx context.Context, url string) (*domain.DiaryDetail, error)
}

type Transcoder interface {
	Transcode(ctx context.Context, root domain.Node, byline string) ([]domain.Token, error)
}

// RehostCache is the in-memory side of the media rehost cache.
type RehostCache interface {
	Restore(entries map[string]string)
	Entries() map[string]string
}

type CheckedStore interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, ids []string) error
}

type RehostStore interface {
	Load(ctx context.Context) (map[string]string, error)
	Save(ctx context.Context, entries map[string]string) error
}

type ArchiveStore interface {
	Load(ctx context.Context) ([]domain.ArchivedDiary, error)
	Save(ctx context.Context, diaries []domain.ArchivedDiary) error
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Poster submits a diary thread. Failure may be reported either as an
// error or as a result with Success unset; both count as not posted.
type Poster interface {
	Post(ctx context.Context, req domain.PostRequest) (*domain.PostResult, error)
}

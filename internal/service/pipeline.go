package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ddrelay/internal/chunk"
	"ddrelay/internal/config"
	"ddrelay/internal/domain"
	"ddrelay/internal/index"
)

// Stores groups the persistence side of the pipeline.
type Stores struct {
	Checked   CheckedStore
	Rehosted  RehostStore
	Archive   ArchiveStore
	TxManager TransactionManager
}

type PipelineConfig struct {
	Targets []config.SubredditConfig
	// Expiration marks older diaries as posted without posting them.
	Expiration time.Duration
	Resubmit   bool
}

// Pipeline runs one detect, transcode and post cycle per call to Run.
// It is not safe for concurrent use.
type Pipeline struct {
	source     Source
	transcoder Transcoder
	assembler  *chunk.Assembler
	index      *index.Index
	rehost     RehostCache
	stores     Stores
	poster     Poster
	cfg        PipelineConfig
	archived   []domain.ArchivedDiary
	logger     *slog.Logger
	now        func() time.Time
}

// NewPipeline wires the pipeline. A nil poster runs it dry: messages are
// assembled and logged, nothing is posted.
func NewPipeline(
	source Source,
	transcoder Transcoder,
	assembler *chunk.Assembler,
	idx *index.Index,
	rehost RehostCache,
	stores Stores,
	poster Poster,
	cfg PipelineConfig,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		source:     source,
		transcoder: transcoder,
		assembler:  assembler,
		index:      idx,
		rehost:     rehost,
		stores:     stores,
		poster:     poster,
		cfg:        cfg,
		logger:     logger.With("component", "pipeline"),
		now:        time.Now,
	}
}

// Load restores persisted state. It must be called once before the first Run.
func (p *Pipeline) Load(ctx context.Context) error {
	ids, err := p.stores.Checked.Load(ctx)
	if err != nil {
		return fmt.Errorf("load checked articles: %w", err)
	}
	p.index.Restore(ids)

	entries, err := p.stores.Rehosted.Load(ctx)
	if err != nil {
		return fmt.Errorf("load rehost cache: %w", err)
	}
	p.rehost.Restore(entries)

	archived, err := p.stores.Archive.Load(ctx)
	if err != nil {
		return fmt.Errorf("load diary archive: %w", err)
	}
	p.archived = archived

	p.logger.Info("state loaded",
		"checked", p.index.Len(),
		"rehosted", len(entries),
		"archived", len(archived),
	)
	return nil
}

// Run performs one tick. A listing failure aborts the tick before any state
// changes. A malformed detail page ends the tick early; state is still saved
// and the error returned.
func (p *Pipeline) Run(ctx context.Context) (*domain.CycleStats, error) {
	startTime := time.Now()
	stats := &domain.CycleStats{RunID: uuid.NewString()}
	logger := p.logger.With("run_id", stats.RunID)

	stubs, err := p.source.FetchListing(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch listing: %w", err)
	}
	stats.Listed = len(stubs)

	diaries := p.index.DetectNew(stubs)
	stats.Detected = len(diaries)
	if len(diaries) > 0 {
		logger.Info("new diaries detected", "count", len(diaries))
	}

	var runErr error
	for i := range diaries {
		diary := &diaries[i]
		err := p.process(ctx, logger, diary, stats)

		p.archived = append(p.archived, diary.Archived())
		stats.Processed++

		if err == nil {
			continue
		}
		stats.Errors++
		if errors.Is(err, domain.ErrMalformedPage) {
			runErr = fmt.Errorf("process diary %s: %w", diary.ID, err)
			logger.Error("malformed diary page, ending tick",
				"diary_id", diary.ID,
				"skipped", len(diaries)-i-1,
				"error", err,
			)
			break
		}
		logger.Warn("diary skipped", "diary_id", diary.ID, "url", diary.URL, "error", err)
	}

	// State must survive a cancelled tick.
	if err := p.save(context.WithoutCancel(ctx)); err != nil {
		return stats, errors.Join(runErr, fmt.Errorf("save state: %w", err))
	}

	stats.Duration = time.Since(startTime)

	logger.Info("tick completed",
		"listed", stats.Listed,
		"detected", stats.Detected,
		"processed", stats.Processed,
		"posted", stats.Posted,
		"expired", stats.Expired,
		"errors", stats.Errors,
		"chunks", stats.Chunks,
		"duration", stats.Duration,
	)

	return stats, runErr
}

func (p *Pipeline) process(ctx context.Context, logger *slog.Logger, diary *domain.Diary, stats *domain.CycleStats) error {
	detail, err := p.source.FetchDetail(ctx, diary.URL)
	if err != nil {
		return err
	}

	diary.Title = detail.Title
	diary.Game = detail.Game
	diary.Author = detail.Author
	diary.PublishedAt = detail.PublishedAt
	diary.PublishedText = detail.PublishedText

	logger = logger.With("diary_id", diary.ID, "title", diary.Title, "game", diary.Game)

	if p.expired(diary) {
		diary.Posted = true
		stats.Expired++
		logger.Info("diary expired, not posting", "published_at", diary.PublishedAt)
		return nil
	}

	tokens, err := p.transcoder.Transcode(ctx, detail.Body, diary.Byline())
	if err != nil {
		return fmt.Errorf("transcode: %w", err)
	}

	messages := p.assembler.Pack(tokens)
	stats.Chunks += len(messages)

	if p.poster == nil {
		logger.Info("dry run, not posting", "messages", len(messages))
		for i, msg := range messages {
			logger.Debug("assembled message", "index", i, "length", len([]rune(msg)), "text", msg)
		}
		return nil
	}

	p.post(ctx, logger, diary, messages, stats)
	if diary.Posted {
		stats.Posted++
	}
	return nil
}

// post submits the diary to every accepting target. Target failures are
// logged and counted; the diary counts as posted when any target succeeds.
func (p *Pipeline) post(ctx context.Context, logger *slog.Logger, diary *domain.Diary, messages []string, stats *domain.CycleStats) {
	accepted := 0
	for _, target := range p.cfg.Targets {
		if !target.Accepts(diary.Game) {
			continue
		}
		accepted++

		result, err := p.poster.Post(ctx, domain.PostRequest{
			Subreddit: target.Name,
			Title:     diary.Title,
			URL:       diary.URL,
			Messages:  messages,
			Game:      diary.Game,
			Flairs:    target.Flairs,
			Resubmit:  p.cfg.Resubmit,
		})
		if err == nil {
			err = checkResult(target.Name, result)
		}
		if err != nil {
			stats.Errors++
			logger.Error("post failed", "subreddit", target.Name, "error", err)
			continue
		}

		diary.Posted = true
		diary.SubmissionID = result.SubmissionID
		diary.CommentIDs = result.CommentIDs
		logger.Info("diary posted",
			"subreddit", target.Name,
			"submission_id", result.SubmissionID,
			"comments", len(result.CommentIDs),
		)
	}

	if accepted == 0 {
		logger.Info("no subreddit accepts this game")
	}
}

// checkResult turns a reply that does not report success into a
// *domain.PostError.
func checkResult(subreddit string, result *domain.PostResult) error {
	if result == nil {
		return &domain.PostError{Subreddit: subreddit, Reason: "empty poster reply"}
	}
	if !result.Success {
		reason := result.Error
		if reason == "" {
			reason = "poster reported failure"
		}
		return &domain.PostError{Subreddit: subreddit, Reason: reason}
	}
	return nil
}

func (p *Pipeline) expired(diary *domain.Diary) bool {
	if p.cfg.Expiration <= 0 || diary.PublishedAt.IsZero() {
		return false
	}
	return p.now().Sub(diary.PublishedAt) > p.cfg.Expiration
}

func (p *Pipeline) save(ctx context.Context) error {
	return p.stores.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := p.stores.Checked.Save(txCtx, p.index.CheckedIDs()); err != nil {
			return fmt.Errorf("save checked articles: %w", err)
		}
		if err := p.stores.Rehosted.Save(txCtx, p.rehost.Entries()); err != nil {
			return fmt.Errorf("save rehost cache: %w", err)
		}
		if err := p.stores.Archive.Save(txCtx, p.archived); err != nil {
			return fmt.Errorf("save diary archive: %w", err)
		}
		return nil
	})
}

package main

import (
	"bytes"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"ddrelay/internal/chunk"
	"ddrelay/internal/domain"
	"ddrelay/internal/transcode"
)

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	var noRehost, asHTML bool

	cmd := &cobra.Command{
		Use:   "preview <detail-url>",
		Short: "Print the messages a diary would be posted as",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := ctx.cfg, ctx.logger
			runCtx := cmd.Context()

			detail, err := newSource(cfg.Forum, logger).FetchDetail(runCtx, args[0])
			if err != nil {
				return err
			}

			var rehoster transcode.Rehoster
			var saveRehosted func() error
			if !noRehost {
				lock, err := acquireLock(cfg.Storage.LockFile)
				if err != nil {
					return err
				}
				defer lock.Unlock()

				stores, closeStores, err := openStores(runCtx, cfg.Storage, logger)
				if err != nil {
					return err
				}
				defer closeStores()

				entries, err := stores.Rehosted.Load(runCtx)
				if err != nil {
					return fmt.Errorf("load rehost cache: %w", err)
				}
				cache := newRehostCache(cfg.Imgur, logger)
				cache.Restore(entries)

				rehoster = cache
				saveRehosted = func() error {
					return stores.Rehosted.Save(runCtx, cache.Entries())
				}
			}

			transcoder, err := newTranscoder(cfg, rehoster, logger)
			if err != nil {
				return err
			}

			diary := domain.Diary{
				URL:           args[0],
				Author:        detail.Author,
				PublishedText: detail.PublishedText,
			}
			tokens, err := transcoder.Transcode(runCtx, detail.Body, diary.Byline())

			// Uploads done before a failure are still worth keeping.
			if saveRehosted != nil {
				if saveErr := saveRehosted(); saveErr != nil {
					logger.Error("failed to save rehost cache", "error", saveErr)
				}
			}
			if err != nil {
				return err
			}

			messages := chunk.New(cfg.Transcode.MessageLimit).Pack(tokens)
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n# game: %s\n\n", detail.Title, detail.Game)
			return writeMessages(cmd.OutOrStdout(), messages, asHTML)
		},
	}

	cmd.Flags().BoolVar(&noRehost, "no-rehost", false, "Keep forum image URLs instead of uploading them")
	cmd.Flags().BoolVar(&asHTML, "html", false, "Render each message to HTML")
	return cmd
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

func writeMessages(w io.Writer, messages []string, asHTML bool) error {
	for i, msg := range messages {
		fmt.Fprintf(w, "--- message %d/%d (%d chars) ---\n", i+1, len(messages), len([]rune(msg)))

		if !asHTML {
			fmt.Fprintln(w, msg)
			continue
		}

		var buf bytes.Buffer
		if err := markdown.Convert([]byte(msg), &buf); err != nil {
			return fmt.Errorf("render message %d: %w", i+1, err)
		}
		if _, err := buf.WriteTo(w); err != nil {
			return fmt.Errorf("write message %d: %w", i+1, err)
		}
	}
	return nil
}

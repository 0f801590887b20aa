package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	sqlitestore "github.com/bnema/mediagrab/internal/adapter/storage/sqlite"
	"github.com/bnema/mediagrab/internal/infrastructure/logger"
)

type historyJSON struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	FormatID    string `json:"itag"`
	Status      string `json:"status"`
	Title       string `json:"title"`
	IsAudioOnly bool   `json:"is_audio_only"`
	Error       string `json:"error,omitempty"`
	SubmittedAt string `json:"submitted_at"`
	FinishedAt  string `json:"finished_at"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently finished jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			store, err := sqlitestore.NewStore(cfg.DataDir)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer func() { _ = store.Close() }()

			records, err := sqlitestore.NewHistory(store).Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				rows := make([]historyJSON, 0, len(records))
				for _, rec := range records {
					rows = append(rows, historyJSON{
						ID:          rec.ID,
						URL:         rec.URL,
						FormatID:    rec.FormatID,
						Status:      string(rec.Status),
						Title:       rec.Title,
						IsAudioOnly: rec.IsAudioOnly,
						Error:       rec.Error,
						SubmittedAt: rec.SubmittedAt.Format(time.RFC3339),
						FinishedAt:  rec.FinishedAt.Format(time.RFC3339),
					})
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}

			if len(records) == 0 {
				fmt.Fprintln(out, "no finished jobs")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{
					rec.ID,
					string(rec.Status),
					humanize.Time(rec.FinishedAt),
					logger.SanitizeForLog(rec.Title),
					logger.SanitizeForLog(rec.Error),
				})
			}
			_, err = fmt.Fprintln(out, renderTable(
				[]string{"ID", "STATUS", "FINISHED", "TITLE", "ERROR"},
				rows,
				nil,
			))
			return err
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of jobs to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

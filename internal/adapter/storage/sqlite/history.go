package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/bnema/mediagrab/internal/domain"
	"github.com/bnema/mediagrab/internal/port"
)

const (
	insertHistory = `INSERT INTO job_history
	(id, url, format_id, status, title, is_audio_only, error_message, submitted_at, finished_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO NOTHING`

	listHistory = `SELECT id, url, format_id, status, title, is_audio_only, error_message, submitted_at, finished_at
FROM job_history
ORDER BY finished_at DESC, id DESC
LIMIT ?`
)

// DefaultHistoryLimit bounds Recent when the caller passes no limit.
const DefaultHistoryLimit = 50

// History is the append-only trace of terminal jobs.
type History struct {
	store *Store
}

func NewHistory(store *Store) *History {
	return &History{store: store}
}

// Record stores a terminal outcome. A job is recorded at most once; later
// records for the same id are ignored.
func (h *History) Record(ctx context.Context, rec domain.HistoryRecord) error {
	_, err := h.store.db.ExecContext(ctx, insertHistory,
		rec.ID,
		rec.URL,
		rec.FormatID,
		string(rec.Status),
		rec.Title,
		rec.IsAudioOnly,
		rec.Error,
		rec.SubmittedAt.UnixMilli(),
		rec.FinishedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert history %s: %w", rec.ID, err)
	}
	return nil
}

// Recent returns the latest terminal jobs, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]domain.HistoryRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := h.store.db.QueryContext(ctx, listHistory, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]domain.HistoryRecord, 0, limit)
	for rows.Next() {
		var (
			rec                 domain.HistoryRecord
			status              string
			submitted, finished int64
		)
		if err := rows.Scan(&rec.ID, &rec.URL, &rec.FormatID, &status, &rec.Title,
			&rec.IsAudioOnly, &rec.Error, &submitted, &finished); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		rec.Status = domain.JobStatus(status)
		rec.SubmittedAt = time.UnixMilli(submitted).UTC()
		rec.FinishedAt = time.UnixMilli(finished).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return records, nil
}

var _ port.JobHistory = (*History)(nil)

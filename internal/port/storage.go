package port

import (
	"context"

	"github.com/bnema/mediagrab/internal/domain"
)

// JobHistory keeps an append-only trace of terminal jobs. It is never
// used to restore live job state.
type JobHistory interface {
	Record(ctx context.Context, rec domain.HistoryRecord) error
	Recent(ctx context.Context, limit int) ([]domain.HistoryRecord, error)
}

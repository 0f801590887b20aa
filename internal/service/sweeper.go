package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/bnema/mediagrab/internal/domain"
	"github.com/bnema/mediagrab/internal/infrastructure/logger"
)

type SweeperOptions struct {
	Dir      string
	Interval time.Duration
	// FileMaxAge is how old a file in Dir must be to be deleted.
	FileMaxAge time.Duration
	// JobRetention is how long a terminal job stays pollable.
	JobRetention time.Duration
}

// Sweeper periodically deletes stale downloads and evicts terminal jobs.
type Sweeper struct {
	registry *Registry
	opts     SweeperOptions
	now      func() time.Time
}

func NewSweeper(registry *Registry, opts SweeperOptions) *Sweeper {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	return &Sweeper{registry: registry, opts: opts, now: time.Now}
}

// SweepResult summarizes one cycle.
type SweepResult struct {
	FilesRemoved int
	BytesFreed   uint64
	JobsEvicted  int
}

// Run sweeps once immediately and then on every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	s.sweepAndLog()

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweepAndLog()
		}
	}
}

func (s *Sweeper) sweepAndLog() {
	res := s.Sweep()
	if res.FilesRemoved > 0 || res.JobsEvicted > 0 {
		logger.Info.Printf("sweep: removed %d files (%s), evicted %d jobs",
			res.FilesRemoved, humanize.Bytes(res.BytesFreed), res.JobsEvicted)
	}
}

// Sweep runs one cycle. Files of jobs that are still running are kept
// whatever their age.
func (s *Sweeper) Sweep() SweepResult {
	var res SweepResult
	res.FilesRemoved, res.BytesFreed = s.sweepFiles()
	res.JobsEvicted = len(s.registry.EvictTerminal(s.opts.JobRetention))
	return res
}

func (s *Sweeper) sweepFiles() (int, uint64) {
	entries, err := os.ReadDir(s.opts.Dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn.Printf("sweep: read %s: %v", s.opts.Dir, err)
		}
		return 0, 0
	}

	var live []domain.JobPaths
	for _, id := range s.registry.LiveIDs() {
		live = append(live, domain.NewJobPaths(s.opts.Dir, id))
	}

	cutoff := s.now().Add(-s.opts.FileMaxAge)
	removed := 0
	var freed uint64
	for _, entry := range entries {
		if entry.IsDir() || belongsToAny(live, entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.opts.Dir, entry.Name())
		if err := os.Remove(path); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				logger.Warn.Printf("sweep: remove %s: %v", entry.Name(), err)
			}
			continue
		}
		removed++
		freed += uint64(info.Size())
	}
	return removed, freed
}

func belongsToAny(jobs []domain.JobPaths, name string) bool {
	for _, p := range jobs {
		if p.MatchesPartial(name) {
			return true
		}
	}
	return false
}

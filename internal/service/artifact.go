package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/bnema/mediagrab/internal/domain"
	"github.com/bnema/mediagrab/internal/infrastructure/logger"
)

// Artifact is a finished job's file, handed out once. Closing it deletes
// the file with its known variants and forgets the job.
type Artifact struct {
	file     *os.File
	Name     string
	MIMEType string
	Size     int64
	ModTime  time.Time

	closeOnce sync.Once
	cleanup   func()
}

func (a *Artifact) Read(p []byte) (int, error) {
	return a.file.Read(p)
}

func (a *Artifact) Seek(offset int64, whence int) (int64, error) {
	return a.file.Seek(offset, whence)
}

func (a *Artifact) Close() error {
	var err error
	a.closeOnce.Do(func() {
		err = a.file.Close()
		a.cleanup()
	})
	return err
}

// FetchArtifact claims a completed job's file. A job that is unknown or was
// already fetched is ErrNotFound; one that has not completed is ErrNotReady.
func (s *JobService) FetchArtifact(id string) (*Artifact, error) {
	_, state, err := s.registry.ClaimArtifact(id)
	if err != nil {
		return nil, err
	}

	paths := domain.NewJobPaths(s.opts.DownloadDir, id)
	release := func() {
		s.deleteArtifact(paths, state.FinalPath)
		s.registry.Remove(id)
	}

	f, err := os.Open(state.FinalPath)
	if err != nil {
		release()
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	mimeType, ext := domain.ArtifactType(state.IsAudioOnly, state.FinalPath)
	artifact, err := NewArtifact(f, domain.DownloadFilename(s.opts.DownloadNamePrefix, state.Title, ext), mimeType, release)
	if err != nil {
		f.Close() //nolint:errcheck
		release()
		return nil, err
	}
	return artifact, nil
}

// NewArtifact wraps an open file. cleanup runs once, after the file is
// closed.
func NewArtifact(f *os.File, name, mimeType string, cleanup func()) (*Artifact, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat artifact: %w", err)
	}
	if cleanup == nil {
		cleanup = func() {}
	}
	return &Artifact{
		file:     f,
		Name:     name,
		MIMEType: mimeType,
		Size:     info.Size(),
		ModTime:  info.ModTime(),
		cleanup:  cleanup,
	}, nil
}

func (s *JobService) deleteArtifact(paths domain.JobPaths, finalPath string) {
	errs := removeIfExists(finalPath)
	for _, p := range paths.ArtifactVariants() {
		errs = multierr.Append(errs, removeIfExists(p))
	}
	for _, pattern := range []string{"video_" + paths.ID + ".*", paths.ID + "_final.*"} {
		matches, _ := filepath.Glob(filepath.Join(paths.Dir, pattern))
		for _, m := range matches {
			errs = multierr.Append(errs, removeIfExists(m))
		}
	}
	if errs != nil {
		logger.Warn.Printf("artifact cleanup of job %s incomplete: %v", paths.ID, errs)
	}
}

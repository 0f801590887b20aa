package http

import (
	"context"
	"errors"

	"github.com/stretchr/testify/mock"

	"github.com/bnema/mediagrab/internal/domain"
	"github.com/bnema/mediagrab/internal/service"
)

type jobsMock struct {
	mock.Mock
}

func (m *jobsMock) Info(_ context.Context, rawURL string) (*domain.Metadata, error) {
	args := m.Called(rawURL)
	meta, _ := args.Get(0).(*domain.Metadata)
	return meta, args.Error(1)
}

func (m *jobsMock) Submit(_ context.Context, rawURL, formatID string) (string, error) {
	args := m.Called(rawURL, formatID)
	return args.String(0), args.Error(1)
}

func (m *jobsMock) Status(id string) (domain.JobState, error) {
	args := m.Called(id)
	state, _ := args.Get(0).(domain.JobState)
	return state, args.Error(1)
}

func (m *jobsMock) Cancel(id string) error {
	return m.Called(id).Error(0)
}

func (m *jobsMock) FetchArtifact(id string) (*service.Artifact, error) {
	args := m.Called(id)
	artifact, _ := args.Get(0).(*service.Artifact)
	return artifact, args.Error(1)
}

func (m *jobsMock) History(_ context.Context, limit int) ([]domain.HistoryRecord, error) {
	args := m.Called(limit)
	records, _ := args.Get(0).([]domain.HistoryRecord)
	return records, args.Error(1)
}

type staticVerifier struct {
	token string
}

func (v staticVerifier) Enabled() bool { return v.token != "" }

func (v staticVerifier) Verify(token string) error {
	if token != v.token {
		return errors.New("invalid token")
	}
	return nil
}

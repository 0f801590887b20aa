package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/bnema/mediagrab/internal/adapter/http/ratelimit"
	"github.com/bnema/mediagrab/internal/domain"
	"github.com/bnema/mediagrab/internal/infrastructure/logger"
	"github.com/bnema/mediagrab/internal/service"
	"github.com/bnema/mediagrab/internal/validation"
)

const maxSubmitBody = 16 << 10

type JobService interface {
	Info(ctx context.Context, rawURL string) (*domain.Metadata, error)
	Submit(ctx context.Context, rawURL, formatID string) (string, error)
	Status(id string) (domain.JobState, error)
	Cancel(id string) error
	FetchArtifact(id string) (*service.Artifact, error)
	History(ctx context.Context, limit int) ([]domain.HistoryRecord, error)
}

type Handlers struct {
	jobs        JobService
	limiter     *ratelimit.SubmitLimiter
	behindProxy bool
}

func NewHandlers(jobs JobService, limiter *ratelimit.SubmitLimiter, behindProxy bool) *Handlers {
	return &Handlers{
		jobs:        jobs,
		limiter:     limiter,
		behindProxy: behindProxy,
	}
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type durationView struct {
	Seconds   float64 `json:"seconds"`
	Formatted string  `json:"formatted"`
}

type authorView struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type statisticsView struct {
	Views int64 `json:"views"`
	Likes int64 `json:"likes"`
}

type infoView struct {
	Title       string              `json:"title"`
	Duration    durationView        `json:"duration"`
	Thumbnails  []domain.Thumbnail  `json:"thumbnails"`
	Formats     domain.FormatGroups `json:"formats"`
	Author      authorView          `json:"author"`
	Statistics  statisticsView      `json:"statistics"`
	Description string              `json:"description"`
}

type infoResponse struct {
	Success bool     `json:"success"`
	Data    infoView `json:"data"`
}

type submitRequest struct {
	URL  string `json:"url"`
	Itag string `json:"itag"`
}

type submitResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"job_id"`
}

type cancelResponse struct {
	Success bool             `json:"success"`
	Status  domain.JobStatus `json:"status"`
}

type historyEntry struct {
	ID          string           `json:"id"`
	URL         string           `json:"url"`
	FormatID    string           `json:"itag"`
	Status      domain.JobStatus `json:"status"`
	Title       string           `json:"title"`
	IsAudioOnly bool             `json:"is_audio_only"`
	Error       string           `json:"error,omitempty"`
	SubmittedAt string           `json:"submitted_at"`
	FinishedAt  string           `json:"finished_at"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg})
}

// writeServiceError maps service errors onto HTTP statuses. Unexpected errors are
// logged and hidden behind a generic message.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	var extractionErr *domain.ExtractionError
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "job not found")
	case errors.Is(err, domain.ErrNotReady):
		writeError(w, http.StatusConflict, "artifact not ready")
	case errors.As(err, &extractionErr):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		logger.Error.Printf("%s: %v", op, err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handlers) Info() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rawURL := r.URL.Query().Get("url")
		if rawURL == "" {
			writeError(w, http.StatusBadRequest, "url is required")
			return
		}

		meta, err := h.jobs.Info(r.Context(), rawURL)
		if err != nil {
			writeServiceError(w, "info", err)
			return
		}

		thumbs := meta.Thumbnails
		if thumbs == nil {
			thumbs = []domain.Thumbnail{}
		}
		writeJSON(w, http.StatusOK, infoResponse{
			Success: true,
			Data: infoView{
				Title: meta.Title,
				Duration: durationView{
					Seconds:   meta.DurationSeconds,
					Formatted: domain.FormatDuration(meta.DurationSeconds),
				},
				Thumbnails:  thumbs,
				Formats:     domain.GroupFormats(meta.Formats),
				Author:      authorView{Name: meta.Uploader, URL: meta.UploaderURL},
				Statistics:  statisticsView{Views: meta.ViewCount, Likes: meta.LikeCount},
				Description: meta.Description,
			},
		})
	}
}

func (h *Handlers) Submit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.limiter != nil && !h.limiter.Allow(clientID(r, h.behindProxy)) {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "too many submissions")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxSubmitBody)
		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.URL == "" || req.Itag == "" {
			writeError(w, http.StatusBadRequest, "url and itag are required")
			return
		}

		id, err := h.jobs.Submit(r.Context(), req.URL, req.Itag)
		if err != nil {
			writeServiceError(w, "submit", err)
			return
		}
		writeJSON(w, http.StatusAccepted, submitResponse{Success: true, JobID: id})
	}
}

// Status reports a job's state. Unknown ids answer {"status":"not_found"}
// so pollers can stop without treating it as a transport error.
func (h *Handlers) Status() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := h.jobs.Status(r.PathValue("id"))
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "not_found"})
			return
		}
		if err != nil {
			writeServiceError(w, "status", err)
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

func (h *Handlers) Cancel() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if err := h.jobs.Cancel(id); err != nil {
			writeServiceError(w, "cancel", err)
			return
		}
		status := domain.JobStatusCancelled
		if state, err := h.jobs.Status(id); err == nil {
			status = state.Status
		}
		writeJSON(w, http.StatusOK, cancelResponse{Success: true, Status: status})
	}
}

// File streams the artifact once. The job and its files are gone after the
// response is written, whether or not the client read it all. HEAD would
// claim the artifact without sending it, so it is refused.
func (h *Handlers) File() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Allow", http.MethodGet)
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		artifact, err := h.jobs.FetchArtifact(r.PathValue("id"))
		if err != nil {
			writeServiceError(w, "fetch artifact", err)
			return
		}
		defer artifact.Close() //nolint:errcheck

		w.Header().Set("Content-Type", artifact.MIMEType)
		w.Header().Set("Content-Disposition", validation.ContentDisposition(artifact.Name))
		w.Header().Set("Cache-Control", "no-store")
		http.ServeContent(w, r, artifact.Name, artifact.ModTime, artifact)
	}
}

func (h *Handlers) History() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			limit = n
		}

		records, err := h.jobs.History(r.Context(), limit)
		if err != nil {
			writeServiceError(w, "history", err)
			return
		}

		entries := make([]historyEntry, 0, len(records))
		for _, rec := range records {
			entries = append(entries, historyEntry{
				ID:          rec.ID,
				URL:         rec.URL,
				FormatID:    rec.FormatID,
				Status:      rec.Status,
				Title:       rec.Title,
				IsAudioOnly: rec.IsAudioOnly,
				Error:       rec.Error,
				SubmittedAt: rec.SubmittedAt.UTC().Format(time.RFC3339),
				FinishedAt:  rec.FinishedAt.UTC().Format(time.RFC3339),
			})
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

package ratelimit

import (
	"sync"
	"time"
)

type AttemptRecord struct {
	Count        int
	LastAttempt  time.Time
	BlockedUntil time.Time
}

// FailureLimiter blocks a client that keeps presenting bad credentials.
type FailureLimiter struct {
	mu             sync.Mutex
	attempts       map[string]*AttemptRecord
	maxFailures    int
	windowDuration time.Duration
	blockDuration  time.Duration
	now            func() time.Time
}

func NewFailureLimiter(maxFailures int, windowDuration, blockDuration time.Duration) *FailureLimiter {
	return &FailureLimiter{
		attempts:       make(map[string]*AttemptRecord),
		maxFailures:    maxFailures,
		windowDuration: windowDuration,
		blockDuration:  blockDuration,
		now:            time.Now,
	}
}

// Blocked reports whether the client is blocked and for how much longer.
func (r *FailureLimiter) Blocked(clientID string) (bool, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, exists := r.attempts[clientID]
	if !exists {
		return false, 0
	}
	now := r.now()
	if now.Before(record.BlockedUntil) {
		return true, record.BlockedUntil.Sub(now)
	}
	return false, 0
}

// RecordFailure counts a failed attempt and returns the failures seen in the
// current window. Exceeding the maximum blocks the client.
func (r *FailureLimiter) RecordFailure(clientID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	record, exists := r.attempts[clientID]
	if !exists {
		record = &AttemptRecord{}
		r.attempts[clientID] = record
	}

	if now.Sub(record.LastAttempt) > r.windowDuration {
		record.Count = 0
	}

	record.Count++
	record.LastAttempt = now

	if record.Count > r.maxFailures {
		record.BlockedUntil = now.Add(r.blockDuration)
	}
	return record.Count
}

func (r *FailureLimiter) Reset(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.attempts, clientID)
}

// Cleanup drops records that are outside their window and no longer
// blocked.
func (r *FailureLimiter) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for clientID, record := range r.attempts {
		if now.Sub(record.LastAttempt) > r.windowDuration*2 && now.After(record.BlockedUntil) {
			delete(r.attempts, clientID)
		}
	}
}

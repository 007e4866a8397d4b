// Package sync pulls post metrics for finished campaigns on a schedule.
// Webhook deliveries carry engagement as it happens; the sweep fills the gaps
// for platforms that push nothing, checkpointing per post so an interrupted
// run resumes where it stopped.
package sync

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type SweepStatus string

const (
	SweepStatusQueued    SweepStatus = "queued"
	SweepStatusRunning   SweepStatus = "running"
	SweepStatusSucceeded SweepStatus = "succeeded"
	SweepStatusFailed    SweepStatus = "failed"
)

// SweepJob tracks one metrics collection pass over a campaign's published
// posts. Checkpoint holds the last post id folded in.
type SweepJob struct {
	ID            string
	TenantID      string
	CampaignID    string
	Status        SweepStatus
	Checkpoint    string
	Attempts      int
	NextAttemptAt *time.Time
	Metadata      map[string]any
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type SweepJobStore interface {
	Create(ctx context.Context, job SweepJob) (SweepJob, error)
	Get(ctx context.Context, id string) (SweepJob, error)
	Update(ctx context.Context, job SweepJob) (SweepJob, error)
}

type MemorySweepJobStore struct {
	mu   sync.RWMutex
	jobs map[string]SweepJob
}

func NewMemorySweepJobStore() *MemorySweepJobStore {
	return &MemorySweepJobStore{jobs: map[string]SweepJob{}}
}

func (s *MemorySweepJobStore) Create(_ context.Context, job SweepJob) (SweepJob, error) {
	if s == nil {
		return SweepJob{}, fmt.Errorf("sync: sweep job store is nil")
	}
	if strings.TrimSpace(job.ID) == "" {
		job.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return SweepJob{}, fmt.Errorf("sync: sweep job %q already exists", job.ID)
	}
	s.jobs[job.ID] = cloneSweepJob(job)
	return job, nil
}

func (s *MemorySweepJobStore) Get(_ context.Context, id string) (SweepJob, error) {
	if s == nil {
		return SweepJob{}, fmt.Errorf("sync: sweep job store is nil")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[strings.TrimSpace(id)]
	if !ok {
		return SweepJob{}, fmt.Errorf("sync: sweep job %q not found", strings.TrimSpace(id))
	}
	return cloneSweepJob(job), nil
}

func (s *MemorySweepJobStore) Update(_ context.Context, job SweepJob) (SweepJob, error) {
	if s == nil {
		return SweepJob{}, fmt.Errorf("sync: sweep job store is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return SweepJob{}, fmt.Errorf("sync: sweep job %q not found", job.ID)
	}
	s.jobs[job.ID] = cloneSweepJob(job)
	return job, nil
}

func cloneSweepJob(job SweepJob) SweepJob {
	cloned := job
	if job.NextAttemptAt != nil {
		next := *job.NextAttemptAt
		cloned.NextAttemptAt = &next
	}
	if job.Metadata != nil {
		cloned.Metadata = make(map[string]any, len(job.Metadata))
		for key, value := range job.Metadata {
			cloned.Metadata[key] = value
		}
	}
	return cloned
}

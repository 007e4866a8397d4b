package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Orchestrator owns sweep job lifecycle: start, checkpoint, finish. The
// collector drives it; operators can also resume failed sweeps directly.
type Orchestrator struct {
	Jobs SweepJobStore
	Now  func() time.Time
}

func NewOrchestrator(jobs SweepJobStore) *Orchestrator {
	return &Orchestrator{
		Jobs: jobs,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (o *Orchestrator) Start(
	ctx context.Context,
	tenantID string,
	campaignID string,
	metadata map[string]any,
) (SweepJob, error) {
	if o == nil || o.Jobs == nil {
		return SweepJob{}, fmt.Errorf("sync: orchestrator requires sweep job store")
	}
	tenantID = strings.TrimSpace(tenantID)
	campaignID = strings.TrimSpace(campaignID)
	if tenantID == "" || campaignID == "" {
		return SweepJob{}, fmt.Errorf("sync: tenant id and campaign id are required")
	}

	now := o.now()
	return o.Jobs.Create(ctx, SweepJob{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		CampaignID: campaignID,
		Status:     SweepStatusQueued,
		Attempts:   0,
		Metadata:   mergeAnyMap(nil, metadata),
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

func (o *Orchestrator) Resume(ctx context.Context, jobID string) error {
	if o == nil || o.Jobs == nil {
		return fmt.Errorf("sync: orchestrator requires sweep job store")
	}
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return fmt.Errorf("sync: job id is required")
	}
	job, err := o.Jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}

	switch job.Status {
	case SweepStatusFailed:
		job.Status = SweepStatusQueued
	case SweepStatusSucceeded:
		return nil
	}
	job.Attempts++
	job.UpdatedAt = o.now()
	_, err = o.Jobs.Update(ctx, job)
	return err
}

func (o *Orchestrator) SaveCheckpoint(
	ctx context.Context,
	jobID string,
	checkpoint string,
	metadata map[string]any,
) (SweepJob, error) {
	if o == nil || o.Jobs == nil {
		return SweepJob{}, fmt.Errorf("sync: orchestrator requires sweep job store")
	}
	job, err := o.Jobs.Get(ctx, strings.TrimSpace(jobID))
	if err != nil {
		return SweepJob{}, err
	}
	job.Checkpoint = strings.TrimSpace(checkpoint)
	job.Status = SweepStatusRunning
	job.UpdatedAt = o.now()
	job.Metadata = mergeAnyMap(job.Metadata, metadata)
	return o.Jobs.Update(ctx, job)
}

func (o *Orchestrator) Complete(
	ctx context.Context,
	jobID string,
	checkpoint string,
	metadata map[string]any,
) (SweepJob, error) {
	job, err := o.SaveCheckpoint(ctx, jobID, checkpoint, metadata)
	if err != nil {
		return SweepJob{}, err
	}
	job.Status = SweepStatusSucceeded
	job.UpdatedAt = o.now()
	return o.Jobs.Update(ctx, job)
}

func (o *Orchestrator) Fail(
	ctx context.Context,
	jobID string,
	cause error,
	nextAttemptAt *time.Time,
) (SweepJob, error) {
	if o == nil || o.Jobs == nil {
		return SweepJob{}, fmt.Errorf("sync: orchestrator requires sweep job store")
	}
	job, err := o.Jobs.Get(ctx, strings.TrimSpace(jobID))
	if err != nil {
		return SweepJob{}, err
	}
	job.Status = SweepStatusFailed
	job.Attempts++
	job.UpdatedAt = o.now()
	job.Metadata = mergeAnyMap(job.Metadata, map[string]any{
		"last_error": strings.TrimSpace(fmt.Sprint(cause)),
	})
	if nextAttemptAt != nil {
		value := nextAttemptAt.UTC()
		job.NextAttemptAt = &value
	}
	return o.Jobs.Update(ctx, job)
}

func (o *Orchestrator) now() time.Time {
	if o != nil && o.Now != nil {
		return o.Now().UTC()
	}
	return time.Now().UTC()
}

func mergeAnyMap(left map[string]any, right map[string]any) map[string]any {
	if len(left) == 0 && len(right) == 0 {
		return map[string]any{}
	}
	merged := map[string]any{}
	for key, value := range left {
		merged[key] = value
	}
	for key, value := range right {
		merged[key] = value
	}
	return merged
}

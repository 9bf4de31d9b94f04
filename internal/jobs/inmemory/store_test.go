package inmemory

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/dvloznov/vaultmind/internal/jobs"
)

func TestStore_SaveAndGetReturnCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	job := &jobs.AdviceJob{JobID: "a", Status: jobs.JobStatusPending}
	if err := s.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}

	job.Status = jobs.JobStatusFailed
	got, err := s.GetJob(ctx, "a")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != jobs.JobStatusPending {
		t.Errorf("Expected stored status pending, got %s", got.Status)
	}

	got.Status = jobs.JobStatusCompleted
	again, err := s.GetJob(ctx, "a")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if again.Status != jobs.JobStatusPending {
		t.Errorf("Expected returned job to be a copy, got status %s", again.Status)
	}
}

func TestStore_Errors(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	if err := s.SaveJob(ctx, &jobs.AdviceJob{}); err == nil {
		t.Error("Expected error saving a job without ID")
	}

	if _, err := s.GetJob(ctx, "missing"); !errors.Is(err, jobs.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestStore_ListJobs(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	seed := []struct {
		id     string
		status jobs.JobStatus
		offset time.Duration
	}{
		{"j1", jobs.JobStatusCompleted, 1 * time.Minute},
		{"j2", jobs.JobStatusFailed, 2 * time.Minute},
		{"j3", jobs.JobStatusCompleted, 3 * time.Minute},
		{"j4", jobs.JobStatusPending, 4 * time.Minute},
	}
	for _, j := range seed {
		job := &jobs.AdviceJob{JobID: j.id, Status: j.status, CreatedAt: base.Add(j.offset)}
		if err := s.SaveJob(ctx, job); err != nil {
			t.Fatalf("SaveJob(%s): %v", j.id, err)
		}
	}

	ids := func(list []*jobs.AdviceJob) []string {
		out := make([]string, len(list))
		for i, j := range list {
			out[i] = j.JobID
		}
		return out
	}

	tests := []struct {
		name   string
		filter jobs.JobFilter
		want   []string
	}{
		{"all newest first", jobs.JobFilter{}, []string{"j4", "j3", "j2", "j1"}},
		{"by status", jobs.JobFilter{Status: jobs.JobStatusCompleted}, []string{"j3", "j1"}},
		{"limit", jobs.JobFilter{Limit: 2}, []string{"j4", "j3"}},
		{"offset and limit", jobs.JobFilter{Offset: 1, Limit: 2}, []string{"j3", "j2"}},
		{"offset past end", jobs.JobFilter{Offset: 10}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListJobs(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListJobs: %v", err)
			}
			if gotIDs := ids(got); !reflect.DeepEqual(gotIDs, tt.want) {
				t.Errorf("ListJobs(%+v) = %v, want %v", tt.filter, gotIDs, tt.want)
			}
		})
	}
}

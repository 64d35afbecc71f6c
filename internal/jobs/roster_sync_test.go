package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	"lunchmanager.io/lunchmanager/internal/config"
	"lunchmanager.io/lunchmanager/internal/powerschool"
	"lunchmanager.io/lunchmanager/internal/store"
)

func testSyncConfig() config.SyncConfig {
	return config.SyncConfig{
		EmailDomain:       "nrcaknights.com",
		StudentExpansions: "lunch,school_enrollment",
	}
}

func TestRosterSyncArgsKind(t *testing.T) {
	t.Parallel()

	if got := (RosterSyncArgs{}).Kind(); got != "roster_sync" {
		t.Fatalf("Kind() = %q, want %q", got, "roster_sync")
	}
}

func TestRosterSyncArgsInsertOpts(t *testing.T) {
	t.Parallel()

	opts := (RosterSyncArgs{}).InsertOpts()
	if opts.Queue != river.QueueDefault {
		t.Fatalf("Queue = %q, want %q", opts.Queue, river.QueueDefault)
	}
	if opts.MaxAttempts != 3 {
		t.Fatalf("MaxAttempts = %d, want 3", opts.MaxAttempts)
	}
	if !opts.UniqueOpts.ByQueue {
		t.Fatal("UniqueOpts.ByQueue = false, want true")
	}
	if !opts.UniqueOpts.ByArgs {
		t.Fatal("UniqueOpts.ByArgs = false, want true")
	}
}

func TestRosterSyncWorkerWork_Uninitialized(t *testing.T) {
	t.Parallel()

	t.Run("nil receiver", func(t *testing.T) {
		var w *RosterSyncWorker
		err := w.Work(context.Background(), nil)
		if err == nil || !strings.Contains(err.Error(), "not initialized") {
			t.Fatalf("Work() error = %v, want contains %q", err, "not initialized")
		}
	})

	t.Run("nil dependencies", func(t *testing.T) {
		w := &RosterSyncWorker{}
		err := w.Work(context.Background(), nil)
		if err == nil || !strings.Contains(err.Error(), "not initialized") {
			t.Fatalf("Work() error = %v, want contains %q", err, "not initialized")
		}
	})
}

func TestRosterSyncWorkerWork_CancelsOnBadResource(t *testing.T) {
	t.Parallel()

	w := NewRosterSyncWorker(powerschool.NewMockClient(), store.NewMemoryStore(), testSyncConfig())
	job := &river.Job[RosterSyncArgs]{
		JobRow: &rivertype.JobRow{},
		Args:   RosterSyncArgs{Resource: "teachers"},
	}

	err := w.Work(context.Background(), job)
	if err == nil {
		t.Fatal("Work() = nil, want cancel error")
	}
	var cancelErr *rivertype.JobCancelError
	if !errors.As(err, &cancelErr) {
		t.Fatalf("Work() error = %v, want JobCancelError", err)
	}
}

func TestRosterSyncWorkerWork_RunsSync(t *testing.T) {
	t.Parallel()

	src := powerschool.NewMockClient()
	src.SeedSchools([]powerschool.SchoolRecord{
		{ID: 100, Name: "Lower School", SchoolNumber: 1, LowGrade: 0, HighGrade: 5},
	})
	st := store.NewMemoryStore()

	w := NewRosterSyncWorker(src, st, testSyncConfig())
	job := &river.Job[RosterSyncArgs]{
		JobRow: &rivertype.JobRow{},
		Args:   RosterSyncArgs{Resource: "all"},
	}

	if err := w.Work(context.Background(), job); err != nil {
		t.Fatalf("Work() error = %v", err)
	}
	if _, err := st.School(context.Background(), 100); err != nil {
		t.Fatalf("school not mirrored after sync: %v", err)
	}
}

func TestRosterSyncWorkerWork_PropagatesSourceFailure(t *testing.T) {
	t.Parallel()

	src := powerschool.NewMockClient()
	src.FailWith(errors.New("connection refused"))

	w := NewRosterSyncWorker(src, store.NewMemoryStore(), testSyncConfig())
	job := &river.Job[RosterSyncArgs]{
		JobRow: &rivertype.JobRow{},
		Args:   RosterSyncArgs{Resource: "all"},
	}

	if err := w.Work(context.Background(), job); err == nil {
		t.Fatal("Work() = nil, want error so the job retries")
	}
}

func TestPeriodicSyncJobs(t *testing.T) {
	t.Parallel()

	jobs := PeriodicSyncJobs(24 * time.Hour)
	if len(jobs) != 1 {
		t.Fatalf("len(jobs) = %d, want 1", len(jobs))
	}
}

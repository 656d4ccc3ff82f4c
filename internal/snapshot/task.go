package snapshot

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/EmpoweredVote/EV-PublicMap/internal/metrics"
)

type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerStartup   Trigger = "startup"
	TriggerManual    Trigger = "manual"
	TriggerCLI       Trigger = "cli"
)

// Refresher rebuilds the snapshot. *Builder implements it.
type Refresher interface {
	Refresh(ctx context.Context, actorID string) (Result, error)
}

// Observer is notified around every refresh run, whoever triggered it.
type Observer interface {
	RefreshStarted(trigger Trigger, at time.Time)
	RefreshCompleted(trigger Trigger, res Result, took time.Duration)
	RefreshFailed(trigger Trigger, err error, took time.Duration)
}

// RunStatus is the last observed state of the task.
type RunStatus struct {
	State        string     `json:"state"` // "idle", "running", "completed", "failed"
	Trigger      Trigger    `json:"trigger,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	SnapshotDate string     `json:"snapshot_date,omitempty"`
	Rows         int        `json:"rows"`
	Error        string     `json:"error,omitempty"`
}

// Task wraps a Refresher with observation and a status record.
type Task struct {
	refresher Refresher
	observers []Observer

	mu     sync.Mutex
	status RunStatus
}

func NewTask(r Refresher, observers ...Observer) *Task {
	return &Task{refresher: r, observers: observers, status: RunStatus{State: "idle"}}
}

// Run performs one refresh. Overlapping runs are not excluded here; the
// scheduler serializes its own ticks with a Locker.
func (t *Task) Run(ctx context.Context, trigger Trigger, actorID string) (Result, error) {
	start := time.Now()

	t.mu.Lock()
	t.status = RunStatus{State: "running", Trigger: trigger, StartedAt: &start}
	t.mu.Unlock()
	for _, o := range t.observers {
		o.RefreshStarted(trigger, start)
	}

	res, err := t.refresher.Refresh(ctx, actorID)
	took := time.Since(start)
	end := start.Add(took)

	t.mu.Lock()
	t.status.FinishedAt = &end
	if err != nil {
		t.status.State = "failed"
		t.status.Error = err.Error()
	} else {
		t.status.State = "completed"
		t.status.SnapshotDate = res.SnapshotDate
		t.status.Rows = res.Rows
	}
	t.mu.Unlock()

	for _, o := range t.observers {
		if err != nil {
			o.RefreshFailed(trigger, err, took)
		} else {
			o.RefreshCompleted(trigger, res, took)
		}
	}
	return res, err
}

func (t *Task) Status() RunStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// LogObserver writes refresh lifecycle lines to the standard logger.
type LogObserver struct{}

func (LogObserver) RefreshStarted(trigger Trigger, at time.Time) {
	log.Printf("[snapshot] refresh started trigger=%s", trigger)
}

func (LogObserver) RefreshCompleted(trigger Trigger, res Result, took time.Duration) {
	log.Printf("[snapshot] refresh completed trigger=%s date=%s rows=%d duration=%dms",
		trigger, res.SnapshotDate, res.Rows, took.Milliseconds())
}

func (LogObserver) RefreshFailed(trigger Trigger, err error, took time.Duration) {
	log.Printf("[snapshot] refresh failed trigger=%s duration=%dms err=%v",
		trigger, took.Milliseconds(), err)
}

// MetricsObserver records refresh outcomes as prometheus series.
type MetricsObserver struct{}

func (MetricsObserver) RefreshStarted(Trigger, time.Time) {}

func (MetricsObserver) RefreshCompleted(trigger Trigger, res Result, took time.Duration) {
	metrics.SnapshotRunsTotal.WithLabelValues(string(trigger), "completed").Inc()
	metrics.SnapshotDurationMs.Observe(float64(took.Milliseconds()))
	metrics.SnapshotRows.Set(float64(res.Rows))
	metrics.SnapshotLastSuccess.Set(float64(res.RefreshedAt.Unix()))
}

func (MetricsObserver) RefreshFailed(trigger Trigger, err error, took time.Duration) {
	metrics.SnapshotRunsTotal.WithLabelValues(string(trigger), "failed").Inc()
	metrics.SnapshotDurationMs.Observe(float64(took.Milliseconds()))
}

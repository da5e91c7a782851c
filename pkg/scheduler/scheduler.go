package scheduler

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/dodgybadger/assistantmd/pkg/logger"
)

var runLog = logger.New("scheduler:run")

// RunFunc executes one workflow run given its workflow_id; it's the Step
// Workflow Engine's trigger callable (§4.6).
type RunFunc func(ctx context.Context, workflowID string) error

// Scheduler dispatches due jobs from the persisted job table to a bounded
// task pool (§5: "a scheduler dispatches workflow triggers to a task
// pool; each workflow run is one task"). It starts paused, so the
// synchronizer can load the persistent store and reconcile jobs before any
// job fires (§4.5 step 2, §5 bootstrap).
type Scheduler struct {
	db  *sql.DB
	run RunFunc

	mu      sync.Mutex
	paused  bool
	stopCh  chan struct{}
	jobLock sync.Map // job_id -> *sync.Mutex, enforces max-instances=1
	pool    *pool.ContextPool
}

// New returns a Scheduler in the paused state.
func New(db *sql.DB, run RunFunc) *Scheduler {
	return &Scheduler{
		db:     db,
		run:    run,
		paused: true,
		pool:   pool.New().WithContext(context.Background()).WithMaxGoroutines(8),
	}
}

// Paused reports whether the scheduler is currently paused.
func (s *Scheduler) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Resume starts the dispatch loop. Per §5 bootstrap: "Scheduler starts
// paused, loads the persistent store, sync runs, then resumes" — callers
// must run a Synchronizer.Sync before calling Resume.
func (s *Scheduler) Resume(ctx context.Context, pollInterval time.Duration) {
	s.mu.Lock()
	s.paused = false
	s.stopCh = make(chan struct{})
	stop := s.stopCh
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				s.dispatchDue(ctx)
			}
		}
	}()
}

// Pause stops the dispatch loop. Active tasks already dispatched are left
// to finish; see §5 shutdown: "pauses the scheduler, waits for active
// tasks to complete or reach their next safe boundary, then closes stores."
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused {
		return
	}
	s.paused = true
	close(s.stopCh)
}

// Wait blocks until every dispatched task has completed. Call after Pause
// during shutdown.
func (s *Scheduler) Wait() {
	s.pool.Wait()
}

func (s *Scheduler) dispatchDue(ctx context.Context) {
	now := time.Now()
	rows, err := s.db.Query(`SELECT job_id FROM scheduler_jobs WHERE next_run_time IS NOT NULL AND next_run_time <= ?`, now)
	if err != nil {
		runLog.Printf("dispatch query failed: %v", err)
		return
	}
	var due []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		due = append(due, id)
	}
	rows.Close()

	for _, jobID := range due {
		s.dispatch(ctx, jobID)
	}
}

// dispatch enforces at-most-one-concurrent-execution per job (§5: "the
// scheduler ensures at-most-one concurrent execution per job
// (max-instances = 1)") by skipping a job whose mutex is already held
// rather than blocking the dispatch loop on it.
func (s *Scheduler) dispatch(ctx context.Context, jobID string) {
	lockAny, _ := s.jobLock.LoadOrStore(jobID, &sync.Mutex{})
	lock := lockAny.(*sync.Mutex)
	if !lock.TryLock() {
		runLog.Printf("skipping dispatch of %s: already running", jobID)
		return
	}

	s.pool.Go(func(ctx context.Context) error {
		defer lock.Unlock()
		runLog.Printf("running job %s", jobID)
		if err := s.run(ctx, jobID); err != nil {
			runLog.Printf("job %s failed: %v", jobID, err)
		}
		return s.advanceNextRun(jobID)
	})
}

func (s *Scheduler) advanceNextRun(jobID string) error {
	var triggerStr string
	if err := s.db.QueryRow(`SELECT trigger_string FROM scheduler_jobs WHERE job_id = ?`, jobID).Scan(&triggerStr); err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return err
	}

	next := nextFromTriggerString(triggerStr, time.Now())
	var nextVal any
	if !next.IsZero() {
		nextVal = next
	}
	_, err := s.db.Exec(`UPDATE scheduler_jobs SET next_run_time = ? WHERE job_id = ?`, nextVal, jobID)
	return err
}

// nextFromTriggerString recomputes a trigger's next fire time from its
// stringified form, avoiding the need to keep a live Trigger object per
// job between dispatch cycles.
func nextFromTriggerString(s string, from time.Time) time.Time {
	switch {
	case len(s) > 5 && s[:5] == "cron:":
		sched, err := cronParser.Parse(s[5:])
		if err != nil {
			return time.Time{}
		}
		return sched.Next(from)
	case len(s) > 5 && s[:5] == "once:":
		t, err := time.Parse(time.RFC3339, s[5:])
		if err != nil || !t.After(from) {
			return time.Time{}
		}
		return t
	default:
		return time.Time{}
	}
}

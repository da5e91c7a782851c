package scheduler

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dodgybadger/assistantmd/pkg/assistanterrors"
	"github.com/dodgybadger/assistantmd/pkg/logger"
	"github.com/dodgybadger/assistantmd/pkg/workflow"
)

var log = logger.New("scheduler:sync")

// Action is the kind of change the synchronizer applied to one job.
type Action string

const (
	ActionAdded   Action = "added"
	ActionUpdated Action = "updated"
	ActionRemoved Action = "removed"
)

// SyncEvent is emitted for each job the synchronizer added, updated, or
// removed (§4.5: "emit job_synced{action=...}").
type SyncEvent struct {
	WorkflowID string
	Action     Action
}

// storedJob mirrors one row of the scheduler_jobs table.
type storedJob struct {
	jobID         string
	triggerString string
	sourceHash    string
}

// Synchronizer reconciles the currently loaded, enabled workflows against
// the persisted scheduler_jobs table (§4.5).
type Synchronizer struct {
	db *sql.DB
}

// NewSynchronizer wraps an already-migrated *sql.DB (see pkg/store.Open).
func NewSynchronizer(db *sql.DB) *Synchronizer {
	return &Synchronizer{db: db}
}

// Sync computes the minimal diff between workflows (already filtered to
// enabled ones with a non-none schedule by the caller is NOT required —
// Sync itself filters) and the persisted job table, and applies it.
// Invalid triggers mark their workflow invalid for scheduling (returned in
// invalid) and are skipped rather than aborting the whole sync.
func (s *Synchronizer) Sync(workflows []workflow.Workflow, now time.Time) (events []SyncEvent, invalid map[string]error, err error) {
	invalid = map[string]error{}

	existing, err := s.loadJobs()
	if err != nil {
		return nil, nil, fmt.Errorf("scheduler: loading job table: %w", err)
	}

	desired := map[string]struct {
		workflow workflow.Workflow
		trigger  Trigger
	}{}
	for _, w := range workflows {
		if !w.Enabled || w.Schedule.Kind == workflow.ScheduleNone {
			continue
		}
		trig, terr := PrepareTrigger(w, now)
		if terr != nil {
			invalid[w.GlobalID] = terr
			continue
		}
		desired[w.GlobalID] = struct {
			workflow workflow.Workflow
			trigger  Trigger
		}{w, trig}
	}

	for id, d := range desired {
		prior, ok := existing[id]
		switch {
		case !ok:
			if err := s.upsertJob(id, d.trigger, d.workflow.SourceHash, d.trigger.Next(now)); err != nil {
				return nil, nil, err
			}
			events = append(events, SyncEvent{WorkflowID: id, Action: ActionAdded})
		case prior.triggerString != d.trigger.String() || prior.sourceHash != d.workflow.SourceHash:
			nextFire := d.trigger.Next(now)
			if prior.triggerString == d.trigger.String() {
				// Only non-schedule content changed: preserve next-fire
				// time (§4.5 step 3, §8 invariant 4) by reusing the stored
				// one instead of recomputing it.
				if stored, serr := s.nextRunTime(id); serr == nil && !stored.IsZero() {
					nextFire = stored
				}
			}
			if err := s.upsertJob(id, d.trigger, d.workflow.SourceHash, nextFire); err != nil {
				return nil, nil, err
			}
			events = append(events, SyncEvent{WorkflowID: id, Action: ActionUpdated})
		}
	}

	for id := range existing {
		if _, ok := desired[id]; !ok {
			if err := s.removeJob(id); err != nil {
				return nil, nil, err
			}
			events = append(events, SyncEvent{WorkflowID: id, Action: ActionRemoved})
		}
	}

	log.Printf("sync complete: %d event(s), %d invalid", len(events), len(invalid))
	return events, invalid, nil
}

func (s *Synchronizer) loadJobs() (map[string]storedJob, error) {
	rows, err := s.db.Query(`SELECT job_id, trigger_string, source_hash FROM scheduler_jobs`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]storedJob{}
	for rows.Next() {
		var j storedJob
		if err := rows.Scan(&j.jobID, &j.triggerString, &j.sourceHash); err != nil {
			return nil, err
		}
		out[j.jobID] = j
	}
	return out, rows.Err()
}

func (s *Synchronizer) nextRunTime(jobID string) (time.Time, error) {
	var t sql.NullTime
	err := s.db.QueryRow(`SELECT next_run_time FROM scheduler_jobs WHERE job_id = ?`, jobID).Scan(&t)
	if err != nil {
		return time.Time{}, err
	}
	if !t.Valid {
		return time.Time{}, nil
	}
	return t.Time, nil
}

// upsertJob writes/replaces a job row. Args are kept to {workflow_id} only
// (§4.5 step 5: "no large objects are pickled").
func (s *Synchronizer) upsertJob(jobID string, trigger Trigger, sourceHash string, nextRun time.Time) error {
	args, err := json.Marshal(map[string]string{"workflow_id": jobID})
	if err != nil {
		return assistanterrors.Store("marshaling job args", err)
	}
	var nextRunVal any
	if !nextRun.IsZero() {
		nextRunVal = nextRun
	}
	_, err = s.db.Exec(`
		INSERT INTO scheduler_jobs (job_id, trigger_string, source_hash, next_run_time, args)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (job_id) DO UPDATE SET
			trigger_string = excluded.trigger_string,
			source_hash = excluded.source_hash,
			next_run_time = excluded.next_run_time,
			args = excluded.args
	`, jobID, trigger.String(), sourceHash, nextRunVal, string(args))
	if err != nil {
		return assistanterrors.Store(fmt.Sprintf("upserting job %s", jobID), err)
	}
	return nil
}

func (s *Synchronizer) removeJob(jobID string) error {
	_, err := s.db.Exec(`DELETE FROM scheduler_jobs WHERE job_id = ?`, jobID)
	if err != nil {
		return assistanterrors.Store(fmt.Sprintf("removing job %s", jobID), err)
	}
	return nil
}

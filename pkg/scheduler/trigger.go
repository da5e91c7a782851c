// Package scheduler implements the Scheduler Synchronizer (§4.5): preparing
// triggers from a workflow's schedule_spec, reconciling the loaded workflow
// set against the persistent job store with a minimal add/update/remove
// diff, and running the jobs themselves through a bounded task pool with
// at-most-one-concurrent-run-per-job enforcement (§5).
package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dodgybadger/assistantmd/pkg/assistanterrors"
	"github.com/dodgybadger/assistantmd/pkg/workflow"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Trigger is a prepared, schedulable form of a workflow's Schedule. It
// knows how to stringify itself (for the sync diff's "compare by
// stringified form" rule) and to compute its next fire time after a given
// instant.
type Trigger struct {
	kind workflow.ScheduleKind
	expr string
	once time.Time
	sched cron.Schedule
}

// String returns the canonical stringified form of the trigger, used by
// the synchronizer to detect "no change" without comparing structs (§4.5
// step 3: "compares triggers by stringified form").
func (t Trigger) String() string {
	switch t.kind {
	case workflow.ScheduleCron:
		return "cron:" + t.expr
	case workflow.ScheduleOnce:
		return "once:" + t.once.UTC().Format(time.RFC3339)
	default:
		return "none"
	}
}

// Next returns the next fire time strictly after from.
func (t Trigger) Next(from time.Time) time.Time {
	switch t.kind {
	case workflow.ScheduleCron:
		return t.sched.Next(from)
	case workflow.ScheduleOnce:
		if t.once.After(from) {
			return t.once
		}
		return time.Time{}
	default:
		return time.Time{}
	}
}

// PrepareTrigger turns a workflow's Schedule into a Trigger. A workflow with
// ScheduleNone has no job created at all — callers check Schedule.Kind
// before calling this. Invalid crontab or a past one-time datetime produce
// a TriggerError (§7): the workflow is marked invalid for scheduling but
// remains visible in status.
func PrepareTrigger(w workflow.Workflow, now time.Time) (Trigger, error) {
	switch w.Schedule.Kind {
	case workflow.ScheduleCron:
		sched, err := cronParser.Parse(w.Schedule.Cron)
		if err != nil {
			return Trigger{}, assistanterrors.Trigger(w.GlobalID, fmt.Sprintf("invalid crontab %q", w.Schedule.Cron), err)
		}
		return Trigger{kind: workflow.ScheduleCron, expr: w.Schedule.Cron, sched: sched}, nil
	case workflow.ScheduleOnce:
		if !w.Schedule.Once.After(now) {
			return Trigger{}, assistanterrors.Trigger(w.GlobalID, fmt.Sprintf("one-time schedule %s is in the past", w.Schedule.Once), nil)
		}
		return Trigger{kind: workflow.ScheduleOnce, once: w.Schedule.Once}, nil
	default:
		return Trigger{}, fmt.Errorf("scheduler: workflow %s has no schedule", w.GlobalID)
	}
}

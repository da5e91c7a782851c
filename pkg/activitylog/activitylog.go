// Package activitylog writes the structured, append-only activity record
// named in spec §6/§7: one JSON object per line in system/activity.log,
// independent of the namespace debug logger. Grounded on the teacher pack's
// logrus-based logger factory (manishiitg-mcp-agent-builder-go's
// pkg/logger/factory.go), adapted from a general-purpose app logger into a
// single-sink structured event log.
package activitylog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dodgybadger/assistantmd/pkg/stringutil"
)

// EventKind names the category of an activity record, corresponding to the
// outcomes spec §6/§7 require be logged: run/step/sync/chat.
type EventKind string

const (
	EventRunStarted   EventKind = "run_started"
	EventRunCompleted EventKind = "run_completed"
	EventRunFailed    EventKind = "run_failed"
	EventStepFailed   EventKind = "step_failed"
	EventSyncEvent    EventKind = "sync_event"
	EventChatTurn     EventKind = "chat_turn"
)

// Log appends one JSON-object-per-line activity record per run/step/sync/chat
// outcome. Safe for concurrent use: logrus serializes writes to the
// underlying file internally.
type Log struct {
	logger *logrus.Logger
	file   *os.File
}

// Open creates (or appends to) system/activity.log under systemRoot.
func Open(systemRoot string) (*Log, error) {
	path := filepath.Join(systemRoot, "activity.log")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("activitylog: creating %s: %w", filepath.Dir(path), err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("activitylog: opening %s: %w", path, err)
	}

	l := logrus.New()
	l.SetOutput(file)
	l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	l.SetLevel(logrus.InfoLevel)

	return &Log{logger: l, file: file}, nil
}

// Close closes the underlying file handle.
func (l *Log) Close() error {
	return l.file.Close()
}

// Record appends one activity event. Every string field value is passed
// through stringutil.SanitizeErrorMessage before being written, so
// a secret name accidentally echoed into an LLM error or tool output never
// reaches the on-disk log.
func (l *Log) Record(kind EventKind, workflowID string, fields map[string]any) {
	entry := l.logger.WithField("event", string(kind))
	if workflowID != "" {
		entry = entry.WithField("workflow_id", workflowID)
	}
	for k, v := range fields {
		if s, ok := v.(string); ok {
			v = stringutil.SanitizeErrorMessage(s)
		}
		entry = entry.WithField(k, v)
	}
	entry.Info(string(kind))
}

// RecordError is a convenience for logging a failed run/step/sync outcome
// with its error sanitized before being written.
func (l *Log) RecordError(kind EventKind, workflowID string, err error, fields map[string]any) {
	if fields == nil {
		fields = map[string]any{}
	}
	fields["error"] = stringutil.SanitizeErrorMessage(err.Error())
	l.Record(kind, workflowID, fields)
}

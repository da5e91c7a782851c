package activitylog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dodgybadger/assistantmd/pkg/testutil"
)

func TestRecordWritesJSONLine(t *testing.T) {
	dir := testutil.TempDir(t, "activitylog-*")
	l, err := Open(dir)
	require.NoError(t, err)
	defer l.Close()

	l.Record(EventRunCompleted, "vault/weekly-digest", map[string]any{"duration_ms": 42})

	data, err := os.ReadFile(filepath.Join(dir, "activity.log"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	assert.Equal(t, "run_completed", record["event"])
	assert.Equal(t, "vault/weekly-digest", record["workflow_id"])
	assert.EqualValues(t, 42, record["duration_ms"])
}

func TestRecordErrorSanitizesSecretNames(t *testing.T) {
	dir := testutil.TempDir(t, "activitylog-*")
	l, err := Open(dir)
	require.NoError(t, err)
	defer l.Close()

	l.RecordError(EventStepFailed, "vault/wf", assertErr("missing ANTHROPIC_API_KEY"), nil)

	data, err := os.ReadFile(filepath.Join(dir, "activity.log"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "ANTHROPIC_API_KEY")
}

type stringError string

func (e stringError) Error() string { return string(e) }

func assertErr(msg string) error { return stringError(msg) }

package contextmanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTemplate = `## Chat Instructions
Always answer tersely.

## Context Instructions
@passthrough-runs 2
Summaries should be concise.

## Recent Journal Digest
@cache 10m
@recent-runs 3
Summarize the last few journal entries.

## Open Tasks
@token-threshold 500
List outstanding tasks.
`

func TestParseTemplate_SplitsInstructionsAndSteps(t *testing.T) {
	tmpl, err := ParseTemplate("AssistantMD/ContextTemplates/daily.md", sampleTemplate)
	require.NoError(t, err)

	assert.Contains(t, tmpl.ChatInstructions, "Always answer tersely.")
	assert.Contains(t, tmpl.ContextInstructions, "Summaries should be concise.")
	require.NotNil(t, tmpl.PassthroughRuns)
	assert.Equal(t, 2, tmpl.PassthroughRuns.Count)

	require.Len(t, tmpl.Steps, 2)
	assert.Equal(t, "Recent Journal Digest", tmpl.Steps[0].Name)
	require.NotNil(t, tmpl.Steps[0].Directives.Cache)
	assert.Equal(t, 0, tmpl.Steps[0].Index)

	assert.Equal(t, "Open Tasks", tmpl.Steps[1].Name)
	require.NotNil(t, tmpl.Steps[1].Directives.TokenThreshold)
	assert.Equal(t, 500, *tmpl.Steps[1].Directives.TokenThreshold)
}

func TestParseTemplate_NoInstructionsStillParsesSteps(t *testing.T) {
	tmpl, err := ParseTemplate("t.md", "## Step One\nBody text.\n")
	require.NoError(t, err)
	assert.Empty(t, tmpl.ChatInstructions)
	assert.Empty(t, tmpl.ContextInstructions)
	require.Len(t, tmpl.Steps, 1)
	assert.Equal(t, "Step One", tmpl.Steps[0].Name)
}

// Package contextmanager implements the Context Manager (§4.7): the
// per-chat-turn history processor that executes a context template's
// steps in order, curating a summary ahead of the passthrough slice of
// chat history handed to the chat agent.
package contextmanager

import (
	"github.com/dodgybadger/assistantmd/pkg/directive"
	"github.com/dodgybadger/assistantmd/pkg/logger"
	"github.com/dodgybadger/assistantmd/pkg/workflow"
)

var log = logger.New("contextmanager:template")

const (
	chatInstructionsSection    = "Chat Instructions"
	contextInstructionsSection = "Context Instructions"
)

// Step is one independent context step: a `##` section of a Context
// Template other than "Chat Instructions"/"Context Instructions", carrying
// its own directive block (§4.7: "@model, @tools, @recent-runs,
// @recent-summaries, @token-threshold, @cache, @input, @output,
// @write-mode, @header").
type Step struct {
	Index      int
	Name       string
	Directives directive.Map
	Body       string
}

// Template is a parsed Context Template file (§6 "Context template .md
// files"). ChatInstructions is appended to the chat agent's system
// instructions, passthrough-only, never executed as a step.
// ContextInstructions is prepended to every step's rendered manager
// prompt.
type Template struct {
	Path                string
	SourceHash          string
	ChatInstructions    string
	ContextInstructions string
	// PassthroughRuns overrides the global passthrough-slice setting when
	// declared as a directive on the "Context Instructions" section.
	PassthroughRuns *directive.PassthroughRuns
	Steps           []Step
}

// ParseTemplate splits content into its Chat Instructions / Context
// Instructions / ordered step sections, per §4.7 and §4.3 (a Context
// Template has no required frontmatter).
func ParseTemplate(path, content string) (Template, error) {
	parsed, err := workflow.ParseWorkflowFile(content, false)
	if err != nil {
		return Template{}, err
	}

	tmpl := Template{
		Path:       path,
		SourceHash: workflow.SourceHash(content),
	}

	index := 0
	for _, sec := range parsed.Sections {
		switch sec.Name {
		case chatInstructionsSection:
			tmpl.ChatInstructions = sec.Body
			continue
		case contextInstructionsSection:
			tmpl.ContextInstructions = sec.Body
			if sec.DirectivesRaw != "" {
				dmap, _, err := directive.Parse(path, sec.Name, sec.DirectivesRaw)
				if err != nil {
					return Template{}, err
				}
				tmpl.PassthroughRuns = dmap.PassthroughRuns
			}
			continue
		}

		dmap, _, err := directive.Parse(path, sec.Name, sec.DirectivesRaw)
		if err != nil {
			return Template{}, err
		}
		tmpl.Steps = append(tmpl.Steps, Step{Index: index, Name: sec.Name, Directives: dmap, Body: sec.Body})
		index++
	}

	log.Printf("parsed template %s: %d step(s), chat-instructions=%v, context-instructions=%v",
		path, len(tmpl.Steps), tmpl.ChatInstructions != "", tmpl.ContextInstructions != "")
	return tmpl, nil
}

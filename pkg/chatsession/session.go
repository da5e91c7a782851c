// Package chatsession implements the ChatSession data model (§3) and its
// markdown transcript persistence (§6: "Chat transcripts: .md files under
// {vault}/AssistantMD/_chat-sessions/{session_id}.md"). The underscore
// prefix on _chat-sessions keeps pkg/vault's scanner from ever treating a
// transcript as a workflow file (§4.4 "skips underscore-prefixed folders").
package chatsession

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/dodgybadger/assistantmd/pkg/llm"
	"github.com/dodgybadger/assistantmd/pkg/logger"
)

var log = logger.New("chatsession:session")

// TranscriptDir is the vault-relative, underscore-prefixed folder chat
// transcripts live under.
const TranscriptDir = "AssistantMD/_chat-sessions"

// Session is §3's ChatSession: a sequence of role-tagged messages plus the
// identity/configuration the Chat Executor needs to continue it.
type Session struct {
	SessionID    string
	Vault        string
	ModelAlias   string
	TemplateName string
	Messages     []llm.Message
}

// New starts an empty session.
func New(sessionID, vault, modelAlias, templateName string) Session {
	return Session{SessionID: sessionID, Vault: vault, ModelAlias: modelAlias, TemplateName: templateName}
}

// Append adds one message to the session's history.
func (s *Session) Append(role llm.Role, text string, ts time.Time) {
	s.Messages = append(s.Messages, llm.Message{Role: role, Text: text, Timestamp: ts})
}

// TranscriptPath returns the vault-relative path a session's transcript is
// read from/written to.
func TranscriptPath(sessionID string) string {
	return path.Join(TranscriptDir, sessionID+".md")
}

// Render produces the markdown transcript for a session: a small
// frontmatter block identifying the session, followed by one `##` section
// per message labeled with its role and timestamp (§6).
func Render(s Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "---\nsession_id: %q\nvault: %q\nmodel_alias: %q\ntemplate: %q\n---\n\n", s.SessionID, s.Vault, s.ModelAlias, s.TemplateName)
	for _, msg := range s.Messages {
		fmt.Fprintf(&b, "## %s (%s)\n%s\n\n", roleHeading(msg.Role), msg.Timestamp.UTC().Format(time.RFC3339), strings.TrimRight(msg.Text, "\n"))
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func roleHeading(r llm.Role) string {
	switch r {
	case llm.RoleUser:
		return "User"
	case llm.RoleAssistant:
		return "Assistant"
	case llm.RoleSystem:
		return "System"
	case llm.RoleToolCall:
		return "Tool Call"
	case llm.RoleToolResult:
		return "Tool Result"
	default:
		return string(r)
	}
}

var transcriptHeadingRe = regexp.MustCompile(`^## (User|Assistant|System|Tool Call|Tool Result) \(([^)]+)\)$`)

// Parse reconstructs a Session from a previously rendered transcript, used
// when the Chat Executor resumes an existing session (§4.10).
func Parse(content string) (Session, error) {
	fm, body, _ := splitFrontmatter(content)
	s := Session{
		SessionID:    fm["session_id"],
		Vault:        fm["vault"],
		ModelAlias:   fm["model_alias"],
		TemplateName: fm["template"],
	}

	lines := strings.Split(body, "\n")
	var role llm.Role
	var ts time.Time
	var textLines []string
	haveMessage := false

	flush := func() {
		if !haveMessage {
			return
		}
		s.Messages = append(s.Messages, llm.Message{Role: role, Text: strings.TrimRight(strings.Join(textLines, "\n"), "\n"), Timestamp: ts})
	}

	for _, line := range lines {
		if m := transcriptHeadingRe.FindStringSubmatch(line); m != nil {
			flush()
			role = headingRole(m[1])
			ts, _ = time.Parse(time.RFC3339, m[2])
			textLines = nil
			haveMessage = true
			continue
		}
		if haveMessage {
			textLines = append(textLines, line)
		}
	}
	flush()

	log.Printf("parsed transcript %s: %d message(s)", s.SessionID, len(s.Messages))
	return s, nil
}

func headingRole(h string) llm.Role {
	switch h {
	case "User":
		return llm.RoleUser
	case "Assistant":
		return llm.RoleAssistant
	case "System":
		return llm.RoleSystem
	case "Tool Call":
		return llm.RoleToolCall
	case "Tool Result":
		return llm.RoleToolResult
	default:
		return llm.Role(strings.ToLower(h))
	}
}

// splitFrontmatter is a tiny local copy of workflow's "---"-delimited
// key/value block parser, kept here rather than importing pkg/workflow so
// a transcript (which is never a `##`-sectioned workflow file) doesn't pull
// in workflow-specific section-splitting semantics it doesn't need.
func splitFrontmatter(content string) (map[string]string, string, bool) {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return map[string]string{}, content, false
	}
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			break
		}
	}
	if end < 0 {
		return map[string]string{}, content, false
	}
	fm := map[string]string{}
	for _, raw := range lines[1:end] {
		line := strings.TrimSpace(raw)
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		fm[key] = strings.Trim(val, `"`)
	}
	return fm, strings.Join(lines[end+1:], "\n"), true
}

// Package chatexecutor implements the Chat Executor (§2 system overview
// item 10): assembling instructions, attaching the Context Manager as a
// chat-turn history processor, invoking the chat agent, and persisting a
// markdown transcript.
package chatexecutor

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dodgybadger/assistantmd/pkg/contextmanager"
	"github.com/dodgybadger/assistantmd/pkg/logger"
)

var log = logger.New("chatexecutor:templates")

// LoadTemplate resolves a Context Template by name, preferring the
// vault-local AssistantMD/ContextTemplates/ directory over the global
// system/ContextTemplates/ one (§6: "vault takes precedence").
func LoadTemplate(vaultRoot, systemRoot, templateName string) (contextmanager.Template, error) {
	vaultPath := filepath.Join(vaultRoot, "AssistantMD", "ContextTemplates", templateName+".md")
	if data, err := os.ReadFile(vaultPath); err == nil {
		return contextmanager.ParseTemplate(vaultPath, string(data))
	}

	systemPath := filepath.Join(systemRoot, "ContextTemplates", templateName+".md")
	data, err := os.ReadFile(systemPath)
	if err != nil {
		return contextmanager.Template{}, fmt.Errorf("chatexecutor: no context template %q in vault or system templates: %w", templateName, err)
	}
	log.Printf("loaded global template %s", systemPath)
	return contextmanager.ParseTemplate(systemPath, string(data))
}

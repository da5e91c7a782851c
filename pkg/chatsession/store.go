package chatsession

import "os"

// Writer persists a transcript file, matching vaultio.FileWriter's shape
// (and stepengine.Writer's) so one *vaultio.FileWriter serves every
// vault-relative-path consumer in the process.
type Writer interface {
	Read(vault, relPath string) (string, error)
	Write(vault, relPath, content string) error
}

// Persist writes a session's rendered transcript to its vault-relative
// path (§6). Called once per chat turn by the Chat Executor.
func Persist(w Writer, s Session) error {
	return w.Write(s.Vault, TranscriptPath(s.SessionID), Render(s))
}

// Load reads and parses an existing session's transcript. A missing
// transcript is reported via the underlying Writer's Read error (typically
// os.ErrNotExist-wrapping), which callers starting a brand-new session
// should treat as "no prior history" rather than a hard failure.
func Load(w Writer, vault, sessionID string) (Session, error) {
	content, err := w.Read(vault, TranscriptPath(sessionID))
	if err != nil {
		return Session{}, err
	}
	return Parse(content)
}

// IsNotExist reports whether err indicates a missing transcript file,
// mirroring os.IsNotExist so callers of Load don't need to know that
// vaultio.FileWriter.Read ultimately wraps os.ReadFile's error.
func IsNotExist(err error) bool {
	return os.IsNotExist(err)
}

package contextmanager

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dodgybadger/assistantmd/pkg/assistanterrors"
	"github.com/dodgybadger/assistantmd/pkg/logger"
)

var storeLog = logger.New("contextmanager:store")

// Store persists the context_cache and context_summary tables (§3
// ContextSummaryRecord, §4.7 step 3c/3d), backed by the shared sqlite
// database opened by pkg/store.Open. Mirrors pkg/filestate.Tracker's shape:
// a thin wrapper over an already-migrated *sql.DB.
type Store struct {
	db *sql.DB
}

// NewStore wraps an already-migrated *sql.DB.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// SummaryRecord mirrors §3's ContextSummaryRecord.
type SummaryRecord struct {
	SessionID      string
	SectionIndex   int
	SectionName    string
	TemplateHash   string
	ModelAlias     string
	InputPayload   string
	RenderedPrompt string
	RawOutput      string
	ParsedOutput   string
	CreatedAt      time.Time
}

// PersistSummary inserts one ContextSummaryRecord. Callers guard duplicate
// persistence per run with a run-local "persisted" flag (§4.7 step 3d); this
// method itself always inserts a fresh row.
func (s *Store) PersistSummary(rec SummaryRecord) error {
	var parsed any
	if rec.ParsedOutput != "" {
		parsed = rec.ParsedOutput
	}
	_, err := s.db.Exec(`
		INSERT INTO context_summary
			(session_id, section_index, section_name, template_hash, model_alias,
			 input_payload, rendered_prompt, raw_output, parsed_output, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.SessionID, rec.SectionIndex, rec.SectionName, rec.TemplateHash, rec.ModelAlias,
		rec.InputPayload, rec.RenderedPrompt, rec.RawOutput, parsed, rec.CreatedAt)
	if err != nil {
		return assistanterrors.Store("persisting context summary", err)
	}
	return nil
}

// RecentSummaries returns the most recent n persisted summaries' raw output
// for a session, oldest-first, for injection into a later step's manager
// prompt (§4.7 step 3a's "@recent-summaries M").
func (s *Store) RecentSummaries(sessionID string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.Query(`
		SELECT raw_output FROM context_summary
		WHERE session_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, sessionID, n)
	if err != nil {
		return nil, fmt.Errorf("contextmanager: reading recent summaries: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, rows.Err()
}

// CacheLookup returns the cached summary for cacheKey if present and
// unexpired, and whether template_hash matches (a mismatch is always a
// miss, per §4.2's "Miss if template hash mismatches").
func (s *Store) CacheLookup(cacheKey, templateHash string, now time.Time) (summary string, hit bool, err error) {
	var storedHash string
	var expires sql.NullTime
	row := s.db.QueryRow(`SELECT summary, template_hash, expires_at FROM context_cache WHERE cache_key = ?`, cacheKey)
	if err := row.Scan(&summary, &storedHash, &expires); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("contextmanager: cache lookup %s: %w", cacheKey, err)
	}
	if storedHash != templateHash {
		return "", false, nil
	}
	if expires.Valid && !expires.Time.After(now) {
		return "", false, nil
	}
	return summary, true, nil
}

// CachePut writes (or replaces) one cache entry. A zero expiresAt means the
// entry never expires on its own (only a template-hash change invalidates
// it), matching `@cache session`'s scope.
func (s *Store) CachePut(cacheKey, templateHash, summary string, expiresAt time.Time) error {
	var expiresVal any
	if !expiresAt.IsZero() {
		expiresVal = expiresAt
	}
	_, err := s.db.Exec(`
		INSERT INTO context_cache (cache_key, summary, template_hash, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (cache_key) DO UPDATE SET
			summary = excluded.summary,
			template_hash = excluded.template_hash,
			expires_at = excluded.expires_at
	`, cacheKey, templateHash, summary, expiresVal)
	if err != nil {
		return assistanterrors.Store("writing context cache entry", err)
	}
	return nil
}

// marshalPayload is a small helper so callers can store a structured input
// payload (the messages/turns fed to the manager) as the input_payload
// column without each call site re-implementing JSON encoding.
func marshalPayload(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		storeLog.Printf("marshaling input payload: %v", err)
		return ""
	}
	return string(data)
}

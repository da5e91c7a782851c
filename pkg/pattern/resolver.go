// Package pattern resolves the `{…}` tokens used throughout workflow and
// context template files: relative dates (`{today}`, `{this-week}`), file
// collections (`{latest:N}`, `{pending:N}`), and literal glob segments,
// against a reference datetime, a configured week start day, and a vault
// root directory.
package pattern

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dodgybadger/assistantmd/pkg/logger"
)

var log = logger.New("pattern:resolver")

var tokenRe = regexp.MustCompile(`^\{([a-zA-Z0-9_-]+)(?::(.*))?\}$`)

const (
	defaultPendingN = 10
	defaultLatestN  = 50 // "unbounded-but-capped-at-50" per §4.1
)

// Tracker is implemented by pkg/filestate; it reports which candidate files
// are still unprocessed for a given workflow+pattern-literal pair.
type Tracker interface {
	IsProcessed(workflowID, patternLiteral, relPath, contentHash string, mtime time.Time) (bool, error)
}

// ResolveManyOptions carries the extra context `{pending}` resolution
// needs; WorkflowID/Tracker/PatternLiteral may be left zero for patterns
// that don't use `{pending}`.
type ResolveManyOptions struct {
	WorkflowID     string
	PatternLiteral string
	Tracker        Tracker
}

// ResolveSingle resolves a pattern to exactly one string: a date/name token
// rendered with its format, or (if the pattern has no tokens at all) the
// pattern itself unchanged. Used for `@output file:<path>` and `@header`.
// Collection tokens (`{latest}`, `{pending}`) and glob segments (`*`) are
// rejected — they only make sense against a directory listing.
func ResolveSingle(pattern string, refDate time.Time, weekStart time.Weekday) (string, error) {
	if err := validatePatternShape(pattern); err != nil {
		return "", err
	}

	segments := strings.Split(pattern, "/")
	for i, seg := range segments {
		if !isToken(seg) {
			if strings.Contains(seg, "*") {
				return "", fmt.Errorf("pattern: %q is a collection/glob segment, not valid in a single-value context", seg)
			}
			continue
		}
		name, format, ok := parseToken(seg)
		if !ok {
			return "", fmt.Errorf("pattern: malformed token %q", seg)
		}
		if name == "latest" || name == "pending" {
			return "", fmt.Errorf("pattern: {%s} is a collection token, not valid in a single-value context", name)
		}
		tok, ok := dateTokens[name]
		if !ok {
			return "", fmt.Errorf("pattern: unknown token {%s}", name)
		}
		if format == "" {
			format = tok.defaultFormat
		}
		segments[i] = formatDate(tok.resolve(refDate, weekStart), format)
	}
	return strings.Join(segments, "/"), nil
}

// ResolveMany resolves a pattern to an ordered list of vault-relative
// paths. Non-recursive within the directory context of the pattern: a
// pattern like "journal/{latest:3}" scans only "journal/" at depth 1.
func ResolveMany(pattern string, refDate time.Time, vaultRoot string, weekStart time.Weekday, opts ResolveManyOptions) ([]string, error) {
	if err := validatePatternShape(pattern); err != nil {
		return nil, err
	}

	dir, leaf := path.Split(pattern)
	dir = strings.TrimSuffix(dir, "/")

	if !isToken(leaf) && !strings.Contains(leaf, "*") {
		// No token, no glob: a literal single-file reference.
		resolved := withMarkdownExt(pattern)
		full := filepathJoin(vaultRoot, resolved)
		if _, err := os.Stat(full); err != nil {
			log.Printf("literal pattern %q not found under %s", pattern, vaultRoot)
			return nil, nil
		}
		return []string{resolved}, nil
	}

	if isToken(leaf) {
		name, arg, ok := parseToken(leaf)
		if !ok {
			return nil, fmt.Errorf("pattern: malformed token %q", leaf)
		}
		switch name {
		case "latest":
			return resolveLatest(dir, vaultRoot, arg)
		case "pending":
			return resolvePending(dir, vaultRoot, arg, opts)
		default:
			// A date token used in a file-list context resolves to at most
			// one file: the one it names, if it exists.
			tok, ok := dateTokens[name]
			if !ok {
				return nil, fmt.Errorf("pattern: unknown token {%s}", name)
			}
			format := arg
			if format == "" {
				format = tok.defaultFormat
			}
			base := formatDate(tok.resolve(refDate, weekStart), format)
			rel := withMarkdownExt(joinRel(dir, base))
			full := filepathJoin(vaultRoot, rel)
			if _, err := os.Stat(full); err != nil {
				return nil, nil
			}
			return []string{rel}, nil
		}
	}

	// Literal glob segment, e.g. "report-*.md".
	return resolveGlob(dir, vaultRoot, leaf)
}

func validatePatternShape(pattern string) error {
	if strings.HasPrefix(pattern, "/") {
		return fmt.Errorf("pattern: absolute paths are rejected: %q", pattern)
	}
	if strings.Contains(pattern, "**") {
		return fmt.Errorf("pattern: ** is rejected: %q", pattern)
	}
	for _, seg := range strings.Split(pattern, "/") {
		if seg == ".." {
			return fmt.Errorf("pattern: .. is rejected: %q", pattern)
		}
	}
	return nil
}

func isToken(seg string) bool {
	return tokenRe.MatchString(seg)
}

func parseToken(seg string) (name, arg string, ok bool) {
	m := tokenRe.FindStringSubmatch(seg)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

func withMarkdownExt(p string) string {
	if strings.HasSuffix(p, ".md") {
		return p
	}
	return p + ".md"
}

func joinRel(dir, base string) string {
	if dir == "" {
		return base
	}
	return dir + "/" + base
}

func filepathJoin(root, rel string) string {
	return strings.TrimSuffix(root, "/") + "/" + strings.TrimPrefix(rel, "/")
}

type candidate struct {
	relPath string
	modTime time.Time
}

func listDirCandidates(dir, vaultRoot string) ([]candidate, error) {
	full := vaultRoot
	if dir != "" {
		full = filepathJoin(vaultRoot, dir)
	}
	entries, err := os.ReadDir(full)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pattern: reading directory %s: %w", full, err)
	}

	var out []candidate
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), "_") || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, candidate{relPath: joinRel(dir, e.Name()), modTime: info.ModTime()})
	}
	return out, nil
}

// resolveLatest lists the N most recently modified files, newest first.
func resolveLatest(dir, vaultRoot, arg string) ([]string, error) {
	n := defaultLatestN
	if arg != "" {
		parsed, err := strconv.Atoi(arg)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("pattern: invalid {latest:%s}", arg)
		}
		n = parsed
	}

	candidates, err := listDirCandidates(dir, vaultRoot)
	if err != nil {
		return nil, err
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].modTime.Equal(candidates[j].modTime) {
			return candidates[i].relPath > candidates[j].relPath
		}
		return candidates[i].modTime.After(candidates[j].modTime)
	})
	if n < len(candidates) {
		candidates = candidates[:n]
	}
	return toPaths(candidates), nil
}

// resolvePending lists unprocessed files oldest-first by mtime.
func resolvePending(dir, vaultRoot, arg string, opts ResolveManyOptions) ([]string, error) {
	n := defaultPendingN
	if arg != "" {
		parsed, err := strconv.Atoi(arg)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("pattern: invalid {pending:%s}", arg)
		}
		n = parsed
	}

	candidates, err := listDirCandidates(dir, vaultRoot)
	if err != nil {
		return nil, err
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].modTime.Equal(candidates[j].modTime) {
			return candidates[i].relPath < candidates[j].relPath
		}
		return candidates[i].modTime.Before(candidates[j].modTime)
	})

	if opts.Tracker == nil {
		// No tracker configured: nothing has ever been marked processed.
		if n < len(candidates) {
			candidates = candidates[:n]
		}
		return toPaths(candidates), nil
	}

	var unprocessed []candidate
	for _, c := range candidates {
		hash, err := fileSHA256(filepathJoin(vaultRoot, c.relPath))
		if err != nil {
			continue
		}
		processed, err := opts.Tracker.IsProcessed(opts.WorkflowID, opts.PatternLiteral, c.relPath, hash, c.modTime)
		if err != nil {
			return nil, fmt.Errorf("pattern: checking pending state for %s: %w", c.relPath, err)
		}
		if !processed {
			unprocessed = append(unprocessed, c)
		}
		if len(unprocessed) >= n {
			break
		}
	}
	return toPaths(unprocessed), nil
}

func resolveGlob(dir, vaultRoot, leaf string) ([]string, error) {
	candidates, err := listDirCandidates(dir, vaultRoot)
	if err != nil {
		return nil, err
	}
	var out []candidate
	for _, c := range candidates {
		_, base := path.Split(c.relPath)
		matched, err := path.Match(leaf, base)
		if err != nil {
			return nil, fmt.Errorf("pattern: invalid glob %q: %w", leaf, err)
		}
		if matched {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].relPath < out[j].relPath })
	return toPaths(out), nil
}

func toPaths(candidates []candidate) []string {
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.relPath
	}
	return out
}

func fileSHA256(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

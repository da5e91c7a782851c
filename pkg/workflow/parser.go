package workflow

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/dodgybadger/assistantmd/pkg/logger"
)

var log = logger.New("workflow:parser")

var sectionHeadingRe = regexp.MustCompile(`^##\s+(.+?)\s*$`)

// ParsedFile is the output of ParseWorkflowFile (§4.3): the raw frontmatter
// key/value map (unknown keys preserved but ignored by callers that don't
// need them) and the ordered list of `##` sections.
type ParsedFile struct {
	Frontmatter map[string]string
	Sections    []Section
}

// ParseWorkflowFile splits content into frontmatter and `##` sections, per
// §4.3. With requireFrontmatter=false and no leading `---`, Frontmatter is
// empty and the entire content is treated as sections. Line endings are
// normalized to LF before splitting, so output is stable under CRLF/LF
// variation.
func ParseWorkflowFile(content string, requireFrontmatter bool) (ParsedFile, error) {
	normalized := normalizeLineEndings(content)

	frontmatter := map[string]string{}
	body := normalized

	fm, rest, found := splitFrontmatter(normalized)
	switch {
	case found:
		frontmatter = fm
		body = rest
	case requireFrontmatter:
		return ParsedFile{}, fmt.Errorf("workflow: missing frontmatter delimiters (---)")
	}

	sections := splitSections(body)
	return ParsedFile{Frontmatter: frontmatter, Sections: sections}, nil
}

// CanonicalizeForHash produces the exact byte form SourceHash is computed
// over: LF line endings, each line right-trimmed of trailing whitespace,
// and no extraneous trailing blank lines. Used both when hashing a freshly
// read file and when verifying Parse(Render(workflow)) round-trips (§8).
func CanonicalizeForHash(content string) string {
	normalized := normalizeLineEndings(content)
	lines := strings.Split(normalized, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	joined := strings.TrimRight(strings.Join(lines, "\n"), "\n")
	return joined + "\n"
}

// SourceHash computes the sha256 of content's canonicalized form (§3).
func SourceHash(content string) string {
	sum := sha256.Sum256([]byte(CanonicalizeForHash(content)))
	return hex.EncodeToString(sum[:])
}

func normalizeLineEndings(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// splitFrontmatter extracts a leading `---`-delimited block. found is false
// when content doesn't begin with a `---` line on its own.
func splitFrontmatter(content string) (map[string]string, string, bool) {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return nil, content, false
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			break
		}
	}
	if end < 0 {
		return nil, content, false
	}

	fm := parseFrontmatterLines(lines[1:end])
	rest := strings.Join(lines[end+1:], "\n")
	return fm, rest, true
}

// parseFrontmatterLines parses simple "key: value" lines, stripping
// enclosing matched quotes from the value (§4.3's "quote normalization").
// This is deliberately not a full YAML parser: frontmatter here is a flat
// key/value list, never nested structures.
func parseFrontmatterLines(lines []string) map[string]string {
	out := map[string]string{}
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		out[key] = unquote(val)
	}
	return out
}

func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '\'' && last == '\'') || (first == '"' && last == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// splitSections splits body on `^##\s+.+$` headings. Content before the
// first heading is discarded (a workflow with no sections has none).
func splitSections(body string) []Section {
	lines := strings.Split(body, "\n")

	var sections []Section
	var current *Section
	var buf []string

	flush := func() {
		if current == nil {
			return
		}
		sectionBody := strings.Join(buf, "\n")
		directives, rest := splitDirectiveBlock(sectionBody)
		current.DirectivesRaw = directives
		current.Body = rest
		sections = append(sections, *current)
	}

	for _, line := range lines {
		if m := sectionHeadingRe.FindStringSubmatch(line); m != nil {
			flush()
			current = &Section{Name: m[1]}
			buf = nil
			continue
		}
		if current != nil {
			buf = append(buf, line)
		}
	}
	flush()

	return sections
}

// splitDirectiveBlock separates a section body's contiguous leading
// `@`-prefixed lines from the rest. A blank line or any non-`@` line
// terminates the block (§4.2/§8.1).
func splitDirectiveBlock(body string) (directives, rest string) {
	lines := strings.Split(body, "\n")
	i := 0
	for ; i < len(lines); i++ {
		if !strings.HasPrefix(strings.TrimSpace(lines[i]), "@") {
			break
		}
	}
	return strings.Join(lines[:i], "\n"), strings.Join(lines[i:], "\n")
}

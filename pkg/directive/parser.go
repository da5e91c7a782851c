package directive

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dodgybadger/assistantmd/pkg/assistanterrors"
	"github.com/dodgybadger/assistantmd/pkg/logger"
)

var log = logger.New("directive:parser")

// Parse tokenizes a section body into its directive block and the
// remaining prompt body, per §4.2/§4.3: directives occupy a contiguous
// prefix and the first non-directive line terminates the block (a blank
// line counts as non-directive, matching the invariant in §8.1).
func Parse(workflowID, sectionName, body string) (Map, string, error) {
	lines := strings.Split(body, "\n")
	m := NewMap()

	i := 0
	for ; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], "\r")
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "@") {
			break
		}
		if err := parseLine(&m, workflowID, sectionName, trimmed); err != nil {
			return Map{}, "", err
		}
	}

	remaining := strings.Join(lines[i:], "\n")
	return m, remaining, nil
}

func parseLine(m *Map, workflowID, sectionName, line string) error {
	name, rest := splitDirectiveName(line)
	fail := func(msg string) error {
		return assistanterrors.DirectiveParse(workflowID, sectionName, line, msg)
	}

	switch name {
	case "@input":
		ref, err := parseInput(rest)
		if err != nil {
			return fail(err.Error())
		}
		ref.Raw = line
		m.Inputs = append(m.Inputs, ref)
	case "@output":
		out, err := parseOutput(rest)
		if err != nil {
			return fail(err.Error())
		}
		out.Raw = line
		// A @write-mode line may have already run and set a pending mode
		// (directives in a block are order-independent); preserve it.
		if m.Output != nil && m.Output.Target == "" {
			out.WriteMode = m.Output.WriteMode
		}
		m.Output = &out
	case "@header":
		m.Header = strings.TrimSpace(rest)
	case "@model":
		model, err := parseModel(rest)
		if err != nil {
			return fail(err.Error())
		}
		m.Model = &model
	case "@tools":
		tools, err := parseTools(rest)
		if err != nil {
			return fail(err.Error())
		}
		m.Tools = &tools
	case "@write-mode":
		mode, err := parseWriteMode(rest)
		if err != nil {
			return fail(err.Error())
		}
		if m.Output == nil {
			m.Output = &OutputTarget{}
		}
		m.Output.WriteMode = mode
	case "@run-on":
		runOn, err := parseRunOn(rest)
		if err != nil {
			return fail(err.Error())
		}
		m.RunOn = runOn
	case "@cache":
		cache, err := parseCacheDuration(rest)
		if err != nil {
			return fail(err.Error())
		}
		m.Cache = &cache
	case "@recent-runs":
		n, err := parseNonNegativeInt(rest)
		if err != nil {
			return fail(err.Error())
		}
		m.RecentRuns = &n
	case "@recent-summaries":
		n, err := parseNonNegativeInt(rest)
		if err != nil {
			return fail(err.Error())
		}
		m.RecentSummaries = &n
	case "@token-threshold":
		n, err := parseNonNegativeInt(rest)
		if err != nil {
			return fail(err.Error())
		}
		m.TokenThreshold = &n
	case "@passthrough-runs":
		pr, err := parsePassthroughRuns(rest)
		if err != nil {
			return fail(err.Error())
		}
		m.PassthroughRuns = &pr
	default:
		return fail("unknown directive " + name)
	}
	log.Printf("parsed %s in section %q", name, sectionName)
	return nil
}

func splitDirectiveName(line string) (name, rest string) {
	idx := strings.IndexByte(line, ' ')
	if idx < 0 {
		return line, ""
	}
	return line[:idx], strings.TrimSpace(line[idx+1:])
}

// splitOptions parses a trailing "(key=value, bareword, ...)" clause, returning
// the clause's contents and whatever precedes it with trailing space trimmed.
func splitOptions(s string) (before, opts string) {
	idx := strings.IndexByte(s, '(')
	if idx < 0 || !strings.HasSuffix(strings.TrimSpace(s), ")") {
		return strings.TrimSpace(s), ""
	}
	before = strings.TrimSpace(s[:idx])
	inner := strings.TrimSpace(s[idx+1:])
	inner = strings.TrimSuffix(inner, ")")
	return before, inner
}

func parseOptionMap(opts string) map[string]string {
	result := map[string]string{}
	if opts == "" {
		return result
	}
	for _, part := range strings.Split(opts, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if eq := strings.IndexByte(part, '='); eq >= 0 {
			key := strings.TrimSpace(part[:eq])
			val := strings.TrimSpace(part[eq+1:])
			result[key] = val
		} else {
			result[part] = "true"
		}
	}
	return result
}

func optBool(opts map[string]string, key string) bool {
	v, ok := opts[key]
	if !ok {
		return false
	}
	v = strings.ToLower(v)
	return v == "" || v == "true" || v == "1" || v == "yes"
}

func parseNonNegativeInt(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("expected a non-negative integer, got %q", s)
	}
	return n, nil
}

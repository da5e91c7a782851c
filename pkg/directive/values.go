package directive

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// parseScheme splits "file:target" / "variable:target" into its scheme and target.
func parseScheme(s string) (Scheme, string, error) {
	idx := strings.IndexByte(s, ':')
	if idx < 0 {
		return "", "", fmt.Errorf("expected <scheme>:<target>, got %q", s)
	}
	scheme := strings.TrimSpace(s[:idx])
	target := strings.TrimSpace(s[idx+1:])
	switch Scheme(scheme) {
	case SchemeFile, SchemeVariable:
		return Scheme(scheme), target, nil
	default:
		return "", "", fmt.Errorf("unknown scheme %q, expected file: or variable:", scheme)
	}
}

func parseInput(rest string) (InputRef, error) {
	before, opts := splitOptions(rest)
	scheme, target, err := parseScheme(before)
	if err != nil {
		return InputRef{}, err
	}
	o := parseOptionMap(opts)

	images := ImagesAuto
	if v, ok := o["images"]; ok {
		switch ImagesMode(v) {
		case ImagesAuto, ImagesIgnore:
			images = ImagesMode(v)
		default:
			return InputRef{}, fmt.Errorf("invalid images= value %q, expected auto or ignore", v)
		}
	}

	return InputRef{
		Scheme:   scheme,
		Target:   target,
		Required: optBool(o, "required"),
		RefsOnly: optBool(o, "refs_only"),
		Images:   images,
	}, nil
}

// outputPathRe matches an Obsidian [[...]] link so parseOutput can strip the
// brackets; rejection of `..`/`**`/absolute happens in pkg/pattern.
var outputPathRe = regexp.MustCompile(`\[\[([^\]]+)\]\]`)

// parseOutput parses "<scheme>:<target>". Write mode is set separately by a
// sibling `@write-mode` directive line (default WriteAppend, per §4.8's
// "default mode for @output variable: is append").
func parseOutput(rest string) (OutputTarget, error) {
	before, _ := splitOptions(rest)
	scheme, target, err := parseScheme(before)
	if err != nil {
		return OutputTarget{}, err
	}

	// Strip Obsidian [[...]] brackets per §4.2.
	target = outputPathRe.ReplaceAllString(target, "$1")
	target = strings.TrimSpace(target)

	if scheme == SchemeFile {
		target = normalizeOutputExtension(target)
	}

	return OutputTarget{Scheme: scheme, Target: target, WriteMode: WriteAppend}, nil
}

// normalizeOutputExtension auto-appends .md if missing, and normalizes any
// other extension to .md per §4.2 ("rejects non-.md extensions, normalizes
// to .md").
func normalizeOutputExtension(target string) string {
	idx := strings.LastIndexByte(target, '.')
	slashIdx := strings.LastIndexByte(target, '/')
	if idx < 0 || idx < slashIdx {
		return target + ".md"
	}
	if target[idx:] == ".md" {
		return target
	}
	return target[:idx] + ".md"
}

func parseModel(rest string) (ModelSelection, error) {
	before, opts := splitOptions(rest)
	if before == "" {
		return ModelSelection{}, fmt.Errorf("expected a model alias")
	}
	o := parseOptionMap(opts)
	return ModelSelection{Alias: before, Thinking: optBool(o, "thinking")}, nil
}

func parseTools(rest string) (ToolSelection, error) {
	rest = strings.TrimSpace(rest)
	switch strings.ToLower(rest) {
	case "all", "true", "yes", "on", "1":
		return ToolSelection{All: true}, nil
	case "none", "false", "no", "off", "0", "":
		return ToolSelection{None: true}, nil
	}

	fields := strings.FieldsFunc(rest, func(r rune) bool { return r == ',' || r == ' ' })
	names := map[string]bool{}
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			names[f] = true
		}
	}
	if len(names) == 0 {
		return ToolSelection{}, fmt.Errorf("expected a tool list, 'all', or 'none'")
	}
	return ToolSelection{Names: names}, nil
}

func parseWriteModeValue(s string) (WriteMode, error) {
	switch WriteMode(strings.ToLower(strings.TrimSpace(s))) {
	case WriteAppend:
		return WriteAppend, nil
	case WriteNew:
		return WriteNew, nil
	case WriteReplace:
		return WriteReplace, nil
	default:
		return "", fmt.Errorf("invalid @write-mode %q, expected append, new, or replace", s)
	}
}

func parseWriteMode(rest string) (WriteMode, error) {
	return parseWriteModeValue(rest)
}

func parseRunOn(rest string) (RunOn, error) {
	rest = strings.TrimSpace(rest)
	switch strings.ToLower(rest) {
	case "daily", "":
		return RunOn{Daily: true}, nil
	case "never":
		return RunOn{Never: true}, nil
	}

	fields := strings.FieldsFunc(rest, func(r rune) bool { return r == ',' || r == ' ' })
	weekdays := map[time.Weekday]bool{}
	for _, f := range fields {
		d, ok := parseWeekday(f)
		if !ok {
			return RunOn{}, fmt.Errorf("unknown weekday %q", f)
		}
		weekdays[d] = true
	}
	if len(weekdays) == 0 {
		return RunOn{}, fmt.Errorf("expected weekday names, 'daily', or 'never'")
	}
	return RunOn{Weekdays: weekdays}, nil
}

func parsePassthroughRuns(rest string) (PassthroughRuns, error) {
	rest = strings.TrimSpace(rest)
	if strings.EqualFold(rest, "all") {
		return PassthroughRuns{All: true}, nil
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return PassthroughRuns{}, fmt.Errorf("expected a non-negative integer or 'all', got %q", rest)
	}
	return PassthroughRuns{Count: n}, nil
}

// Package rules applies user-defined transcript corrections: deterministic
// substitutions fixing recurring recognition mistakes (contact names, project
// shorthand) before a spoken command is submitted.
package rules

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// A rule rewrites text and reports whether anything changed.
type rule func(input string) (output string, changed bool)

// Engine applies corrections loaded from a rules file. An empty path or a
// missing file yields a pass-through engine.
type Engine struct {
	rules     []rule
	loopLimit int
}

// NewEngine loads and compiles corrections from a file.
//
// Two line formats are supported, plus '#' comments and blank lines:
//
//	spoken text => replacement      case-insensitive literal
//	s/pattern/replacement/flags     sed-style regex (flags: i g m s)
func NewEngine(path string, loopLimit int) (*Engine, error) {
	if loopLimit <= 0 {
		loopLimit = 30
	}

	engine := &Engine{loopLimit: loopLimit}
	if strings.TrimSpace(path) == "" {
		return engine, nil
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return engine, nil
		}
		return nil, fmt.Errorf("failed to read corrections file %q: %w", path, err)
	}

	for index, raw := range strings.Split(string(contents), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		compiled, err := compileLine(line)
		if err != nil {
			return nil, fmt.Errorf("corrections file %q line %d: %w", path, index+1, err)
		}
		engine.rules = append(engine.rules, compiled)
	}

	return engine, nil
}

// Apply rewrites text until no rule changes it or the iteration limit is hit.
func (e *Engine) Apply(text string) (string, error) {
	result := text
	for i := 0; i < e.loopLimit; i++ {
		changed := false
		for _, apply := range e.rules {
			next, ruleChanged := apply(result)
			if ruleChanged {
				result = next
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return result, nil
}

func compileLine(line string) (rule, error) {
	if len(line) > 1 && line[0] == 's' && isDelimiter(line[1]) {
		return compileRegexRule(line)
	}
	if strings.Contains(line, "=>") {
		return compileLiteralRule(line)
	}
	return nil, errors.New("unsupported correction format")
}

func compileLiteralRule(line string) (rule, error) {
	parts := strings.SplitN(line, "=>", 2)
	from := strings.TrimSpace(parts[0])
	to := strings.TrimSpace(parts[1])
	if from == "" {
		return nil, errors.New("literal correction source cannot be empty")
	}

	re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(from))
	if err != nil {
		return nil, fmt.Errorf("invalid literal source: %w", err)
	}

	return func(input string) (string, bool) {
		output := re.ReplaceAllString(input, to)
		return output, output != input
	}, nil
}

func compileRegexRule(line string) (rule, error) {
	delim := line[1]
	pattern, pos, err := readSegment(line, 2, delim)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern: %w", err)
	}
	replacement, pos, err := readSegment(line, pos, delim)
	if err != nil {
		return nil, fmt.Errorf("invalid regex replacement: %w", err)
	}

	global := false
	modifiers := "i" // transcripts have unreliable casing; insensitive by default
	for _, flag := range strings.TrimSpace(line[pos:]) {
		switch flag {
		case 'i':
		case 'g':
			global = true
		case 'm':
			modifiers += "m"
		case 's':
			modifiers += "s"
		default:
			return nil, fmt.Errorf("unsupported regex flag %q", flag)
		}
	}

	re, err := regexp.Compile("(?" + modifiers + ")" + pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex: %w", err)
	}

	return func(input string) (string, bool) {
		if global {
			output := re.ReplaceAllString(input, replacement)
			return output, output != input
		}
		loc := re.FindStringIndex(input)
		if loc == nil {
			return input, false
		}
		output := input[:loc[0]] + re.ReplaceAllString(input[loc[0]:loc[1]], replacement) + input[loc[1]:]
		return output, output != input
	}, nil
}

func readSegment(line string, start int, delim byte) (string, int, error) {
	if start >= len(line) {
		return "", 0, errors.New("unexpected end of expression")
	}

	var builder strings.Builder
	escaped := false
	for index := start; index < len(line); index++ {
		char := line[index]
		switch {
		case escaped:
			builder.WriteByte(char)
			escaped = false
		case char == '\\':
			builder.WriteByte(char)
			escaped = true
		case char == delim:
			return builder.String(), index + 1, nil
		default:
			builder.WriteByte(char)
		}
	}
	return "", 0, errors.New("unterminated expression")
}

func isDelimiter(char byte) bool {
	switch {
	case char >= 'a' && char <= 'z', char >= 'A' && char <= 'Z':
		return false
	case char >= '0' && char <= '9':
		return false
	case char == ' ', char == '\t':
		return false
	}
	return true
}

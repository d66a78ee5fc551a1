package rules

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Engine normalizes dictated task phrases before they are committed to
// a capture field: built-in filler stripping and whitespace collapse,
// then user substitutions loaded from a rules file, applied until the
// text is stable or the iteration limit is hit.
type Engine struct {
	subs      []substitution
	loopLimit int
}

type substitution struct {
	re          *regexp.Regexp
	replacement string
}

var (
	leadingFiller = regexp.MustCompile(`(?i)^(?:um+|uh+|er+|hmm+)[,.]?\s+`)
	multiSpace    = regexp.MustCompile(`\s{2,}`)
)

// NewEngine loads substitutions from path. A missing or empty path
// yields an engine with built-ins only.
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
		return nil, fmt.Errorf("failed to read rules file %q: %w", path, err)
	}

	subs, err := parseSubstitutions(string(contents))
	if err != nil {
		return nil, fmt.Errorf("failed to parse rules file %q: %w", path, err)
	}
	engine.subs = subs
	return engine, nil
}

// Apply implements ports.Normalizer.
func (e *Engine) Apply(text string) (string, error) {
	text = leadingFiller.ReplaceAllString(text, "")
	text = multiSpace.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	if len(e.subs) == 0 {
		return text, nil
	}

	result := text
	for i := 0; i < e.loopLimit; i++ {
		changed := false
		for _, sub := range e.subs {
			next := sub.re.ReplaceAllString(result, sub.replacement)
			if next != result {
				result = next
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return strings.TrimSpace(result), nil
}

// parseSubstitutions accepts two line forms, with # comments:
//
//	spoken phrase => written form
//	s/pattern/replacement/
func parseSubstitutions(contents string) ([]substitution, error) {
	lines := strings.Split(contents, "\n")
	subs := make([]substitution, 0, len(lines))

	for index, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		sub, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", index+1, err)
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func parseLine(line string) (substitution, error) {
	if strings.HasPrefix(line, "s/") {
		return parseRegexForm(line)
	}
	if strings.Contains(line, "=>") {
		return parseLiteralForm(line)
	}
	return substitution{}, errors.New("unsupported rule format")
}

func parseLiteralForm(line string) (substitution, error) {
	parts := strings.SplitN(line, "=>", 2)
	from := strings.TrimSpace(parts[0])
	to := strings.TrimSpace(parts[1])
	if from == "" {
		return substitution{}, errors.New("substitution source cannot be empty")
	}

	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(from))
	if err != nil {
		return substitution{}, fmt.Errorf("invalid substitution source: %w", err)
	}
	return substitution{re: re, replacement: to}, nil
}

func parseRegexForm(line string) (substitution, error) {
	body := line[2:]
	pattern, rest, err := splitUnescaped(body)
	if err != nil {
		return substitution{}, err
	}
	replacement, _, err := splitUnescaped(rest)
	if err != nil {
		return substitution{}, err
	}

	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return substitution{}, fmt.Errorf("invalid regex: %w", err)
	}
	return substitution{re: re, replacement: replacement}, nil
}

// splitUnescaped returns the segment up to the first unescaped slash
// and everything after it.
func splitUnescaped(s string) (string, string, error) {
	escaped := false
	for i := 0; i < len(s); i++ {
		if escaped {
			escaped = false
			continue
		}
		switch s[i] {
		case '\\':
			escaped = true
		case '/':
			return s[:i], s[i+1:], nil
		}
	}
	return "", "", errors.New("unterminated expression")
}

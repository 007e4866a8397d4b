package adapt

import (
	"regexp"
	"strings"
)

// Optimization is a pure text transform keyed by name. Unknown names in a
// platform's optimization list are skipped, not errors: the table is an
// extension seam and deployments may register names this module never ships.
type Optimization func(text string) string

var multiSpacePattern = regexp.MustCompile(`[ \t]{2,}`)

func DefaultOptimizations() map[string]Optimization {
	return map[string]Optimization{
		"collapse_whitespace": collapseWhitespace,
		"trim_lines":          trimLines,
	}
}

func collapseWhitespace(text string) string {
	return multiSpacePattern.ReplaceAllString(text, " ")
}

func trimLines(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}

// applyOptimizations runs each named transform in order, returning the final
// text and the names that were actually applied.
func applyOptimizations(text string, names []string, registry map[string]Optimization) (string, []string) {
	if len(names) == 0 || len(registry) == 0 {
		return text, nil
	}
	applied := make([]string, 0, len(names))
	for _, name := range names {
		transform, ok := registry[strings.TrimSpace(name)]
		if !ok || transform == nil {
			continue
		}
		text = transform(text)
		applied = append(applied, strings.TrimSpace(name))
	}
	if len(applied) == 0 {
		return text, nil
	}
	return text, applied
}

// ToneAdjuster rewrites text toward a platform's expected tone. The default
// is the identity adjuster; semantic rewriting plugs in behind this seam.
type ToneAdjuster interface {
	Adjust(text string, tone string) string
}

type IdentityToneAdjuster struct{}

func (IdentityToneAdjuster) Adjust(text string, _ string) string {
	return text
}

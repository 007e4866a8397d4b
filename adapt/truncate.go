package adapt

import (
	"strings"
	"unicode"
)

const ellipsis = "..."

// truncateText shortens text to at most max characters, cutting at the last
// word boundary before max-3 and appending an ellipsis. When the nearest
// boundary sits before 80% of the limit the cut would throw away too much, so
// the text is hard-truncated instead. Rune-aware throughout.
func truncateText(text string, max int) (string, bool) {
	if max <= 0 {
		return text, false
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text, false
	}

	cut := max - len(ellipsis)
	if cut <= 0 {
		return string(runes[:max]), true
	}

	boundary := -1
	for i := cut; i > 0; i-- {
		if unicode.IsSpace(runes[i]) {
			boundary = i
			break
		}
	}

	floor := (max * 8) / 10
	if boundary > 0 && boundary >= floor {
		trimmed := strings.TrimRightFunc(string(runes[:boundary]), unicode.IsSpace)
		return trimmed + ellipsis, true
	}
	return string(runes[:cut]) + ellipsis, true
}

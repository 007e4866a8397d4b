package adapt

import "regexp"

var (
	hashtagPattern = regexp.MustCompile(`#([A-Za-z0-9_]+)`)
	mentionPattern = regexp.MustCompile(`@([A-Za-z0-9_.]+)`)
)

// extractHashtags returns the first limit hashtag tokens, without the sigil,
// in order of appearance.
func extractHashtags(text string, limit int) []string {
	return extractTokens(hashtagPattern, text, limit)
}

func extractMentions(text string, limit int) []string {
	return extractTokens(mentionPattern, text, limit)
}

func extractTokens(pattern *regexp.Regexp, text string, limit int) []string {
	if limit <= 0 {
		return nil
	}
	matches := pattern.FindAllStringSubmatch(text, limit)
	if len(matches) == 0 {
		return nil
	}
	tokens := make([]string, 0, len(matches))
	for _, match := range matches {
		tokens = append(tokens, match[1])
	}
	return tokens
}

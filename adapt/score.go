package adapt

import "unicode/utf8"

const (
	scoreBaseline     = 0.7
	scoreBonus        = 0.1
	scoreCeiling      = 1.0
	defaultConfidence = 0.7
)

// scoreAdaptation is the weighted heuristic behind the optimization score:
// baseline 0.7, plus 0.1 for each of fitting the limit, landing hashtags in
// (0, limit], and the text having actually changed, capped at 1.0.
func scoreAdaptation(original string, final string, hashtagCount int, constraints PlatformConstraints) float64 {
	score := scoreBaseline
	if constraints.MaxTextLength > 0 && utf8.RuneCountInString(final) <= constraints.MaxTextLength {
		score += scoreBonus
	}
	if hashtagCount > 0 && hashtagCount <= constraints.HashtagLimit {
		score += scoreBonus
	}
	if final != original {
		score += scoreBonus
	}
	if score > scoreCeiling {
		score = scoreCeiling
	}
	return score
}

package adapt

import "strings"

// PlatformConstraints describes what one platform accepts: a text ceiling,
// bounded hashtag/mention/media counts, the tone the audience expects, and
// the named optimizations applied after tone adjustment.
type PlatformConstraints struct {
	MaxTextLength int
	HashtagLimit  int
	MentionLimit  int
	MediaLimit    int
	Tone          string
	Optimizations []string
}

type ConstraintTable map[string]PlatformConstraints

func (t ConstraintTable) Lookup(platform string) (PlatformConstraints, bool) {
	if t == nil {
		return PlatformConstraints{}, false
	}
	constraints, ok := t[strings.TrimSpace(platform)]
	return constraints, ok
}

// Set overrides or adds a platform entry. Deployments extend the default
// table this way rather than rebuilding it.
func (t ConstraintTable) Set(platform string, constraints PlatformConstraints) {
	if t == nil {
		return
	}
	t[strings.TrimSpace(platform)] = constraints
}

func DefaultConstraintTable() ConstraintTable {
	return ConstraintTable{
		"x": {
			MaxTextLength: 280,
			HashtagLimit:  5,
			MentionLimit:  5,
			MediaLimit:    4,
			Tone:          "casual",
			Optimizations: []string{"collapse_whitespace"},
		},
		"linkedin": {
			MaxTextLength: 3000,
			HashtagLimit:  5,
			MentionLimit:  10,
			MediaLimit:    9,
			Tone:          "professional",
			Optimizations: []string{"collapse_whitespace", "trim_lines"},
		},
		"instagram": {
			MaxTextLength: 2200,
			HashtagLimit:  30,
			MentionLimit:  20,
			MediaLimit:    10,
			Tone:          "visual",
			Optimizations: []string{"trim_lines"},
		},
		"facebook": {
			MaxTextLength: 63206,
			HashtagLimit:  10,
			MentionLimit:  50,
			MediaLimit:    10,
			Tone:          "conversational",
			Optimizations: nil,
		},
	}
}

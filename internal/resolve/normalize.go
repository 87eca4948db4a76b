package resolve

import (
	"regexp"
	"strings"
)

var (
	separators = regexp.MustCompile(`[\s_\-]+`)

	// Noise tokens carry no identity: tempo markers, frequency markers,
	// version suffixes, bare numeric variants, and trailing key
	// signatures ("Amin", "c#maj", "F#m"). A bare letter a-g needs an
	// accidental or a mode qualifier to count ("Plan B" keeps its B).
	noiseToken = regexp.MustCompile(`^(\d+bpm|\d+hz|v\d+|\d+|[a-g][#b](min|maj|m)?|[a-g][#b]?(min|maj|m))$`)
)

// NormalizeName lowercases a display name and collapses separator runs
// (underscores, hyphens, whitespace) into single spaces.
func NormalizeName(name string) string {
	return strings.TrimSpace(separators.ReplaceAllString(strings.ToLower(name), " "))
}

// StripNoise removes trailing noise tokens from a normalized name:
// "kick 128bpm" and "kick v2" both reduce to "kick". At least one token is
// always kept, so a query that is nothing but noise still matches literally.
func StripNoise(normalized string) string {
	tokens := strings.Fields(normalized)
	for len(tokens) > 1 && noiseToken.MatchString(tokens[len(tokens)-1]) {
		tokens = tokens[:len(tokens)-1]
	}
	return strings.Join(tokens, " ")
}

// Variants returns the progressive right-to-left token strippings of a
// normalized name, starting with the name itself: "kick 128 tight" yields
// ["kick 128 tight", "kick 128", "kick"]. This is the "variant cleaning"
// ladder exact matching walks when the full query misses.
func Variants(normalized string) []string {
	tokens := strings.Fields(normalized)
	if len(tokens) == 0 {
		return nil
	}
	out := make([]string, 0, len(tokens))
	for n := len(tokens); n >= 1; n-- {
		out = append(out, strings.Join(tokens[:n], " "))
	}
	return out
}

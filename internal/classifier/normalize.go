// Package classifier implements the Classifier (C2): mapping a raw command
// string to a SecurityAssessment by scanning the merged pattern tiers.
package classifier

import (
	"regexp"
	"strings"
)

var (
	whitespaceRE = regexp.MustCompile(`\s+`)
	quotedRE     = regexp.MustCompile(`'[^']*'|"[^"]*"`)
	pathLikeRE   = regexp.MustCompile(`(?:[A-Za-z]:)?[\\/][^\s'"]*|\.{1,2}[\\/][^\s'"]*`)
)

// Normalize implements §3's normalization rule: lowercase, collapse runs of
// whitespace to a single space, and replace quoted substrings and path-like
// tokens with placeholders. The same function is used for both Learning
// Store storage and classification lookup so the two never diverge.
func Normalize(commandText string) string {
	s := strings.ToLower(strings.TrimSpace(commandText))
	s = quotedRE.ReplaceAllString(s, "<str>")
	s = pathLikeRE.ReplaceAllString(s, "<path>")
	s = whitespaceRE.ReplaceAllString(s, " ")
	return s
}

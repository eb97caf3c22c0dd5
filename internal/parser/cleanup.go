package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaxChoiceLength bounds the length of a choice, in runes.
	MaxChoiceLength = 100

	// Cleanup never shortens an option below this many runes.
	minCleanLength = 10

	ellipsis = "..."
)

type cleanupRule struct {
	name string
	re   *regexp.Regexp
}

// connector matches a whitespace-led phrase up to the end of the option.
// RE2 word boundaries are ASCII only, so the trailing boundary is spelled out.
func connector(phrase string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\s` + phrase + `(?:[^\p{L}].*)?$`)
}

// Applied in order; each rule drops the matched tail of the option.
var cleanupRules = []cleanupRule{
	{"comma", regexp.MustCompile(`,.*$`)},
	{"spaced dash", regexp.MustCompile(` - .*$`)},
	{"dash", regexp.MustCompile(`[-–—].*$`)},
	{"colon", regexp.MustCompile(`:.*$`)},
	{"in order to", connector(`чтобы`)},
	{"because", connector(`потому\s+что`)},
	{"since", connector(`так\s+как`)},
	{"for the purpose of", connector(`для\s+того`)},
	{"and then", connector(`и\s+(?:затем|потом)`)},
	{"but then", connector(`а\s+(?:затем|потом)`)},
}

// CleanOption strips explanations the model tends to append to an action
// ("Пойти домой, чтобы отдохнуть" becomes "Пойти домой"). When the result
// would be shorter than ten runes the original text is kept.
func CleanOption(text string) string {
	cleaned := text
	for _, rule := range cleanupRules {
		cleaned = rule.re.ReplaceAllString(cleaned, "")
	}
	cleaned = strings.TrimSpace(cleaned)

	n := utf8.RuneCountInString(cleaned)
	if n < minCleanLength && utf8.RuneCountInString(text) > n {
		return text
	}
	return cleaned
}

// Truncate limits text to max runes, ending with "..." when cut. The cut
// backs up to the last space when that space lies past the midpoint.
func Truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	if max <= len(ellipsis) {
		return string(runes[:max])
	}

	cut := runes[:max-len(ellipsis)]
	if i := lastSpace(cut); i > max/2 {
		cut = cut[:i]
	}
	return string(cut) + ellipsis
}

func lastSpace(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == ' ' {
			return i
		}
	}
	return -1
}

// ChoiceText turns a raw choice line body into the text shown to the player.
func ChoiceText(raw string) string {
	return Truncate(CleanOption(raw), MaxChoiceLength)
}

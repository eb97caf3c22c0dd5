package parser

import (
	"regexp"
	"strings"
)

var (
	spaceBeforePunct = regexp.MustCompile(`\s+([.,:;?!])`)
	extraNewlines    = regexp.MustCompile(`\n{3,}`)
	extraSpaces      = regexp.MustCompile(`[ \t]{2,}`)
	// A punctuation mark glued to the next word. Digits, closing quotes and
	// brackets, and runs of punctuation ("...", "?!") are left alone.
	missingSpace = regexp.MustCompile(`([.,:;?!])([^\s\d"'»)\].,:;?!])`)
)

// Normalize is a best-effort typography pass over model prose. The rules
// are applied in order and text that already satisfies them is returned
// unchanged.
func Normalize(text string) string {
	text = spaceBeforePunct.ReplaceAllString(text, "$1")
	text = extraNewlines.ReplaceAllString(text, "\n\n")
	text = extraSpaces.ReplaceAllString(text, " ")
	text = missingSpace.ReplaceAllString(text, "$1 $2")
	return strings.TrimSpace(text)
}

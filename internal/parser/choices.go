package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tatianab/text-quest/internal/models"
)

const (
	// Delimiter separates the narrative from the list of choices in both
	// model replies and the assistant turns we send back.
	Delimiter = "ВАРИАНТЫ:"

	// ChoiceCount is the number of choices every scene carries.
	ChoiceCount = 3
)

var numberedLine = regexp.MustCompile(`^\d+[.)]\s*(.+)$`)

var defaultChoiceTexts = [ChoiceCount]string{
	"Продолжить поиски семьи",
	"Отвлечься на что-то другое",
	"Сделать что-то необычное",
}

// DefaultChoices returns the fallback choices used when the model gives
// fewer than ChoiceCount options.
func DefaultChoices() []models.Choice {
	out := make([]models.Choice, ChoiceCount)
	for i, text := range defaultChoiceTexts {
		out[i] = models.Choice{ID: strconv.Itoa(i + 1), Text: text}
	}
	return out
}

// Result is a model reply split into prose and choices.
type Result struct {
	Narrative string
	Choices   []models.Choice // always ChoiceCount entries
	Delimited bool            // false when the reply had no choice block
}

// ParseResponse splits a raw model reply into a narrative and exactly
// ChoiceCount choices. A reply without the delimiter is not an error: the
// whole text becomes the narrative and the default choices are used.
func ParseResponse(raw string) Result {
	before, after, found := strings.Cut(raw, Delimiter)
	if !found {
		return Result{
			Narrative: strings.TrimSpace(raw),
			Choices:   DefaultChoices(),
		}
	}

	res := Result{
		Narrative: Normalize(strings.TrimSpace(before)),
		Delimited: true,
	}

	for _, line := range strings.Split(strings.TrimSpace(after), "\n") {
		if len(res.Choices) == ChoiceCount {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		text := line
		if m := numberedLine.FindStringSubmatch(line); m != nil {
			text = strings.TrimSpace(m[1])
		}
		res.Choices = append(res.Choices, models.Choice{
			ID:   strconv.Itoa(len(res.Choices) + 1),
			Text: ChoiceText(text),
		})
	}

	defaults := DefaultChoices()
	for i := len(res.Choices); i < ChoiceCount; i++ {
		res.Choices = append(res.Choices, defaults[i])
	}
	return res
}

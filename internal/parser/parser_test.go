package parser

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatianab/text-quest/internal/models"
)

func TestParseResponse_PadsMissingChoices(t *testing.T) {
	raw := "Вы стоите у леса.\n\nВАРИАНТЫ:\n1. Войти в лес\n2. Вернуться домой"

	res := ParseResponse(raw)

	assert.True(t, res.Delimited)
	assert.Equal(t, "Вы стоите у леса.", res.Narrative)
	assert.Equal(t, []models.Choice{
		{ID: "1", Text: "Войти в лес"},
		{ID: "2", Text: "Вернуться домой"},
		{ID: "3", Text: "Сделать что-то необычное"},
	}, res.Choices)
}

func TestParseResponse_NoDelimiter(t *testing.T) {
	raw := "  Туман сгущается , и вы теряете дорогу.\n\n\n\nНикаких вариантов.  "

	res := ParseResponse(raw)

	assert.False(t, res.Delimited)
	assert.Equal(t, strings.TrimSpace(raw), res.Narrative, "narrative is not normalized without a choice block")
	assert.Equal(t, DefaultChoices(), res.Choices)
}

func TestParseResponse_AlwaysThreeChoices(t *testing.T) {
	lines := []string{
		"1. Открыть сундук",
		"2. Позвать на помощь",
		"3. Спуститься в подвал",
		"4. Уйти прочь",
		"5. Лечь спать",
	}
	for n := 0; n <= len(lines); n++ {
		t.Run(fmt.Sprintf("%d lines", n), func(t *testing.T) {
			raw := "Сцена.\nВАРИАНТЫ:\n" + strings.Join(lines[:n], "\n")
			res := ParseResponse(raw)
			require.Len(t, res.Choices, ChoiceCount)
			for i, c := range res.Choices {
				assert.Equal(t, fmt.Sprint(i+1), c.ID)
			}
			if n >= 3 {
				assert.Equal(t, "Спуститься в подвал", res.Choices[2].Text)
			}
		})
	}
}

func TestParseResponse_LineFormats(t *testing.T) {
	raw := strings.Join([]string{
		"Дверь скрипит.",
		"ВАРИАНТЫ:",
		"",
		"  7) Заглянуть внутрь  ",
		"",
		"2.Постучать погромче",
		"Уйти по тропинке на север",
	}, "\n")

	res := ParseResponse(raw)

	assert.Equal(t, []models.Choice{
		{ID: "1", Text: "Заглянуть внутрь"},
		{ID: "2", Text: "Постучать погромче"},
		{ID: "3", Text: "Уйти по тропинке на север"},
	}, res.Choices)
}

func TestParseResponse_CleansAndTruncatesChoices(t *testing.T) {
	long := strings.TrimSpace(strings.Repeat("идти дальше ", 20))
	raw := "Сцена.\nВАРИАНТЫ:\n1. Осмотреться\n2) Пойти домой, чтобы отдохнуть\n3. " + long

	res := ParseResponse(raw)

	assert.Equal(t, "Осмотреться", res.Choices[0].Text)
	assert.Equal(t, "Пойти домой", res.Choices[1].Text)
	assert.LessOrEqual(t, utf8.RuneCountInString(res.Choices[2].Text), MaxChoiceLength)
	assert.True(t, strings.HasSuffix(res.Choices[2].Text, "..."))
}

func TestParseResponse_NormalizesNarrative(t *testing.T) {
	raw := "Вы вошли в зал .Там темно!\n\n\n\nКто-то шепчет  ваше имя.\nВАРИАНТЫ:\n1. Ответить шёпотом"

	res := ParseResponse(raw)

	assert.Equal(t, "Вы вошли в зал. Там темно!\n\nКто-то шепчет ваше имя.", res.Narrative)
}

func TestCleanOption(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Пойти домой, чтобы отдохнуть", "Пойти домой"},
		{"Осмотреть комнату - вдруг там ключ", "Осмотреть комнату"},
		{"Осмотреть комнату — вдруг там ключ", "Осмотреть комнату"},
		{"Прочитать надпись: что там", "Прочитать надпись"},
		{"Поговорить с трактирщиком чтобы узнать новости", "Поговорить с трактирщиком"},
		{"Бежать к реке потому что там безопасно", "Бежать к реке"},
		{"Спрятаться в подвале так как наверху шум", "Спрятаться в подвале"},
		{"Купить припасы для того чтобы выжить", "Купить припасы"},
		{"Открыть дверь и затем войти внутрь", "Открыть дверь"},
		{"Открыть дверь И ПОТОМ войти", "Открыть дверь"},
		{"Подождать рассвета а потом уйти", "Подождать рассвета"},
		// the connector must be a whole word
		{"Найти и потомков короля", "Найти и потомков короля"},
		// too short after cleanup: keep the original
		{"Взять меч - он пригодится", "Взять меч - он пригодится"},
		{"Идти: вперёд", "Идти: вперёд"},
		{"Осмотреться", "Осмотреться"},
		{"Ждать", "Ждать"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanOption(tt.in))
		})
	}
}

func TestCleanOptionNeverDestroysShortOptions(t *testing.T) {
	inputs := []string{
		"Да, конечно",
		"Нет: никогда",
		"Бег - жизнь",
		"Сесть и потом встать",
		"Пойти домой, чтобы отдохнуть",
		"Ок",
		"",
	}
	for _, in := range inputs {
		out := CleanOption(in)
		if utf8.RuneCountInString(out) < minCleanLength {
			assert.Equal(t, in, out)
		}
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "коротко", Truncate("коротко", 100))

	exact := strings.Repeat("я", 100)
	assert.Equal(t, exact, Truncate(exact, 100))

	noSpaces := strings.Repeat("а", 150)
	assert.Equal(t, strings.Repeat("а", 97)+"...", Truncate(noSpaces, 100))

	words := make([]string, 30)
	for i := range words {
		words[i] = "слово"
	}
	got := Truncate(strings.Join(words, " "), 100)
	assert.Equal(t, strings.Join(words[:16], " ")+"...", got)

	// a space before the midpoint is not used as a cut point
	early := "ab " + strings.Repeat("в", 120)
	assert.Equal(t, "ab "+strings.Repeat("в", 94)+"...", Truncate(early, 100))

	assert.Equal(t, "ab", Truncate("abcdef", 2))
}

func TestTruncateIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"коротко",
		strings.Repeat("а", 150),
		strings.Repeat("слово ", 40),
		strings.Repeat("x", 99) + " y",
		"ab " + strings.Repeat("в", 120),
	}
	for _, in := range inputs {
		once := Truncate(in, MaxChoiceLength)
		assert.Equal(t, once, Truncate(once, MaxChoiceLength))
		assert.LessOrEqual(t, utf8.RuneCountInString(once), MaxChoiceLength)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"space before punctuation", "Он вошёл , и дверь закрылась .", "Он вошёл, и дверь закрылась."},
		{"question and exclamation", "Кто там ?Никого !", "Кто там? Никого!"},
		{"missing space", "Привет!Как дела?Хорошо", "Привет! Как дела? Хорошо"},
		{"digits kept", "Цена 3.5 монеты, или 4,5 серебра.", "Цена 3.5 монеты, или 4,5 серебра."},
		{"closing quote kept", "Он сказал \"Стой.\" и ушёл.", "Он сказал \"Стой.\" и ушёл."},
		{"guillemet kept", "«Беги!» — крикнул он.", "«Беги!» — крикнул он."},
		{"opening guillemet spaced", "Он сказал:«Привет»", "Он сказал: «Привет»"},
		{"ellipsis kept", "Ну... ладно?!", "Ну... ладно?!"},
		{"newlines collapsed", "Один.\n\n\n\nДва.", "Один.\n\nДва."},
		{"paragraphs kept", "Один.\n\nДва.", "Один.\n\nДва."},
		{"spaces collapsed", "Слишком   много \t пробелов", "Слишком много пробелов"},
		{"trimmed", "  текст  ", "текст"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Normalize(got), "normalizing twice changes nothing")
		})
	}
}

func TestDefaultChoices(t *testing.T) {
	d := DefaultChoices()
	require.Len(t, d, ChoiceCount)
	assert.Equal(t, models.Choice{ID: "1", Text: "Продолжить поиски семьи"}, d[0])

	d[0].Text = "changed"
	assert.Equal(t, "Продолжить поиски семьи", DefaultChoices()[0].Text)
}

package resolver

import (
	"strings"
	"unicode/utf8"
)

var articlePlural = map[string]string{
	"el":  "los",
	"la":  "las",
	"un":  "unos",
	"una": "unas",
	"del": "de los",
	"al":  "a los",
}

var articleSingular = map[string]string{
	"los":  "el",
	"las":  "la",
	"unos": "un",
	"unas": "una",
}

// words left alone in both directions
var invariable = map[string]bool{
	"de": true, "con": true, "por": true, "para": true, "en": true, "sin": true,
	"a": true, "y": true, "o": true, "e": true, "u": true, "que": true, "se": true,
	"su": true, "sus": true, "lo": true, "ni": true, "sobre": true, "entre": true,
	"desde": true, "hasta": true, "contra": true, "según": true, "tras": true,
	"ante": true, "bajo": true, "mi": true, "tu": true, "no": true, "es": true,
}

// Pluralize converts each word of a Spanish phrase to its plural with
// orthographic heuristics. Articles are mapped, prepositions skipped and
// words of fewer than three letters left as they are.
func Pluralize(text string) string {
	return letterRun.ReplaceAllStringFunc(text, pluralizeWord)
}

// Singularize is the inverse heuristic of Pluralize.
func Singularize(text string) string {
	return letterRun.ReplaceAllStringFunc(text, singularizeWord)
}

func pluralizeWord(word string) string {
	lower := strings.ToLower(word)
	if p, ok := articlePlural[lower]; ok {
		return matchCase(word, p)
	}
	if invariable[lower] || utf8.RuneCountInString(lower) < 3 {
		return word
	}

	switch {
	case strings.HasSuffix(lower, "s"), strings.HasSuffix(lower, "x"):
		return word
	case strings.HasSuffix(lower, "ión"):
		return withSuffix(word, 3, "iones")
	case strings.HasSuffix(lower, "z"):
		return withSuffix(word, 1, "ces")
	case endsWithVowel(lower):
		return withSuffix(word, 0, "s")
	default:
		return withSuffix(word, 0, "es")
	}
}

func singularizeWord(word string) string {
	lower := strings.ToLower(word)
	if s, ok := articleSingular[lower]; ok {
		return matchCase(word, s)
	}
	if invariable[lower] || utf8.RuneCountInString(lower) < 4 || strings.HasSuffix(lower, "is") {
		return word
	}

	switch {
	case strings.HasSuffix(lower, "iones"):
		return withSuffix(word, 5, "ión")
	case strings.HasSuffix(lower, "ces"):
		return withSuffix(word, 3, "z")
	case strings.HasSuffix(lower, "es"):
		stem := strings.TrimSuffix(lower, "es")
		last, _ := utf8.DecodeLastRuneInString(stem)
		// meses, países; but bases, clases
		if strings.ContainsRune("rlndjy", last) || (last == 's' && !strings.HasSuffix(stem, "as")) {
			return withSuffix(word, 2, "")
		}
		return withSuffix(word, 1, "")
	case strings.HasSuffix(lower, "s"):
		stem := strings.TrimSuffix(lower, "s")
		if endsWithVowel(stem) {
			return withSuffix(word, 1, "")
		}
	}
	return word
}

// withSuffix drops cut runes from word and appends suffix, upper-casing the
// suffix when the word is written in capitals.
func withSuffix(word string, cut int, suffix string) string {
	runes := []rune(word)
	base := string(runes[:len(runes)-cut])
	if isAllUpper(word) && len(runes) > 1 {
		suffix = strings.ToUpper(suffix)
	}
	return base + suffix
}

func endsWithVowel(s string) bool {
	last, _ := utf8.DecodeLastRuneInString(s)
	return strings.ContainsRune("aeiouáéó", last)
}

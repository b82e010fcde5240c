package resolver

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Rule is one deterministic transformation. Apply reports false when the
// instruction does not have the rule's shape or the source holds nothing the
// rule can act on.
type Rule struct {
	Name  string
	Apply func(source, instruction string) (string, bool)
}

// PatternResolver tries an ordered rule list; the first rule that applies
// wins.
type PatternResolver struct {
	rules []Rule
}

func NewPatternResolver(rules []Rule) *PatternResolver {
	return &PatternResolver{rules: rules}
}

func (p *PatternResolver) Resolve(source, instruction string) (string, string, bool) {
	for _, rule := range p.rules {
		if result, ok := rule.Apply(source, instruction); ok {
			return result, rule.Name, true
		}
	}
	return source, "", false
}

var connectors = map[string]bool{
	"de": true, "del": true, "la": true, "las": true, "los": true, "y": true, "e": true,
}

// isTitleCaseSpan reports whether s is two or more capitalised words,
// optionally joined by lower-case connectors such as "de" or "del".
func isTitleCaseSpan(s string) bool {
	words := strings.Fields(s)
	if len(words) < 2 {
		return false
	}
	for i, w := range words {
		if connectors[w] && i > 0 && i < len(words)-1 {
			continue
		}
		r, _ := utf8.DecodeRuneInString(w)
		if !unicode.IsUpper(r) {
			return false
		}
		for _, c := range w {
			if !unicode.IsLetter(c) && c != '\'' && c != '-' && c != '.' {
				return false
			}
		}
	}
	return true
}

var quotePairs = [][2]string{
	{`"`, `"`},
	{"“", "”"},
	{"'", "'"},
	{"«", "»"},
	{"‘", "’"},
}

func isQuoted(s string) bool {
	for _, q := range quotePairs {
		if len(s) > len(q[0])+len(q[1]) && strings.HasPrefix(s, q[0]) && strings.HasSuffix(s, q[1]) {
			return true
		}
	}
	return false
}

func unquote(s string) string {
	for _, q := range quotePairs {
		if len(s) >= len(q[0])+len(q[1]) && strings.HasPrefix(s, q[0]) && strings.HasSuffix(s, q[1]) {
			return s[len(q[0]) : len(s)-len(q[1])]
		}
	}
	return s
}

// cleanValue trims quotes and a sentence-ending period from a value taken
// out of an instruction. Abbreviation periods ("S.A.") are kept.
func cleanValue(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(unquote(s))
	if strings.HasSuffix(s, ".") {
		fields := strings.Fields(s)
		last := fields[len(fields)-1]
		if strings.Count(last, ".") == 1 {
			s = strings.TrimSuffix(s, ".")
		}
	}
	return strings.TrimSpace(s)
}

// matchCase shapes replacement after the capitalisation of original.
func matchCase(original, replacement string) string {
	if isAllUpper(original) && utf8.RuneCountInString(original) > 1 {
		return strings.ToUpper(replacement)
	}
	r, _ := utf8.DecodeRuneInString(original)
	if unicode.IsUpper(r) {
		return capitalize(replacement)
	}
	return replacement
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func isAllUpper(s string) bool {
	letters := 0
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		if !unicode.IsUpper(r) {
			return false
		}
		letters++
	}
	return letters > 0
}

// wordPattern compiles a case-insensitive whole-word matcher. Go's \b only
// knows ASCII word characters, so letter boundaries are checked by hand.
func wordPattern(word string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(^|[^\p{L}\p{N}])(` + regexp.QuoteMeta(word) + `)([^\p{L}\p{N}]|$)`)
}

// replaceWord substitutes every whole-word occurrence of word, shaping each
// replacement after the case of the occurrence it replaces.
func replaceWord(source, word, replacement string) (string, int) {
	re := wordPattern(word)
	var b strings.Builder
	count := 0
	last := 0
	pos := 0
	for pos <= len(source) {
		loc := re.FindStringSubmatchIndex(source[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[4], pos+loc[5]
		b.WriteString(source[last:start])
		b.WriteString(matchCase(source[start:end], replacement))
		last = end
		count++
		pos = end
	}
	b.WriteString(source[last:])
	return b.String(), count
}

// replaceFirstFold replaces the first case-insensitive occurrence of old.
func replaceFirstFold(source, old, replacement string) (string, bool) {
	if old == "" {
		return source, false
	}
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(old))
	if err != nil {
		// invalid UTF-8 in old
		return source, false
	}
	loc := re.FindStringIndex(source)
	if loc == nil {
		return source, false
	}
	return source[:loc[0]] + replacement + source[loc[1]:], true
}

func countTokens(s string) int {
	return len(strings.Fields(s))
}

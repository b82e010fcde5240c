package resolver

import (
	"regexp"
	"strings"

	"github.com/xhad/escrito/pkg/segmenter"
)

var (
	datesInstruction = regexp.MustCompile(`(?is)^\s*(?:cambiar|cambia|reemplazar|reemplaza|modificar|modifica)\s+todas\s+las\s+fechas\s+(?:por|a)\s+(.+?)\s*$`)
	datePattern      = regexp.MustCompile(`\b\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4}\b`)
	fallbackLiteral  = regexp.MustCompile(`(?is)^\s*(?:cambiar|cambia|reemplazar|reemplaza|sustituir|sustituye)\s+(.+?)\s+por\s+(.+?)\s*$`)
)

// GlobalRules is the ordered catalogue applied to a full document. Name
// rules locate the name once and then replace its first occurrence in every
// paragraph.
func GlobalRules() []Rule {
	return []Rule{
		{Name: "rename", Apply: globalRenameRule},
		{Name: "identity", Apply: globalIdentityRule},
		{Name: "name-insertion", Apply: globalInsertionRule},
		{Name: "dates", Apply: datesRule},
	}
}

// ContextualFallbackRules run only after the generative tier failed or was
// rejected.
func ContextualFallbackRules() []Rule {
	return []Rule{
		{Name: "literal", Apply: literalRule},
	}
}

func GlobalFallbackRules() []Rule {
	return []Rule{
		{Name: "literal", Apply: globalLiteralRule},
	}
}

func globalRenameRule(source, instruction string) (string, bool) {
	m := renameInstruction.FindStringSubmatch(instruction)
	if m == nil {
		return source, false
	}
	old := strings.TrimSpace(m[1])
	if isQuoted(old) || !isTitleCaseSpan(old) || !strings.Contains(source, old) {
		return source, false
	}
	replacement := cleanValue(m[2])
	if replacement == "" {
		return source, false
	}
	return firstPerParagraph(source, old, replacement), true
}

func globalIdentityRule(source, instruction string) (string, bool) {
	m := identityInstruction.FindStringSubmatch(instruction)
	if m == nil {
		return source, false
	}
	name := cleanValue(m[1])
	found := introducedName.FindStringSubmatch(source)
	if name == "" || found == nil {
		return source, false
	}
	return firstPerParagraph(source, found[1], name), true
}

func globalInsertionRule(source, instruction string) (string, bool) {
	m := insertInstruction.FindStringSubmatch(instruction)
	if m == nil {
		return source, false
	}
	found := introducedPair.FindStringSubmatch(source)
	if found == nil {
		found = twoWordName.FindStringSubmatch(source)
	}
	if found == nil {
		return source, false
	}
	old := found[1] + " " + found[2]
	updated := found[1] + " " + capitalize(m[1]) + " " + found[2]
	if !strings.Contains(source, old) {
		// the two words were separated by something other than one space
		return source, false
	}
	return firstPerParagraph(source, old, updated), true
}

func datesRule(source, instruction string) (string, bool) {
	m := datesInstruction.FindStringSubmatch(instruction)
	if m == nil {
		return source, false
	}
	date := cleanValue(m[1])
	if date == "" || !datePattern.MatchString(source) {
		return source, false
	}
	return datePattern.ReplaceAllLiteralString(source, date), true
}

func literalRule(source, instruction string) (string, bool) {
	old, replacement, ok := literalInstruction(instruction)
	if !ok {
		return source, false
	}
	return replaceFirstFold(source, old, replacement)
}

func globalLiteralRule(source, instruction string) (string, bool) {
	old, replacement, ok := literalInstruction(instruction)
	if !ok {
		return source, false
	}

	paragraphs := segmenter.Split(source)
	changed := false
	for i, p := range paragraphs {
		if updated, ok := replaceFirstFold(p, old, replacement); ok {
			paragraphs[i] = updated
			changed = true
		}
	}
	if !changed {
		return source, false
	}
	return segmenter.Join(paragraphs), true
}

func literalInstruction(instruction string) (string, string, bool) {
	m := fallbackLiteral.FindStringSubmatch(instruction)
	if m == nil {
		return "", "", false
	}
	old := strings.TrimSpace(unquote(strings.TrimSpace(m[1])))
	replacement := cleanValue(m[2])
	if old == "" {
		return "", "", false
	}
	return old, replacement, true
}

// firstPerParagraph replaces the first occurrence of old in each paragraph.
func firstPerParagraph(source, old, replacement string) string {
	paragraphs := segmenter.Split(source)
	for i, p := range paragraphs {
		paragraphs[i] = strings.Replace(p, old, replacement, 1)
	}
	return segmenter.Join(paragraphs)
}

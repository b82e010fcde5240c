package resolver

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	titleWord = `\p{Lu}\p{Ll}+`
	verbs     = `(?:es|ser[áa]|se\s+llama|debe\s+ser)`
)

var (
	renameInstruction   = regexp.MustCompile(`(?is)^\s*(?:cambiar|cambia|cambie|modificar|modifica)\s+(?:el\s+nombre\s+)?(.+?)\s+por\s+(.+?)\s*$`)
	identityInstruction = regexp.MustCompile(`(?is)(?:^|\s)el\s+nombre\s+(?:correcto\s+)?` + verbs + `\s*:?\s+(.+?)\s*$`)
	insertInstruction   = regexp.MustCompile(`(?is)(?:^|\s)(?:agregar|agrega|agregue|incluir|incluye|añadir|añade)\s+(?:el\s+(?:segundo\s+)?(?:nombre|apellido)\s+)?["“']?(\p{L}+)["”']?\s+al\s+nombre(?:\s|[.,;]|$)`)
	companyInstruction  = regexp.MustCompile(`(?is)(?:^|\s)(?:la\s+)?(?:empresa|compa[ñn][íi]a|sociedad|raz[óo]n\s+social)\s+(?:correcta\s+)?` + verbs + `\s*:?\s+(.+?)\s*$`)
	counterInstruction  = regexp.MustCompile(`(?is)(?:^|\s)el\s+demandad[oa]\s+(?:correcto\s+)?` + verbs + `\s*:?\s+(.+?)\s*$`)
	quotedInstruction   = regexp.MustCompile(`(?is)(?:^|\s)(?:cambiar|cambia|reemplazar|reemplaza|sustituir|sustituye)\s+["“'](.+?)["”']\s+por\s+["“'](.*?)["”']`)
	letterRun           = regexp.MustCompile(`\p{L}+`)
	pluralInstruction   = regexp.MustCompile(`(?i)plural`)
	singularInstruction = regexp.MustCompile(`(?i)singular`)
	upperInstruction    = regexp.MustCompile(`(?i)may[úu]scula`)
	lowerInstruction    = regexp.MustCompile(`(?i)min[úu]scula`)
	titleInstruction    = regexp.MustCompile(`(?i)capitaliz|tipo\s+t[íi]tulo|formato\s+t[íi]tulo|primera\s+letra`)
	appendInstruction   = regexp.MustCompile(`(?is)^\s*(?:agregar|agrega|agregue|añadir|añade)\s*:?\s+(.+?)\s+al\s+(final|inicio|principio|comienzo)\s*\.?\s*$`)
	appendLeading       = regexp.MustCompile(`(?is)^\s*al\s+(final|inicio|principio|comienzo)\s*,?\s*(?:agregar|agrega|agregue|añadir|añade)\s*:?\s+(.+?)\s*$`)

	// A capitalised name of two to four words followed by a comma or a
	// nationality, the usual shape of a party's introduction.
	introducedName = regexp.MustCompile(`(?:^|[^\p{L}])(` + titleWord + `(?:\s+` + titleWord + `){1,3})(?:\s*,|\s+argentin[oa])`)
	twoWordName    = regexp.MustCompile(`(?:^|[^\p{L}])(` + titleWord + `)\s+(` + titleWord + `)(?:[^\p{L}]|$)`)
	introducedPair = regexp.MustCompile(`(?:^|[^\p{L}])(` + titleWord + `)\s+(` + titleWord + `)(?:\s*,|\s+argentin[oa])`)
	contraMarker   = regexp.MustCompile(`(?i)(?:^|[^\p{L}])contra\s+`)
)

const companySuffix = `(?:S\.\s?A\.\s?U\.|S\.\s?A\.\s?S\.|S\.\s?R\.\s?L\.|S\.\s?A\.|S\.\s?C\.|S\.\s?H\.|SAU|SAS|SRL|SA|LLC|LTDA\.?|Inc\.|Ltd\.)`

var (
	companyUpper = regexp.MustCompile(`(?:^|[^\p{L}\p{N}&.])((?:[\p{Lu}\p{N}&][\p{Lu}\p{N}&'.\-]*\s+){1,6}?` + companySuffix + `)(?:[^\p{L}]|$)`)
	companyTitle = regexp.MustCompile(`(?:^|[^\p{L}\p{N}&.])((?:\p{Lu}[\p{L}\p{N}&'.\-]*\s+){1,6}?` + companySuffix + `)(?:[^\p{L}]|$)`)
)

// ContextualRules is the ordered catalogue applied to a selected fragment.
func ContextualRules() []Rule {
	return []Rule{
		{Name: "rename", Apply: renameRule},
		{Name: "identity", Apply: identityRule},
		{Name: "name-insertion", Apply: nameInsertionRule},
		{Name: "company", Apply: companyRule},
		{Name: "counterparty", Apply: counterpartyRule},
		{Name: "quoted-literal", Apply: quotedLiteralRule},
		{Name: "gender", Apply: genderRule},
		{Name: "number", Apply: numberRule},
		{Name: "case", Apply: caseRule},
		{Name: "append", Apply: appendRule},
	}
}

// renameRule: "cambiar Juan Pérez por Juan Carlos Pérez" when the old name
// appears verbatim.
func renameRule(source, instruction string) (string, bool) {
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
	return strings.Replace(source, old, replacement, 1), true
}

func identityRule(source, instruction string) (string, bool) {
	m := identityInstruction.FindStringSubmatch(instruction)
	if m == nil {
		return source, false
	}
	name := cleanValue(m[1])
	loc := introducedName.FindStringSubmatchIndex(source)
	if name == "" || loc == nil {
		return source, false
	}
	return source[:loc[2]] + name + source[loc[3]:], true
}

func nameInsertionRule(source, instruction string) (string, bool) {
	m := insertInstruction.FindStringSubmatch(instruction)
	if m == nil {
		return source, false
	}
	loc := introducedPair.FindStringSubmatchIndex(source)
	if loc == nil {
		loc = twoWordName.FindStringSubmatchIndex(source)
	}
	if loc == nil {
		return source, false
	}
	// insert between the first and second word of the name
	at := loc[3]
	return source[:at] + " " + capitalize(m[1]) + source[at:], true
}

func companyRule(source, instruction string) (string, bool) {
	m := companyInstruction.FindStringSubmatch(instruction)
	if m == nil {
		return source, false
	}
	company := strings.ToUpper(cleanValue(m[1]))
	if company == "" {
		return source, false
	}
	loc := companyUpper.FindStringSubmatchIndex(source)
	if loc == nil {
		loc = companyTitle.FindStringSubmatchIndex(source)
	}
	if loc == nil {
		return source, false
	}
	return source[:loc[2]] + company + source[loc[3]:], true
}

// counterpartyRule rewrites the party named after "contra", up to the next
// comma on the same line or, lacking one, the next whitespace.
func counterpartyRule(source, instruction string) (string, bool) {
	m := counterInstruction.FindStringSubmatch(instruction)
	if m == nil {
		return source, false
	}
	party := cleanValue(m[1])
	loc := contraMarker.FindStringIndex(source)
	if party == "" || loc == nil {
		return source, false
	}

	start := loc[1]
	rest := source[start:]
	line := rest
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		line = rest[:nl]
	}
	end := strings.IndexByte(line, ',')
	if end < 0 {
		end = strings.IndexAny(line, " \t")
		if end < 0 {
			end = len(line)
		}
	}
	if end == 0 {
		return source, false
	}
	return source[:start] + party + source[start+end:], true
}

func quotedLiteralRule(source, instruction string) (string, bool) {
	m := quotedInstruction.FindStringSubmatch(instruction)
	if m == nil {
		return source, false
	}
	return replaceFirstFold(source, m[1], m[2])
}

// genderRule toggles "demandado"/"demandada". The target gender is the last
// one the instruction mentions.
func genderRule(source, instruction string) (string, bool) {
	if counterInstruction.MatchString(instruction) {
		return source, false
	}

	target := ""
	for _, w := range letterRun.FindAllString(strings.ToLower(instruction), -1) {
		switch w {
		case "demandado", "demandados":
			target = "o"
		case "demandada", "demandadas":
			target = "a"
		}
	}
	if target == "" {
		return source, false
	}
	opposite := "o"
	if target == "o" {
		opposite = "a"
	}

	result, n := replaceWord(source, "demandad"+opposite, "demandad"+target)
	result, np := replaceWord(result, "demandad"+opposite+"s", "demandad"+target+"s")
	if n+np == 0 {
		return source, false
	}
	return result, true
}

// numberRule converts between singular and plural; when both words appear
// the later one is the target.
func numberRule(source, instruction string) (string, bool) {
	singular := lastIndex(singularInstruction, instruction)
	plural := lastIndex(pluralInstruction, instruction)
	switch {
	case singular < 0 && plural < 0:
		return source, false
	case singular > plural:
		return Singularize(source), true
	default:
		return Pluralize(source), true
	}
}

func lastIndex(re *regexp.Regexp, s string) int {
	all := re.FindAllStringIndex(s, -1)
	if len(all) == 0 {
		return -1
	}
	return all[len(all)-1][0]
}

func caseRule(source, instruction string) (string, bool) {
	var caser cases.Caser
	switch {
	case titleInstruction.MatchString(instruction):
		caser = cases.Title(language.Spanish)
	case upperInstruction.MatchString(instruction):
		caser = cases.Upper(language.Spanish)
	case lowerInstruction.MatchString(instruction):
		caser = cases.Lower(language.Spanish)
	default:
		return source, false
	}
	return caser.String(source), true
}

func appendRule(source, instruction string) (string, bool) {
	var text, position string
	if m := appendInstruction.FindStringSubmatch(instruction); m != nil {
		text, position = m[1], m[2]
	} else if m := appendLeading.FindStringSubmatch(instruction); m != nil {
		position, text = m[1], m[2]
	} else {
		return source, false
	}

	text = strings.TrimSpace(unquote(strings.TrimSpace(text)))
	if text == "" {
		return source, false
	}

	if strings.EqualFold(position, "final") {
		if strings.TrimSpace(source) == "" {
			return text, true
		}
		return strings.TrimRight(source, " \t") + " " + text, true
	}
	if strings.TrimSpace(source) == "" {
		return text, true
	}
	return text + " " + strings.TrimLeft(source, " \t"), true
}

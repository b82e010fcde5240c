// Package command parses explicit, paragraph-addressed edit commands such as
// "Modificar el párrafo 3 con: ..." or "Eliminar el párrafo 2".
package command

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/xhad/escrito/internal/models"
)

// Command is a parsed structured command.
type Command struct {
	Kind            models.EditKind
	ParagraphNumber int
	HasParagraph    bool
	Content         string
	Old             string
	New             string
	Raw             string
}

type rule struct {
	name  string
	verb  *regexp.Regexp
	full  *regexp.Regexp
	usage string
	build func(m []string) (Command, error)
}

const paragraphWord = `p[áaÁA]rrafo`

// Ordered rule table. The verb expression decides which rule owns the input;
// the full expression must then match or the input is a malformed command.
var rules = []rule{
	{
		name:  "modify",
		verb:  regexp.MustCompile(`(?i)^\s*modific(?:ar|a)\b`),
		full:  regexp.MustCompile(`(?is)^\s*modific(?:ar|a)\s+el\s+` + paragraphWord + `\s+(\d+)(?:\s*(?:con|por)\s*:?|\s*:)\s*(.+?)\s*$`),
		usage: `Modificar el párrafo N con: <nuevo texto>`,
		build: func(m []string) (Command, error) {
			return numbered(models.EditModify, m[1], m[2])
		},
	},
	{
		name:  "insert-after",
		verb:  regexp.MustCompile(`(?i)^\s*(?:a\s+continuaci[óo]n|despu[ée]s)\s+del\s+` + paragraphWord),
		full:  regexp.MustCompile(`(?is)^\s*(?:a\s+continuaci[óo]n|despu[ée]s)\s+del\s+` + paragraphWord + `\s+(\d+)\s*,?\s*(?:agregar|agrega|añadir|añade|insertar|inserta)\s*:?\s*(.+?)\s*$`),
		usage: `A continuación del párrafo N, agregar: <texto>`,
		build: func(m []string) (Command, error) {
			return numbered(models.EditInsertAfter, m[1], m[2])
		},
	},
	{
		name:  "insert-before",
		verb:  regexp.MustCompile(`(?i)^\s*antes\s+del\s+` + paragraphWord),
		full:  regexp.MustCompile(`(?is)^\s*antes\s+del\s+` + paragraphWord + `\s+(\d+)\s*,?\s*(?:agregar|agrega|añadir|añade|insertar|inserta)\s*:?\s*(.+?)\s*$`),
		usage: `Antes del párrafo N, agregar: <texto>`,
		build: func(m []string) (Command, error) {
			return numbered(models.EditInsertBefore, m[1], m[2])
		},
	},
	{
		name:  "delete",
		verb:  regexp.MustCompile(`(?i)^\s*(?:eliminar|elimina|borrar|borra|suprimir|suprime)\b`),
		full:  regexp.MustCompile(`(?is)^\s*(?:eliminar|elimina|borrar|borra|suprimir|suprime)\s+el\s+` + paragraphWord + `\s+(\d+)\s*\.?\s*$`),
		usage: `Eliminar el párrafo N`,
		build: func(m []string) (Command, error) {
			return numbered(models.EditDelete, m[1], "")
		},
	},
	{
		name:  "replace",
		verb:  regexp.MustCompile(`(?i)^\s*reemplaz(?:ar|a)\b`),
		full:  regexp.MustCompile(`(?is)^\s*reemplaz(?:ar|a)\s+["“](.+?)["”]\s+por\s+["“](.*?)["”](?:\s+en\s+el\s+` + paragraphWord + `\s+(\d+))?\s*\.?\s*$`),
		usage: `Reemplazar "X" por "Y" [en el párrafo N]`,
		build: func(m []string) (Command, error) {
			cmd := Command{Kind: models.EditReplace, Old: m[1], New: m[2]}
			if m[3] != "" {
				n, err := paragraphNumber(m[3])
				if err != nil {
					return Command{}, err
				}
				cmd.ParagraphNumber = n
				cmd.HasParagraph = true
			}
			return cmd, nil
		},
	},
}

// IsStructured reports whether input starts with a structured command verb.
func IsStructured(input string) bool {
	for _, r := range rules {
		if r.verb.MatchString(input) {
			return true
		}
	}
	return false
}

// Parse turns a structured command string into a Command. Every failure is
// an *models.EditError of kind models.ErrParse with a message fit for users.
func Parse(input string) (Command, error) {
	if strings.TrimSpace(input) == "" {
		return Command{}, models.ParseErrorf("el comando está vacío")
	}

	for _, r := range rules {
		if !r.verb.MatchString(input) {
			continue
		}
		m := r.full.FindStringSubmatch(input)
		if m == nil {
			return Command{}, models.ParseErrorf("no se pudo interpretar el comando; el formato esperado es: %s", r.usage)
		}
		cmd, err := r.build(m)
		if err != nil {
			return Command{}, err
		}
		cmd.Raw = input
		return cmd, nil
	}

	return Command{}, models.ParseErrorf("comando no reconocido; los formatos válidos son: %s", Usage())
}

// Usage lists the accepted command shapes.
func Usage() string {
	usages := make([]string, len(rules))
	for i, r := range rules {
		usages[i] = r.usage
	}
	return strings.Join(usages, "; ")
}

func numbered(kind models.EditKind, rawNumber, content string) (Command, error) {
	n, err := paragraphNumber(rawNumber)
	if err != nil {
		return Command{}, err
	}
	return Command{
		Kind:            kind,
		ParagraphNumber: n,
		HasParagraph:    true,
		Content:         strings.TrimSpace(content),
	}, nil
}

func paragraphNumber(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, models.ParseErrorf("número de párrafo inválido: %s (los párrafos se numeran desde 1)", raw)
	}
	return n, nil
}

package segmenter

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/xhad/escrito/internal/models"
)

type SegmenterConfig struct {
	// TitleMaxTokens: paragraphs with fewer tokens are titles (or headings
	// when fully upper-case).
	TitleMaxTokens int
	// HeadRunes bounds how far into a paragraph section keywords are looked for.
	HeadRunes int
}

type Segmenter struct {
	config SegmenterConfig
}

func NewWithConfig(config SegmenterConfig) Segmenter {
	if config.TitleMaxTokens == 0 {
		config.TitleMaxTokens = 10
	}
	if config.HeadRunes == 0 {
		config.HeadRunes = 60
	}

	return Segmenter{
		config: config,
	}
}

func New() Segmenter {
	return NewWithConfig(SegmenterConfig{})
}

// blank lines: two or more line breaks, whitespace-only lines included
var paragraphBreak = regexp.MustCompile(`\r?\n(?:[ \t]*\r?\n)+`)

var (
	// arabic numbers or roman numerals I to XXXIX
	enumeratedPrefix = regexp.MustCompile(`^(?:\d+|X{1,3}(?:IX|IV|V?I{0,3})|IX|IV|VI{0,3}|I{1,3})\s*[.)°º\-]`)
	factsMarker      = regexp.MustCompile(`(?i)(?:^|[^ivxlc])i\s*\.\s*-`)
	lawMarker        = regexp.MustCompile(`(?i)(?:^|[^ivxlc])ii\s*\.\s*-`)
)

type keywordRule struct {
	kind   models.ParagraphKind
	words  []string
	marker *regexp.Regexp
}

// Priority order: first match wins.
var keywordRules = []keywordRule{
	{kind: models.KindFacts, words: []string{"hechos"}, marker: factsMarker},
	{kind: models.KindLaw, words: []string{"derecho"}, marker: lawMarker},
	{kind: models.KindPrayer, words: []string{"petitorio", "solicita"}},
	{kind: models.KindEvidence, words: []string{"prueba", "ofrezco"}},
}

// Split breaks text on blank-line boundaries, trimming fragments and
// dropping empty ones.
func Split(text string) []string {
	var fragments []string
	for _, fragment := range paragraphBreak.Split(text, -1) {
		fragment = strings.TrimSpace(fragment)
		if fragment == "" {
			continue
		}
		fragments = append(fragments, fragment)
	}
	return fragments
}

// Join is the inverse of Split.
func Join(contents []string) string {
	return strings.Join(contents, "\n\n")
}

// Segment turns raw document text into numbered, classified paragraphs.
func (s Segmenter) Segment(text string) []models.Paragraph {
	fragments := Split(text)
	paragraphs := make([]models.Paragraph, 0, len(fragments))

	for i, fragment := range fragments {
		number := float64(i + 1)
		paragraphs = append(paragraphs, models.Paragraph{
			Number:  number,
			ID:      models.ParagraphID(number),
			Content: fragment,
			Kind:    s.Classify(fragment),
		})
	}

	return paragraphs
}

// Classify derives a UI hint for a paragraph. It is never used for
// correctness.
func (s Segmenter) Classify(content string) models.ParagraphKind {
	head := s.head(content)
	lowered := strings.ToLower(head)

	for _, rule := range keywordRules {
		for _, word := range rule.words {
			if strings.Contains(lowered, word) {
				return rule.kind
			}
		}
		if rule.marker != nil && rule.marker.MatchString(head) {
			return rule.kind
		}
	}

	trimmed := strings.TrimSpace(content)
	if enumeratedPrefix.MatchString(trimmed) {
		return models.KindEnum
	}

	if len(strings.Fields(content)) < s.config.TitleMaxTokens {
		if isUpper(content) {
			return models.KindHeading
		}
		return models.KindTitle
	}

	return models.KindBody
}

func (s Segmenter) head(content string) string {
	runes := []rune(content)
	if len(runes) > s.config.HeadRunes {
		runes = runes[:s.config.HeadRunes]
	}
	return string(runes)
}

func isUpper(text string) bool {
	letters := 0
	for _, r := range text {
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

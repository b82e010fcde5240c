// Package document holds the paragraph-indexed model of a legal document and
// every operation that mutates it.
package document

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xhad/escrito/internal/models"
	"github.com/xhad/escrito/pkg/command"
	"github.com/xhad/escrito/pkg/resolver"
	"github.com/xhad/escrito/pkg/segmenter"
)

// Resolver turns an instruction and a source text into a transformed text.
type Resolver interface {
	Resolve(ctx context.Context, scope resolver.Scope, source, instruction string) resolver.Resolution
}

// Outcome describes what a mutation did. A no-op has Changed false and no
// appended history.
type Outcome struct {
	Changed  bool
	Tier     resolver.Tier
	Updated  []models.Paragraph
	Appended []models.EditCommand
}

// Document is not safe for concurrent use; callers serialize mutations per
// session.
type Document struct {
	SessionID string
	CreatedAt time.Time

	paragraphs []models.Paragraph
	history    []models.EditCommand

	segmenter segmenter.Segmenter
	resolver  Resolver
	now       func() time.Time
}

type Option func(*Document)

func WithClock(now func() time.Time) Option {
	return func(d *Document) { d.now = now }
}

// New segments text into a fresh document with an empty history.
func New(sessionID, text string, r Resolver, opts ...Option) *Document {
	d := &Document{
		SessionID: sessionID,
		segmenter: segmenter.New(),
		resolver:  r,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}

	d.CreatedAt = d.now()
	d.paragraphs = d.segmenter.Segment(text)
	return d
}

// Restore rebuilds a document from stored text and whatever history the
// store kept. Modification flags are not recovered.
func Restore(sessionID, text string, history []models.EditCommand, r Resolver, opts ...Option) *Document {
	d := New(sessionID, text, r, opts...)
	d.history = append(d.history, history...)
	return d
}

func (d *Document) FullText() string {
	contents := make([]string, len(d.paragraphs))
	for i, p := range d.paragraphs {
		contents[i] = p.Content
	}
	return segmenter.Join(contents)
}

func (d *Document) Paragraphs() []models.Paragraph {
	out := make([]models.Paragraph, len(d.paragraphs))
	copy(out, d.paragraphs)
	return out
}

func (d *Document) History() []models.EditCommand {
	out := make([]models.EditCommand, len(d.history))
	copy(out, d.history)
	return out
}

func (d *Document) Len() int {
	return len(d.paragraphs)
}

// Paragraph looks a paragraph up by its number.
func (d *Document) Paragraph(n int) (models.Paragraph, bool) {
	idx := d.index(float64(n))
	if idx < 0 {
		return models.Paragraph{}, false
	}
	return d.paragraphs[idx], true
}

func (d *Document) InsertAfter(n int, content string) (Outcome, error) {
	return d.insert(models.EditInsertAfter, n, content, 0.5)
}

func (d *Document) InsertBefore(n int, content string) (Outcome, error) {
	return d.insert(models.EditInsertBefore, n, content, -0.5)
}

func (d *Document) insert(kind models.EditKind, n int, content string, offset float64) (Outcome, error) {
	idx := d.index(float64(n))
	if idx < 0 {
		return Outcome{}, models.NotFoundf("no existe el párrafo %d", n)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return Outcome{}, models.ParseErrorf("el párrafo a insertar está vacío")
	}
	if !singleParagraph(content) {
		return Outcome{}, models.ParseErrorf("el texto a insertar tiene varios párrafos; insertalos de a uno")
	}

	now := d.now()
	number := float64(n) + offset
	p := models.Paragraph{
		Number:     number,
		ID:         models.ParagraphID(number),
		Content:    content,
		Kind:       d.segmenter.Classify(content),
		Modified:   true,
		ModifiedAt: &now,
	}

	at := idx
	if offset > 0 {
		at = idx + 1
	}
	d.paragraphs = append(d.paragraphs, models.Paragraph{})
	copy(d.paragraphs[at+1:], d.paragraphs[at:])
	d.paragraphs[at] = p
	d.renumberFrom(number)

	p = d.paragraphs[at]
	entry := d.record(models.EditCommand{
		Kind:            kind,
		Anchor:          models.ParagraphID(float64(n)),
		ParagraphNumber: p.Number,
		NewContent:      content,
	}, now)

	return Outcome{Changed: true, Updated: []models.Paragraph{p}, Appended: []models.EditCommand{entry}}, nil
}

func (d *Document) Modify(n int, content string) (Outcome, error) {
	idx := d.index(float64(n))
	if idx < 0 {
		return Outcome{}, models.NotFoundf("no existe el párrafo %d", n)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return Outcome{}, models.ParseErrorf("el nuevo contenido está vacío; para quitar el párrafo usá \"Eliminar el párrafo %d\"", n)
	}
	if !singleParagraph(content) {
		return Outcome{}, models.ParseErrorf("el nuevo contenido del párrafo %d tiene varios párrafos; agregá los demás con un comando de inserción", n)
	}

	previous := d.paragraphs[idx].Content
	if previous == content {
		return Outcome{}, nil
	}

	now := d.now()
	d.setContent(idx, content, now)
	entry := d.record(models.EditCommand{
		Kind:            models.EditModify,
		Anchor:          d.paragraphs[idx].ID,
		ParagraphNumber: d.paragraphs[idx].Number,
		NewContent:      content,
		PreviousContent: previous,
	}, now)

	return Outcome{Changed: true, Updated: []models.Paragraph{d.paragraphs[idx]}, Appended: []models.EditCommand{entry}}, nil
}

func (d *Document) Delete(n int) (Outcome, error) {
	idx := d.index(float64(n))
	if idx < 0 {
		return Outcome{}, models.NotFoundf("no existe el párrafo %d", n)
	}

	removed := d.paragraphs[idx]
	d.paragraphs = append(d.paragraphs[:idx], d.paragraphs[idx+1:]...)
	d.renumberFrom(removed.Number)

	entry := d.record(models.EditCommand{
		Kind:            models.EditDelete,
		Anchor:          removed.ID,
		ParagraphNumber: removed.Number,
		PreviousContent: removed.Content,
	}, d.now())

	return Outcome{Changed: true, Appended: []models.EditCommand{entry}}, nil
}

// ReplaceIn replaces the first occurrence of old inside paragraph n.
func (d *Document) ReplaceIn(n int, old, replacement string) (Outcome, error) {
	idx := d.index(float64(n))
	if idx < 0 {
		return Outcome{}, models.NotFoundf("no existe el párrafo %d", n)
	}
	if old == "" || !strings.Contains(d.paragraphs[idx].Content, old) {
		return Outcome{}, models.NotFoundf("el texto %q no aparece en el párrafo %d", old, n)
	}
	if !singleParagraph(strings.Replace(d.paragraphs[idx].Content, old, replacement, 1)) {
		return Outcome{}, models.ParseErrorf("el reemplazo partiría el párrafo %d en varios", n)
	}

	now := d.now()
	entry := d.replaceFirst(idx, old, replacement, now)
	return Outcome{Changed: true, Updated: []models.Paragraph{d.paragraphs[idx]}, Appended: []models.EditCommand{entry}}, nil
}

// Replace replaces the first occurrence of old in every paragraph holding
// it, with one history entry per paragraph.
func (d *Document) Replace(old, replacement string) (Outcome, error) {
	if old == "" {
		return Outcome{}, models.NotMatchedf("el texto a reemplazar está vacío")
	}

	for _, p := range d.paragraphs {
		if strings.Contains(p.Content, old) && !singleParagraph(strings.Replace(p.Content, old, replacement, 1)) {
			return Outcome{}, models.ParseErrorf("el reemplazo partiría el párrafo %s en varios", strings.TrimPrefix(p.ID, "p_"))
		}
	}

	now := d.now()
	var out Outcome
	for i := range d.paragraphs {
		if !strings.Contains(d.paragraphs[i].Content, old) {
			continue
		}
		entry := d.replaceFirst(i, old, replacement, now)
		out.Updated = append(out.Updated, d.paragraphs[i])
		out.Appended = append(out.Appended, entry)
	}

	if len(out.Appended) == 0 {
		return Outcome{}, models.NotMatchedf("el texto %q no aparece en el documento", old)
	}
	out.Changed = true
	return out, nil
}

// ApplyContextualEdit resolves instruction against selected and writes the
// result back into the first paragraph that contains selected. Nothing
// outside that paragraph changes; a result that would empty the paragraph or
// split it in several is dropped as a no-op.
func (d *Document) ApplyContextualEdit(ctx context.Context, selected, instruction string) (Outcome, error) {
	if strings.TrimSpace(selected) == "" {
		return Outcome{}, models.NotMatchedf("no hay texto seleccionado")
	}

	idx := -1
	for i, p := range d.paragraphs {
		if strings.Contains(p.Content, selected) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Outcome{}, models.NotMatchedf("el texto seleccionado no se encuentra en el documento")
	}

	res := d.resolver.Resolve(ctx, resolver.ScopeContextual, selected, instruction)
	if !res.Changed {
		return Outcome{Tier: res.Tier}, nil
	}

	now := d.now()
	previous := d.paragraphs[idx].Content
	updated := strings.TrimSpace(strings.Replace(previous, selected, res.Text, 1))
	if updated == previous || !singleParagraph(updated) {
		return Outcome{Tier: res.Tier}, nil
	}

	d.setContent(idx, updated, now)
	entry := d.record(models.EditCommand{
		Kind:            models.EditReplace,
		Anchor:          selected,
		ParagraphNumber: d.paragraphs[idx].Number,
		NewContent:      updated,
		PreviousContent: previous,
		Instruction:     instruction,
	}, now)

	return Outcome{
		Changed:  true,
		Tier:     res.Tier,
		Updated:  []models.Paragraph{d.paragraphs[idx]},
		Appended: []models.EditCommand{entry},
	}, nil
}

// ApplyGlobalEdit resolves instruction against the whole document and
// writes back only the paragraphs that differ. A result with a different
// paragraph count appends or drops trailing paragraphs.
func (d *Document) ApplyGlobalEdit(ctx context.Context, instruction string) (Outcome, error) {
	res := d.resolver.Resolve(ctx, resolver.ScopeGlobal, d.FullText(), instruction)
	if !res.Changed {
		return Outcome{Tier: res.Tier}, nil
	}

	parts := segmenter.Split(res.Text)
	now := d.now()
	out := Outcome{Tier: res.Tier}

	common := min(len(parts), len(d.paragraphs))
	for i := 0; i < common; i++ {
		if parts[i] == d.paragraphs[i].Content {
			continue
		}
		previous := d.paragraphs[i].Content
		d.setContent(i, parts[i], now)
		out.Updated = append(out.Updated, d.paragraphs[i])
		out.Appended = append(out.Appended, d.record(models.EditCommand{
			Kind:            models.EditGlobalReplace,
			Anchor:          d.paragraphs[i].ID,
			ParagraphNumber: d.paragraphs[i].Number,
			NewContent:      parts[i],
			PreviousContent: previous,
			Instruction:     instruction,
		}, now))
	}

	for i := common; i < len(parts); i++ {
		number := float64(i + 1)
		p := models.Paragraph{
			Number:     number,
			ID:         models.ParagraphID(number),
			Content:    parts[i],
			Kind:       d.segmenter.Classify(parts[i]),
			Modified:   true,
			ModifiedAt: &now,
		}
		d.paragraphs = append(d.paragraphs, p)
		out.Updated = append(out.Updated, p)
		out.Appended = append(out.Appended, d.record(models.EditCommand{
			Kind:            models.EditGlobalReplace,
			Anchor:          p.ID,
			ParagraphNumber: number,
			NewContent:      p.Content,
			Instruction:     instruction,
		}, now))
	}

	if len(d.paragraphs) > len(parts) {
		for _, removed := range d.paragraphs[len(parts):] {
			out.Appended = append(out.Appended, d.record(models.EditCommand{
				Kind:            models.EditGlobalReplace,
				Anchor:          removed.ID,
				ParagraphNumber: removed.Number,
				PreviousContent: removed.Content,
				Instruction:     instruction,
			}, now))
		}
		d.paragraphs = d.paragraphs[:len(parts)]
	}

	if len(out.Appended) == 0 {
		return Outcome{Tier: res.Tier}, nil
	}
	d.renumberFrom(1)
	out.Changed = true
	return out, nil
}

// Execute dispatches a parsed structured command.
func (d *Document) Execute(cmd command.Command) (Outcome, error) {
	switch cmd.Kind {
	case models.EditModify:
		return d.Modify(cmd.ParagraphNumber, cmd.Content)
	case models.EditInsertAfter:
		return d.InsertAfter(cmd.ParagraphNumber, cmd.Content)
	case models.EditInsertBefore:
		return d.InsertBefore(cmd.ParagraphNumber, cmd.Content)
	case models.EditDelete:
		return d.Delete(cmd.ParagraphNumber)
	case models.EditReplace:
		if cmd.HasParagraph {
			return d.ReplaceIn(cmd.ParagraphNumber, cmd.Old, cmd.New)
		}
		return d.Replace(cmd.Old, cmd.New)
	}
	return Outcome{}, models.ParseErrorf("comando no soportado: %s", cmd.Kind)
}

// singleParagraph reports whether content survives a save and reload as
// exactly one paragraph.
func singleParagraph(content string) bool {
	return len(segmenter.Split(content)) == 1
}

func (d *Document) index(number float64) int {
	for i, p := range d.paragraphs {
		if p.Number == number {
			return i
		}
	}
	return -1
}

func (d *Document) setContent(idx int, content string, now time.Time) {
	p := &d.paragraphs[idx]
	p.Content = content
	p.Kind = d.segmenter.Classify(content)
	p.Modified = true
	p.ModifiedAt = &now
}

func (d *Document) replaceFirst(idx int, old, replacement string, now time.Time) models.EditCommand {
	previous := d.paragraphs[idx].Content
	d.setContent(idx, strings.Replace(previous, old, replacement, 1), now)

	return d.record(models.EditCommand{
		Kind:            models.EditReplace,
		Anchor:          d.paragraphs[idx].ID,
		ParagraphNumber: d.paragraphs[idx].Number,
		NewContent:      d.paragraphs[idx].Content,
		PreviousContent: previous,
	}, now)
}

func (d *Document) record(entry models.EditCommand, now time.Time) models.EditCommand {
	entry.ID = uuid.NewString()
	entry.SessionID = d.SessionID
	entry.Timestamp = now
	d.history = append(d.history, entry)
	return entry
}

// renumberFrom gives every paragraph numbered at or above threshold the
// next integer after the untouched prefix, and rewrites its ID to match.
func (d *Document) renumberFrom(threshold float64) {
	sort.SliceStable(d.paragraphs, func(i, j int) bool {
		return d.paragraphs[i].Number < d.paragraphs[j].Number
	})

	for i := range d.paragraphs {
		if d.paragraphs[i].Number < threshold {
			continue
		}
		number := float64(i + 1)
		d.paragraphs[i].Number = number
		d.paragraphs[i].ID = models.ParagraphID(number)
	}
}

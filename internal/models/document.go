package models

import (
	"strconv"
	"time"
)

type ParagraphKind string

const (
	KindHeading  ParagraphKind = "heading"
	KindFacts    ParagraphKind = "facts"
	KindLaw      ParagraphKind = "law"
	KindPrayer   ParagraphKind = "prayer-for-relief"
	KindEvidence ParagraphKind = "evidence"
	KindEnum     ParagraphKind = "enumerated"
	KindTitle    ParagraphKind = "title"
	KindBody     ParagraphKind = "body"
)

// Paragraph is one addressable block of a structured document. Number is
// fractional only between an insert and the renumbering pass that follows it.
type Paragraph struct {
	Number     float64       `json:"number"`
	ID         string        `json:"id"`
	Content    string        `json:"content"`
	Kind       ParagraphKind `json:"kind"`
	Modified   bool          `json:"modified"`
	ModifiedAt *time.Time    `json:"modifiedAt,omitempty"`
}

// ParagraphID derives the stable key for a paragraph number.
func ParagraphID(number float64) string {
	return "p_" + strconv.FormatFloat(number, 'f', -1, 64)
}

type EditKind string

const (
	EditInsertAfter   EditKind = "insert-after"
	EditInsertBefore  EditKind = "insert-before"
	EditModify        EditKind = "modify"
	EditDelete        EditKind = "delete"
	EditReplace       EditKind = "replace"
	EditGlobalReplace EditKind = "global-replace"
)

// EditCommand is one history record. PreviousContent holds enough to
// reconstruct the paragraph by hand.
type EditCommand struct {
	ID              string    `json:"id"`
	Kind            EditKind  `json:"kind"`
	Anchor          string    `json:"anchor"`
	ParagraphNumber float64   `json:"paragraphNumber"`
	NewContent      string    `json:"newContent"`
	PreviousContent string    `json:"previousContent"`
	Instruction     string    `json:"instruction,omitempty"`
	SessionID       string    `json:"sessionId"`
	Timestamp       time.Time `json:"timestamp"`
}

// SourceDocument is a draft fetched from outside the engine.
type SourceDocument struct {
	ID       string
	URL      string
	Title    string
	Content  string
	Metadata map[string]interface{}
}

type Party struct {
	Role        string `json:"role" yaml:"role"`
	Name        string `json:"name" yaml:"name"`
	Identifier  string `json:"identifier,omitempty" yaml:"identifier"`
	Nationality string `json:"nationality,omitempty" yaml:"nationality"`
	Address     string `json:"address,omitempty" yaml:"address"`
}

// DraftRequest is what the generation collaborator needs for a first draft.
type DraftRequest struct {
	DocumentType string  `json:"documentType"`
	Parties      []Party `json:"parties"`
	Facts        string  `json:"facts"`
}

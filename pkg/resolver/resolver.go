// Package resolver turns a natural-language instruction plus a source text
// into a transformed text. Resolution runs through three tiers: a result
// cache, deterministic pattern rules and a generative model, with a small set
// of fallback rules behind the generative tier.
package resolver

import "errors"

// Scope selects which rule catalogue applies and how the generative prompt is
// framed.
type Scope string

const (
	// ScopeContextual operates on a user-selected fragment.
	ScopeContextual Scope = "contextual"
	// ScopeGlobal operates on the full document text.
	ScopeGlobal Scope = "global"
)

func (s Scope) Valid() bool {
	return s == ScopeContextual || s == ScopeGlobal
}

// Tier names the stage that produced a Resolution.
type Tier string

const (
	TierNone       Tier = "none"
	TierCache      Tier = "cache"
	TierPattern    Tier = "pattern"
	TierGenerative Tier = "generative"
	TierFallback   Tier = "fallback"
)

type Resolution struct {
	Text    string
	Tier    Tier
	Rule    string
	Changed bool
}

// ErrRejected marks generated text that failed validation.
var ErrRejected = errors.New("generated text rejected")

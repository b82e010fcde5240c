package resolver

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/xhad/escrito/internal/logger"
	"github.com/xhad/escrito/internal/metrics"
)

type PipelineConfig struct {
	CacheSize int
}

// Pipeline resolves instructions through cache, pattern and generative
// tiers. It is safe for concurrent use.
type Pipeline struct {
	cache      *Cache
	contextual *PatternResolver
	global     *PatternResolver
	fallbacks  map[Scope]*PatternResolver
	generative *GenerativeResolver
	log        *logger.Logger
	metrics    *metrics.Metrics
}

type Option func(*Pipeline)

// WithGenerative enables the generative tier. Without it the pipeline goes
// straight from the pattern rules to the fallback rules.
func WithGenerative(g *GenerativeResolver) Option {
	return func(p *Pipeline) { p.generative = g }
}

func WithLogger(l *logger.Logger) Option {
	return func(p *Pipeline) { p.log = l.Component("resolver") }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

func NewPipeline(config PipelineConfig, opts ...Option) *Pipeline {
	p := &Pipeline{
		cache:      NewCache(config.CacheSize),
		contextual: NewPatternResolver(ContextualRules()),
		global:     NewPatternResolver(GlobalRules()),
		fallbacks: map[Scope]*PatternResolver{
			ScopeContextual: NewPatternResolver(ContextualFallbackRules()),
			ScopeGlobal:     NewPatternResolver(GlobalFallbackRules()),
		},
		log: logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Resolve never fails: when no tier can act, the source comes back unchanged
// with TierNone.
func (p *Pipeline) Resolve(ctx context.Context, scope Scope, source, instruction string) Resolution {
	start := time.Now()
	res := p.resolve(ctx, scope, source, instruction)
	res.Changed = res.Text != source

	elapsed := time.Since(start)
	p.metrics.RecordResolution(string(scope), string(res.Tier), elapsed)
	p.log.LogResolution(string(scope), string(res.Tier), res.Changed, elapsed)
	return res
}

func (p *Pipeline) resolve(ctx context.Context, scope Scope, source, instruction string) Resolution {
	if !scope.Valid() || strings.TrimSpace(instruction) == "" {
		return Resolution{Text: source, Tier: TierNone}
	}

	cached, hit := p.cache.Get(scope, source, instruction)
	p.metrics.RecordCacheLookup(hit)
	if hit {
		return Resolution{Text: cached, Tier: TierCache}
	}

	rules := p.contextual
	if scope == ScopeGlobal {
		rules = p.global
	}
	if result, rule, ok := rules.Resolve(source, instruction); ok {
		if result != source {
			p.cache.Put(scope, source, instruction, result)
		}
		return Resolution{Text: result, Tier: TierPattern, Rule: rule}
	}

	if p.generative != nil {
		out, err := p.generative.Rewrite(ctx, scope, source, instruction)
		if err == nil {
			if out != source {
				p.cache.Put(scope, source, instruction, out)
				return Resolution{Text: out, Tier: TierGenerative}
			}
			return Resolution{Text: source, Tier: TierNone}
		}
		if !errors.Is(err, ErrRejected) {
			p.log.Warn().Err(err).Str("scope", string(scope)).Msg("generative tier unavailable")
		}
	}

	if result, rule, ok := p.fallbacks[scope].Resolve(source, instruction); ok && result != source {
		p.cache.Put(scope, source, instruction, result)
		return Resolution{Text: result, Tier: TierFallback, Rule: rule}
	}

	return Resolution{Text: source, Tier: TierNone}
}

// CacheLen reports how many results are cached.
func (p *Pipeline) CacheLen() int {
	return p.cache.Len()
}

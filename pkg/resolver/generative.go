package resolver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/xhad/escrito/internal/logger"
	"github.com/xhad/escrito/internal/metrics"
	"github.com/xhad/escrito/internal/models"
	"github.com/xhad/escrito/internal/types"
)

type GenerativeConfig struct {
	// MaxDeltaRatio bounds |tokens(result) - tokens(source)| relative to the
	// source token count.
	MaxDeltaRatio float64
	// Timeout applies to each model call.
	Timeout time.Duration
}

// GenerativeResolver asks a language model to rewrite text, retrying once on
// a fallback model and validating the answer before handing it back.
type GenerativeResolver struct {
	primary  types.TextGenerator
	fallback types.TextGenerator
	config   GenerativeConfig
	log      *logger.Logger
	metrics  *metrics.Metrics
}

func NewGenerativeResolver(primary, fallback types.TextGenerator, config GenerativeConfig, log *logger.Logger, m *metrics.Metrics) *GenerativeResolver {
	if config.MaxDeltaRatio == 0 {
		config.MaxDeltaRatio = 0.8
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}

	return &GenerativeResolver{
		primary:  primary,
		fallback: fallback,
		config:   config,
		log:      log.Component("generative"),
		metrics:  m,
	}
}

const systemPrompt = `Sos un asistente de edición de escritos judiciales en español.
Aplicá exactamente la instrucción del usuario sobre el texto recibido.
Reglas:
1. Cambiá solamente lo que la instrucción pide.
2. Conservá la estructura, la puntuación, las mayúsculas y los saltos de línea del texto.
3. No agregues explicaciones, comentarios, comillas ni formato markdown.
4. Devolvé únicamente el texto transformado.`

const globalAddendum = `
5. El texto es un documento completo cuyos párrafos están separados por una línea en blanco; conservá esa separación y no unas ni dividas párrafos salvo que la instrucción lo pida.`

func buildPrompt(scope Scope, source, instruction string) (string, string) {
	system := systemPrompt
	if scope == ScopeGlobal {
		system += globalAddendum
	}
	prompt := fmt.Sprintf("INSTRUCCIÓN:\n%s\n\nTEXTO:\n%s", instruction, source)
	return system, prompt
}

// Rewrite returns the sanitized model answer. Errors are *models.EditError
// of kind ErrGenerationTimeout or ErrGenerationFailure, or wrap ErrRejected
// when the answer fails validation.
func (g *GenerativeResolver) Rewrite(ctx context.Context, scope Scope, source, instruction string) (string, error) {
	system, prompt := buildPrompt(scope, source, instruction)

	var lastErr error
	for _, gen := range []types.TextGenerator{g.primary, g.fallback} {
		if gen == nil {
			continue
		}

		out, err := g.call(ctx, gen, system, prompt)
		if err != nil {
			g.log.Warn().Err(err).Str("model", gen.Model()).Msg("generation failed")
			lastErr = err
			continue
		}

		out = Sanitize(out, source)
		if out == "" {
			lastErr = models.NewEditError(models.ErrGenerationFailure,
				"el servicio de redacción devolvió una respuesta vacía", nil)
			continue
		}

		if err := g.validate(source, out); err != nil {
			g.metrics.RecordRejection()
			g.log.Info().Err(err).Str("model", gen.Model()).Msg("generated text rejected")
			return "", err
		}
		return out, nil
	}

	if lastErr == nil {
		lastErr = models.NewEditError(models.ErrGenerationFailure,
			"no hay un modelo de lenguaje configurado", nil)
	}
	return "", lastErr
}

func (g *GenerativeResolver) call(ctx context.Context, gen types.TextGenerator, system, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	out, err := gen.Complete(callCtx, system, prompt)
	g.metrics.RecordGeneratorCall(gen.Model(), err)
	if err == nil {
		return out, nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return "", models.NewEditError(models.ErrGenerationTimeout,
			"el servicio de redacción no respondió a tiempo", err)
	}
	return "", models.NewEditError(models.ErrGenerationFailure,
		"el servicio de redacción no está disponible", err)
}

// validate rejects answers whose length drifted too far from the source.
// An empty source has no baseline and always passes.
func (g *GenerativeResolver) validate(source, result string) error {
	src := countTokens(source)
	if src == 0 {
		return nil
	}
	delta := math.Abs(float64(countTokens(result) - src))
	if delta > g.config.MaxDeltaRatio*float64(src) {
		return fmt.Errorf("%w: token count changed by %.0f over a source of %d", ErrRejected, delta, src)
	}
	return nil
}

package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xhad/escrito/internal/models"
	"github.com/xhad/escrito/pkg/resolver"
)

const draftSystem = `Sos un abogado argentino que redacta escritos judiciales.
Redactá el escrito pedido en español rioplatense formal.
Separá cada párrafo con una línea en blanco.
Usá los encabezados habituales (OBJETO, HECHOS, DERECHO, PRUEBA, PETITORIO) cuando correspondan.
No uses markdown ni agregues comentarios fuera del escrito.`

// Drafter writes first drafts through a ChatEngine.
type Drafter struct {
	engine   *ChatEngine
	timeout  time.Duration
	progress func(string)
}

func NewDrafter(engine *ChatEngine, timeout time.Duration) *Drafter {
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	return &Drafter{engine: engine, timeout: timeout}
}

// WithProgress streams the draft to fn while it is generated.
func (d *Drafter) WithProgress(fn func(string)) *Drafter {
	cp := *d
	cp.progress = fn
	return &cp
}

func (d *Drafter) Draft(ctx context.Context, req models.DraftRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	prompt := draftPrompt(req)

	var (
		out string
		err error
	)
	if d.progress != nil {
		out, err = d.engine.CompleteStream(ctx, draftSystem, prompt, d.progress)
	} else {
		out, err = d.engine.Complete(ctx, draftSystem, prompt)
	}
	if err != nil {
		return "", classify(ctx, err)
	}

	out = resolver.Sanitize(out, "")
	if out == "" {
		return "", models.NewEditError(models.ErrGenerationFailure, "el servicio de redacción devolvió un escrito vacío", nil)
	}
	return out, nil
}

func draftPrompt(req models.DraftRequest) string {
	var b strings.Builder

	docType := req.DocumentType
	if docType == "" {
		docType = "demanda"
	}
	fmt.Fprintf(&b, "Tipo de escrito: %s\n", docType)

	if len(req.Parties) > 0 {
		b.WriteString("\nPartes:\n")
		for _, p := range req.Parties {
			fmt.Fprintf(&b, "- %s: %s", p.Role, p.Name)
			if p.Identifier != "" {
				fmt.Fprintf(&b, ", %s", p.Identifier)
			}
			if p.Nationality != "" {
				fmt.Fprintf(&b, ", %s", p.Nationality)
			}
			if p.Address != "" {
				fmt.Fprintf(&b, ", domicilio en %s", p.Address)
			}
			b.WriteString("\n")
		}
	}

	if strings.TrimSpace(req.Facts) != "" {
		fmt.Fprintf(&b, "\nHechos:\n%s\n", strings.TrimSpace(req.Facts))
	}

	return b.String()
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/xhad/escrito/internal/models"
	"github.com/xhad/escrito/pkg/command"
	"github.com/xhad/escrito/pkg/editor"
)

const help = `Comandos:
  :abrir <ruta>                      carga un escrito desde un archivo
  :importar <url>                    importa un escrito publicado en la web
  :generar <tipo>[: hechos]          redacta un borrador nuevo
  :global <instrucción>              aplica la instrucción a todo el escrito
  :contextual "<texto>" <instrucción> aplica la instrucción solo al texto citado
  :texto | :parrafos | :historial    muestra el estado de la sesión
  :salir
Cualquier otra línea se interpreta como comando de párrafo.`

var contextualLine = regexp.MustCompile(`^"([^"]+)"\s+(.+)$`)

// repl is the interactive editor on a terminal.
type repl struct {
	in        *bufio.Scanner
	out       io.Writer
	sessionID string
	service   *editor.Service
	spinners  bool

	userPrompt func(format string, a ...interface{})
	info       *color.Color
	success    *color.Color
	failure    *color.Color
	warning    *color.Color
	draft      *color.Color
}

func newREPL(in io.Reader, out io.Writer, sessionID string) *repl {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 4<<20)

	return &repl{
		in:        scanner,
		out:       out,
		sessionID: sessionID,
		spinners:  out == os.Stdout,
		userPrompt: func(format string, a ...interface{}) {
			color.New(color.FgGreen).Fprintf(out, format, a...)
		},
		info:    color.New(color.FgCyan),
		success: color.New(color.FgGreen),
		failure: color.New(color.FgRed),
		warning: color.New(color.FgYellow),
		draft:   color.New(color.FgBlue),
	}
}

func (r *repl) getSpinner(description string) *progressbar.ProgressBar {
	if !r.spinners {
		return progressbar.DefaultSilent(-1)
	}
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(r.out),
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
	)
}

// streamDraft prints a draft while the model writes it.
func (r *repl) streamDraft(chunk string) {
	r.draft.Fprint(r.out, chunk)
}

func (r *repl) run(ctx context.Context) error {
	r.info.Fprintf(r.out, "\nEditor de escritos, sesión %q (:ayuda para ver los comandos)\n", r.sessionID)

	for {
		r.userPrompt("\n> ")
		if !r.in.Scan() {
			break
		}
		if ctx.Err() != nil {
			break
		}
		if quit := r.handle(ctx, strings.TrimSpace(r.in.Text())); quit {
			break
		}
	}
	return r.in.Err()
}

func (r *repl) handle(ctx context.Context, line string) bool {
	if line == "" {
		return false
	}

	name, arg := line, ""
	if strings.HasPrefix(line, ":") {
		if i := strings.IndexAny(line, " \t"); i > 0 {
			name, arg = line[:i], strings.TrimSpace(line[i+1:])
		}
	}

	switch strings.ToLower(name) {
	case ":salir", "salir", "exit":
		return true
	case ":ayuda":
		fmt.Fprintln(r.out, help)
		fmt.Fprintln(r.out, command.Usage())
	case ":abrir":
		r.open(ctx, arg)
	case ":importar":
		spinner := r.getSpinner("Importando " + arg)
		res := r.service.ImportDocument(ctx, r.sessionID, arg)
		spinner.Finish()
		r.print(res)
	case ":generar":
		req := models.DraftRequest{DocumentType: arg}
		if docType, facts, ok := strings.Cut(arg, ":"); ok {
			req.DocumentType = strings.TrimSpace(docType)
			req.Facts = strings.TrimSpace(facts)
		}
		fmt.Fprintln(r.out)
		res := r.service.GenerateDocument(ctx, r.sessionID, req)
		fmt.Fprintln(r.out)
		r.print(res)
	case ":global":
		spinner := r.getSpinner("Aplicando la instrucción")
		res := r.service.ApplyGlobalEdit(ctx, r.sessionID, arg)
		spinner.Finish()
		r.print(res)
	case ":contextual":
		m := contextualLine.FindStringSubmatch(arg)
		if m == nil {
			r.failure.Fprintln(r.out, `Uso: :contextual "<texto seleccionado>" <instrucción>`)
			return false
		}
		spinner := r.getSpinner("Aplicando la instrucción")
		res := r.service.ApplyContextualEdit(ctx, r.sessionID, m[1], m[2])
		spinner.Finish()
		r.print(res)
	case ":texto":
		res := r.service.GetFullText(ctx, r.sessionID)
		if r.print(res) {
			fmt.Fprintln(r.out, res.Text)
		}
	case ":parrafos":
		res := r.service.GetParagraphs(ctx, r.sessionID)
		if r.print(res) {
			r.printParagraphs(res.Paragraphs)
		}
	case ":historial":
		res := r.service.GetHistory(ctx, r.sessionID)
		if r.print(res) {
			for _, entry := range res.History {
				fmt.Fprintf(r.out, "%s  %-15s párrafo %s\n",
					entry.Timestamp.Format("15:04:05"), entry.Kind, formatNumber(entry.ParagraphNumber))
			}
		}
	default:
		if strings.HasPrefix(line, ":") {
			r.failure.Fprintf(r.out, "Comando desconocido %s\n", name)
			return false
		}
		r.print(r.service.ExecuteCommand(ctx, r.sessionID, line))
	}
	return false
}

func (r *repl) open(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		r.failure.Fprintf(r.out, "No se pudo leer %s: %v\n", path, err)
		return
	}
	r.print(r.service.InitializeDocument(ctx, r.sessionID, string(data)))
}

// print reports the outcome of an editor call and returns whether it
// succeeded.
func (r *repl) print(res editor.Result) bool {
	if !res.Success {
		r.failure.Fprintf(r.out, "✗ %s\n", res.Message)
		return false
	}

	r.success.Fprintf(r.out, "✓ %s\n", res.Message)
	if res.Warning != "" {
		r.warning.Fprintf(r.out, "! %s\n", res.Warning)
	}
	if len(res.UpdatedParagraphs) > 0 {
		r.printParagraphs(res.UpdatedParagraphs)
	}
	return true
}

func (r *repl) printParagraphs(paragraphs []models.Paragraph) {
	for _, p := range paragraphs {
		r.info.Fprintf(r.out, "[%s] ", formatNumber(p.Number))
		fmt.Fprintln(r.out, p.Content)
	}
}

func formatNumber(n float64) string {
	return strings.TrimPrefix(models.ParagraphID(n), "p_")
}

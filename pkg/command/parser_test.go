package command_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/escrito/internal/models"
	"github.com/xhad/escrito/pkg/command"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  command.Command
	}{
		{
			input: "Modificar el párrafo 3 con: El actor trabajó diez años.",
			want:  command.Command{Kind: models.EditModify, ParagraphNumber: 3, HasParagraph: true, Content: "El actor trabajó diez años."},
		},
		{
			input: "modificar el parrafo 12: Nuevo texto",
			want:  command.Command{Kind: models.EditModify, ParagraphNumber: 12, HasParagraph: true, Content: "Nuevo texto"},
		},
		{
			input: "A continuación del párrafo 2, agregar: Se deja constancia de la intimación.",
			want:  command.Command{Kind: models.EditInsertAfter, ParagraphNumber: 2, HasParagraph: true, Content: "Se deja constancia de la intimación."},
		},
		{
			input: "Antes del párrafo 1, agregar: Señor Juez:",
			want:  command.Command{Kind: models.EditInsertBefore, ParagraphNumber: 1, HasParagraph: true, Content: "Señor Juez:"},
		},
		{
			input: "Eliminar el párrafo 4",
			want:  command.Command{Kind: models.EditDelete, ParagraphNumber: 4, HasParagraph: true},
		},
		{
			input: `Reemplazar "Total: $100" por "Total: $200"`,
			want:  command.Command{Kind: models.EditReplace, Old: "Total: $100", New: "Total: $200"},
		},
		{
			input: `Reemplazar "ARCOR" por "MOLINOS" en el párrafo 5`,
			want:  command.Command{Kind: models.EditReplace, Old: "ARCOR", New: "MOLINOS", ParagraphNumber: 5, HasParagraph: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := command.Parse(tt.input)
			require.NoError(t, err)

			tt.want.Raw = tt.input
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMultilineContent(t *testing.T) {
	got, err := command.Parse("Modificar el párrafo 1 con: primera línea\nsegunda línea")
	require.NoError(t, err)

	assert.Equal(t, "primera línea\nsegunda línea", got.Content)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains string
	}{
		{"empty", "   ", "vacío"},
		{"modify without content", "Modificar el párrafo 3", "Modificar el párrafo N con"},
		{"delete without number", "Eliminar el párrafo", "Eliminar el párrafo N"},
		{"replace without quotes", "Reemplazar ARCOR por MOLINOS", `Reemplazar "X" por "Y"`},
		{"paragraph zero", "Eliminar el párrafo 0", "inválido"},
		{"unknown verb", "Traducir todo al inglés", "comando no reconocido"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := command.Parse(tt.input)
			require.Error(t, err)

			assert.True(t, errors.Is(err, models.ErrParse))
			assert.Contains(t, models.UserMessage(err), tt.contains)
		})
	}
}

func TestIsStructured(t *testing.T) {
	assert.True(t, command.IsStructured("Eliminar el párrafo 2"))
	assert.True(t, command.IsStructured("reemplazar algo"))
	assert.False(t, command.IsStructured("cambiar Juan Pérez por Juan Carlos Pérez"))
	assert.False(t, command.IsStructured("la empresa es NUEVA EMPRESA"))
}

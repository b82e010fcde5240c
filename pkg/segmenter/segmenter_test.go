package segmenter_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/escrito/internal/models"
	"github.com/xhad/escrito/pkg/segmenter"
)

const demanda = `PROMUEVE DEMANDA LABORAL

Juan Pérez, argentino, DNI 20.123.456, con domicilio en Av. Corrientes 1234, por derecho propio, me presento y digo:

I.- HECHOS
El actor ingresó a trabajar para ARCOR S.A. el 01/03/2015 desempeñándose como operario.


II.- DERECHO
Fundo el presente reclamo en los artículos 245 y 232 de la Ley de Contrato de Trabajo.

III.- PRUEBA
Ofrezco la siguiente prueba documental e informativa que se detalla a continuación en este escrito.

IV.- PETITORIO
Por todo lo expuesto solicito se haga lugar a la demanda con costas a la contraria.`

func TestSegment(t *testing.T) {
	s := segmenter.New()

	paragraphs := s.Segment(demanda)

	require.Len(t, paragraphs, 6)
	for i, p := range paragraphs {
		assert.Equal(t, float64(i+1), p.Number)
		assert.Equal(t, models.ParagraphID(float64(i+1)), p.ID)
		assert.False(t, p.Modified)
		assert.Nil(t, p.ModifiedAt)
	}

	assert.Equal(t, models.KindHeading, paragraphs[0].Kind)
	assert.Equal(t, models.KindBody, paragraphs[1].Kind)
	assert.Equal(t, models.KindFacts, paragraphs[2].Kind)
	assert.Equal(t, models.KindLaw, paragraphs[3].Kind)
	assert.Equal(t, models.KindEvidence, paragraphs[4].Kind)
	assert.Equal(t, models.KindPrayer, paragraphs[5].Kind)
	assert.Equal(t, "p_1", paragraphs[0].ID)
}

func TestSegmentEmpty(t *testing.T) {
	s := segmenter.New()

	assert.Empty(t, s.Segment(""))
	assert.Empty(t, s.Segment("\n\n   \n\n"))
}

func TestSegmentSingleParagraph(t *testing.T) {
	s := segmenter.New()

	paragraphs := s.Segment("Una sola línea\nque sigue en la misma sección")

	require.Len(t, paragraphs, 1)
	assert.Equal(t, "Una sola línea\nque sigue en la misma sección", paragraphs[0].Content)
}

func TestSegmentRoundTrip(t *testing.T) {
	s := segmenter.New()

	inputs := []string{
		demanda,
		"  uno\n\ndos\n \n\ntres  ",
		"a\r\n\r\nb",
		"solo",
	}

	for _, input := range inputs {
		paragraphs := s.Segment(input)
		contents := make([]string, len(paragraphs))
		for i, p := range paragraphs {
			contents[i] = p.Content
		}

		assert.Equal(t, normalize(input), normalize(segmenter.Join(contents)))
	}
}

func TestClassify(t *testing.T) {
	s := segmenter.New()

	tests := []struct {
		content string
		want    models.ParagraphKind
	}{
		{"I.- Los hechos del caso son los siguientes y se detallan en orden cronológico", models.KindFacts},
		{"II.- Fundamentos jurídicos que sostienen este reclamo en los tribunales competentes", models.KindLaw},
		{"Por lo expuesto, solicita a V.S. que tenga por presentada la demanda en legal tiempo y forma", models.KindPrayer},
		{"Se ofrezco como medio probatorio la documental acompañada a este escrito de demanda", models.KindEvidence},
		{"1) Que el actor trabajó durante diez años sin recibir aumentos salariales en ningún momento", models.KindEnum},
		{"Señor Juez:", models.KindTitle},
		{"OBJETO", models.KindHeading},
		{"CIVIL.", models.KindHeading},
		{"CC. Buenos Aires", models.KindTitle},
		{"XIV) Que la demandada nunca respondió las intimaciones cursadas por el actor en debido tiempo", models.KindEnum},
		{"IV.- Que el despido carece de causa y así debe ser declarado por el tribunal interviniente", models.KindEnum},
		{"El actor se desempeñó como operario en la planta industrial ubicada en la ciudad de Córdoba", models.KindBody},
	}

	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Classify(tt.content))
		})
	}
}

func TestClassifyOnlyLooksAtHead(t *testing.T) {
	s := segmenter.NewWithConfig(segmenter.SegmenterConfig{HeadRunes: 20})

	content := "El actor se desempeñó durante años y reclama lo que por derecho le corresponde"

	assert.Equal(t, models.KindBody, s.Classify(content))
}

func TestSplitBoundaries(t *testing.T) {
	got := segmenter.Split("uno\ncontinúa\n\n\n\ndos\n\t\ntres")

	assert.Equal(t, []string{"uno\ncontinúa", "dos", "tres"}, got)
}

func normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

package editor_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/escrito/internal/models"
	"github.com/xhad/escrito/pkg/editor"
	"github.com/xhad/escrito/pkg/resolver"
	"github.com/xhad/escrito/pkg/store"
)

const demanda = `PROMUEVE DEMANDA

Juan Pérez, argentino, DNI 20.123.456, promueve demanda contra ARCOR S.A., con domicilio en Córdoba.

El demandado ARCOR S.A. debe pagar $10.000 en concepto de indemnización.

Juan Pérez fue despedido sin causa el 01/03/2020.`

type flakyStore struct {
	*store.MemoryStore
	mu    sync.Mutex
	fail  bool
	saves int
}

func (f *flakyStore) SaveDocumentText(ctx context.Context, sessionID, text string) error {
	f.mu.Lock()
	f.saves++
	fail := f.fail
	f.mu.Unlock()

	if fail {
		return errors.New("connection reset by peer")
	}
	return f.MemoryStore.SaveDocumentText(ctx, sessionID, text)
}

func (f *flakyStore) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

type fakeDrafter struct {
	text string
	err  error
}

func (f fakeDrafter) Draft(context.Context, models.DraftRequest) (string, error) {
	return f.text, f.err
}

type fakeImporter struct {
	doc models.SourceDocument
}

func (f fakeImporter) Import(_ context.Context, url string) (models.SourceDocument, error) {
	doc := f.doc
	doc.URL = url
	return doc, nil
}

func newService(st *store.MemoryStore, opts ...editor.Option) *editor.Service {
	return editor.New(st, resolver.NewPipeline(resolver.PipelineConfig{}), opts...)
}

func TestInitializeAndRead(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	svc := newService(st)

	res := svc.InitializeDocument(ctx, "s1", demanda)
	require.True(t, res.Success)
	assert.Len(t, res.Paragraphs, 4)
	assert.Contains(t, res.Message, "4 párrafos")

	stored, err := st.LoadDocumentText(ctx, "s1")
	require.NoError(t, err)

	text := svc.GetFullText(ctx, "s1")
	require.True(t, text.Success)
	assert.Equal(t, stored, text.Text)

	paragraphs := svc.GetParagraphs(ctx, "s1")
	assert.Len(t, paragraphs.Paragraphs, 4)
}

func TestContextualEdit(t *testing.T) {
	ctx := context.Background()
	svc := newService(store.NewMemory())
	svc.InitializeDocument(ctx, "s1", demanda)

	res := svc.ApplyContextualEdit(ctx, "s1", "El demandado ARCOR S.A. debe pagar $10.000", "la empresa es NUEVA EMPRESA")

	require.True(t, res.Success, res.Message)
	assert.Equal(t, string(resolver.TierPattern), res.Tier)
	require.Len(t, res.UpdatedParagraphs, 1)
	assert.Equal(t, float64(3), res.UpdatedParagraphs[0].Number)
	assert.Contains(t, res.UpdatedParagraphs[0].Content, "NUEVA EMPRESA")

	// the second paragraph still names the old company
	text := svc.GetFullText(ctx, "s1").Text
	assert.Contains(t, text, "contra ARCOR S.A.")
}

func TestContextualEditSelectionMissing(t *testing.T) {
	ctx := context.Background()
	svc := newService(store.NewMemory())
	svc.InitializeDocument(ctx, "s1", demanda)

	res := svc.ApplyContextualEdit(ctx, "s1", "texto inexistente", "mayúsculas")

	assert.False(t, res.Success)
	assert.Equal(t, editor.CodeNotMatched, res.Error)
	assert.NotEmpty(t, res.Message)
}

func TestGlobalEdit(t *testing.T) {
	ctx := context.Background()
	svc := newService(store.NewMemory())
	svc.InitializeDocument(ctx, "s1", demanda)

	res := svc.ApplyGlobalEdit(ctx, "s1", "cambiar Juan Pérez por Juan Carlos Pérez")
	require.True(t, res.Success)
	assert.Len(t, res.UpdatedParagraphs, 2)

	history := svc.GetHistory(ctx, "s1")
	assert.Len(t, history.History, 2)
}

func TestNoopEdit(t *testing.T) {
	ctx := context.Background()
	svc := newService(store.NewMemory())
	svc.InitializeDocument(ctx, "s1", demanda)
	before := svc.GetFullText(ctx, "s1").Text

	res := svc.ApplyGlobalEdit(ctx, "s1", "hacerlo más persuasivo")

	assert.True(t, res.Success)
	assert.Empty(t, res.UpdatedParagraphs)
	assert.Equal(t, before, svc.GetFullText(ctx, "s1").Text)
	assert.Empty(t, svc.GetHistory(ctx, "s1").History)
}

func TestExecuteCommand(t *testing.T) {
	ctx := context.Background()
	svc := newService(store.NewMemory())
	svc.InitializeDocument(ctx, "s1", demanda)

	res := svc.ExecuteCommand(ctx, "s1", "A continuación del párrafo 4, agregar: Se reclaman intereses.")
	require.True(t, res.Success)
	assert.Len(t, svc.GetParagraphs(ctx, "s1").Paragraphs, 5)

	res = svc.ExecuteCommand(ctx, "s1", "Modificar el párrafo 99 con: x")
	assert.False(t, res.Success)
	assert.Equal(t, editor.CodeNotFound, res.Error)

	res = svc.ExecuteCommand(ctx, "s1", `Reemplazar "Total: $100" por "Total: $200"`)
	assert.False(t, res.Success)
	assert.Equal(t, editor.CodeNotMatched, res.Error)

	res = svc.ExecuteCommand(ctx, "s1", "Modificar el párrafo 2")
	assert.False(t, res.Success)
	assert.Equal(t, editor.CodeParse, res.Error)
	assert.Contains(t, res.Message, "Modificar el párrafo N con")

	assert.Len(t, svc.GetHistory(ctx, "s1").History, 1)
}

func TestUnknownSession(t *testing.T) {
	svc := newService(store.NewMemory())

	res := svc.GetFullText(context.Background(), "nadie")

	assert.False(t, res.Success)
	assert.Equal(t, editor.CodeNotFound, res.Error)
}

func TestSessionRestoredFromStore(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()

	first := newService(st)
	first.InitializeDocument(ctx, "s1", demanda)
	first.ExecuteCommand(ctx, "s1", "Eliminar el párrafo 1")

	second := newService(st)
	assert.Equal(t, 0, second.Registry().Len())

	text := second.GetFullText(ctx, "s1")
	require.True(t, text.Success)
	assert.Equal(t, first.GetFullText(ctx, "s1").Text, text.Text)
	assert.Len(t, second.GetHistory(ctx, "s1").History, 1)
	assert.Equal(t, 1, second.Registry().Len())
}

func TestPersistenceFailureWarnsAndRetries(t *testing.T) {
	ctx := context.Background()
	st := &flakyStore{MemoryStore: store.NewMemory()}
	svc := editor.New(st, resolver.NewPipeline(resolver.PipelineConfig{}))
	svc.InitializeDocument(ctx, "s1", demanda)

	st.setFail(true)
	res := svc.ExecuteCommand(ctx, "s1", "Eliminar el párrafo 1")
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.Warning)
	assert.True(t, svc.Registry().Dirty("s1"))

	st.setFail(false)
	res = svc.ExecuteCommand(ctx, "s1", "Eliminar el párrafo 1")
	assert.True(t, res.Success)
	assert.Empty(t, res.Warning)
	assert.False(t, svc.Registry().Dirty("s1"))

	history, err := st.LoadHistory(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, history, 2)

	text, err := st.LoadDocumentText(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, svc.GetFullText(ctx, "s1").Text, text)
}

func TestReinitializeKeepsHistory(t *testing.T) {
	ctx := context.Background()
	st := &flakyStore{MemoryStore: store.NewMemory()}
	svc := editor.New(st, resolver.NewPipeline(resolver.PipelineConfig{}))
	svc.InitializeDocument(ctx, "s1", demanda)

	st.setFail(true)
	require.True(t, svc.ExecuteCommand(ctx, "s1", "Eliminar el párrafo 1").Success)
	res := svc.InitializeDocument(ctx, "s1", "otro\n\ntexto")
	assert.NotEmpty(t, res.Warning)
	assert.True(t, svc.Registry().Dirty("s1"))
	assert.Len(t, svc.GetHistory(ctx, "s1").History, 1)

	st.setFail(false)
	res = svc.InitializeDocument(ctx, "s1", "otro\n\ntexto nuevo")
	assert.Empty(t, res.Warning)
	assert.False(t, svc.Registry().Dirty("s1"))

	stored, err := st.LoadHistory(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, svc.GetHistory(ctx, "s1").History, stored)

	restarted := editor.New(st, resolver.NewPipeline(resolver.PipelineConfig{}))
	assert.Equal(t, stored, restarted.GetHistory(ctx, "s1").History)
	restarted.InitializeDocument(ctx, "s1", "desde cero")
	assert.Len(t, restarted.GetHistory(ctx, "s1").History, 1)
}

func TestGenerateDocument(t *testing.T) {
	ctx := context.Background()
	svc := newService(store.NewMemory(), editor.WithDrafter(fakeDrafter{text: "OBJETO\n\nSe promueve demanda."}))

	res := svc.GenerateDocument(ctx, "s1", models.DraftRequest{DocumentType: "demanda laboral"})

	require.True(t, res.Success)
	assert.Len(t, res.Paragraphs, 2)
}

func TestGenerateDocumentFailure(t *testing.T) {
	ctx := context.Background()

	res := newService(store.NewMemory()).GenerateDocument(ctx, "s1", models.DraftRequest{})
	assert.False(t, res.Success)
	assert.Equal(t, editor.CodeGeneration, res.Error)

	timeout := models.NewEditError(models.ErrGenerationTimeout, "el servicio de redacción no respondió a tiempo", context.DeadlineExceeded)
	res = newService(store.NewMemory(), editor.WithDrafter(fakeDrafter{err: timeout})).GenerateDocument(ctx, "s1", models.DraftRequest{})
	assert.Equal(t, editor.CodeTimeout, res.Error)
	assert.Equal(t, "el servicio de redacción no respondió a tiempo", res.Message)
}

func TestImportDocument(t *testing.T) {
	ctx := context.Background()
	importer := fakeImporter{doc: models.SourceDocument{Title: "Modelo de demanda", Content: "uno\n\ndos\n\ntres"}}
	svc := newService(store.NewMemory(), editor.WithImporter(importer))

	res := svc.ImportDocument(ctx, "s1", "https://example.com/modelo")

	require.True(t, res.Success)
	assert.Len(t, res.Paragraphs, 3)
	assert.Contains(t, res.Message, "Modelo de demanda")
}

func TestSessionLocks(t *testing.T) {
	locks := editor.NewSessionLocks()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("s1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

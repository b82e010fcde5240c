package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/escrito/internal/models"
)

const page = `
<html>
	<head><title>Modelo de demanda laboral</title></head>
	<body>
		<nav><a href="/">Inicio</a></nav>
		<main>
			<h1>PROMUEVE DEMANDA</h1>
			<p>Juan Pérez, argentino,
			   DNI 20.123.456, promueve demanda.</p>
			<ul>
				<li>Indemnización por despido.</li>
				<li>Preaviso.</li>
			</ul>
			<script>track()</script>
		</main>
		<footer>Política de cookies</footer>
	</body>
</html>`

func TestScraperConfig(t *testing.T) {
	config := ScraperConfig{
		RateLimit:      1.0,
		IgnorePatterns: []string{"/privado/"},
		Timeout:        10 * time.Second,
	}

	s, err := NewWithConfig(config)
	require.NoError(t, err)
	assert.Equal(t, config.Timeout, s.config.Timeout)
	assert.Equal(t, "escrito/1.0", s.config.UserAgent)

	_, err = NewWithConfig(ScraperConfig{RateLimit: -1})
	assert.Error(t, err)
}

func TestShouldProcessURL(t *testing.T) {
	s, err := NewWithConfig(ScraperConfig{
		AllowedHosts:   []string{"example.com"},
		IgnorePatterns: []string{"/privado/"},
	})
	require.NoError(t, err)

	tests := []struct {
		url      string
		expected bool
	}{
		{"https://example.com/modelos/demanda", true},
		{"http://EXAMPLE.com/modelo.html", true},
		{"https://example.com/privado/modelo.html", false},
		{"https://otro-dominio.com/modelo.html", false},
		{"ftp://example.com/modelo.html", false},
		{"modelo.html", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.expected, s.shouldProcessURL(tt.url) == nil)
		})
	}
}

func TestImport(t *testing.T) {
	var agent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent = r.UserAgent()
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(page))
	}))
	defer server.Close()

	var progressed []string
	s, err := NewWithConfig(ScraperConfig{
		RateLimit:  10,
		OnProgress: func(url string) { progressed = append(progressed, url) },
	})
	require.NoError(t, err)

	doc, err := s.Import(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, server.URL, doc.URL)
	assert.Equal(t, "Modelo de demanda laboral", doc.Title)
	assert.Equal(t, "PROMUEVE DEMANDA\n\n"+
		"Juan Pérez, argentino, DNI 20.123.456, promueve demanda.\n\n"+
		"Indemnización por despido.\n\n"+
		"Preaviso.", doc.Content)
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, 4, doc.Metadata["paragraphs"])
	assert.Equal(t, "escrito/1.0", agent)
	assert.Equal(t, []string{server.URL}, progressed)
}

func TestImportFallsBackToBodyText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><div>Texto   suelto</div></body></html>`))
	}))
	defer server.Close()

	doc, err := New().Import(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "Texto suelto", doc.Content)
}

func TestImportErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/vacio" {
			w.Write([]byte(`<html><body></body></html>`))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	s := New()

	_, err := s.Import(context.Background(), server.URL+"/falta")
	assert.ErrorContains(t, err, "status code 404")

	_, err = s.Import(context.Background(), server.URL+"/vacio")
	assert.True(t, errors.Is(err, models.ErrParse))

	_, err = s.Import(context.Background(), "file:///etc/passwd")
	assert.True(t, errors.Is(err, models.ErrParse))
}

func TestImportHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Import(ctx, server.URL)
	assert.Error(t, err)
}

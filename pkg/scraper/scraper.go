// Package scraper imports an existing draft from a web page so it can be
// edited like any other document.
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/xhad/escrito/internal/logger"
	"github.com/xhad/escrito/internal/models"
)

type ScraperConfig struct {
	RateLimit      float64 // requests per second
	Timeout        time.Duration
	UserAgent      string
	AllowedHosts   []string // empty allows any host
	MaxBytes       int64
	IgnorePatterns []string
	OnProgress     func(url string)
}

// Scraper turns the readable blocks of an HTML page into a plain text
// draft with one paragraph per block.
type Scraper struct {
	config  ScraperConfig
	client  *http.Client
	limiter *rate.Limiter
	log     *logger.Logger
}

func NewWithConfig(config ScraperConfig) (*Scraper, error) {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2
	}
	if config.RateLimit < 0 {
		return nil, fmt.Errorf("rate limit cannot be negative")
	}
	if config.UserAgent == "" {
		config.UserAgent = "escrito/1.0"
	}
	if config.MaxBytes == 0 {
		config.MaxBytes = 5 << 20
	}

	return &Scraper{
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		log:     logger.Nop(),
	}, nil
}

func New() *Scraper {
	s, _ := NewWithConfig(ScraperConfig{})
	return s
}

func (s *Scraper) WithLogger(l *logger.Logger) *Scraper {
	s.log = l.Component("scraper")
	return s
}

func (s *Scraper) shouldProcessURL(urlStr string) error {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("missing host")
	}

	if len(s.config.AllowedHosts) > 0 {
		allowed := false
		for _, host := range s.config.AllowedHosts {
			if strings.EqualFold(parsed.Hostname(), host) {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("host %s is not allowed", parsed.Hostname())
		}
	}

	for _, pattern := range s.config.IgnorePatterns {
		if strings.Contains(urlStr, pattern) {
			return fmt.Errorf("url matches ignored pattern %q", pattern)
		}
	}
	return nil
}

func (s *Scraper) cleanContent(content string) string {
	content = strings.Join(strings.Fields(content), " ")

	noisePatterns := []string{
		"Política de cookies",
		"Aceptar cookies",
		"Cookie Policy",
		"Accept Cookies",
	}
	for _, pattern := range noisePatterns {
		content = strings.ReplaceAll(content, pattern, "")
	}

	return strings.TrimSpace(content)
}

// extractParagraphs collects the text blocks of the main content area in
// document order.
func (s *Scraper) extractParagraphs(doc *goquery.Document) []string {
	selectors := []string{
		"main",
		"article",
		".content",
		"#content",
		".documento",
		"#documento",
	}

	root := doc.Find("body")
	for _, selector := range selectors {
		if selected := doc.Find(selector); selected.Length() > 0 {
			root = selected.First()
			break
		}
	}
	root.Find("script, style, nav, header, footer").Remove()

	var paragraphs []string
	root.Find("h1, h2, h3, h4, h5, h6, p, li, blockquote, pre").Each(func(_ int, sel *goquery.Selection) {
		// nested blocks are collected through their own element
		if sel.Find("p, li").Length() > 0 {
			return
		}
		if text := s.cleanContent(sel.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})

	if len(paragraphs) == 0 {
		if text := s.cleanContent(root.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	}
	return paragraphs
}

// Import fetches one page and returns its readable text with paragraphs
// separated by blank lines.
func (s *Scraper) Import(ctx context.Context, urlStr string) (models.SourceDocument, error) {
	if err := s.shouldProcessURL(urlStr); err != nil {
		return models.SourceDocument{}, models.ParseErrorf("la dirección %q no se puede importar: %v", urlStr, err)
	}

	if s.config.OnProgress != nil {
		s.config.OnProgress(urlStr)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return models.SourceDocument{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return models.SourceDocument{}, err
	}
	req.Header.Set("User-Agent", s.config.UserAgent)
	req.Header.Set("Accept", "text/html")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return models.SourceDocument{}, fmt.Errorf("fetching %s: %w", urlStr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.SourceDocument{}, fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, urlStr)
	}

	doc, err := goquery.NewDocumentFromReader(http.MaxBytesReader(nil, resp.Body, s.config.MaxBytes))
	if err != nil {
		return models.SourceDocument{}, fmt.Errorf("parsing %s: %w", urlStr, err)
	}

	paragraphs := s.extractParagraphs(doc)
	if len(paragraphs) == 0 {
		return models.SourceDocument{}, models.ParseErrorf("la página %s no tiene texto para importar", urlStr)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	s.log.Debug().
		Str("url", urlStr).
		Int("paragraphs", len(paragraphs)).
		Dur("duration", time.Since(start)).
		Msg("Imported document")

	return models.SourceDocument{
		ID:      uuid.NewString(),
		URL:     urlStr,
		Title:   title,
		Content: strings.Join(paragraphs, "\n\n"),
		Metadata: map[string]interface{}{
			"time":         time.Now(),
			"contentType":  resp.Header.Get("Content-Type"),
			"lastModified": resp.Header.Get("Last-Modified"),
			"paragraphs":   len(paragraphs),
		},
	}, nil
}

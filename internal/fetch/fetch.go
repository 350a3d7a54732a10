package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"glaspolitics/internal/core"
	"glaspolitics/internal/logger"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/time/rate"
)

// removeSelectors is the boilerplate stripped before generic extraction.
const removeSelectors = "script, style, nav, footer, header, aside, form, iframe, noscript"

// containerSelectors is the cascade tried for the main article body during
// generic extraction, most specific first.
var containerSelectors = []string{
	"article",
	"div.article-content",
	"div.post-content",
	"div.entry-content",
	"div.content",
	"main",
}

// Extractor fetches article pages and pulls out their body text. Extraction
// tries readability first and falls back to a generic DOM strip; whichever
// strategy runs, its output must clear the minimum length gate or the
// article is dropped.
type Extractor struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	minLength  int
	userAgent  string
}

// NewExtractor creates an Extractor. minLength is the per-strategy content
// gate in characters; delay spaces successive page requests.
func NewExtractor(minLength int, timeout, delay time.Duration, userAgent string) *Extractor {
	if minLength <= 0 {
		minLength = 200
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}

	return &Extractor{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 1),
		minLength:  minLength,
		userAgent:  userAgent,
	}
}

// Extract fetches the article's page and fills Content, and when available
// Authors, PublishDate, and TopImage. It returns an error when neither
// extraction strategy yields enough content; the caller drops the article.
func (e *Extractor) Extract(ctx context.Context, article *core.Article) error {
	if err := e.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter interrupted: %w", err)
	}

	body, err := e.fetchPage(ctx, article.Link)
	if err != nil {
		return err
	}

	if e.tryReadability(article, body) {
		return nil
	}
	if e.tryGeneric(article, body) {
		return nil
	}

	return fmt.Errorf("no usable content extracted from %s", article.Link)
}

// fetchPage downloads the raw HTML for a URL.
func (e *Extractor) fetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", pageURL, err)
	}
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch of %s returned status code %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body of %s: %w", pageURL, err)
	}

	return body, nil
}

// tryReadability runs the readability extraction and applies the length
// gate. It reports whether the article was filled.
func (e *Extractor) tryReadability(article *core.Article, body []byte) bool {
	pageURL, _ := url.Parse(article.Link)

	parsed, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		logger.Debug("Readability extraction failed", "url", article.Link, "error", err.Error())
		return false
	}

	content := normalizeText(parsed.TextContent)
	if !e.passesGate(content) {
		logger.Debug("Readability content below gate", "url", article.Link, "length", len([]rune(content)))
		return false
	}

	article.Content = content
	if parsed.Byline != "" {
		article.Authors = []string{strings.TrimSpace(parsed.Byline)}
	}
	if parsed.PublishedTime != nil {
		article.PublishDate = parsed.PublishedTime.UTC().Format(time.RFC3339)
	}
	if parsed.Image != "" {
		article.TopImage = parsed.Image
	}

	return true
}

// tryGeneric strips boilerplate, walks the container cascade, and finally
// falls back to the whole body, applying the length gate to the result.
func (e *Extractor) tryGeneric(article *core.Article, body []byte) bool {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		logger.Debug("Generic extraction failed to parse HTML", "url", article.Link, "error", err.Error())
		return false
	}

	doc.Find(removeSelectors).Remove()

	var content string
	for _, selector := range containerSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		if text := normalizeText(sel.Text()); text != "" {
			content = text
			break
		}
	}
	if content == "" {
		content = normalizeText(doc.Find("body").Text())
	}

	if !e.passesGate(content) {
		return false
	}

	article.Content = content
	if article.TopImage == "" {
		if image, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok {
			article.TopImage = strings.TrimSpace(image)
		}
	}

	return true
}

// passesGate reports whether extracted content meets the minimum length.
// Content exactly at the threshold passes.
func (e *Extractor) passesGate(content string) bool {
	return len([]rune(content)) >= e.minLength
}

// normalizeText collapses runs of whitespace into single spaces.
func normalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

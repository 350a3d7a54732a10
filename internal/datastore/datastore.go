package datastore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"glaspolitics/internal/core"
)

// Client talks to the Supabase-style article store: a PostgREST read
// endpoint for dedup lookups and a save endpoint for publishing articles.
type Client struct {
	baseURL    string
	apiKey     string
	table      string
	saveURL    string
	httpClient *http.Client
}

// NewClient creates a datastore client. baseURL is the Supabase project URL,
// saveURL the API base for the save endpoint.
func NewClient(baseURL, apiKey, table, saveURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if table == "" {
		table = "news_articles"
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		table:      table,
		saveURL:    strings.TrimRight(saveURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Configured reports whether the read endpoint is usable.
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

// SaveConfigured reports whether the save endpoint is usable.
func (c *Client) SaveConfigured() bool {
	return c.saveURL != ""
}

// ExistingLinks returns the set of article URLs stored within the lookback
// window. Callers decide what a lookup failure means; this client just
// reports it.
func (c *Client) ExistingLinks(ctx context.Context, lookbackDays int) (map[string]bool, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("datastore read endpoint is not configured")
	}
	if lookbackDays <= 0 {
		lookbackDays = 30
	}

	cutoff := time.Now().AddDate(0, 0, -lookbackDays).UTC().Format(time.RFC3339)

	query := url.Values{}
	query.Set("select", "url")
	query.Set("created_at", "gte."+cutoff)
	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", c.baseURL, c.table, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create lookup request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query existing links: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read lookup response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("datastore lookup failed (status %d): %s", resp.StatusCode, string(body))
	}

	var rows []struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal lookup response: %w", err)
	}

	links := make(map[string]bool, len(rows))
	for _, row := range rows {
		if row.URL != "" {
			links[row.URL] = true
		}
	}

	return links, nil
}

// savePayload is the wire shape expected by the save endpoint.
type savePayload struct {
	URL            string  `json:"url"`
	Title          string  `json:"title"`
	Content        string  `json:"content"`
	Source         string  `json:"source"`
	PublishedDate  string  `json:"published_date"`
	AISummary      string  `json:"ai_summary"`
	ImpactScore    float64 `json:"impact_score"`
	ScoreBreakdown string  `json:"score_breakdown"`
	Processed      bool    `json:"processed"`
	PoliticianName string  `json:"politician_name,omitempty"`
	Party          string  `json:"party,omitempty"`
}

// SaveArticle publishes one scored article to the save endpoint. A non-2xx
// response is returned as an error; the caller treats it as non-fatal.
func (c *Client) SaveArticle(ctx context.Context, article core.Article) error {
	if !c.SaveConfigured() {
		return fmt.Errorf("save endpoint is not configured")
	}

	breakdown := map[string]any{
		"scores":        article.Scores,
		"overall_score": article.OverallScore,
		"mentions_td":   article.MentionsTD,
	}
	if article.MentionsTD {
		breakdown["td_name"] = article.TDName
		breakdown["party"] = article.Party
	}
	breakdownJSON, err := json.Marshal(breakdown)
	if err != nil {
		return fmt.Errorf("failed to marshal score breakdown: %w", err)
	}

	payload := savePayload{
		URL:            article.Link,
		Title:          article.Title,
		Content:        article.Content,
		Source:         article.Source,
		PublishedDate:  article.Published,
		AISummary:      article.AISummary,
		ImpactScore:    article.OverallScore,
		ScoreBreakdown: string(breakdownJSON),
		Processed:      true,
	}
	if payload.PublishedDate == "" {
		payload.PublishedDate = article.PublishDate
	}
	if article.MentionsTD {
		payload.PoliticianName = article.TDName
		payload.Party = article.Party
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal save payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.saveURL+"/news-feed/save", bytes.NewBuffer(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create save request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to save article: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("save endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

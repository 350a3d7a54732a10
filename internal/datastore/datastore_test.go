package datastore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"glaspolitics/internal/core"
)

func TestConfigured(t *testing.T) {
	c := NewClient("https://proj.supabase.co", "key", "", "", 0)
	if !c.Configured() {
		t.Error("Expected client with URL and key to be configured")
	}
	if c.SaveConfigured() {
		t.Error("Expected save endpoint unconfigured without a save URL")
	}

	c = NewClient("", "", "", "http://api.example.ie/api", 0)
	if c.Configured() {
		t.Error("Expected read endpoint unconfigured without URL and key")
	}
	if !c.SaveConfigured() {
		t.Error("Expected save endpoint configured")
	}
}

func TestExistingLinks(t *testing.T) {
	var gotPath, gotAPIKey, gotAuth string
	var gotQuery map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		gotAPIKey = r.Header.Get("apikey")
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `[{"url": "https://example.ie/a"}, {"url": "https://example.ie/b"}, {"url": ""}]`)
	}))
	defer server.Close()

	c := NewClient(server.URL, "secret", "news_articles", "", 0)
	links, err := c.ExistingLinks(context.Background(), 30)
	if err != nil {
		t.Fatalf("ExistingLinks failed: %v", err)
	}

	if gotPath != "/rest/v1/news_articles" {
		t.Errorf("Expected PostgREST table path, got %q", gotPath)
	}
	if gotQuery["select"][0] != "url" {
		t.Errorf("Expected select=url, got %v", gotQuery["select"])
	}
	if !strings.HasPrefix(gotQuery["created_at"][0], "gte.") {
		t.Errorf("Expected created_at gte filter, got %v", gotQuery["created_at"])
	}
	cutoff := strings.TrimPrefix(gotQuery["created_at"][0], "gte.")
	parsed, err := time.Parse(time.RFC3339, cutoff)
	if err != nil {
		t.Errorf("Expected RFC3339 cutoff, got %q: %v", cutoff, err)
	}
	expectedCutoff := time.Now().AddDate(0, 0, -30)
	if parsed.Before(expectedCutoff.Add(-time.Hour)) || parsed.After(expectedCutoff.Add(time.Hour)) {
		t.Errorf("Expected cutoff about 30 days ago, got %v", parsed)
	}
	if gotAPIKey != "secret" {
		t.Errorf("Expected apikey header, got %q", gotAPIKey)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Expected bearer auth header, got %q", gotAuth)
	}

	if len(links) != 2 {
		t.Fatalf("Expected 2 links (empty URL skipped), got %d", len(links))
	}
	if !links["https://example.ie/a"] || !links["https://example.ie/b"] {
		t.Errorf("Expected both URLs in the set, got %v", links)
	}
}

func TestExistingLinks_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "permission denied", http.StatusForbidden)
	}))
	defer server.Close()

	c := NewClient(server.URL, "secret", "", "", 0)
	if _, err := c.ExistingLinks(context.Background(), 30); err == nil {
		t.Error("Expected error for non-200 lookup response")
	}
}

func TestExistingLinks_NotConfigured(t *testing.T) {
	c := NewClient("", "", "", "", 0)
	if _, err := c.ExistingLinks(context.Background(), 30); err == nil {
		t.Error("Expected error when the read endpoint is not configured")
	}
}

func TestSaveArticle(t *testing.T) {
	var gotPath, gotContentType string
	var gotPayload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("Failed to decode save payload: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	c := NewClient("", "", "", server.URL+"/api", 0)
	article := core.Article{
		Title:        "Cabinet approves housing plan",
		Link:         "https://example.ie/housing",
		Published:    "2026-08-27T10:00:00Z",
		Source:       "RTE News",
		Content:      "Full article text.",
		AISummary:    "The cabinet approved a new housing plan.",
		Scores:       map[string]float64{"political_impact": 8},
		OverallScore: 7.5,
		MentionsTD:   true,
		TDName:       "Darragh O'Brien",
		Party:        "Fianna Fáil",
	}

	if err := c.SaveArticle(context.Background(), article); err != nil {
		t.Fatalf("SaveArticle failed: %v", err)
	}

	if gotPath != "/api/news-feed/save" {
		t.Errorf("Expected save endpoint path, got %q", gotPath)
	}
	if gotContentType != "application/json" {
		t.Errorf("Expected JSON content type, got %q", gotContentType)
	}
	if gotPayload["url"] != article.Link {
		t.Errorf("Expected url %q, got %v", article.Link, gotPayload["url"])
	}
	if gotPayload["impact_score"] != 7.5 {
		t.Errorf("Expected impact_score 7.5, got %v", gotPayload["impact_score"])
	}
	if gotPayload["processed"] != true {
		t.Errorf("Expected processed true, got %v", gotPayload["processed"])
	}
	if gotPayload["politician_name"] != "Darragh O'Brien" {
		t.Errorf("Expected politician_name, got %v", gotPayload["politician_name"])
	}

	breakdownText, ok := gotPayload["score_breakdown"].(string)
	if !ok {
		t.Fatalf("Expected score_breakdown as a JSON string, got %T", gotPayload["score_breakdown"])
	}
	var breakdown map[string]any
	if err := json.Unmarshal([]byte(breakdownText), &breakdown); err != nil {
		t.Fatalf("score_breakdown is not valid JSON: %v", err)
	}
	if breakdown["overall_score"] != 7.5 {
		t.Errorf("Expected overall_score in breakdown, got %v", breakdown["overall_score"])
	}
	if breakdown["td_name"] != "Darragh O'Brien" {
		t.Errorf("Expected td_name in breakdown, got %v", breakdown["td_name"])
	}
}

func TestSaveArticle_NoTDOmitsFields(t *testing.T) {
	var gotPayload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
	}))
	defer server.Close()

	c := NewClient("", "", "", server.URL, 0)
	article := core.Article{
		Title:        "Budget coverage",
		Link:         "https://example.ie/budget",
		OverallScore: 5,
	}

	if err := c.SaveArticle(context.Background(), article); err != nil {
		t.Fatalf("SaveArticle failed: %v", err)
	}

	if _, present := gotPayload["politician_name"]; present {
		t.Error("Expected politician_name omitted when no TD is mentioned")
	}
	if _, present := gotPayload["party"]; present {
		t.Error("Expected party omitted when no TD is mentioned")
	}
}

func TestSaveArticle_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient("", "", "", server.URL, 0)
	err := c.SaveArticle(context.Background(), core.Article{Link: "https://example.ie/x"})
	if err == nil {
		t.Fatal("Expected error for 500 response")
	}
	if !strings.Contains(err.Error(), "status 500") {
		t.Errorf("Expected status in error, got: %v", err)
	}
}

func TestSaveArticle_NotConfigured(t *testing.T) {
	c := NewClient("", "", "", "", 0)
	if err := c.SaveArticle(context.Background(), core.Article{}); err == nil {
		t.Error("Expected error when the save endpoint is not configured")
	}
}

func TestSaveArticle_FallsBackToPublishDate(t *testing.T) {
	var gotPayload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
	}))
	defer server.Close()

	c := NewClient("", "", "", server.URL, 0)
	article := core.Article{
		Link:        "https://example.ie/x",
		PublishDate: "2026-08-20T09:00:00Z",
	}

	if err := c.SaveArticle(context.Background(), article); err != nil {
		t.Fatalf("SaveArticle failed: %v", err)
	}
	if gotPayload["published_date"] != "2026-08-20T09:00:00Z" {
		t.Errorf("Expected page publish date used when feed date is empty, got %v", gotPayload["published_date"])
	}
}

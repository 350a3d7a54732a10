package persistence

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"glaspolitics/internal/core"
)

func TestWriteSnapshot(t *testing.T) {
	dir := t.TempDir()
	stats := core.RunStats{
		StartedAt:        time.Now().UTC().Add(-time.Minute),
		CompletedAt:      time.Now().UTC(),
		DurationSeconds:  60,
		RSSArticlesFound: 40,
		ScoredArticles:   12,
		TopArticlesCount: 2,
		Errors:           []string{},
	}
	top := []core.Article{
		{Title: "First", Link: "https://example.ie/1", OverallScore: 8.2},
		{Title: "Second", Link: "https://example.ie/2", OverallScore: 7.1},
	}

	path, err := WriteSnapshot(dir, stats, top)
	if err != nil {
		t.Fatalf("WriteSnapshot failed: %v", err)
	}

	namePattern := regexp.MustCompile(`^irish_politics_top_articles_\d{8}_\d{6}\.json$`)
	if !namePattern.MatchString(filepath.Base(path)) {
		t.Errorf("Unexpected snapshot filename: %s", filepath.Base(path))
	}

	// Both the timestamped file and the fixed latest file carry the snapshot.
	for _, p := range []string{path, LatestPath(dir)} {
		snapshot, err := ReadSnapshot(p)
		if err != nil {
			t.Fatalf("ReadSnapshot(%s) failed: %v", p, err)
		}
		if snapshot.Statistics.RSSArticlesFound != 40 {
			t.Errorf("Expected statistics round-tripped, got %d", snapshot.Statistics.RSSArticlesFound)
		}
		if len(snapshot.TopArticles) != 2 || snapshot.TopArticles[0].Title != "First" {
			t.Errorf("Expected top articles round-tripped, got %+v", snapshot.TopArticles)
		}
		if _, err := time.Parse(time.RFC3339, snapshot.GeneratedAt); err != nil {
			t.Errorf("Expected RFC3339 generated_at, got %q", snapshot.GeneratedAt)
		}
	}
}

func TestWriteSnapshot_TopLevelKeys(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteSnapshot(dir, core.RunStats{Errors: []string{}}, nil)
	if err != nil {
		t.Fatalf("WriteSnapshot failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read snapshot: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Snapshot is not valid JSON: %v", err)
	}
	for _, key := range []string{"generated_at", "statistics", "top_articles"} {
		if _, present := raw[key]; !present {
			t.Errorf("Expected top-level key %q", key)
		}
	}

	// No top articles still serializes as an empty list, not null.
	if string(raw["top_articles"]) == "null" {
		t.Error("Expected top_articles as an empty array, got null")
	}
}

func TestWriteSnapshot_CreatesOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "output")

	if _, err := WriteSnapshot(dir, core.RunStats{}, nil); err != nil {
		t.Fatalf("Expected output directory created, got: %v", err)
	}
}

func TestReadSnapshot_MissingFile(t *testing.T) {
	if _, err := ReadSnapshot(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Expected error for missing snapshot")
	}
}

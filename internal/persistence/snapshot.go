package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"glaspolitics/internal/core"
)

const (
	timestampedPattern = "irish_politics_top_articles_%s.json"
	latestFilename     = "latest_irish_politics.json"
)

// Snapshot is the local JSON record of one pipeline run.
type Snapshot struct {
	GeneratedAt string         `json:"generated_at"`
	Statistics  core.RunStats  `json:"statistics"`
	TopArticles []core.Article `json:"top_articles"`
}

// WriteSnapshot writes the run's snapshot twice: a timestamped file for
// history and a fixed "latest" file consumers can poll. It returns the
// timestamped path. The snapshot is written on every run, including runs
// with no top articles.
func WriteSnapshot(outputDir string, stats core.RunStats, topArticles []core.Article) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}

	if topArticles == nil {
		topArticles = []core.Article{}
	}

	now := time.Now()
	snapshot := Snapshot{
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Statistics:  stats,
		TopArticles: topArticles,
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	timestampedPath := filepath.Join(outputDir, fmt.Sprintf(timestampedPattern, now.Format("20060102_150405")))
	if err := os.WriteFile(timestampedPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write snapshot %s: %w", timestampedPath, err)
	}

	latestPath := filepath.Join(outputDir, latestFilename)
	if err := os.WriteFile(latestPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write snapshot %s: %w", latestPath, err)
	}

	return timestampedPath, nil
}

// ReadSnapshot loads a snapshot file.
func ReadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", path, err)
	}

	return &snapshot, nil
}

// LatestPath returns the fixed path of the most recent snapshot under
// outputDir.
func LatestPath(outputDir string) string {
	return filepath.Join(outputDir, latestFilename)
}

package core

import "time"

// Article represents a news item moving through the pipeline. It is keyed by
// Link and enriched in place as stages complete: fields are only ever added,
// never rewritten by a later stage.
type Article struct {
	ID        string `json:"id"`                  // Deterministic identifier derived from the link
	Title     string `json:"title"`               // Headline from the feed
	Link      string `json:"link"`                // Canonical article URL, the dedup key
	Published string `json:"published,omitempty"` // Feed publish time, RFC 3339, empty when the feed omits it
	Summary   string `json:"summary,omitempty"`   // Feed-provided description
	Source    string `json:"source"`              // Name of the feed the article came from

	// Filled by content extraction.
	Content     string   `json:"content,omitempty"`      // Extracted article body text
	Authors     []string `json:"authors,omitempty"`      // Bylines when the page exposes them
	PublishDate string   `json:"publish_date,omitempty"` // Publish date from the page, when available
	TopImage    string   `json:"top_image,omitempty"`    // Lead image URL from the page

	// Filled by scoring.
	AISummary    string             `json:"ai_summary,omitempty"`    // Model-written summary
	Scores       map[string]float64 `json:"scores,omitempty"`        // Per-dimension scores, 0-10
	OverallScore float64            `json:"overall_score,omitempty"` // Weighted overall score, 0-10
	MentionsTD   bool               `json:"mentions_td,omitempty"`   // Whether a TD is named in the article
	TDName       string             `json:"td_name,omitempty"`       // The TD's name, when MentionsTD
	Party        string             `json:"party,omitempty"`         // The TD's party, when MentionsTD

	// Filled by image synthesis.
	SceneDescription string `json:"scene_description,omitempty"`  // One-line scene used for the image prompt
	GeneratedImage   string `json:"ai_generated_image,omitempty"` // Local serving path or remote URL of the generated image
	ImageURL         string `json:"imageUrl,omitempty"`           // Display image: generated when available, else TopImage
}

// RunStats captures the outcome of a single pipeline run. Every field is
// emitted on every run, including runs where a stage produced nothing.
type RunStats struct {
	StartedAt        time.Time `json:"started_at"`
	CompletedAt      time.Time `json:"completed_at"`
	DurationSeconds  float64   `json:"duration_seconds"`
	RSSArticlesFound int       `json:"rss_articles_found"`
	NewArticles      int       `json:"new_articles"`
	SkippedExisting  int       `json:"skipped_existing"`
	FilteredArticles int       `json:"filtered_articles"`
	ScrapedArticles  int       `json:"scraped_articles"`
	ScoredArticles   int       `json:"scored_articles"`
	TopArticlesCount int       `json:"top_articles_count"`
	SavedToDatabase  int       `json:"saved_to_database"`
	Errors           []string  `json:"errors"`
}

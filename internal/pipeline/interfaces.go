package pipeline

import (
	"context"

	"glaspolitics/internal/core"
)

// FeedIngestor collects candidate articles from the configured feeds.
type FeedIngestor interface {
	// FetchAll fetches every enabled feed and returns fresh, title-deduplicated
	// articles. Individual feed failures are absorbed, not returned.
	FetchAll(ctx context.Context) []core.Article
}

// LinkStore answers which links are already known and persists scored articles.
type LinkStore interface {
	// Configured reports whether the store can be queried for existing links.
	Configured() bool

	// SaveConfigured reports whether scored articles can be persisted.
	SaveConfigured() bool

	// ExistingLinks returns the set of article URLs stored within the lookback
	// window.
	ExistingLinks(ctx context.Context, lookbackDays int) (map[string]bool, error)

	// SaveArticle persists one scored article.
	SaveArticle(ctx context.Context, article core.Article) error
}

// RelevanceFilter drops articles outside the topic of interest.
type RelevanceFilter interface {
	// Filter returns the subset of articles judged relevant. When a batch
	// cannot be classified the whole batch is kept.
	Filter(ctx context.Context, articles []core.Article) []core.Article
}

// ContentExtractor fills in the article body from its web page.
type ContentExtractor interface {
	// Extract fetches the article page and populates content fields in place.
	Extract(ctx context.Context, article *core.Article) error
}

// ArticleScorer evaluates one article and writes the results onto it.
type ArticleScorer interface {
	// Score populates the article's summary, per-dimension scores, and TD
	// mention fields. A scoring failure leaves the article unmodified.
	Score(ctx context.Context, article *core.Article) error
}

// Illustrator attaches a generated image to an article (optional stage).
type Illustrator interface {
	// Illustrate never fails the article: on any error the article keeps its
	// original image fields.
	Illustrate(ctx context.Context, article *core.Article)
}

// SnapshotWriter records the run outcome locally.
type SnapshotWriter interface {
	// Write persists the run statistics and top articles, returning the path
	// of the written snapshot.
	Write(stats core.RunStats, topArticles []core.Article) (string, error)
}

package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"glaspolitics/internal/core"
	"glaspolitics/internal/logger"
	"glaspolitics/internal/rank"
)

// Stage identifies a phase of the run for progress reporting.
type Stage string

const (
	StageIngest     Stage = "ingest"
	StageDedup      Stage = "dedup"
	StageFilter     Stage = "filter"
	StageScrape     Stage = "scrape"
	StageScore      Stage = "score"
	StageRank       Stage = "rank"
	StageIllustrate Stage = "illustrate"
	StageSave       Stage = "save"
	StageSnapshot   Stage = "snapshot"
)

// Event is a progress notification emitted as the run advances.
type Event struct {
	Stage   Stage
	Message string
	Current int
	Total   int
}

// Pipeline orchestrates the end-to-end aggregation run. Stages execute as
// strict barriers: each stage consumes the full output of the previous one
// before the next begins.
type Pipeline struct {
	ingestor    FeedIngestor
	store       LinkStore
	filter      RelevanceFilter
	extractor   ContentExtractor
	scorer      ArticleScorer
	illustrator Illustrator // Optional
	snapshots   SnapshotWriter

	config *Config

	// Progress receives stage notifications when set. It is called from the
	// run goroutine only.
	Progress func(Event)
}

// Config holds pipeline tuning parameters.
type Config struct {
	LookbackDays      int // Dedup window against the link store
	MaxScrapeArticles int // Cap on articles sent to content extraction
	ScrapeWorkers     int // Concurrent extraction workers
	TopArticlesCount  int // Articles kept after ranking
}

// DefaultConfig returns the standard run parameters.
func DefaultConfig() *Config {
	return &Config{
		LookbackDays:      30,
		MaxScrapeArticles: 30,
		ScrapeWorkers:     3,
		TopArticlesCount:  5,
	}
}

// NewPipeline wires the stages together. The illustrator may be nil, which
// skips image synthesis.
func NewPipeline(
	ingestor FeedIngestor,
	store LinkStore,
	filter RelevanceFilter,
	extractor ContentExtractor,
	scorer ArticleScorer,
	illustrator Illustrator,
	snapshots SnapshotWriter,
	config *Config,
) *Pipeline {
	if config == nil {
		config = DefaultConfig()
	}

	return &Pipeline{
		ingestor:    ingestor,
		store:       store,
		filter:      filter,
		extractor:   extractor,
		scorer:      scorer,
		illustrator: illustrator,
		snapshots:   snapshots,
		config:      config,
	}
}

// RunResult contains the outcome of one aggregation run.
type RunResult struct {
	Stats        core.RunStats
	TopArticles  []core.Article
	SnapshotPath string
}

// Run executes the full pipeline. The returned result always carries complete
// run statistics, including runs where an early stage produced nothing. The
// snapshot is written unconditionally before returning.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	startTime := time.Now()
	stats := core.RunStats{
		StartedAt: startTime.UTC(),
		Errors:    []string{},
	}

	// Stage 1: feed ingestion.
	p.emit(StageIngest, "Fetching RSS feeds", 0, 0)
	articles := p.ingestor.FetchAll(ctx)
	stats.RSSArticlesFound = len(articles)
	p.emit(StageIngest, fmt.Sprintf("Found %d articles", len(articles)), len(articles), len(articles))

	// Stage 2: dedup against the link store. A store failure keeps every
	// article in play rather than silently dropping news.
	p.emit(StageDedup, "Checking for previously seen articles", 0, len(articles))
	articles = p.dedup(ctx, articles, &stats)
	stats.NewArticles = len(articles)
	p.emit(StageDedup, fmt.Sprintf("%d new, %d already seen", stats.NewArticles, stats.SkippedExisting), len(articles), len(articles))

	// Stage 3: relevance filtering.
	p.emit(StageFilter, "Filtering for Irish political relevance", 0, len(articles))
	articles = p.filter.Filter(ctx, articles)
	stats.FilteredArticles = len(articles)
	p.emit(StageFilter, fmt.Sprintf("%d relevant articles", len(articles)), len(articles), len(articles))

	// Stage 4: content extraction, concurrent and capped. Articles whose
	// pages cannot be extracted are dropped here.
	if len(articles) > p.config.MaxScrapeArticles {
		articles = articles[:p.config.MaxScrapeArticles]
	}
	p.emit(StageScrape, "Extracting article content", 0, len(articles))
	articles = p.scrapeAll(ctx, articles, &stats)
	stats.ScrapedArticles = len(articles)
	p.emit(StageScrape, fmt.Sprintf("Extracted %d articles", len(articles)), len(articles), len(articles))

	// Stage 5: AI scoring. Articles the model cannot score are dropped.
	p.emit(StageScore, "Scoring articles", 0, len(articles))
	articles = p.scoreAll(ctx, articles, &stats)
	stats.ScoredArticles = len(articles)
	p.emit(StageScore, fmt.Sprintf("Scored %d articles", len(articles)), len(articles), len(articles))

	// Stage 6: ranking.
	topArticles := rank.Top(articles, p.config.TopArticlesCount)
	stats.TopArticlesCount = len(topArticles)
	p.emit(StageRank, fmt.Sprintf("Selected top %d articles", len(topArticles)), len(topArticles), len(topArticles))

	// Stage 7: optional image synthesis. Never removes an article.
	if p.illustrator != nil {
		for i := range topArticles {
			p.emit(StageIllustrate, fmt.Sprintf("Generating image for: %s", topArticles[i].Title), i+1, len(topArticles))
			p.illustrator.Illustrate(ctx, &topArticles[i])
		}
	}

	// Stage 8: persistence. Save failures are counted, not fatal.
	if p.store.SaveConfigured() {
		for i := range topArticles {
			p.emit(StageSave, fmt.Sprintf("Saving: %s", topArticles[i].Title), i+1, len(topArticles))
			if err := p.store.SaveArticle(ctx, topArticles[i]); err != nil {
				logger.Error("Failed to save article", err, "link", topArticles[i].Link)
				stats.Errors = append(stats.Errors, fmt.Sprintf("save failed for %s: %v", topArticles[i].Link, err))
				continue
			}
			stats.SavedToDatabase++
		}
	}

	stats.CompletedAt = time.Now().UTC()
	stats.DurationSeconds = stats.CompletedAt.Sub(stats.StartedAt).Seconds()

	// The snapshot is the run's record and is written even when everything
	// upstream failed.
	p.emit(StageSnapshot, "Writing snapshot", 0, 0)
	snapshotPath, err := p.snapshots.Write(stats, topArticles)
	if err != nil {
		logger.Error("Failed to write snapshot", err)
		stats.Errors = append(stats.Errors, fmt.Sprintf("snapshot write failed: %v", err))
	}

	return &RunResult{
		Stats:        stats,
		TopArticles:  topArticles,
		SnapshotPath: snapshotPath,
	}, nil
}

// dedup removes articles whose links are already in the store. When the store
// is unreachable every article passes through.
func (p *Pipeline) dedup(ctx context.Context, articles []core.Article, stats *core.RunStats) []core.Article {
	if !p.store.Configured() {
		logger.Debug("Link store not configured, skipping dedup")
		return articles
	}

	existing, err := p.store.ExistingLinks(ctx, p.config.LookbackDays)
	if err != nil {
		logger.Warn("Existing-links check failed, keeping all articles", "error", err.Error())
		stats.Errors = append(stats.Errors, fmt.Sprintf("existing-links check failed: %v", err))
		return articles
	}

	fresh := make([]core.Article, 0, len(articles))
	for _, article := range articles {
		if existing[article.Link] {
			stats.SkippedExisting++
			continue
		}
		fresh = append(fresh, article)
	}
	return fresh
}

// scrapeAll runs content extraction across a bounded worker pool. Input order
// is preserved in the output.
func (p *Pipeline) scrapeAll(ctx context.Context, articles []core.Article, stats *core.RunStats) []core.Article {
	workers := p.config.ScrapeWorkers
	if workers < 1 {
		workers = 1
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make([]*core.Article, len(articles))
		indices = make(chan int)
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				article := articles[i]
				if err := p.extractor.Extract(ctx, &article); err != nil {
					logger.Warn("Content extraction failed", "link", article.Link, "error", err.Error())
					mu.Lock()
					stats.Errors = append(stats.Errors, fmt.Sprintf("extraction failed for %s: %v", article.Link, err))
					mu.Unlock()
					continue
				}
				results[i] = &article
			}
		}()
	}

	for i := range articles {
		indices <- i
	}
	close(indices)
	wg.Wait()

	scraped := make([]core.Article, 0, len(articles))
	for _, r := range results {
		if r != nil {
			scraped = append(scraped, *r)
		}
	}
	return scraped
}

// scoreAll scores articles one at a time. Sequential on purpose: the model
// API enforces per-key rate limits.
func (p *Pipeline) scoreAll(ctx context.Context, articles []core.Article, stats *core.RunStats) []core.Article {
	scored := make([]core.Article, 0, len(articles))
	for i := range articles {
		p.emit(StageScore, fmt.Sprintf("Scoring: %s", articles[i].Title), i+1, len(articles))
		if err := p.scorer.Score(ctx, &articles[i]); err != nil {
			logger.Warn("Scoring failed", "link", articles[i].Link, "error", err.Error())
			stats.Errors = append(stats.Errors, fmt.Sprintf("scoring failed for %s: %v", articles[i].Link, err))
			continue
		}
		scored = append(scored, articles[i])
	}
	return scored
}

func (p *Pipeline) emit(stage Stage, message string, current, total int) {
	logger.Info(message, "stage", string(stage))
	if p.Progress != nil {
		p.Progress(Event{Stage: stage, Message: message, Current: current, Total: total})
	}
}

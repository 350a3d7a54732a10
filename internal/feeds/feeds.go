package feeds

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"glaspolitics/internal/core"
	"glaspolitics/internal/logger"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
	"gopkg.in/yaml.v3"
)

// Source is a single configured RSS/Atom feed.
type Source struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

type sourcesFile struct {
	Feeds []Source `yaml:"feeds"`
}

// LoadSources reads the feed source list from a YAML file.
func LoadSources(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file %s: %w", path, err)
	}

	var f sourcesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse sources file %s: %w", path, err)
	}

	if len(f.Feeds) == 0 {
		return nil, fmt.Errorf("sources file %s lists no feeds", path)
	}

	return f.Feeds, nil
}

// Ingestor fetches configured feeds and normalizes their items into articles.
type Ingestor struct {
	sources   []Source
	parser    *gofeed.Parser
	maxAge    time.Duration
	perFeedTO time.Duration
}

// NewIngestor creates an Ingestor over the given sources. maxAgeDays bounds
// how old a feed item may be; items older than that are discarded.
func NewIngestor(sources []Source, userAgent string, maxAgeDays int, timeout time.Duration) *Ingestor {
	parser := gofeed.NewParser()
	if userAgent != "" {
		parser.UserAgent = userAgent
	}
	if maxAgeDays <= 0 {
		maxAgeDays = 7
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Ingestor{
		sources:   sources,
		parser:    parser,
		maxAge:    time.Duration(maxAgeDays) * 24 * time.Hour,
		perFeedTO: timeout,
	}
}

// FetchAll fetches every enabled source and returns the combined article
// batch. A failing source is logged and skipped; it never aborts the run.
// Duplicate titles within the batch are collapsed, first occurrence wins.
func (i *Ingestor) FetchAll(ctx context.Context) []core.Article {
	cutoff := time.Now().Add(-i.maxAge)
	seenTitles := make(map[string]bool)
	var articles []core.Article

	for _, source := range i.sources {
		if !source.Enabled {
			continue
		}

		items, err := i.fetchOne(ctx, source)
		if err != nil {
			logger.Error("Failed to fetch feed", err, "source", source.Name, "url", source.URL)
			continue
		}

		kept := 0
		for _, article := range items {
			if article.Published != "" {
				if published, err := time.Parse(time.RFC3339, article.Published); err == nil && published.Before(cutoff) {
					continue
				}
			}

			key := normalizeTitle(article.Title)
			if key == "" || seenTitles[key] {
				continue
			}
			seenTitles[key] = true
			articles = append(articles, article)
			kept++
		}

		logger.Info("Fetched feed", "source", source.Name, "items", len(items), "kept", kept)
	}

	return articles
}

// fetchOne parses a single feed under the per-feed timeout.
func (i *Ingestor) fetchOne(ctx context.Context, source Source) ([]core.Article, error) {
	feedCtx, cancel := context.WithTimeout(ctx, i.perFeedTO)
	defer cancel()

	feed, err := i.parser.ParseURLWithContext(source.URL, feedCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", source.URL, err)
	}

	articles := make([]core.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Link == "" || item.Title == "" {
			continue
		}

		article := core.Article{
			ID:      ArticleID(item.Link),
			Title:   strings.TrimSpace(item.Title),
			Link:    item.Link,
			Summary: strings.TrimSpace(item.Description),
			Source:  source.Name,
		}
		if ts := itemTime(item); ts != nil {
			article.Published = ts.UTC().Format(time.RFC3339)
		}
		articles = append(articles, article)
	}

	return articles, nil
}

// ArticleID derives a stable identifier from the article link.
func ArticleID(link string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(link)).String()
}

func itemTime(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}
	return item.UpdatedParsed
}

// normalizeTitle produces the intra-batch dedup key for a headline.
func normalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

/*
Copyright © 2025 Your Name

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"glaspolitics/internal/config"
	"glaspolitics/internal/datastore"
	"glaspolitics/internal/feeds"
	"glaspolitics/internal/fetch"
	"glaspolitics/internal/llm"
	"glaspolitics/internal/logger"
	"glaspolitics/internal/persistence"
	"glaspolitics/internal/pipeline"
	"glaspolitics/internal/relevance"
	"glaspolitics/internal/tui"
	"glaspolitics/internal/visual"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "glaspolitics",
	Short: "Glas Politics aggregates, filters, and scores Irish political news.",
	Long: `Glas Politics pulls articles from Irish news RSS feeds, filters them
for national political relevance, extracts and scores their content with an
LLM, and publishes the top stories to a database and a local JSON snapshot.

Run a full aggregation pass:
  glaspolitics run
  glaspolitics run --interactive`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.glaspolitics.yaml)")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute a full aggregation run",
	Long: `Execute the complete pipeline: fetch feeds, skip already stored
articles, filter for Irish political relevance, extract content, score with
the LLM, rank, optionally generate images, save to the database, and write a
JSON snapshot.

A snapshot with run statistics is written even when no articles survive.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		interactive, _ := cmd.Flags().GetBool("interactive")
		return runPipeline(cmd.Context(), interactive)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolP("interactive", "i", false, "show live progress in a terminal UI")
}

func runPipeline(ctx context.Context, interactive bool) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	logger.Init()

	llmClient, err := llm.NewClient(ctx, cfg.AI.Gemini.APIKey, cfg.AI.Gemini.Model, cfg.AI.Gemini.Temperature)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer llmClient.Close()

	sources, err := feeds.LoadSources(cfg.Feeds.SourcesFile)
	if err != nil {
		return fmt.Errorf("failed to load feed sources: %w", err)
	}

	ingestor := feeds.NewIngestor(sources, cfg.Feeds.UserAgent, cfg.Feeds.MaxAgeDays,
		config.Timeout(cfg.Feeds.Timeout, 15*time.Second))

	store := datastore.NewClient(cfg.Datastore.URL, cfg.Datastore.APIKey, cfg.Datastore.Table,
		cfg.Datastore.SaveURL, config.Timeout(cfg.Datastore.Timeout, 10*time.Second))

	filter := relevance.NewFilter(llmClient, cfg.Filter.BatchSize)

	extractor := fetch.NewExtractor(cfg.Scraper.MinContentLength,
		config.Timeout(cfg.Scraper.Timeout, 10*time.Second),
		time.Duration(cfg.Scraper.DelaySeconds*float64(time.Second)),
		cfg.Feeds.UserAgent)

	scorer := &pipeline.LLMScorer{Client: llmClient, MaxContentChars: cfg.Scorer.MaxContentChars}

	var illustrator pipeline.Illustrator
	if cfg.Images.Enabled && cfg.AI.OpenAI.APIKey != "" {
		imageClient := visual.NewImageClient(cfg.AI.OpenAI.APIKey, cfg.AI.OpenAI.BaseURL,
			config.Timeout(cfg.AI.OpenAI.Timeout, 60*time.Second))
		illustrator = visual.NewService(llmClient, imageClient, visual.Options{
			Model:     cfg.Images.Model,
			Size:      cfg.Images.Size,
			Quality:   cfg.Images.Quality,
			Style:     cfg.Images.Style,
			OutputDir: cfg.Images.OutputDir,
		})
	}

	snapshots := &pipeline.FileSnapshots{OutputDir: cfg.Output.Directory}

	p := pipeline.NewPipeline(ingestor, store, filter, extractor, scorer, illustrator, snapshots,
		&pipeline.Config{
			LookbackDays:      cfg.Datastore.LookbackDays,
			MaxScrapeArticles: cfg.Scraper.MaxArticles,
			ScrapeWorkers:     cfg.Scraper.Workers,
			TopArticlesCount:  cfg.Output.TopArticlesCount,
		})

	var result *pipeline.RunResult
	if interactive {
		result, err = tui.Run(ctx, p)
	} else {
		result, err = p.Run(ctx)
	}
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}

	printRunSummary(result)
	return nil
}

func printRunSummary(result *pipeline.RunResult) {
	stats := result.Stats
	fmt.Printf("Run finished in %.1fs\n", stats.DurationSeconds)
	fmt.Printf("  Feeds:     %d articles found\n", stats.RSSArticlesFound)
	fmt.Printf("  New:       %d (%d already stored)\n", stats.NewArticles, stats.SkippedExisting)
	fmt.Printf("  Relevant:  %d\n", stats.FilteredArticles)
	fmt.Printf("  Extracted: %d\n", stats.ScrapedArticles)
	fmt.Printf("  Scored:    %d\n", stats.ScoredArticles)
	fmt.Printf("  Saved:     %d\n", stats.SavedToDatabase)
	if len(stats.Errors) > 0 {
		fmt.Printf("  Errors:    %d\n", len(stats.Errors))
	}
	for i, article := range result.TopArticles {
		fmt.Printf("  %d. [%.1f] %s\n", i+1, article.OverallScore, article.Title)
	}
	if result.SnapshotPath != "" {
		fmt.Printf("Snapshot: %s\n", result.SnapshotPath)
	}
}

var feedsCmd = &cobra.Command{
	Use:   "feeds",
	Short: "List the configured RSS feed sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		sources, err := feeds.LoadSources(cfg.Feeds.SourcesFile)
		if err != nil {
			return fmt.Errorf("failed to load feed sources: %w", err)
		}

		for _, source := range sources {
			state := "enabled"
			if !source.Enabled {
				state = "disabled"
			}
			fmt.Printf("%-10s %-30s %s\n", state, source.Name, source.URL)
		}
		return nil
	},
}

var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the most recent run's top articles",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		snapshot, err := persistence.ReadSnapshot(persistence.LatestPath(cfg.Output.Directory))
		if err != nil {
			return fmt.Errorf("no snapshot available: %w", err)
		}

		fmt.Printf("Generated: %s\n", snapshot.GeneratedAt)
		fmt.Printf("Articles:  %d found, %d scored\n",
			snapshot.Statistics.RSSArticlesFound, snapshot.Statistics.ScoredArticles)
		for i, article := range snapshot.TopArticles {
			fmt.Printf("%d. [%.1f] %s\n", i+1, article.OverallScore, article.Title)
			fmt.Printf("   %s\n", article.Link)
			if article.AISummary != "" {
				fmt.Printf("   %s\n", article.AISummary)
			}
		}
		return nil
	},
}

var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("glaspolitics %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(feedsCmd)
	rootCmd.AddCommand(latestCmd)
	rootCmd.AddCommand(versionCmd)
}

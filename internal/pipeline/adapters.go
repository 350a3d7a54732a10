package pipeline

import (
	"context"

	"glaspolitics/internal/core"
	"glaspolitics/internal/llm"
	"glaspolitics/internal/persistence"
)

// LLMScorer adapts the LLM client to the ArticleScorer interface, binding the
// configured content truncation limit.
type LLMScorer struct {
	Client          *llm.Client
	MaxContentChars int
}

// Score asks the model to evaluate the article and writes the result onto it.
func (s *LLMScorer) Score(ctx context.Context, article *core.Article) error {
	result, err := s.Client.ScoreArticle(ctx, *article, s.MaxContentChars)
	if err != nil {
		return err
	}

	article.AISummary = result.Summary
	article.Scores = result.Scores
	article.OverallScore = result.OverallScore
	article.MentionsTD = result.MentionsTD
	article.TDName = result.TDName
	article.Party = result.Party
	return nil
}

// FileSnapshots adapts the persistence layer to the SnapshotWriter interface,
// binding the output directory.
type FileSnapshots struct {
	OutputDir string
}

func (f *FileSnapshots) Write(stats core.RunStats, topArticles []core.Article) (string, error) {
	return persistence.WriteSnapshot(f.OutputDir, stats, topArticles)
}

package relevance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"glaspolitics/internal/core"
	"glaspolitics/internal/llm"
	"glaspolitics/internal/logger"
)

// filterRubric is the classification brief given to the model. The batch's
// numbered articles and the response instructions are appended to it.
const filterRubric = `You are filtering news for IRISH CITIZENS interested in politics. Be STRICT - only include articles about Irish politics, TDs, government, and policy.

MUST INCLUDE:
- Irish TDs (politicians in Dáil Éireann)
- Irish government ministers, cabinet, Taoiseach, Tánaiste
- Dáil debates, votes, legislation
- Irish political parties (FF, FG, SF, Labour, Greens, etc.)
- Irish elections, referendums, polling
- Government policy affecting Ireland
- Political scandals, ethics probes
- Ireland-UK relations, Brexit impact
- Ireland-EU relations
- Irish budget, spending, taxation
- Housing policy, health policy, etc. affecting Ireland
- Local councils, county issues if politically significant

MUST EXCLUDE (be strict):
- Sports (GAA, soccer, rugby) unless political angle
- Crime/courts unless involving TDs or political corruption
- Business/economy unless government policy involved
- Entertainment, celebrity gossip
- Obituaries, funerals (unless major political figure)
- Weather, traffic
- General international news without Irish connection
- UK politics unless affecting Ireland directly
- US/other country politics unless Ireland involved

CRITICAL RULES:
1. Must mention Ireland, Irish TDs, Irish government, or Irish parties
2. If just "politician" without Irish context -> EXCLUDE
3. If UK/EU news without Irish angle -> EXCLUDE
4. When in doubt -> EXCLUDE (be strict!)

ARTICLES:
`

// Generator is the single LLM call the filter needs. *llm.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Filter classifies article batches for Irish political relevance.
type Filter struct {
	gen       Generator
	batchSize int
}

// NewFilter creates a Filter processing batchSize articles per model call.
func NewFilter(gen Generator, batchSize int) *Filter {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Filter{gen: gen, batchSize: batchSize}
}

// Filter returns the politically relevant subset of articles, preserving
// order. A batch whose model call fails or whose response cannot be parsed
// passes through in full: losing one batch of classification is cheaper
// than losing the articles.
func (f *Filter) Filter(ctx context.Context, articles []core.Article) []core.Article {
	if len(articles) == 0 {
		return nil
	}

	var relevant []core.Article
	for start := 0; start < len(articles); start += f.batchSize {
		end := start + f.batchSize
		if end > len(articles) {
			end = len(articles)
		}
		batch := articles[start:end]

		indices, err := f.classifyBatch(ctx, batch)
		if err != nil {
			logger.Error("Relevance filter batch failed, passing batch through", err, "batch_size", len(batch))
			relevant = append(relevant, batch...)
			continue
		}

		for _, idx := range indices {
			if idx >= 0 && idx < len(batch) {
				relevant = append(relevant, batch[idx])
			}
		}
	}

	logger.Info("Relevance filter done", "in", len(articles), "out", len(relevant))
	return relevant
}

// classifyBatch runs one batch through the model and returns the indices
// the model marked relevant.
func (f *Filter) classifyBatch(ctx context.Context, batch []core.Article) ([]int, error) {
	prompt := BuildPrompt(batch)

	response, err := f.gen.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("classification call failed: %w", err)
	}

	return ParseResponse(response)
}

// BuildPrompt assembles the rubric plus the numbered article list for one
// batch. Feed summaries are capped at 200 characters.
func BuildPrompt(batch []core.Article) string {
	var b strings.Builder
	b.WriteString(filterRubric)

	for i, article := range batch {
		title := article.Title
		if title == "" {
			title = "No Title"
		}
		fmt.Fprintf(&b, "\n%d. %s", i, title)
		if article.Summary != "" {
			summary := article.Summary
			if runes := []rune(summary); len(runes) > 200 {
				summary = string(runes[:200])
			}
			fmt.Fprintf(&b, " | %s", summary)
		}
	}

	b.WriteString(`

Return ONLY a JSON object with relevant article numbers:
{"relevant": [0, 3, 5, 8]}

If NONE are relevant, return:
{"relevant": []}
`)

	return b.String()
}

// ParseResponse extracts the relevant indices from a model response,
// tolerating fenced code blocks around the JSON.
func ParseResponse(response string) ([]int, error) {
	jsonText := llm.StripCodeFences(response)

	var result struct {
		Relevant []int `json:"relevant"`
	}
	if err := json.Unmarshal([]byte(jsonText), &result); err != nil {
		return nil, fmt.Errorf("invalid filter response: %w", err)
	}
	if result.Relevant == nil {
		return nil, fmt.Errorf("filter response missing relevant list")
	}

	return result.Relevant, nil
}

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"glaspolitics/internal/core"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	// DefaultModel is the default Gemini model for filtering and scoring.
	DefaultModel = "gemini-1.5-flash-latest"

	// scorerSystemPrompt anchors the scoring persona.
	scorerSystemPrompt = "You are an expert political analyst for Irish politics. Score articles objectively."

	// scoringPromptTemplate asks for a structured score of one article.
	scoringPromptTemplate = `%s

Analyse this Irish political news article and score it.

Title: %s

Content:
%s

Score each dimension from 0 to 10:
- political_impact: effect on Irish government, legislation, or elections
- public_interest: how much this matters to ordinary Irish citizens
- controversy: scandal, conflict, or accountability dimension
- policy_significance: substance of the policy change involved

Also write a 2-3 sentence neutral summary, and note whether a specific TD
(member of Dáil Éireann) is central to the story.

Respond with ONLY a JSON object in exactly this shape:
{
  "summary": "...",
  "scores": {"political_impact": 0, "public_interest": 0, "controversy": 0, "policy_significance": 0},
  "overall_score": 0.0,
  "mentions_td": false,
  "td_name": "",
  "party": ""
}`

	// scenePromptTemplate asks for a one-sentence visual scene for an article.
	scenePromptTemplate = `Describe, in ONE sentence, a photographic scene that could illustrate
this Irish political news story for a news website. Describe a physical scene
only: no names of real people, no text, no logos.

Title: %s
Summary: %s

Respond with only the scene description sentence.`
)

// Client wraps the Gemini API for the pipeline's filtering, scoring, and
// scene description calls.
type Client struct {
	client      *genai.Client
	modelName   string
	temperature float32
}

// NewClient creates a Gemini client. modelName falls back to DefaultModel.
func NewClient(ctx context.Context, apiKey, modelName string, temperature float32) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if modelName == "" {
		modelName = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{
		client:      client,
		modelName:   modelName,
		temperature: temperature,
	}, nil
}

// Close releases the underlying API client.
func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// ModelName returns the model this client generates with.
func (c *Client) ModelName() string {
	return c.modelName
}

// Generate runs a single prompt through the model and returns the text
// of the first candidate.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	model := c.client.GenerativeModel(c.modelName)
	if c.temperature > 0 {
		model.SetTemperature(c.temperature)
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from model")
	}

	text := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty response from model")
	}

	return text, nil
}

// ScoreResult is the structured outcome of scoring one article.
type ScoreResult struct {
	Summary      string
	Scores       map[string]float64
	OverallScore float64
	MentionsTD   bool
	TDName       string
	Party        string
}

// ScoreArticle scores one article. The article content is truncated to
// maxContentChars before prompting; a truncation marker is appended when
// content was cut. Any call or parse failure is returned as an error, and
// the caller drops the article.
func (c *Client) ScoreArticle(ctx context.Context, article core.Article, maxContentChars int) (*ScoreResult, error) {
	content := article.Content
	if content == "" {
		content = article.Summary
	}
	content = TruncateContent(content, maxContentChars)

	prompt := fmt.Sprintf(scoringPromptTemplate, scorerSystemPrompt, article.Title, content)

	text, err := c.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("scoring call failed for %q: %w", article.Title, err)
	}

	result, err := ParseScoreResponse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse score for %q: %w", article.Title, err)
	}

	return result, nil
}

// DescribeScene asks the model for a one-sentence scene for the article's
// generated image.
func (c *Client) DescribeScene(ctx context.Context, article core.Article) (string, error) {
	summary := article.AISummary
	if summary == "" {
		summary = article.Summary
	}

	prompt := fmt.Sprintf(scenePromptTemplate, article.Title, summary)

	text, err := c.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("scene description call failed: %w", err)
	}

	scene := strings.TrimSpace(StripCodeFences(text))
	if scene == "" {
		return "", fmt.Errorf("empty scene description")
	}

	return scene, nil
}

// ParseScoreResponse parses a scoring response. The response may be wrapped
// in fenced code blocks. summary, scores, and overall_score are required;
// everything else is optional. All scores are clamped to [0, 10].
func ParseScoreResponse(response string) (*ScoreResult, error) {
	jsonText := StripCodeFences(response)

	var raw struct {
		Summary      *string            `json:"summary"`
		Scores       map[string]float64 `json:"scores"`
		OverallScore *float64           `json:"overall_score"`
		MentionsTD   bool               `json:"mentions_td"`
		TDName       string             `json:"td_name"`
		Party        string             `json:"party"`
	}
	if err := json.Unmarshal([]byte(jsonText), &raw); err != nil {
		return nil, fmt.Errorf("invalid score JSON: %w", err)
	}

	if raw.Summary == nil || raw.Scores == nil || raw.OverallScore == nil {
		return nil, fmt.Errorf("score response missing required fields")
	}

	scores := make(map[string]float64, len(raw.Scores))
	for name, value := range raw.Scores {
		scores[name] = ClampScore(value)
	}

	result := &ScoreResult{
		Summary:      strings.TrimSpace(*raw.Summary),
		Scores:       scores,
		OverallScore: ClampScore(*raw.OverallScore),
		MentionsTD:   raw.MentionsTD,
	}
	if raw.MentionsTD {
		result.TDName = strings.TrimSpace(raw.TDName)
		result.Party = strings.TrimSpace(raw.Party)
	}

	return result, nil
}

// StripCodeFences removes a surrounding markdown code block, fenced with
// three backticks and optionally tagged json, from a model response.
func StripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)

	if idx := strings.Index(trimmed, "```json"); idx >= 0 {
		rest := trimmed[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
		return strings.TrimSpace(rest)
	}

	if idx := strings.Index(trimmed, "```"); idx >= 0 {
		rest := trimmed[idx+3:]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
		return strings.TrimSpace(rest)
	}

	return trimmed
}

// TruncateContent cuts content to at most maxChars characters, appending a
// marker when a cut happened. maxChars <= 0 means no limit.
func TruncateContent(content string, maxChars int) string {
	if maxChars <= 0 {
		return content
	}
	runes := []rune(content)
	if len(runes) <= maxChars {
		return content
	}
	return string(runes[:maxChars]) + "..."
}

// ClampScore bounds a score to the 0-10 scale.
func ClampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}

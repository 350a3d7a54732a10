package relevance

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"glaspolitics/internal/core"
)

// stubGenerator returns canned responses in sequence, or an error.
type stubGenerator struct {
	responses []string
	err       error
	prompts   []string
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	idx := len(s.prompts) - 1
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	return s.responses[idx], nil
}

func makeArticles(n int) []core.Article {
	articles := make([]core.Article, n)
	for i := range articles {
		articles[i] = core.Article{
			Title:   fmt.Sprintf("Article %d", i),
			Link:    fmt.Sprintf("https://example.ie/%d", i),
			Summary: fmt.Sprintf("Summary %d", i),
		}
	}
	return articles
}

func TestFilter_KeepsSelectedIndices(t *testing.T) {
	gen := &stubGenerator{responses: []string{`{"relevant": [0, 2]}`}}
	f := NewFilter(gen, 50)

	result := f.Filter(context.Background(), makeArticles(4))

	if len(result) != 2 {
		t.Fatalf("Expected 2 articles, got %d", len(result))
	}
	if result[0].Title != "Article 0" || result[1].Title != "Article 2" {
		t.Errorf("Expected articles 0 and 2, got %q and %q", result[0].Title, result[1].Title)
	}
}

func TestFilter_EmptyRelevantListDropsAll(t *testing.T) {
	gen := &stubGenerator{responses: []string{`{"relevant": []}`}}
	f := NewFilter(gen, 50)

	result := f.Filter(context.Background(), makeArticles(3))
	if len(result) != 0 {
		t.Errorf("Expected all articles dropped, got %d", len(result))
	}
}

func TestFilter_GenerateErrorPassesBatchThrough(t *testing.T) {
	gen := &stubGenerator{err: fmt.Errorf("model unavailable")}
	f := NewFilter(gen, 50)

	articles := makeArticles(5)
	result := f.Filter(context.Background(), articles)

	if len(result) != len(articles) {
		t.Errorf("Expected full batch kept on model failure, got %d of %d", len(result), len(articles))
	}
}

func TestFilter_UnparseableResponsePassesBatchThrough(t *testing.T) {
	gen := &stubGenerator{responses: []string{"I cannot classify these."}}
	f := NewFilter(gen, 50)

	articles := makeArticles(3)
	result := f.Filter(context.Background(), articles)

	if len(result) != len(articles) {
		t.Errorf("Expected full batch kept on parse failure, got %d of %d", len(result), len(articles))
	}
}

func TestFilter_OutOfRangeIndicesIgnored(t *testing.T) {
	gen := &stubGenerator{responses: []string{`{"relevant": [1, 7, -3]}`}}
	f := NewFilter(gen, 50)

	result := f.Filter(context.Background(), makeArticles(3))

	if len(result) != 1 {
		t.Fatalf("Expected only the in-range index kept, got %d articles", len(result))
	}
	if result[0].Title != "Article 1" {
		t.Errorf("Expected Article 1, got %q", result[0].Title)
	}
}

func TestFilter_BatchesUseLocalIndices(t *testing.T) {
	// Two batches of 2. The second response's index 0 must map to the third
	// article overall, not the first.
	gen := &stubGenerator{responses: []string{`{"relevant": []}`, `{"relevant": [0]}`}}
	f := NewFilter(gen, 2)

	result := f.Filter(context.Background(), makeArticles(4))

	if len(gen.prompts) != 2 {
		t.Fatalf("Expected 2 batch calls, got %d", len(gen.prompts))
	}
	if len(result) != 1 {
		t.Fatalf("Expected 1 article, got %d", len(result))
	}
	if result[0].Title != "Article 2" {
		t.Errorf("Expected Article 2 from the second batch, got %q", result[0].Title)
	}
}

func TestFilter_NoArticles(t *testing.T) {
	gen := &stubGenerator{responses: []string{`{"relevant": []}`}}
	f := NewFilter(gen, 50)

	if result := f.Filter(context.Background(), nil); len(result) != 0 {
		t.Errorf("Expected nothing from empty input, got %d", len(result))
	}
	if len(gen.prompts) != 0 {
		t.Errorf("Expected no model calls for empty input, got %d", len(gen.prompts))
	}
}

func TestBuildPrompt(t *testing.T) {
	batch := []core.Article{
		{Title: "Dáil votes on housing bill", Summary: "The vote passed."},
		{Title: "", Summary: ""},
		{Title: "Budget 2026", Summary: strings.Repeat("x", 300)},
	}

	prompt := BuildPrompt(batch)

	if !strings.Contains(prompt, "\n0. Dáil votes on housing bill | The vote passed.") {
		t.Error("Expected first article numbered from 0 with its summary")
	}
	if !strings.Contains(prompt, "\n1. No Title") {
		t.Error("Expected missing title replaced with placeholder")
	}
	if strings.Contains(prompt, strings.Repeat("x", 201)) {
		t.Error("Expected summaries capped at 200 characters")
	}
	if !strings.Contains(prompt, strings.Repeat("x", 200)) {
		t.Error("Expected the first 200 summary characters kept")
	}
	if !strings.Contains(prompt, `{"relevant": [0, 3, 5, 8]}`) {
		t.Error("Expected response format instructions in the prompt")
	}
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name     string
		response string
		expected []int
		wantErr  bool
	}{
		{"plain", `{"relevant": [0, 3]}`, []int{0, 3}, false},
		{"fenced", "```json\n{\"relevant\": [1]}\n```", []int{1}, false},
		{"empty list", `{"relevant": []}`, []int{}, false},
		{"missing key", `{}`, nil, true},
		{"not JSON", "no idea", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResponse(tt.response)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseResponse failed: %v", err)
			}
			if len(got) != len(tt.expected) {
				t.Fatalf("Expected %v, got %v", tt.expected, got)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("Expected %v, got %v", tt.expected, got)
				}
			}
		})
	}
}

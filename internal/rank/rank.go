package rank

import (
	"sort"

	"glaspolitics/internal/core"
)

// Top returns the count highest-scoring articles in descending score order.
// The sort is stable, so equally scored articles keep their incoming order.
// The input slice is not modified.
func Top(articles []core.Article, count int) []core.Article {
	if count <= 0 || len(articles) == 0 {
		return nil
	}

	ranked := make([]core.Article, len(articles))
	copy(ranked, articles)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].OverallScore > ranked[j].OverallScore
	})

	if count > len(ranked) {
		count = len(ranked)
	}
	return ranked[:count]
}

// Package search answers global item searches from the substring scan in storage and the
// ranked keyword index.
package search

import (
	"github.com/hyperjump/prtrack/internal/keyword"
	"github.com/hyperjump/prtrack/internal/models"
)

// NormalizeKeywordScores normalizes keyword scores to [0,1] by max.
func NormalizeKeywordScores(results []*keyword.KeywordResult) map[string]float64 {
	normalized := make(map[string]float64, len(results))
	if len(results) == 0 {
		return normalized
	}
	maxScore := results[0].Score
	for _, r := range results {
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}
	for _, r := range results {
		if maxScore > 0 {
			normalized[r.ID] = r.Score / maxScore
		} else {
			normalized[r.ID] = 0
		}
	}
	return normalized
}

// Merge returns ranked hits in their order, followed by substring hits the ranked pass
// missed, truncated to limit. Ranked hits carry their normalized score; substring-only hits
// score 0.
func Merge(ranked []*models.ItemHit, scores map[string]float64, substring []*models.ItemHit, limit int) []*models.ItemHit {
	out := make([]*models.ItemHit, 0, len(ranked)+len(substring))
	seen := make(map[string]bool, len(ranked))
	for _, h := range ranked {
		h.Score = scores[h.Item.ID]
		seen[h.Item.ID] = true
		out = append(out, h)
	}
	for _, h := range substring {
		if seen[h.Item.ID] {
			continue
		}
		h.Score = 0
		out = append(out, h)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

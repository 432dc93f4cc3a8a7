package search

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/Aman-CERP/ctxrank/internal/chunk"
)

// Signal weights. They sum to 1.0.
const (
	WeightVector       = 0.40
	WeightCompleteness = 0.20
	WeightKeyword      = 0.15
	WeightRecency      = 0.10
	WeightDiversity    = 0.10
	WeightContentType  = 0.05
)

// PivotKeywordMultiplier further lowers the keyword signal when a pivot
// keyword appears in both the query and the chunk.
const PivotKeywordMultiplier = 0.7

// Completeness bonuses. Each lowers the raw score; the total is capped at
// maxCompletenessBonus and then mapped to [0, 1].
const (
	mergedBonusPerChunk  = 0.05
	maxMergedBonus       = 0.15
	longSpanLines        = 40
	longSpanBonus        = 0.10
	mediumSpanLines      = 25
	mediumSpanBonus      = 0.05
	completeBonus        = 0.05
	maxCompletenessBonus = 0.30
)

const day = 24 * time.Hour

// ScorerConfig holds the tunable parts of the scorer.
type ScorerConfig struct {
	// PivotKeywords trigger PivotKeywordMultiplier.
	PivotKeywords []string
}

// DefaultScorerConfig returns the default pivot list.
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{PivotKeywords: []string{"fondateur"}}
}

// ScoreChunks computes the six weighted signals for every chunk and returns
// them sorted best first (ascending score), stable on ties.
//
// docOccurrences counts how often each document appears in the result set.
// When nil it is computed from chunks. now is the reference for recency.
func ScoreChunks(chunks []chunk.Chunk, intent chunk.Intent, docOccurrences map[string]uint32, now time.Time, cfg ScorerConfig) []chunk.ScoredChunk {
	if docOccurrences == nil {
		docOccurrences = CountDocuments(chunks)
	}

	pivots := pivotsInIntent(intent, cfg.PivotKeywords)
	ordinals := make(map[string]uint32, len(docOccurrences))

	scored := make([]chunk.ScoredChunk, len(chunks))
	for i, c := range chunks {
		doc := c.Metadata.DocumentID
		ordinals[doc]++

		signals := chunk.Signals{
			Vector:       vectorSignal(c.Distance),
			Completeness: completenessSignal(c.Metadata),
			Keyword:      keywordSignal(c.Metadata.Keywords, intent, pivots),
			Recency:      recencySignal(c.Metadata.CreatedAt, now),
			Diversity:    diversitySignal(docOccurrences[doc], ordinals[doc]),
			ContentType:  contentTypeSignal(c.Metadata.ChunkType, intent.ContentType),
		}
		scored[i] = chunk.ScoredChunk{
			Chunk:         c,
			SemanticScore: combine(signals),
			Signals:       signals,
		}
	}

	slices.SortStableFunc(scored, func(a, b chunk.ScoredChunk) int {
		return cmp.Compare(a.SemanticScore, b.SemanticScore)
	})
	return scored
}

// CountDocuments returns the number of chunks per document.
func CountDocuments(chunks []chunk.Chunk) map[string]uint32 {
	counts := make(map[string]uint32, len(chunks))
	for _, c := range chunks {
		counts[c.Metadata.DocumentID]++
	}
	return counts
}

func combine(s chunk.Signals) float64 {
	return WeightVector*s.Vector +
		WeightCompleteness*s.Completeness +
		WeightKeyword*s.Keyword +
		WeightRecency*s.Recency +
		WeightDiversity*s.Diversity +
		WeightContentType*s.ContentType
}

func vectorSignal(distance float64) float64 {
	if math.IsNaN(distance) {
		return 1
	}
	return clamp01(distance / 2)
}

func completenessSignal(m chunk.Metadata) float64 {
	var bonus float64
	if m.MergedChunks > 1 {
		bonus += min(mergedBonusPerChunk*float64(m.MergedChunks-1), maxMergedBonus)
	}
	switch span := m.Span(); {
	case span >= longSpanLines:
		bonus += longSpanBonus
	case span >= mediumSpanLines:
		bonus += mediumSpanBonus
	}
	if m.IsComplete {
		bonus += completeBonus
	}
	bonus = min(bonus, maxCompletenessBonus)
	return (maxCompletenessBonus - bonus) / maxCompletenessBonus
}

func keywordSignal(chunkKeywords string, intent chunk.Intent, pivots []string) float64 {
	if len(intent.Keywords) == 0 {
		return 1
	}

	have := keywordSet(chunkKeywords)
	var matched int
	for _, kw := range intent.Keywords {
		if _, ok := have[kw]; ok {
			matched++
		}
	}
	signal := 1 - 0.5*float64(matched)/float64(len(intent.Keywords))

	for _, p := range pivots {
		if _, ok := have[p]; ok {
			signal *= PivotKeywordMultiplier
			break
		}
	}
	return signal
}

// keywordSet lowercases the indexed keywords for matching.
func keywordSet(s string) map[string]struct{} {
	words := splitKeywords(strings.ToLower(s))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func pivotsInIntent(intent chunk.Intent, pivots []string) []string {
	var out []string
	for _, p := range pivots {
		if intent.HasKeyword(strings.ToLower(p)) {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}

// recencySignal is a step function on age; older than 180 days it rises
// linearly from 0.6 to 1.0 at one year. Future timestamps count as fresh.
func recencySignal(createdAt *time.Time, now time.Time) float64 {
	if createdAt == nil {
		return 0.5
	}
	age := now.Sub(*createdAt)
	switch {
	case age < 7*day:
		return 0.2
	case age < 30*day:
		return 0.4
	case age < 180*day:
		return 0.6
	case age >= 365*day:
		return 1.0
	default:
		return 0.6 + 0.4*float64(age-180*day)/float64(185*day)
	}
}

// diversitySignal rewards a document that appears once and penalises its
// fourth and later occurrences. ordinal is 1-based.
func diversitySignal(occurrences, ordinal uint32) float64 {
	switch {
	case occurrences == 1:
		return 0.2
	case ordinal >= 4:
		return min(0.5+0.1*float64(ordinal-3), 1.0)
	default:
		return 0.5
	}
}

func contentTypeSignal(got chunk.ChunkType, want *chunk.ChunkType) float64 {
	switch {
	case want == nil:
		return 0.5
	case got == *want:
		return 0.0
	default:
		return 0.8
	}
}

func clamp01(v float64) float64 {
	return max(0, min(v, 1))
}

// Relevance converts a semantic score into the UI convention, higher is
// better.
func Relevance(semanticScore float64) float64 {
	return clamp01(1 - semanticScore)
}

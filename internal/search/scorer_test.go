package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/ctxrank/internal/chunk"
)

var scoringNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func TestSignalWeightsSumToOne(t *testing.T) {
	sum := WeightVector + WeightCompleteness + WeightKeyword + WeightRecency + WeightDiversity + WeightContentType
	assert.InDelta(t, 1.0, sum, 1e-12)
}

func TestScoreChunks_CompleteMergedScoresBetter(t *testing.T) {
	plain := rawChunk("plain", "d1", 10, 20)
	rich := rawChunk("rich", "d2", 10, 20)
	rich.Metadata.IsComplete = true
	rich.Metadata.MergedChunks = 3

	scored := ScoreChunks([]chunk.Chunk{plain, rich}, chunk.Intent{}, nil, scoringNow, DefaultScorerConfig())

	require.Len(t, scored, 2)
	assert.Equal(t, "rich", scored[0].ID)
	assert.Less(t, scored[0].SemanticScore, scored[1].SemanticScore)
}

func TestScoreChunks_SortedStableOnTies(t *testing.T) {
	chunks := []chunk.Chunk{
		rawChunk("first", "d", 0, 1),
		rawChunk("second", "d", 100, 101),
		rawChunk("third", "d", 200, 201),
	}

	scored := ScoreChunks(chunks, chunk.Intent{}, nil, scoringNow, DefaultScorerConfig())

	ids := []string{scored[0].ID, scored[1].ID, scored[2].ID}
	assert.Equal(t, []string{"first", "second", "third"}, ids)
}

func TestScoreChunks_ScoreIsWeightedSum(t *testing.T) {
	c := rawChunk("a", "d", 0, 10)
	c.Distance = 0.5

	scored := ScoreChunks([]chunk.Chunk{c}, chunk.Intent{}, nil, scoringNow, DefaultScorerConfig())

	s := scored[0].Signals
	assert.InDelta(t, 0.25, s.Vector, 1e-9)
	assert.InDelta(t, 1.0, s.Completeness, 1e-9)
	assert.InDelta(t, 1.0, s.Keyword, 1e-9)
	assert.InDelta(t, 0.5, s.Recency, 1e-9)
	assert.InDelta(t, 0.2, s.Diversity, 1e-9)
	assert.InDelta(t, 0.5, s.ContentType, 1e-9)
	assert.InDelta(t, 0.4*0.25+0.2+0.15+0.1*0.5+0.1*0.2+0.05*0.5, scored[0].SemanticScore, 1e-9)
}

func TestVectorSignal(t *testing.T) {
	assert.Equal(t, 0.0, vectorSignal(0))
	assert.InDelta(t, 0.5, vectorSignal(1), 1e-9)
	assert.Equal(t, 1.0, vectorSignal(3))
	assert.Equal(t, 0.0, vectorSignal(-1))
}

func TestCompletenessSignal(t *testing.T) {
	tests := []struct {
		name string
		md   chunk.Metadata
		want float64
	}{
		{"raw short chunk", chunk.Metadata{MergedChunks: 1, LineEnd: 5}, 1.0},
		{"complete", chunk.Metadata{MergedChunks: 1, IsComplete: true}, 0.25 / 0.30},
		{"two merged", chunk.Metadata{MergedChunks: 2}, 0.25 / 0.30},
		{"merged bonus capped", chunk.Metadata{MergedChunks: 10}, 0.15 / 0.30},
		{"medium span", chunk.Metadata{MergedChunks: 1, LineStart: 0, LineEnd: 25}, 0.25 / 0.30},
		{"long span", chunk.Metadata{MergedChunks: 1, LineStart: 0, LineEnd: 40}, 0.20 / 0.30},
		{"everything", chunk.Metadata{MergedChunks: 5, LineEnd: 80, IsComplete: true}, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, completenessSignal(tt.md), 1e-9)
		})
	}
}

func TestKeywordSignal(t *testing.T) {
	intent := chunk.Intent{Keywords: []string{"fondateur", "mer", "poème"}}

	assert.InDelta(t, 1.0, keywordSignal("vent", intent, nil), 1e-9)
	assert.InDelta(t, 1-0.5/3, keywordSignal("Mer, vent", intent, nil), 1e-9)
	assert.InDelta(t, 0.5, keywordSignal("mer poème fondateur", intent, nil), 1e-9)
	assert.InDelta(t, 1.0, keywordSignal("mer", chunk.Intent{}, nil), 1e-9)

	pivots := pivotsInIntent(intent, DefaultScorerConfig().PivotKeywords)
	require.Equal(t, []string{"fondateur"}, pivots)
	assert.InDelta(t, (1-0.5/3)*PivotKeywordMultiplier, keywordSignal("fondateur", intent, pivots), 1e-9)
	assert.InDelta(t, 1-0.5/3, keywordSignal("mer", intent, pivots), 1e-9)
}

func TestPivotsInIntent_RequiresQueryKeyword(t *testing.T) {
	assert.Empty(t, pivotsInIntent(chunk.Intent{Keywords: []string{"mer"}}, []string{"fondateur"}))
}

func TestRecencySignal(t *testing.T) {
	at := func(age time.Duration) *time.Time {
		ts := scoringNow.Add(-age)
		return &ts
	}
	tests := []struct {
		name string
		ts   *time.Time
		want float64
	}{
		{"missing", nil, 0.5},
		{"future", at(-48 * time.Hour), 0.2},
		{"one day", at(24 * time.Hour), 0.2},
		{"two weeks", at(14 * day), 0.4},
		{"two months", at(60 * day), 0.6},
		{"at 180 days", at(180 * day), 0.6},
		{"midway", at(180*day + 185*day/2), 0.8},
		{"one year", at(365 * day), 1.0},
		{"ten years", at(3650 * day), 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, recencySignal(tt.ts, scoringNow), 1e-9)
		})
	}
}

func TestDiversitySignal(t *testing.T) {
	assert.Equal(t, 0.2, diversitySignal(1, 1))
	assert.Equal(t, 0.5, diversitySignal(5, 1))
	assert.Equal(t, 0.5, diversitySignal(5, 3))
	assert.InDelta(t, 0.6, diversitySignal(5, 4), 1e-9)
	assert.InDelta(t, 0.7, diversitySignal(5, 5), 1e-9)
	assert.Equal(t, 1.0, diversitySignal(20, 20))
}

func TestScoreChunks_DiversityFairness(t *testing.T) {
	var chunks []chunk.Chunk
	for i := 0; i < 5; i++ {
		chunks = append(chunks, rawChunk(string(rune('a'+i)), "busy", uint32(i*100), uint32(i*100+5)))
	}
	chunks = append(chunks, rawChunk("solo", "lonely", 0, 5))

	scored := ScoreChunks(chunks, chunk.Intent{}, nil, scoringNow, DefaultScorerConfig())

	byID := make(map[string]chunk.ScoredChunk)
	for _, s := range scored {
		byID[s.ID] = s
	}
	solo := byID["solo"].Signals.Diversity
	for _, id := range []string{"d", "e"} {
		assert.LessOrEqual(t, solo, byID[id].Signals.Diversity, id)
	}
	assert.Equal(t, "solo", scored[0].ID)
}

func TestScoreChunks_ExplicitOccurrencesOverrideInput(t *testing.T) {
	c := rawChunk("a", "d", 0, 5)

	scored := ScoreChunks([]chunk.Chunk{c}, chunk.Intent{}, map[string]uint32{"d": 3}, scoringNow, DefaultScorerConfig())

	assert.Equal(t, 0.5, scored[0].Signals.Diversity)
}

func TestContentTypeSignal(t *testing.T) {
	poem := chunk.TypePoem
	assert.Equal(t, 0.0, contentTypeSignal(chunk.TypePoem, &poem))
	assert.Equal(t, 0.8, contentTypeSignal(chunk.TypeProse, &poem))
	assert.Equal(t, 0.5, contentTypeSignal(chunk.TypeProse, nil))
}

func TestScoreChunks_TypedIntentPrefersMatchingType(t *testing.T) {
	prose := rawChunk("prose", "d1", 0, 5)
	poem := rawChunk("poem", "d2", 0, 5)
	poem.Metadata.ChunkType = chunk.TypePoem

	intent := ParseIntent("le poème")
	scored := ScoreChunks([]chunk.Chunk{prose, poem}, intent, nil, scoringNow, DefaultScorerConfig())

	assert.Equal(t, "poem", scored[0].ID)
}

func TestRelevance(t *testing.T) {
	assert.InDelta(t, 0.7, Relevance(0.3), 1e-9)
	assert.Equal(t, 0.0, Relevance(1.4))
}

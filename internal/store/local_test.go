package store

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bagEmbedder hashes folded words into 256 buckets. Enough to give the
// vector side a lexical signal without importing the embed package.
type bagEmbedder struct {
	fail bool
}

func (b bagEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if b.fail {
		return nil, errors.New("embedder down")
	}
	v := make([]float32, 256)
	for _, tok := range TokenizeText(FoldAccents(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		v[h.Sum32()%256]++
	}
	v[255] += 0.01
	return v, nil
}

func (b bagEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := b.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (b bagEmbedder) Dimensions() int { return 256 }

func testRecords() []Record {
	return []Record{
		{ID: "p1", Text: "Le poème fondateur raconte la genèse de la cité.", Metadata: map[string]any{
			"document_id": "42", "chunk_type": "poem", "line_start": 10, "line_end": 25, "agent_scope": "poet",
		}},
		{ID: "p2", Text: "Suite du poème fondateur, la fondation des murs.", Metadata: map[string]any{
			"document_id": "42", "chunk_type": "poem", "line_start": 20, "line_end": 40, "agent_scope": "poet",
		}},
		{ID: "m1", Text: "Compte rendu budgétaire de la réunion trimestrielle.", Metadata: map[string]any{
			"document_id": "7", "chunk_type": "prose", "line_start": 1, "line_end": 5, "agent_scope": "finance",
		}},
	}
}

func newTestLocalIndex(t *testing.T, emb Embedder) *LocalIndex {
	t.Helper()
	idx, err := NewLocalIndex(emb)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestLocalIndex_Query_BlendsAndOrders(t *testing.T) {
	// Given: a local index with two poem chunks and an unrelated one
	idx := newTestLocalIndex(t, bagEmbedder{})
	require.NoError(t, idx.Add(context.Background(), testRecords()))
	require.Equal(t, 3, idx.Len())

	// When: querying for the founding poem
	hits, err := idx.Query(context.Background(), Query{Text: "poème fondateur", TopK: 10, Alpha: DefaultAlpha, Threshold: DefaultScoreThreshold})

	// Then: both poem chunks come back, best first, the minutes do not
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.Equal(t, "42", h.Metadata["document_id"])
		assert.GreaterOrEqual(t, h.Distance, 0.0)
		assert.LessOrEqual(t, h.Distance, 2*(1-DefaultScoreThreshold)+1e-9)
	}
	assert.LessOrEqual(t, hits[0].Distance, hits[1].Distance)
}

func TestLocalIndex_Query_AppliesFilter(t *testing.T) {
	idx := newTestLocalIndex(t, bagEmbedder{})
	require.NoError(t, idx.Add(context.Background(), testRecords()))

	hits, err := idx.Query(context.Background(), Query{
		Text:   "poème fondateur fondation",
		Filter: AllOf(Eq{Field: "agent_scope", Value: "poet"}, Eq{Field: "line_start", Value: 20}),
		TopK:   10,
		Alpha:  DefaultAlpha,
	})

	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "p2", hits[0].ID)
}

func TestLocalIndex_Query_TopKLimits(t *testing.T) {
	idx := newTestLocalIndex(t, bagEmbedder{})
	require.NoError(t, idx.Add(context.Background(), testRecords()))

	hits, err := idx.Query(context.Background(), Query{Text: "poème", TopK: 1, Alpha: DefaultAlpha})

	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestLocalIndex_Query_EmbedderFailure(t *testing.T) {
	idx := newTestLocalIndex(t, bagEmbedder{})
	require.NoError(t, idx.Add(context.Background(), testRecords()))
	idx.embedder = bagEmbedder{fail: true}

	_, err := idx.Query(context.Background(), Query{Text: "poème", TopK: 5})

	assert.ErrorContains(t, err, "embedder down")
}

func TestLocalIndex_Query_CancelledContext(t *testing.T) {
	idx := newTestLocalIndex(t, bagEmbedder{})
	require.NoError(t, idx.Add(context.Background(), testRecords()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := idx.Query(ctx, Query{Text: "poème", TopK: 5})

	assert.Error(t, err)
}

func TestLocalIndex_Add_RejectsMissingDocumentID(t *testing.T) {
	idx := newTestLocalIndex(t, bagEmbedder{})

	err := idx.Add(context.Background(), []Record{{ID: "x", Text: "t", Metadata: map[string]any{}}})

	require.Error(t, err)
	assert.Zero(t, idx.Len())
}

func TestReadJSONL(t *testing.T) {
	input := strings.Join([]string{
		`# corpus`,
		`{"id":"c1","text":"Le poème","metadata":{"document_id":"42","line_start":10,"line_end":25}}`,
		``,
		`{"id":"c2","text":"La suite"}`,
	}, "\n")

	records, err := ReadJSONL(strings.NewReader(input))

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "c1", records[0].ID)
	assert.Equal(t, float64(10), records[0].Metadata["line_start"])
	assert.NotNil(t, records[1].Metadata)
}

func TestReadJSONL_Errors(t *testing.T) {
	_, err := ReadJSONL(strings.NewReader(`{"id":`))
	assert.Error(t, err)

	_, err = ReadJSONL(strings.NewReader(`{"text":"no id"}`))
	assert.ErrorContains(t, err, "line 1: missing id")
}

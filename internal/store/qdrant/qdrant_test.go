package qdrant

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/ctxrank/internal/store"
)

type fakeEmbedder struct{ err error }

func (f fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0, 0}, nil
}

func (f fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (fakeEmbedder) Dimensions() int { return 3 }

type fakeQuerier struct {
	mu       sync.Mutex
	dense    []*qdrant.ScoredPoint
	sparse   []*qdrant.ScoredPoint
	requests []*qdrant.QueryPoints
}

func (f *fakeQuerier) Query(_ context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if req.GetUsing() == DefaultSparseVector {
		return f.sparse, nil
	}
	return f.dense, nil
}

func point(id string, score float32, doc string) *qdrant.ScoredPoint {
	return &qdrant.ScoredPoint{
		Id:    qdrant.NewID(id),
		Score: score,
		Payload: map[string]*qdrant.Value{
			DefaultTextField:    qdrant.NewValueString(id + " text"),
			store.KeyDocumentID: qdrant.NewValueString(doc),
			store.KeyLineStart:  qdrant.NewValueInt(10),
			store.KeyLineEnd:    qdrant.NewValueInt(20),
			store.KeyChunkType:  qdrant.NewValueString("poem"),
		},
	}
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(nil, fakeEmbedder{}, Config{Collection: "c"})
	assert.Error(t, err)
	_, err = New(&fakeQuerier{}, nil, Config{Collection: "c"})
	assert.Error(t, err)
	_, err = New(&fakeQuerier{}, fakeEmbedder{}, Config{})
	assert.Error(t, err)
}

func TestIndex_Query_BlendsDenseAndSparse(t *testing.T) {
	fq := &fakeQuerier{
		dense:  []*qdrant.ScoredPoint{point("a", 0.75, "1"), point("b", 0.4, "2")},
		sparse: []*qdrant.ScoredPoint{point("a", 2.0, "1"), point("c", 4.0, "3")},
	}
	idx, err := New(fq, fakeEmbedder{}, Config{Collection: "poems"})
	require.NoError(t, err)

	hits, err := idx.Query(context.Background(), store.Query{
		Text: "le poème fondateur", TopK: 5, Alpha: 0.5, Threshold: 0.3,
	})

	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].ID)
	// Scores travel as float32; 0.75 and the sparse values are exact.
	assert.InDelta(t, 2*(1-0.625), hits[0].Distance, 1e-6)
	assert.Equal(t, "c", hits[1].ID)
	assert.InDelta(t, 1.0, hits[1].Distance, 1e-6)

	assert.Equal(t, "a text", hits[0].Text)
	assert.NotContains(t, hits[0].Metadata, DefaultTextField)

	c, err := store.HitToChunk(hits[0])
	require.NoError(t, err)
	assert.Equal(t, "1", c.Metadata.DocumentID)
	assert.Equal(t, uint32(10), c.Metadata.LineStart)

	require.Len(t, fq.requests, 2)
	for _, req := range fq.requests {
		assert.Equal(t, "poems", req.GetCollectionName())
		assert.Equal(t, uint64(10), req.GetLimit())
	}
}

func TestIndex_Query_SkipsSparseWithoutTerms(t *testing.T) {
	fq := &fakeQuerier{dense: []*qdrant.ScoredPoint{point("a", 0.9, "1")}}
	idx, err := New(fq, fakeEmbedder{}, Config{Collection: "c"})
	require.NoError(t, err)

	hits, err := idx.Query(context.Background(), store.Query{Text: "le la", TopK: 3, Alpha: 1})

	require.NoError(t, err)
	assert.Len(t, hits, 1)
	assert.Len(t, fq.requests, 1)
}

func TestIndex_Query_EmbedFailure(t *testing.T) {
	idx, err := New(&fakeQuerier{}, fakeEmbedder{err: errors.New("down")}, Config{Collection: "c"})
	require.NoError(t, err)

	_, err = idx.Query(context.Background(), store.Query{Text: "mer", TopK: 3})
	assert.Error(t, err)
}

func TestIndex_Query_ZeroTopK(t *testing.T) {
	fq := &fakeQuerier{}
	idx, err := New(fq, fakeEmbedder{}, Config{Collection: "c"})
	require.NoError(t, err)

	hits, err := idx.Query(context.Background(), store.Query{Text: "mer"})
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Empty(t, fq.requests)
}

func TestIndex_Query_PassesFilter(t *testing.T) {
	fq := &fakeQuerier{}
	idx, err := New(fq, fakeEmbedder{}, Config{Collection: "c"})
	require.NoError(t, err)

	_, err = idx.Query(context.Background(), store.Query{
		Text: "mer", TopK: 3,
		Filter: store.Eq{Field: store.KeyAgentScope, Value: "poet"},
	})
	require.NoError(t, err)

	for _, req := range fq.requests {
		must := req.GetFilter().GetMust()
		require.Len(t, must, 1)
		assert.Equal(t, store.KeyAgentScope, must[0].GetField().GetKey())
		assert.Equal(t, "poet", must[0].GetField().GetMatch().GetKeyword())
	}
}

func TestTranslateFilter(t *testing.T) {
	f, err := TranslateFilter(nil)
	require.NoError(t, err)
	assert.Nil(t, f)

	f, err = TranslateFilter(store.And{Children: []store.Filter{
		store.Eq{Field: "document_id", Value: "42"},
		store.Or{Children: []store.Filter{
			store.Eq{Field: "line_start", Value: 10},
			store.Eq{Field: "is_complete", Value: true},
		}},
	}})
	require.NoError(t, err)

	must := f.GetMust()
	require.Len(t, must, 2)
	assert.Equal(t, "42", must[0].GetField().GetMatch().GetKeyword())

	should := must[1].GetFilter().GetShould()
	require.Len(t, should, 2)
	assert.Equal(t, int64(10), should[0].GetField().GetMatch().GetInteger())
	assert.True(t, should[1].GetField().GetMatch().GetBoolean())
}

func TestTranslateFilter_Float(t *testing.T) {
	f, err := TranslateFilter(store.Eq{Field: "score", Value: 0.5})
	require.NoError(t, err)

	r := f.GetMust()[0].GetField().GetRange()
	assert.Equal(t, 0.5, r.GetGte())
	assert.Equal(t, 0.5, r.GetLte())
}

func TestTranslateFilter_Invalid(t *testing.T) {
	_, err := TranslateFilter(store.Eq{Field: ""})
	assert.Error(t, err)
}

func TestPayloadToMap(t *testing.T) {
	m := PayloadToMap(map[string]*qdrant.Value{
		"s": qdrant.NewValueString("x"),
		"i": qdrant.NewValueInt(3),
		"d": qdrant.NewValueDouble(1.5),
		"b": qdrant.NewValueBool(true),
		"n": {Kind: &qdrant.Value_NullValue{}},
		"l": {Kind: &qdrant.Value_ListValue{ListValue: &qdrant.ListValue{
			Values: []*qdrant.Value{qdrant.NewValueString("mer")},
		}}},
	})

	assert.Equal(t, "x", m["s"])
	assert.Equal(t, int64(3), m["i"])
	assert.Equal(t, 1.5, m["d"])
	assert.Equal(t, true, m["b"])
	assert.Nil(t, m["n"])
	assert.Equal(t, []any{"mer"}, m["l"])
}

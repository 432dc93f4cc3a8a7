package search

import (
	"cmp"
	"slices"
	"strings"

	"github.com/Aman-CERP/ctxrank/internal/chunk"
)

// MergeChunks stitches chunks of the same document whose line ranges are
// within tolerance of each other. Documents are emitted in order of first
// appearance; within a document, merged blocks follow line order.
//
// Exact duplicate IDs are collapsed first, keeping the closest hit. A block
// made of one chunk is returned unchanged. Merging is idempotent and never
// crosses documents.
func MergeChunks(chunks []chunk.Chunk, tolerance uint32) []chunk.Chunk {
	if len(chunks) == 0 {
		return []chunk.Chunk{}
	}

	deduped := dedupeByID(chunks)

	var order []string
	groups := make(map[string][]chunk.Chunk)
	for _, c := range deduped {
		doc := c.Metadata.DocumentID
		if _, ok := groups[doc]; !ok {
			order = append(order, doc)
		}
		groups[doc] = append(groups[doc], c)
	}

	out := make([]chunk.Chunk, 0, len(deduped))
	for _, doc := range order {
		group := groups[doc]
		slices.SortStableFunc(group, func(a, b chunk.Chunk) int {
			return cmp.Compare(a.Metadata.LineStart, b.Metadata.LineStart)
		})
		for _, block := range sweep(group, tolerance) {
			out = append(out, fold(block))
		}
	}
	return out
}

// dedupeByID keeps the first position of each ID with the lowest distance
// seen for it.
func dedupeByID(chunks []chunk.Chunk) []chunk.Chunk {
	index := make(map[string]int, len(chunks))
	out := make([]chunk.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if i, ok := index[c.ID]; ok {
			if c.Distance < out[i].Distance {
				out[i] = c
			}
			continue
		}
		index[c.ID] = len(out)
		out = append(out, c)
	}
	return out
}

// sweep splits a line-sorted group into runs of adjacent chunks.
func sweep(sorted []chunk.Chunk, tolerance uint32) [][]chunk.Chunk {
	var blocks [][]chunk.Chunk
	start := 0
	runningEnd := sorted[0].Metadata.LineEnd
	for i := 1; i < len(sorted); i++ {
		next := sorted[i].Metadata
		if uint64(next.LineStart) <= uint64(runningEnd)+uint64(tolerance) {
			runningEnd = max(runningEnd, next.LineEnd)
			continue
		}
		blocks = append(blocks, sorted[start:i])
		start = i
		runningEnd = next.LineEnd
	}
	return append(blocks, sorted[start:])
}

// fold collapses a run into one chunk.
func fold(block []chunk.Chunk) chunk.Chunk {
	if len(block) == 1 {
		return block[0]
	}

	first := block[0]
	merged := chunk.Chunk{
		Metadata: chunk.Metadata{
			DocumentID: first.Metadata.DocumentID,
			ChunkType:  first.Metadata.ChunkType,
			LineStart:  first.Metadata.LineStart,
			LineEnd:    first.Metadata.LineEnd,
			IsComplete: true,
			Filename:   first.Metadata.Filename,
			Page:       first.Metadata.Page,
		},
	}

	ids := make([]string, 0, len(block))
	texts := make([]string, 0, len(block))
	var keywords []string
	var distance float64
	for _, c := range block {
		m := c.Metadata
		ids = append(ids, c.ID)
		texts = append(texts, c.Text)
		distance += c.Distance

		merged.Metadata.LineStart = min(merged.Metadata.LineStart, m.LineStart)
		merged.Metadata.LineEnd = max(merged.Metadata.LineEnd, m.LineEnd)
		merged.Metadata.IsComplete = merged.Metadata.IsComplete && m.IsComplete
		merged.Metadata.MergedChunks += max(m.MergedChunks, 1)

		if merged.Metadata.SectionTitle == nil && m.Title() != "" {
			title := m.Title()
			merged.Metadata.SectionTitle = &title
		}
		if m.CreatedAt != nil && (merged.Metadata.CreatedAt == nil || m.CreatedAt.After(*merged.Metadata.CreatedAt)) {
			ts := *m.CreatedAt
			merged.Metadata.CreatedAt = &ts
		}
		keywords = append(keywords, splitKeywords(m.Keywords)...)
	}

	merged.ID = strings.Join(ids, "+")
	merged.Text = strings.Join(texts, "\n")
	merged.Distance = distance / float64(len(block))
	merged.Metadata.Keywords = strings.Join(uniqueInOrder(keywords), ", ")
	return merged
}

// splitKeywords reads the indexed keyword string, which may be comma or
// whitespace separated.
func splitKeywords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n'
	})
}

func uniqueInOrder(words []string) []string {
	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

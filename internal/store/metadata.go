package store

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Aman-CERP/ctxrank/internal/chunk"
	ctxerrors "github.com/Aman-CERP/ctxrank/internal/errors"
)

// Metadata keys shared with the indexing side.
const (
	KeyDocumentID   = "document_id"
	KeyChunkType    = "chunk_type"
	KeyLineStart    = "line_start"
	KeyLineEnd      = "line_end"
	KeySectionTitle = "section_title"
	KeyKeywords     = "keywords"
	KeyIsComplete   = "is_complete"
	KeyMergedChunks = "merged_chunks"
	KeyCreatedAt    = "created_at"
	KeyFilename     = "filename"
	KeyPage         = "page"
	KeyAgentScope   = "agent_scope"
)

// DecodeMetadata maps an index metadata record onto chunk.Metadata.
// Only a missing document_id is an error; every other malformed field takes
// a default: unknown chunk_type is prose, missing lines are 0, an inverted
// range is collapsed to line_start, merged_chunks below 1 becomes 1, and an
// unparsable created_at is dropped.
func DecodeMetadata(raw map[string]any) (chunk.Metadata, error) {
	var md chunk.Metadata

	md.DocumentID = asString(raw[KeyDocumentID])
	if md.DocumentID == "" {
		return md, ctxerrors.MalformedMetadata("hit has no document_id", nil)
	}

	md.ChunkType, _ = chunk.ParseChunkType(strings.ToLower(asString(raw[KeyChunkType])))
	md.LineStart = asUint32(raw[KeyLineStart])
	md.LineEnd = asUint32(raw[KeyLineEnd])
	if md.LineEnd < md.LineStart {
		md.LineEnd = md.LineStart
	}

	if title := strings.TrimSpace(asString(raw[KeySectionTitle])); title != "" {
		md.SectionTitle = &title
	}
	md.Keywords = asKeywords(raw[KeyKeywords])
	md.IsComplete = asBool(raw[KeyIsComplete])

	md.MergedChunks = asUint32(raw[KeyMergedChunks])
	if md.MergedChunks < 1 {
		md.MergedChunks = 1
	}
	md.CreatedAt = asTime(raw[KeyCreatedAt])

	md.Filename = asString(raw[KeyFilename])
	if md.Filename == "" {
		md.Filename = md.DocumentID
	}
	md.Page = asUint32(raw[KeyPage])

	return md, nil
}

// EncodeMetadata is the inverse of DecodeMetadata, used by the local index
// and by corpus loaders.
func EncodeMetadata(md chunk.Metadata) map[string]any {
	out := map[string]any{
		KeyDocumentID:   md.DocumentID,
		KeyChunkType:    string(md.ChunkType),
		KeyLineStart:    md.LineStart,
		KeyLineEnd:      md.LineEnd,
		KeyKeywords:     md.Keywords,
		KeyIsComplete:   md.IsComplete,
		KeyMergedChunks: md.MergedChunks,
		KeyFilename:     md.Filename,
		KeyPage:         md.Page,
	}
	if md.SectionTitle != nil {
		out[KeySectionTitle] = *md.SectionTitle
	}
	if md.CreatedAt != nil {
		out[KeyCreatedAt] = md.CreatedAt.UTC().Format(time.RFC3339)
	}
	return out
}

// HitToChunk decodes a RawHit. Negative or NaN distances are clamped to 0.
func HitToChunk(hit RawHit) (chunk.Chunk, error) {
	md, err := DecodeMetadata(hit.Metadata)
	if err != nil {
		return chunk.Chunk{}, fmt.Errorf("hit %s: %w", hit.ID, err)
	}
	d := hit.Distance
	if math.IsNaN(d) || d < 0 {
		d = 0
	}
	return chunk.Chunk{
		ID:       hit.ID,
		Text:     hit.Text,
		Distance: d,
		Metadata: md,
	}, nil
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int, int32, int64, uint32, uint64:
		return fmt.Sprint(x)
	default:
		return ""
	}
}

func asUint32(v any) uint32 {
	var f float64
	switch x := v.(type) {
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint32:
		return x
	case uint64:
		f = float64(x)
	case float32:
		f = float64(x)
	case float64:
		f = x
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	if f > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(f)
}

func asBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(x))
		return b
	case float64:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	default:
		return false
	}
}

func asKeywords(v any) string {
	switch x := v.(type) {
	case []string:
		return strings.Join(x, ", ")
	case []any:
		parts := make([]string, 0, len(x))
		for _, item := range x {
			if s := asString(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return asString(v)
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func asTime(v any) *time.Time {
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return nil
		}
		return &x
	case *time.Time:
		if x == nil || x.IsZero() {
			return nil
		}
		t := *x
		return &t
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return &t
			}
		}
		return nil
	case float64:
		if math.IsNaN(x) || x <= 0 {
			return nil
		}
		t := time.Unix(int64(x), 0).UTC()
		return &t
	case int64:
		if x <= 0 {
			return nil
		}
		t := time.Unix(x, 0).UTC()
		return &t
	default:
		return nil
	}
}

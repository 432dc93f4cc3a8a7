package search

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Aman-CERP/ctxrank/internal/chunk"
)

// VerbatimBanner is prepended to the context when it carries a poem or a
// reconstructed block, both of which must be quoted as-is.
const VerbatimBanner = "IMPORTANT: the passages below marked POEM or CONTENT COMPLETE are " +
	"complete texts. Quote them verbatim and in full. Do not paraphrase, summarise or reflow them."

const blockSeparator = "\n\n"

// Formatter renders ranked chunks into a prompt block and citations.
// It is stateless and safe for concurrent use.
type Formatter struct {
	excerptChars int
	banner       string
}

// FormatterOption configures a Formatter.
type FormatterOption func(*Formatter)

// WithExcerptChars sets the target excerpt length in runes.
func WithExcerptChars(n int) FormatterOption {
	return func(f *Formatter) {
		if n > 0 {
			f.excerptChars = n
		}
	}
}

// WithBanner replaces VerbatimBanner.
func WithBanner(banner string) FormatterOption {
	return func(f *Formatter) {
		if banner != "" {
			f.banner = banner
		}
	}
}

// NewFormatter creates a formatter.
func NewFormatter(opts ...FormatterOption) *Formatter {
	f := &Formatter{excerptChars: DefaultExcerptChars, banner: VerbatimBanner}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format is Render over freshly built sources.
func (f *Formatter) Format(chunks []chunk.ScoredChunk, intent chunk.Intent, maxBlocks, maxChars int) (string, []chunk.SourceRef) {
	return f.Render(chunks, f.Sources(chunks, intent), maxBlocks, maxChars)
}

// Sources builds one citation per chunk, in order.
func (f *Formatter) Sources(chunks []chunk.ScoredChunk, intent chunk.Intent) []chunk.SourceRef {
	keywords := keywordLookup(intent.Keywords)
	sources := make([]chunk.SourceRef, len(chunks))
	for i, c := range chunks {
		excerpt := buildExcerpt(c.Text, keywords, f.excerptChars)
		filename := c.Metadata.Filename
		if filename == "" {
			filename = c.Metadata.DocumentID
		}
		sources[i] = chunk.SourceRef{
			DocumentID:  c.Metadata.DocumentID,
			Filename:    filename,
			Page:        c.Metadata.Page,
			Section:     c.Metadata.Title(),
			Excerpt:     excerpt,
			Highlighted: highlight(excerpt, keywords),
			Score:       Relevance(c.SemanticScore),
		}
	}
	return sources
}

// Render takes up to maxBlocks chunks and joins their blocks while the
// result, banner included, stays within maxChars runes. The first block
// that would overflow ends the loop; no block is cut. It returns the
// sources of the included chunks. sources must be parallel to chunks.
func (f *Formatter) Render(chunks []chunk.ScoredChunk, sources []chunk.SourceRef, maxBlocks, maxChars int) (string, []chunk.SourceRef) {
	if maxBlocks <= 0 || maxChars <= 0 {
		return "", []chunk.SourceRef{}
	}

	bannerCost := utf8.RuneCountInString(f.banner) + utf8.RuneCountInString(blockSeparator)
	sepCost := utf8.RuneCountInString(blockSeparator)

	var (
		blocks      []string
		included    = make([]chunk.SourceRef, 0, min(maxBlocks, len(chunks)))
		used        int
		needsBanner bool
	)
	for i, c := range chunks {
		if len(blocks) == maxBlocks {
			break
		}
		block := renderBlock(c)
		cost := utf8.RuneCountInString(block)
		if len(blocks) > 0 {
			cost += sepCost
		}
		banner := needsBanner || wantsVerbatim(c)
		total := used + cost
		if banner {
			total += bannerCost
		}
		if total > maxChars {
			break
		}

		blocks = append(blocks, block)
		used += cost
		needsBanner = banner
		if i < len(sources) {
			included = append(included, sources[i])
		}
	}

	if len(blocks) == 0 {
		return "", included
	}
	text := strings.Join(blocks, blockSeparator)
	if needsBanner {
		text = f.banner + blockSeparator + text
	}
	return text, included
}

func wantsVerbatim(c chunk.ScoredChunk) bool {
	return c.Metadata.ChunkType == chunk.TypePoem || c.Metadata.MergedChunks > 1
}

func renderBlock(c chunk.ScoredChunk) string {
	header := blockHeader(c.Metadata)
	if header == "" {
		return c.Text
	}
	return header + "\n" + c.Text
}

// blockHeader builds "[POEM: title] (lines 10-40) — CONTENT COMPLETE" and
// its variants. Prose uses the bare title.
func blockHeader(m chunk.Metadata) string {
	var sb strings.Builder
	title := m.Title()
	switch m.ChunkType {
	case chunk.TypePoem, chunk.TypeSection, chunk.TypeConversation:
		sb.WriteByte('[')
		sb.WriteString(strings.ToUpper(string(m.ChunkType)))
		if title != "" {
			sb.WriteString(": ")
			sb.WriteString(title)
		}
		sb.WriteByte(']')
	default:
		sb.WriteString(title)
	}
	if m.LineEnd > 0 {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "(lines %d-%d)", m.LineStart, m.LineEnd)
	}
	if m.MergedChunks > 1 {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString("— CONTENT COMPLETE")
	}
	return sb.String()
}

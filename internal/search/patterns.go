package search

import (
	"regexp"
	"strings"

	"github.com/Aman-CERP/ctxrank/internal/chunk"
)

// RE2's \b is ASCII-only and would split "poème" after "po", so word
// boundaries are spelled out as non-letter classes.
const (
	wordStart = `(?:^|[^\p{L}])`
	wordEnd   = `(?:[^\p{L}]|$)`
)

// wordPattern compiles alternatives that must stand as whole words.
func wordPattern(alternatives ...string) *regexp.Regexp {
	return regexp.MustCompile(wordStart + `(?:` + strings.Join(alternatives, "|") + `)` + wordEnd)
}

// Compiled at package init. All patterns run against the lowercased query.
var (
	// A request to cite something in full: "cite ... intégralement",
	// "en entier", "tel quel", "mot pour mot", "verbatim", ...
	integralCitationPatterns = []*regexp.Regexp{
		regexp.MustCompile(wordStart + `cit(?:e|er|ez|es|ation)\p{L}*[^.?!]*?(?:intégral|complet|complète|entier|entière|exact|exacte|exactement)`),
		wordPattern(`en entier`, `dans (?:son|sa|leur|ses) intégralité`, `intégralement`),
		wordPattern(`tel quel`, `telle quelle`, `tels quels`, `telles quelles`),
		wordPattern(`mot pour mot`, `mot à mot`, `texte (?:complet|intégral)`, `version intégrale`),
		wordPattern(`verbatim`, `in full`, `word for word`, `full text`),
		regexp.MustCompile(wordStart + `quote\p{L}*[^.?!]*?(?:entire|entirely|exact|exactly|whole)`),
	}

	poemPattern = wordPattern(
		`poèmes?`, `poemes?`, `poésies?`, `poesies?`, `strophes?`, `sonnets?`,
		`(?:en|les|des|ces|ses|tes|mes|quelques) vers`,
		`poems?`, `poetry`, `verses?`, `stanzas?`,
	)

	sectionPattern = wordPattern(
		`sections?`, `chapitres?`, `parties?`, `paragraphes?`,
		`chapters?`, `paragraphs?`,
	)

	conversationPattern = wordPattern(
		`conversations?`, `dialogues?`, `échanges?`, `echanges?`, `discussions?`,
		`entretiens?`, `interviews?`,
	)

	// Runs of three or more letters, diacritics included.
	keywordPattern = regexp.MustCompile(`\p{L}{3,}`)
)

// contentTypeFamilies is checked in order; the first match wins.
var contentTypeFamilies = []struct {
	pattern   *regexp.Regexp
	chunkType chunk.ChunkType
}{
	{poemPattern, chunk.TypePoem},
	{sectionPattern, chunk.TypeSection},
	{conversationPattern, chunk.TypeConversation},
}

func matchesIntegralCitation(lowered string) bool {
	for _, p := range integralCitationPatterns {
		if p.MatchString(lowered) {
			return true
		}
	}
	return false
}

func detectContentType(lowered string) *chunk.ChunkType {
	for _, fam := range contentTypeFamilies {
		if fam.pattern.MatchString(lowered) {
			ct := fam.chunkType
			return &ct
		}
	}
	return nil
}

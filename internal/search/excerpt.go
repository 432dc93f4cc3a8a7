package search

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const ellipsis = "…"

var (
	// A sentence ends at . ! ? or …, optionally followed by closing quotes,
	// then whitespace. A newline always ends one.
	sentenceEnd = regexp.MustCompile(`[.!?…]+(?:\s*["»”’)])*\s+|\n+`)

	letterRun = regexp.MustCompile(`\p{L}+`)
)

// splitSentences returns the trimmed, non-empty sentences of text, each
// keeping its terminal punctuation.
func splitSentences(text string) []string {
	var sentences []string
	last := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[last:loc[1]]); s != "" {
			sentences = append(sentences, s)
		}
		last = loc[1]
	}
	if s := strings.TrimSpace(text[last:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// countKeywordHits counts whole-word occurrences of keywords in s.
func countKeywordHits(s string, keywords map[string]struct{}) int {
	if len(keywords) == 0 {
		return 0
	}
	hits := 0
	for _, w := range letterRun.FindAllString(s, -1) {
		if _, ok := keywords[strings.ToLower(w)]; ok {
			hits++
		}
	}
	return hits
}

// buildExcerpt returns a window of at most maxRunes runes made of whole
// sentences, centred on the sentence with the most keyword hits. The first
// sentence is used when no sentence matches. A sentence longer than the
// window is cut at a word boundary and suffixed with an ellipsis; a single
// word longer than the window is cut inside the word.
func buildExcerpt(text string, keywords map[string]struct{}, maxRunes int) string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return ""
	}

	best, bestHits := 0, 0
	for i, s := range sentences {
		if hits := countKeywordHits(s, keywords); hits > bestHits {
			best, bestHits = i, hits
		}
	}

	if utf8.RuneCountInString(sentences[best]) > maxRunes {
		return cutAtWord(sentences[best], maxRunes)
	}

	lo, hi := best, best
	length := utf8.RuneCountInString(sentences[best])
	for {
		grew := false
		if hi+1 < len(sentences) {
			if n := utf8.RuneCountInString(sentences[hi+1]) + 1; length+n <= maxRunes {
				hi++
				length += n
				grew = true
			}
		}
		if lo > 0 {
			if n := utf8.RuneCountInString(sentences[lo-1]) + 1; length+n <= maxRunes {
				lo--
				length += n
				grew = true
			}
		}
		if !grew {
			break
		}
	}
	return strings.Join(sentences[lo:hi+1], " ")
}

// cutAtWord truncates s to at most maxRunes runes including the ellipsis,
// backing up to the last whitespace so no word is split.
func cutAtWord(s string, maxRunes int) string {
	runes := []rune(s)
	limit := maxRunes - utf8.RuneCountInString(ellipsis)
	if limit <= 0 {
		return ellipsis
	}
	cut := limit
	for cut > 0 && !unicode.IsSpace(runes[cut]) {
		cut--
	}
	if cut == 0 {
		// One enormous word; fall back to a hard cut.
		cut = limit
	}
	return strings.TrimRightFunc(string(runes[:cut]), unicode.IsSpace) + ellipsis
}

// highlight wraps whole-word keyword occurrences in ** markers,
// case-insensitively.
func highlight(s string, keywords map[string]struct{}) string {
	if len(keywords) == 0 {
		return s
	}
	var sb strings.Builder
	last := 0
	for _, loc := range letterRun.FindAllStringIndex(s, -1) {
		word := s[loc[0]:loc[1]]
		if _, ok := keywords[strings.ToLower(word)]; !ok {
			continue
		}
		sb.WriteString(s[last:loc[0]])
		sb.WriteString("**")
		sb.WriteString(word)
		sb.WriteString("**")
		last = loc[1]
	}
	sb.WriteString(s[last:])
	return sb.String()
}

func keywordLookup(keywords []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		set[strings.ToLower(kw)] = struct{}{}
	}
	return set
}

package store

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// wordRegex matches letter runs, digits allowed after the first letter.
// Apostrophes split words ("l'origine" -> "l", "origine").
var wordRegex = regexp.MustCompile(`\p{L}[\p{L}\p{N}]*`)

// MinTokenLength is the shortest token the lexical index keeps.
const MinTokenLength = 2

// DefaultStopWords are French and English function words dropped from both
// the lexical index and keyword extraction.
var DefaultStopWords = []string{
	// French
	"le", "la", "les", "un", "une", "des", "du", "de", "au", "aux", "ce", "ces",
	"cet", "cette", "et", "ou", "mais", "donc", "or", "ni", "car", "que", "qui",
	"quoi", "dont", "où", "dans", "sur", "sous", "avec", "sans", "pour", "par",
	"en", "est", "sont", "était", "être", "avoir", "ont", "a", "il", "elle",
	"ils", "elles", "nous", "vous", "je", "tu", "on", "me", "moi", "te", "toi",
	"se", "son", "sa", "ses", "mon", "ma", "mes", "ton", "ta", "tes", "leur",
	"leurs", "notre", "nos", "votre", "vos", "ne", "pas", "plus", "très",
	"tout", "tous", "toute", "toutes", "comme", "aussi", "bien", "peu", "y",
	"lui", "quel", "quelle", "quels", "quelles", "entre", "vers", "chez",
	// English
	"the", "an", "and", "or", "but", "of", "to", "in", "on", "at", "by", "for",
	"with", "from", "is", "are", "was", "were", "be", "been", "it", "its",
	"this", "that", "these", "those", "as", "not", "no", "me", "my", "you",
	"your", "we", "our", "they", "their", "what", "which", "who", "whom",
	"how", "about", "into", "all", "any", "some", "can", "please",
}

// TokenizeText splits prose into lowercase word tokens of at least
// MinTokenLength letters. Diacritics are kept.
func TokenizeText(text string) []string {
	words := wordRegex.FindAllString(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if len([]rune(w)) >= MinTokenLength {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

// FoldAccents strips combining marks: "poème" -> "poeme".
// Chained transformers carry state, so one is built per call.
func FoldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// FilterStopWords removes stop words from a token list.
func FilterStopWords(tokens []string, stopWords map[string]struct{}) []string {
	result := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, isStop := stopWords[strings.ToLower(token)]; !isStop {
			result = append(result, token)
		}
	}
	return result
}

// BuildStopWordMap converts a slice of stop words to a map for lookup.
func BuildStopWordMap(stopWords []string) map[string]struct{} {
	m := make(map[string]struct{}, len(stopWords))
	for _, word := range stopWords {
		m[strings.ToLower(word)] = struct{}{}
	}
	return m
}

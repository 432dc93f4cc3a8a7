package search

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSplitSentences(t *testing.T) {
	got := splitSentences("Première phrase. Deuxième ! Troisième ?\nQuatrième… « Cinquième. » Fin")

	assert.Equal(t, []string{
		"Première phrase.",
		"Deuxième !",
		"Troisième ?",
		"Quatrième…",
		"« Cinquième. »",
		"Fin",
	}, got)
}

func TestBuildExcerpt_CentresOnBestSentence(t *testing.T) {
	text := "Alpha un. Beta deux. Le fondateur parle de la mer. Gamma trois. Delta quatre."
	kw := keywordLookup([]string{"fondateur", "mer"})

	got := buildExcerpt(text, kw, 50)

	assert.Contains(t, got, "Le fondateur parle de la mer.")
	assert.LessOrEqual(t, utf8.RuneCountInString(got), 50)
	assert.NotContains(t, got, "Alpha")
}

func TestBuildExcerpt_FallsBackToFirstSentence(t *testing.T) {
	got := buildExcerpt("Première phrase. Seconde phrase.", keywordLookup([]string{"absent"}), 16)

	assert.Equal(t, "Première phrase.", got)
}

func TestBuildExcerpt_WholeTextWhenShort(t *testing.T) {
	text := "Un. Deux. Trois."

	assert.Equal(t, text, buildExcerpt(text, nil, DefaultExcerptChars))
}

func TestBuildExcerpt_CutsLongSentenceAtWord(t *testing.T) {
	text := strings.Repeat("fondation ", 60)

	got := buildExcerpt(text, nil, 50)

	assert.True(t, strings.HasSuffix(got, "…"))
	assert.LessOrEqual(t, utf8.RuneCountInString(got), 50)
	body := strings.TrimSuffix(got, "…")
	for _, w := range strings.Fields(body) {
		assert.Equal(t, "fondation", w)
	}
}

func TestBuildExcerpt_HardCutsSingleOverlongWord(t *testing.T) {
	word := strings.Repeat("a", 500)

	got := buildExcerpt(word, nil, 320)

	assert.Equal(t, 320, utf8.RuneCountInString(got))
	assert.Equal(t, strings.Repeat("a", 319)+"…", got)
}

func TestBuildExcerpt_Empty(t *testing.T) {
	assert.Equal(t, "", buildExcerpt("   ", nil, 100))
}

func TestHighlight(t *testing.T) {
	kw := keywordLookup([]string{"mer", "poème"})

	assert.Equal(t, "La **MER** et le **poème**, amer.", highlight("La MER et le poème, amer.", kw))
	assert.Equal(t, "**mer** **mer**", highlight("mer mer", kw))
	assert.Equal(t, "rien", highlight("rien", nil))
}

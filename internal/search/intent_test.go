package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/ctxrank/internal/chunk"
)

func TestParseIntent_FoundingPoemInFull(t *testing.T) {
	query := "Cite-moi le poème fondateur dans son intégralité"

	intent := ParseIntent(query)

	assert.True(t, intent.WantsIntegralCitation)
	require.NotNil(t, intent.ContentType)
	assert.Equal(t, chunk.TypePoem, *intent.ContentType)
	assert.Subset(t, intent.Keywords, []string{"fondateur", "poème"})
	assert.True(t, strings.HasPrefix(intent.ExpandedQuery, query))
	assert.Contains(t, intent.ExpandedQuery, "origine")
}

func TestParseIntent_Unmatched(t *testing.T) {
	intent := ParseIntent("ok")

	assert.False(t, intent.WantsIntegralCitation)
	assert.Nil(t, intent.ContentType)
	assert.Empty(t, intent.Keywords)
	assert.Equal(t, "ok", intent.ExpandedQuery)
}

func TestParseIntent_IntegralCitation(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"Cite le texte complet", true},
		{"citez la strophe exacte", true},
		{"donne-le en entier", true},
		{"recopie-le tel quel", true},
		{"mot pour mot s'il te plaît", true},
		{"the verbatim passage", true},
		{"quote the whole thing", true},
		{"give it to me in full", true},
		{"word for word", true},
		{"récite le poème", false},
		{"un entier naturel", false},
		{"parle-moi de la fondation", false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseIntent(tt.query).WantsIntegralCitation)
		})
	}
}

func TestParseIntent_ContentType(t *testing.T) {
	poem, section, conversation := chunk.TypePoem, chunk.TypeSection, chunk.TypeConversation
	tests := []struct {
		query string
		want  *chunk.ChunkType
	}{
		{"le poème de la mer", &poem},
		{"quelques vers sur l'hiver", &poem},
		{"the stanza about rain", &poem},
		{"le premier chapitre", &section},
		{"section 3", &section},
		{"notre dialogue d'hier", &conversation},
		{"the interview", &conversation},
		{"un poème dans le chapitre", &poem},
		{"vers midi", nil},
		{"poèmerie", nil},
		{"une fondation solide", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := ParseIntent(tt.query).ContentType
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestParseIntent_KeywordsSortedAndDeduplicated(t *testing.T) {
	intent := ParseIntent("Montre la mer, la MER et le vent des îles")

	assert.Equal(t, []string{"mer", "vent", "îles"}, intent.Keywords)
}

func TestParseIntent_ExpansionNeedsMatchingType(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		suffix string
		want   bool
	}{
		{"keyword and type", "le premier chapitre", "introduction début ouverture", true},
		{"keyword without type", "le premier jour", "introduction début ouverture", false},
		{"keyword with other type", "le premier poème", "introduction début ouverture", false},
		{"conversation", "notre rencontre, le dialogue", "dialogue échange entretien", true},
		{"last section", "la dernière partie", "conclusion fin clôture", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := ParseIntent(tt.query)
			assert.Equal(t, tt.want, strings.HasSuffix(intent.ExpandedQuery, " "+tt.suffix), intent.ExpandedQuery)
		})
	}
}

func TestParseIntent_SeveralPairingsInTableOrder(t *testing.T) {
	intent := ParseIntent("le poème fondateur et son origine")

	assert.Equal(t,
		"le poème fondateur et son origine origine fondation genèse naissance fondateur genèse création",
		intent.ExpandedQuery)
}

func TestQueryExpander_SuffixAppendedOnce(t *testing.T) {
	exp := NewQueryExpander(WithExtraPairings(Pairing{
		Keyword:     "mer",
		ContentType: chunk.TypePoem,
		Suffix:      "origine fondation genèse naissance",
	}))
	parser := NewIntentParser(WithExpander(exp))

	intent := parser.Parse("poème fondateur de la mer")

	assert.Equal(t, 1, strings.Count(intent.ExpandedQuery, "origine fondation genèse naissance"))
}

func TestIntentParser_ExtraStopWords(t *testing.T) {
	parser := NewIntentParser(WithExtraStopWords("Mer"))

	intent := parser.Parse("la mer et le vent")

	assert.Equal(t, []string{"vent"}, intent.Keywords)
}

func TestParseIntent_Deterministic(t *testing.T) {
	q := "Donne-moi les vers du poème fondateur"
	assert.Equal(t, ParseIntent(q), ParseIntent(q))
}

package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"french with apostrophe", "L'origine du Poème", []string{"origine", "du", "poème"}},
		{"drops single letters", "a b cd", []string{"cd"}},
		{"keeps digits after letters", "chapitre2 2024", []string{"chapitre2"}},
		{"empty", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TokenizeText(tt.in))
		})
	}
}

func TestFoldAccents(t *testing.T) {
	assert.Equal(t, "poeme genese echange", FoldAccents("poème genèse échange"))
	assert.Equal(t, "plain", FoldAccents("plain"))
}

func TestFilterStopWords(t *testing.T) {
	stop := BuildStopWordMap(DefaultStopWords)

	assert.Equal(t, []string{"poème", "fondateur"}, FilterStopWords([]string{"le", "poème", "fondateur", "the"}, stop))
}

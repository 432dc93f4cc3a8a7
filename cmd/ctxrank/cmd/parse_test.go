package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCmd_JSON(t *testing.T) {
	out, err := execute(t, "parse", "--json", "Cite-moi", "le", "poème", "fondateur", "en", "entier")
	require.NoError(t, err)

	var got ParseOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "Cite-moi le poème fondateur en entier", got.Query)
	assert.True(t, got.WantsIntegralCitation)
	assert.Equal(t, "poem", got.ContentType)
	assert.Contains(t, got.Keywords, "fondateur")
	assert.Contains(t, got.ExpandedQuery, "fondateur")
}

func TestParseCmd_Text(t *testing.T) {
	out, err := execute(t, "parse", "la mer")
	require.NoError(t, err)

	assert.Contains(t, out, "Intent")
	assert.Contains(t, out, "integral citation: false")
	assert.Contains(t, out, "content type:      (any)")
}

func TestParseCmd_RequiresQuery(t *testing.T) {
	_, err := execute(t, "parse")
	assert.Error(t, err)
}

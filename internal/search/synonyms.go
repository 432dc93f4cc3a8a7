package search

import "github.com/Aman-CERP/ctxrank/internal/chunk"

// Pairing appends Suffix to a query when Keyword is among the query's
// keywords and the query asks for ContentType. This is a short table of
// known high-value combinations, not a general synonym expander: the
// suffix bridges the gap between how users name a text ("le poème
// fondateur") and the words the text itself uses ("genèse", "origine").
type Pairing struct {
	Keyword     string
	ContentType chunk.ChunkType
	Suffix      string
}

// DefaultPairings is applied in order; each suffix is appended at most once.
var DefaultPairings = []Pairing{
	{Keyword: "fondateur", ContentType: chunk.TypePoem, Suffix: "origine fondation genèse naissance"},
	{Keyword: "fondatrice", ContentType: chunk.TypePoem, Suffix: "origine fondation genèse naissance"},
	{Keyword: "origine", ContentType: chunk.TypePoem, Suffix: "fondateur genèse création"},
	{Keyword: "premier", ContentType: chunk.TypeSection, Suffix: "introduction début ouverture"},
	{Keyword: "dernier", ContentType: chunk.TypeSection, Suffix: "conclusion fin clôture"},
	{Keyword: "rencontre", ContentType: chunk.TypeConversation, Suffix: "dialogue échange entretien"},
}

// RequestStopWords are command verbs and citation markers that say how to
// answer rather than what to look for. They never become keywords.
var RequestStopWords = []string{
	"cite", "citer", "citez", "cites", "donne", "donner", "donnez", "montre",
	"montrer", "montrez", "affiche", "afficher", "trouve", "trouver", "cherche",
	"chercher", "veux", "voudrais", "peux", "pourrais", "dis", "dire", "rappelle",
	"intégralité", "intégral", "intégrale", "intégralement", "entier", "entière",
	"complet", "complète", "exact", "exacte", "exactement", "texte", "quel",
	"quote", "show", "give", "find", "tell", "want", "need", "full", "verbatim",
	"word", "entire", "entirely", "exactly", "whole",
}

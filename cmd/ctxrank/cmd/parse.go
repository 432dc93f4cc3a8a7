package cmd

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ctxrank/internal/output"
	"github.com/Aman-CERP/ctxrank/internal/search"
)

// ParseOutput is the JSON output of the parse command.
type ParseOutput struct {
	Query                 string   `json:"query"`
	WantsIntegralCitation bool     `json:"wants_integral_citation"`
	ContentType           string   `json:"content_type,omitempty"`
	Keywords              []string `json:"keywords"`
	ExpandedQuery         string   `json:"expanded_query"`
}

func newParseCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "parse <query>",
		Short: "Show how a query is read",
		Long: `Parse a query without retrieving anything: whether it asks for a verbatim
citation, which content type it names, its keywords, and the expanded
query sent to the index.`,
		Example: `  ctxrank parse "Cite-moi le poème fondateur dans son intégralité"
  ctxrank parse --json "les strophes sur la mer"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, strings.Join(args, " "), jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runParse(cmd *cobra.Command, query string, jsonOutput bool) error {
	intent := search.ParseIntent(query)

	result := ParseOutput{
		Query:                 query,
		WantsIntegralCitation: intent.WantsIntegralCitation,
		Keywords:              intent.Keywords,
		ExpandedQuery:         intent.ExpandedQuery,
	}
	if result.Keywords == nil {
		result.Keywords = []string{}
	}
	if intent.ContentType != nil {
		result.ContentType = string(*intent.ContentType)
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	out := output.New(cmd.OutOrStdout())
	out.Heading("Intent")
	out.KeyValue("integral citation", result.WantsIntegralCitation)
	contentType := result.ContentType
	if contentType == "" {
		contentType = "(any)"
	}
	out.KeyValue("content type", contentType)
	out.KeyValue("keywords", strings.Join(result.Keywords, ", "))
	out.KeyValue("expanded query", result.ExpandedQuery)
	return nil
}

package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ctxrank/internal/output"
	"github.com/Aman-CERP/ctxrank/pkg/ctxrank"
)

type contextOptions struct {
	filters    []string
	scope      string
	docs       []string
	maxBlocks  int
	maxChars   int
	corpus     string
	jsonOutput bool
}

// ContextOutput is the JSON output of the context command.
type ContextOutput struct {
	RequestID string              `json:"request_id"`
	CacheHit  bool                `json:"cache_hit"`
	Context   string              `json:"context"`
	Sources   []ctxrank.SourceRef `json:"sources"`
	Intent    ParseOutput         `json:"intent"`
}

func newContextCmd() *cobra.Command {
	var opts contextOptions

	cmd := &cobra.Command{
		Use:   "context <query>",
		Short: "Build the prompt context for a query",
		Long: `Retrieve from the configured index, merge adjacent chunks, rank them and
print the budget-bounded context block followed by its citations.

The index backend comes from the configuration (index.backend): local
loads index.corpus_path (JSON Lines), qdrant and pgvector query a
running server.`,
		Example: `  # Local corpus
  ctxrank context --corpus poems.jsonl "cite le poème sur la mer en entier"

  # Restrict to one agent and two documents
  ctxrank context --scope poet --doc 42 --doc 7 "les strophes du vent"

  # Metadata filter, JSON output
  ctxrank context --filter lang=fr --filter page=3 --json "la mer"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContext(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringArrayVar(&opts.filters, "filter", nil, "Metadata filter field=value (repeatable, all must match)")
	cmd.Flags().StringVar(&opts.scope, "scope", "", "Only chunks with this agent_scope")
	cmd.Flags().StringArrayVar(&opts.docs, "doc", nil, "Only chunks of this document id (repeatable)")
	cmd.Flags().IntVar(&opts.maxBlocks, "max-blocks", 0, "Maximum context blocks (default from config)")
	cmd.Flags().IntVar(&opts.maxChars, "max-chars", 0, "Maximum context characters (default from config)")
	cmd.Flags().StringVar(&opts.corpus, "corpus", "", "JSON Lines corpus for the local backend")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runContext(cmd *cobra.Command, query string, opts contextOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.corpus != "" {
		cfg.Index.Backend = "local"
		cfg.Index.CorpusPath = opts.corpus
	}
	maxBlocks := cfg.Format.MaxBlocks
	if opts.maxBlocks != 0 {
		maxBlocks = opts.maxBlocks
	}
	maxChars := cfg.Format.MaxChars
	if opts.maxChars != 0 {
		maxChars = opts.maxChars
	}

	filter, err := ctxrank.ParseFilter(opts.filters)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	eng, err := ctxrank.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer func() { _ = eng.Close() }()

	res, err := eng.Build(ctx, ctxrank.Request{
		Query:       query,
		Filter:      filter,
		AgentScope:  opts.scope,
		DocumentIDs: opts.docs,
		MaxBlocks:   maxBlocks,
		MaxChars:    maxChars,
	})
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		result := ContextOutput{
			RequestID: res.RequestID,
			CacheHit:  res.CacheHit,
			Context:   res.ContextText,
			Sources:   res.Sources,
			Intent: ParseOutput{
				Query:                 query,
				WantsIntegralCitation: res.Intent.WantsIntegralCitation,
				Keywords:              res.Intent.Keywords,
				ExpandedQuery:         res.Intent.ExpandedQuery,
			},
		}
		if result.Sources == nil {
			result.Sources = []ctxrank.SourceRef{}
		}
		if result.Intent.Keywords == nil {
			result.Intent.Keywords = []string{}
		}
		if res.Intent.ContentType != nil {
			result.Intent.ContentType = string(*res.Intent.ContentType)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	out := output.New(cmd.OutOrStdout())
	out.Context(res.ContextText)
	out.Newline()
	out.Heading("Sources")
	out.Sources(res.Sources)
	if len(res.Sources) == 0 && res.ContextText == "" {
		out.Newline()
		out.Warning("No chunk passed retrieval; check the index and filters")
	}
	return nil
}

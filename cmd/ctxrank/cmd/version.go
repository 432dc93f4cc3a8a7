package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ctxrank/pkg/ctxrank"
	"github.com/Aman-CERP/ctxrank/pkg/version"
)

// VersionOutput is the --json form of the version command.
type VersionOutput struct {
	version.BuildInfo
	Backends  []string `json:"backends"`
	Embedders []string `json:"embedders"`
}

func newVersionCmd() *cobra.Command {
	var jsonOutput, shortOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print version information including git commit, build date and Go version,
followed by the index backends and embedding providers compiled in.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			switch {
			case shortOutput:
				_, err := fmt.Fprintln(out, version.Short())
				return err
			case jsonOutput:
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(VersionOutput{
					BuildInfo: version.GetInfo(),
					Backends:  ctxrank.Backends(),
					Embedders: ctxrank.Embedders(),
				})
			}
			_, err := fmt.Fprintf(out, "%s\nbackends: %s\nembedders: %s\n", version.String(),
				strings.Join(ctxrank.Backends(), ", "), strings.Join(ctxrank.Embedders(), ", "))
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")
	cmd.Flags().BoolVar(&shortOutput, "short", false, "Output only the version number")

	return cmd
}

package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/librarium-dev/librarium/internal/output"
)

func newStatsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show knowledge base statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.New(cmd.OutOrStdout())

			lib, _, err := openLibrary(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = lib.Close() }()

			stats, err := lib.GetStats(ctx)
			if err != nil {
				return err
			}

			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}

			out.Header("Knowledge base")
			out.Printf("  Documents: %d", stats.Documents)
			out.Printf("  Tags:      %d", stats.Tags)
			out.Printf("  Chunks:    %d", stats.Chunks)
			out.Printf("  Vectors:   %d", stats.Vectors)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newReadCmd() *cobra.Command {
	var fromLine, toLine int

	cmd := &cobra.Command{
		Use:   "read <doc-id>",
		Short: "Print a document's stored markdown",
		Long: `Print the stored markdown of a document, optionally restricted
to a line range. Out-of-range values are clamped.

Examples:
  librarium read a1b2c3d4e5f6
  librarium read a1b2c3d4e5f6 --from 40 --to 80`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			lib, _, err := openLibrary(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = lib.Close() }()

			text, err := lib.ReadDocument(ctx, args[0], fromLine, toLine)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}

	cmd.Flags().IntVar(&fromLine, "from", 1, "First line to print")
	cmd.Flags().IntVar(&toLine, "to", 0, "Last line to print (0 means end of document)")

	return cmd
}

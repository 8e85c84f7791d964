package cmd

import (
	"github.com/spf13/cobra"

	"github.com/librarium-dev/librarium/internal/output"
)

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <doc-id>...",
		Aliases: []string{"rm"},
		Short:   "Remove documents from the knowledge base",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.New(cmd.OutOrStdout())

			lib, _, err := openLibrary(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = lib.Close() }()

			for _, id := range args {
				if err := lib.RemoveDocument(ctx, id); err != nil {
					return err
				}
				out.Successf("%s removed", id)
			}
			return nil
		},
	}
}

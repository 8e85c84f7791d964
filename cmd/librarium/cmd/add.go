package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/librarium-dev/librarium/internal/library"
	"github.com/librarium-dev/librarium/internal/output"
)

func newAddCmd() *cobra.Command {
	var tags []string

	cmd := &cobra.Command{
		Use:   "add <file>...",
		Short: "Add documents to the knowledge base",
		Long: `Add one or more markdown or text files to the knowledge base.

Each file is stored, chunked, and indexed for both keyword and
semantic search.

Examples:
  librarium add notes.md
  librarium add docs/*.md --tag project --tag reference`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.New(cmd.OutOrStdout())

			lib, _, err := openLibrary(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = lib.Close() }()

			var failed int
			for _, path := range args {
				id, err := lib.AddDocument(ctx, path, tags)
				if err != nil {
					failed++
					if errors.Is(err, library.ErrUnsupportedFileType) {
						out.Error(fmt.Sprintf("%s: unsupported file type", path))
						continue
					}
					out.Error(fmt.Sprintf("%s: %v", path, err))
					continue
				}
				out.Successf("%s added as %s", path, out.Styles().ID.Render(id))
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "Tag to attach (repeatable)")

	return cmd
}

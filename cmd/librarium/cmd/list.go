package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/librarium-dev/librarium/internal/output"
)

func newListCmd() *cobra.Command {
	var tags []string
	var format string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List documents in the knowledge base",
		Long: `List registered documents, optionally restricted to documents
carrying any of the given tags.

Examples:
  librarium list
  librarium list --tag reference
  librarium list --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.New(cmd.OutOrStdout())

			lib, _, err := openLibrary(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = lib.Close() }()

			docs, err := lib.ListDocuments(ctx, tags)
			if err != nil {
				return err
			}

			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(docs)
			}

			if len(docs) == 0 {
				out.Dim("No documents found")
				return nil
			}
			for _, doc := range docs {
				line := fmt.Sprintf("%s  %s  (%d lines)",
					out.Styles().ID.Render(doc.ID), doc.Name, doc.NumLines)
				if len(doc.Tags) > 0 {
					line += "  " + out.Styles().Dim.Render("["+strings.Join(doc.Tags, ", ")+"]")
				}
				out.Println(line)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "Only documents with any of these tags (repeatable)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

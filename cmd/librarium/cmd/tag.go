package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/librarium-dev/librarium/internal/output"
)

func newTagCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tag <doc-id> <tag>...",
		Short: "Attach tags to a document",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.New(cmd.OutOrStdout())

			lib, _, err := openLibrary(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = lib.Close() }()

			docID, tags := args[0], args[1:]
			if err := lib.Tag(ctx, docID, tags); err != nil {
				return err
			}
			out.Successf("%s tagged: %s", docID, strings.Join(tags, ", "))
			return nil
		},
	}
}

func newUntagCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "untag <doc-id> <tag>...",
		Short: "Detach tags from a document",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.New(cmd.OutOrStdout())

			lib, _, err := openLibrary(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = lib.Close() }()

			docID, tags := args[0], args[1:]
			if err := lib.Untag(ctx, docID, tags); err != nil {
				return err
			}
			out.Successf("%s untagged: %s", docID, strings.Join(tags, ", "))
			return nil
		},
	}
}

func newTagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List every tag in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.New(cmd.OutOrStdout())

			lib, _, err := openLibrary(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = lib.Close() }()

			tags, err := lib.ListTags(ctx)
			if err != nil {
				return err
			}
			if len(tags) == 0 {
				out.Dim("No tags defined")
				return nil
			}
			for _, tag := range tags {
				out.Println(tag)
			}
			return nil
		},
	}
}

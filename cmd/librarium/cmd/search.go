package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/librarium-dev/librarium/internal/output"
	"github.com/librarium-dev/librarium/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	topK     int
	strategy string
	names    bool
	tags     []string
	docID    string
	format   string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the knowledge base",
		Long: `Search document contents with hybrid retrieval: BM25 keyword
ranking and semantic embeddings, merged by reciprocal rank fusion.

Examples:
  librarium search "database migrations"
  librarium search "error handling" --strategy bm25 --top-k 5
  librarium search "setup" --tag reference
  librarium search guide --names
  librarium search "retry logic" --doc a1b2c3d4e5f6`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.topK, "top-k", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().StringVarP(&opts.strategy, "strategy", "s", "", "Retrieval strategy: hybrid, bm25, vector")
	cmd.Flags().BoolVar(&opts.names, "names", false, "Match document names instead of contents")
	cmd.Flags().StringSliceVarP(&opts.tags, "tag", "t", nil, "Only documents with any of these tags (repeatable)")
	cmd.Flags().StringVarP(&opts.docID, "doc", "d", "", "Search within a single document")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, opts searchOptions) error {
	ctx := cmd.Context()
	out := output.New(cmd.OutOrStdout())

	lib, cfg, err := openLibrary(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = lib.Close() }()

	strategyName := opts.strategy
	if strategyName == "" {
		strategyName = cfg.Search.DefaultStrategy
	}
	strategy, err := search.ParseStrategy(strategyName)
	if err != nil {
		return err
	}

	topK := opts.topK
	if topK <= 0 {
		topK = cfg.Search.DefaultTopK
	}

	searchOpts := search.Options{
		TopK:      topK,
		Strategy:  strategy,
		Tags:      opts.tags,
		Threshold: cfg.Search.SimilarityThreshold,
	}
	if opts.names {
		searchOpts.Scope = search.ScopeNames
	}

	if opts.docID != "" {
		hits, err := lib.SearchDocument(ctx, opts.docID, query, searchOpts)
		if err != nil {
			return err
		}
		return renderContentHits(cmd, out, query, hits, opts.format)
	}

	hits, err := lib.SearchDocuments(ctx, query, searchOpts)
	if err != nil {
		return err
	}
	return renderDocumentHits(cmd, out, query, hits, opts.format)
}

func renderDocumentHits(cmd *cobra.Command, out *output.Writer, query string, hits []*search.DocumentHit, format string) error {
	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(hits)
	}

	if len(hits) == 0 {
		out.Dim(fmt.Sprintf("No results for %q", query))
		return nil
	}

	out.Header(fmt.Sprintf("Found %d results for %q", len(hits), query))
	out.Newline()
	for i, h := range hits {
		out.Printf("%d. %s  %s  %s", i+1,
			out.Styles().ID.Render(h.DocID),
			h.Name,
			out.Styles().Score.Render(fmt.Sprintf("(score: %.4f)", h.Score)))
		if len(h.Tags) > 0 {
			out.Indent(out.Styles().Dim.Render("tags: " + strings.Join(h.Tags, ", ")))
		}
		if h.Snippet != "" {
			out.Indent(h.Snippet)
		}
		out.Newline()
	}
	return nil
}

func renderContentHits(cmd *cobra.Command, out *output.Writer, query string, hits []*search.ContentHit, format string) error {
	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(hits)
	}

	if len(hits) == 0 {
		out.Dim(fmt.Sprintf("No results for %q", query))
		return nil
	}

	out.Header(fmt.Sprintf("Found %d results for %q", len(hits), query))
	out.Newline()
	for i, h := range hits {
		out.Printf("%d. %s:%d-%d  %s", i+1,
			h.Name, h.StartLine, h.EndLine,
			out.Styles().Score.Render(fmt.Sprintf("(score: %.4f)", h.Score)))
		out.Indent(firstLines(h.Text, 3))
		out.Newline()
	}
	return nil
}

// firstLines returns up to n non-trailing-blank lines of content.
func firstLines(content string, n int) string {
	lines := strings.Split(content, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

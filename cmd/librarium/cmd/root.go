// Package cmd provides the CLI commands for librarium.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/librarium-dev/librarium/internal/config"
	"github.com/librarium-dev/librarium/internal/embed"
	"github.com/librarium-dev/librarium/internal/library"
	"github.com/librarium-dev/librarium/internal/logging"
	"github.com/librarium-dev/librarium/pkg/version"
)

// Persistent flags shared by every command.
var (
	configPath  string
	storageRoot string
	offline     bool

	loggingCleanup func()
)

// NewRootCmd creates the root command for the librarium CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "librarium",
		Short: "Local document knowledge base with hybrid search",
		Long: `Librarium indexes markdown and text documents into a local
knowledge base and searches them with hybrid retrieval
(BM25 keyword ranking fused with semantic embeddings).

Everything runs locally. Embeddings come from a local Ollama
server, or from a hash-based fallback with --offline.`,
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("librarium version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <storage root>/config.yaml)")
	cmd.PersistentFlags().StringVar(&storageRoot, "root", "", "Knowledge base directory (default: ~/.librarium)")
	cmd.PersistentFlags().BoolVar(&offline, "offline", false, "Use hash-based embeddings (skip Ollama)")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(_ *cobra.Command, _ []string) {
		if loggingCleanup != nil {
			loggingCleanup()
			loggingCleanup = nil
		}
	}

	cmd.AddCommand(newAddCmd())
	cmd.AddCommand(newRemoveCmd())
	cmd.AddCommand(newTagCmd())
	cmd.AddCommand(newUntagCmd())
	cmd.AddCommand(newTagsCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newReadCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func setupLogging(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	_, cleanup, err := logging.Setup(logging.Config{Level: cfg.LogLevel})
	if err != nil {
		return err
	}
	loggingCleanup = cleanup
	return nil
}

// loadConfig resolves the config file, then applies the flag overrides
// that take precedence over both file and environment.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		root := storageRoot
		if root == "" {
			root = os.Getenv("LIBRARIUM_STORAGE_ROOT")
		}
		if root == "" {
			home, err := os.UserHomeDir()
			if err == nil {
				root = filepath.Join(home, ".librarium")
			}
		}
		if root != "" {
			path = filepath.Join(root, "config.yaml")
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if storageRoot != "" {
		cfg.Storage.Root = storageRoot
	}
	if offline {
		cfg.Embeddings.Provider = "static"
	}
	return cfg, nil
}

// openLibrary builds the embedder and opens the knowledge base. The caller
// must Close the returned library.
func openLibrary(ctx context.Context) (*library.Library, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	provider := embed.ParseProvider(cfg.Embeddings.Provider)
	embedder, err := embed.NewEmbedder(ctx, provider, cfg.Embeddings.Model)
	if err != nil {
		return nil, nil, fmt.Errorf("create embedder: %w", err)
	}

	lib, err := library.Open(ctx, cfg, embedder)
	if err != nil {
		_ = embedder.Close()
		return nil, nil, err
	}
	return lib, cfg, nil
}

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/slidesage/slidesage/internal/index"
	mcpserver "github.com/slidesage/slidesage/internal/mcp"
	"github.com/slidesage/slidesage/internal/search"
	"github.com/slidesage/slidesage/internal/session"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long: `Starts a Model Context Protocol (MCP) server on stdio, exposing
session search and readiness tools for AI agents. Point it at the same
data directory as a running slidesage server to query its sessions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		blobs, closeStore, err := openBlobStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		embedder, err := createEmbedderFromConfig(cfg)
		if err != nil {
			return fmt.Errorf("creating embedder: %w", err)
		}
		generator, err := createGeneratorFromConfig(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("creating answer generator: %w", err)
		}

		requestTimeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
		indexes := index.NewStore(blobs)
		ttl := time.Duration(cfg.SessionTTLMinutes) * time.Minute
		sessions := session.NewManager(blobs, indexes, ttl)
		engine := search.NewEngine(blobs, indexes, embedder, generator, requestTimeout)

		// Set version from the cmd package variable.
		mcpserver.Version = Version

		fmt.Fprintf(os.Stderr, "slidesage MCP server started on stdio (store=%s)\n", cfg.Store)

		srv := mcpserver.NewServer(sessions, engine)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

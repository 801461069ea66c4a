package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/slidesage/slidesage/internal/blob"
	"github.com/slidesage/slidesage/internal/index"
	"github.com/slidesage/slidesage/internal/ingest"
	"github.com/slidesage/slidesage/internal/search"
	"github.com/slidesage/slidesage/internal/server"
	"github.com/slidesage/slidesage/internal/session"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the slidesage HTTP server",
	Long: `Starts the slidesage server: session lifecycle, page image ingestion
and indexing, readiness polling, and visual search over indexed pages.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Port = servePort
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		blobs, closeStore, err := openBlobStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		embedder, err := createEmbedderFromConfig(cfg)
		if err != nil {
			return fmt.Errorf("creating embedder: %w", err)
		}
		generator, err := createGeneratorFromConfig(ctx, cfg)
		if err != nil {
			return fmt.Errorf("creating answer generator: %w", err)
		}

		requestTimeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
		indexes := index.NewStore(blobs)

		// Page images written to the store feed the ingest dispatcher.
		builder := ingest.NewBuilder(blobs, indexes, embedder, requestTimeout)
		dispatcher := ingest.NewDispatcher(builder, cfg.Workers)
		if w, ok := blobs.(blob.Watchable); ok {
			w.OnCreate(dispatcher.Submit)
		}
		dispatcher.Start(ctx)
		defer dispatcher.Stop()

		ttl := time.Duration(cfg.SessionTTLMinutes) * time.Minute
		sessions := session.NewManager(blobs, indexes, ttl)
		if ttl > 0 {
			if err := sessions.StartSweeper(cfg.SweepSchedule); err != nil {
				return fmt.Errorf("starting session sweeper: %w", err)
			}
			defer sessions.StopSweeper()
		}

		engine := search.NewEngine(blobs, indexes, embedder, generator, requestTimeout)

		srv := server.New(server.Config{
			Port:     cfg.Port,
			AllowAll: cfg.AllowAllOrigins,
		}, blobs, sessions, engine)

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		fmt.Fprintf(os.Stderr, "slidesage v%s starting on port %d\n", Version, cfg.Port)
		fmt.Fprintf(os.Stderr, "  Store: %s\n", cfg.Store)
		fmt.Fprintf(os.Stderr, "  Embedding: %s/%s (%d dims)\n", cfg.Embedding.Provider, cfg.Embedding.Model, cfg.Embedding.Dimensions)
		fmt.Fprintf(os.Stderr, "  Answers: %s/%s\n", cfg.Answer.Provider, cfg.Answer.Model)

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	rootCmd.AddCommand(serveCmd)
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"examflow/internal/classifier"
	"examflow/internal/config"
	"examflow/internal/gcp"
	"examflow/internal/server"
	"examflow/internal/services"
)

func main() {
	root := &cobra.Command{
		Use:   "examflow",
		Short: "Exam question transcription and generation service",
	}
	root.AddCommand(serveCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP trigger surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
			slog.SetDefault(logger)

			if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
				slog.Warn("Could not load env file.", "path", envFile, "error", err)
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			return run(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "path to an optional .env file")
	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	var blob services.BlobStore
	var err error
	switch cfg.Backend {
	case config.BackendGCS:
		blob, err = gcp.NewGCSStore(ctx, cfg.GCSBucket)
	default:
		blob, err = gcp.NewDriveStore(ctx, cfg.DriveCredentials)
	}
	if err != nil {
		return fmt.Errorf("failed to create blob store: %w", err)
	}

	tab, err := gcp.NewSheetsStore(ctx, cfg.SheetsCredentials, cfg.SpreadsheetID)
	if err != nil {
		return fmt.Errorf("failed to create sheets store: %w", err)
	}

	vertex, err := gcp.NewVertexClient(ctx, cfg.ProjectID, cfg.VertexAIRegion)
	if err != nil {
		return fmt.Errorf("failed to create vertex client: %w", err)
	}
	defer vertex.Close()

	var journal *services.RunJournal
	if cfg.FirestoreCollection != "" {
		fsClient, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID)
		if err != nil {
			return fmt.Errorf("failed to create firestore client: %w", err)
		}
		defer fsClient.Close()
		journal = services.NewRunJournal(fsClient, cfg.FirestoreCollection)
	}

	// The scratch directory is shared by export and PDF staging; start from a
	// clean slate.
	if err := os.RemoveAll(cfg.ScratchDir); err != nil {
		slog.Warn("Could not clear scratch dir.", "dir", cfg.ScratchDir, "error", err)
	}
	if err := os.MkdirAll(cfg.ScratchDir, 0o755); err != nil {
		return fmt.Errorf("failed to create scratch dir: %w", err)
	}

	exporter := services.NewExporter(tab, blob, cfg.ScratchDir, cfg.ExportFolderID)
	pipeline := services.NewPipeline(blob, tab, vertex, classifier.New(cfg.ClassifierURL), journal, exporter, services.PipelineConfig{
		SourceFolderID: cfg.SourceFolderID,
		PDFFolderID:    cfg.PDFFolderID,
		ScratchDir:     cfg.ScratchDir,
		Sort:           cfg.Sort,
		PDFPageLimit:   cfg.PDFPageLimit,
	})
	generator := services.NewGenerator(tab, vertex, cfg.Underline)
	chat := services.NewChatService(tab, vertex, pipeline.Cursor())

	srv := server.New(pipeline, generator, exporter, chat, tab)
	addr := ":" + cfg.Port
	slog.Info("Server listening.", "addr", addr, "backend", string(cfg.Backend))
	return http.ListenAndServe(addr, srv.Routes())
}

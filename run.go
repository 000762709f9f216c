package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"repairer-discovery/models"
	"repairer-discovery/pipeline"
	"repairer-discovery/services"
	"repairer-discovery/storage"
)

func newRunCommand(a *app) *cobra.Command {
	var (
		source     string
		location   string
		term       string
		maxResults int
		testMode   bool
		dryRun     bool
		csvPath    string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scrape, classify and geocode repair businesses, then queue them for review",
		Long: `Runs one discovery pipeline: scrape the chosen sources -> clean and dedupe ->
classify (AI with keyword fallback) -> geocode (lookup with department fallback) -> filter.

Repairers above the save threshold are stored as pending suggestions unless --dry-run is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := a.logger

			logger.Info("=== Repairer discovery starting ===")
			logger.Info("Config — source: %s | location: %s | term: %q | max: %d | rate: %dms",
				source, location, term, maxResults, a.cfg.RateLimitMs)

			orch, release, err := a.orchestrator(ctx)
			if err != nil {
				return fmt.Errorf("setting up pipeline: %w", err)
			}
			defer release()

			var suggestions *services.SuggestionService
			if !dryRun {
				store, err := a.postgres(ctx, 10)
				if err != nil {
					logger.Error("Failed to connect to PostgreSQL: %v", err)
					logger.Error("Make sure Docker is running: docker compose up -d")
					return err
				}
				defer store.Close()
				suggestions = services.NewSuggestionService(store, logger)
			} else {
				// Exercise the save path without touching the database.
				suggestions = services.NewSuggestionService(storage.NewMemoryStore(), logger)
			}

			discovery := services.NewDiscoveryService(orch, suggestions, logger)
			res, err := discovery.Discover(ctx, models.RunConfig{
				Source:     models.SourceSelection(source),
				Location:   location,
				SearchTerm: term,
				MaxResults: maxResults,
				TestMode:   testMode,
			}, true)
			if err != nil {
				return explainRunError(a, err)
			}

			if csvPath == "" {
				csvPath = a.cfg.CSVOutputPath
			}
			if err := exportCSV(csvPath, res.Processed); err != nil {
				logger.Error("CSV write failed: %v", err)
			} else {
				logger.Info("Processed repairers saved to %s", csvPath)
			}

			insightSvc := services.NewInsightService(logger)
			insightSvc.Print(cmd.OutOrStdout(), insightSvc.Generate(res.Accepted))

			where := "PostgreSQL (repairer_suggestions table)"
			if dryRun {
				where = "memory only (dry run)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  Done. %d suggestions → %s | CSV → %s\n\n",
				len(res.Suggestions), where, csvPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", string(models.SelectBoth), "Listing source: directory, map or both")
	cmd.Flags().StringVarP(&location, "location", "l", "", "City or postal code to search around")
	cmd.Flags().StringVarP(&term, "term", "t", "réparation téléphone", "Search term")
	cmd.Flags().IntVarP(&maxResults, "max-results", "n", 0, "Maximum listings to process (0 for no limit)")
	cmd.Flags().BoolVar(&testMode, "test-mode", false, "Classify by keywords only, never calling the AI service")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Do not write suggestions to PostgreSQL")
	cmd.Flags().StringVar(&csvPath, "csv", "", "CSV export path (defaults to CSV_OUTPUT_PATH)")
	_ = cmd.MarkFlagRequired("location")

	return cmd
}

// explainRunError logs the failure category so operators know whether a retry can help.
func explainRunError(a *app, err error) error {
	var re *pipeline.RunError
	if !errors.As(err, &re) {
		return err
	}
	a.logger.Error("Run failed (%s): %s", re.Kind, re.Message)
	if re.Retryable() {
		a.logger.Info("The listing source may be temporarily unavailable — retrying later can help")
	}
	return err
}

func exportCSV(path string, batch []*models.ProcessedRepairer) error {
	w, err := storage.NewCSVWriter(path)
	if err != nil {
		return err
	}
	return exportBatch(w, batch)
}

// exportBatch writes batch and always closes w.
func exportBatch(w storage.ProcessedWriter, batch []*models.ProcessedRepairer) error {
	if err := w.WriteProcessed(batch); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"repairer-discovery/classifier"
	"repairer-discovery/config"
	"repairer-discovery/geocoder"
	"repairer-discovery/llm"
	"repairer-discovery/pipeline"
	"repairer-discovery/scraper"
	"repairer-discovery/scraper/directory"
	"repairer-discovery/scraper/maps"
	"repairer-discovery/storage"
	"repairer-discovery/utils"
)

// app carries what every command needs once flags are parsed.
type app struct {
	cfg    *config.Config
	logger *utils.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "repairer-discovery",
		Short:         "Discover repair businesses and queue them for review",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.cfg = config.Load()
			a.logger = utils.NewLogger()
			a.logger.SetLevel(utils.ParseLevel(a.cfg.LogLevel))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newRunCommand(a))
	rootCmd.AddCommand(newSuggestionsCommand(a))
	rootCmd.AddCommand(newCheckCommand(a))

	return rootCmd
}

func (a *app) launcher() *scraper.Launcher {
	return scraper.NewLauncher(a.cfg, a.logger,
		directory.New(a.cfg.DirectoryBaseURL),
		maps.New(a.cfg.MapsBaseURL),
	)
}

// gemini returns nil without error when no API key is configured.
func (a *app) gemini(ctx context.Context) (*llm.GeminiClient, error) {
	if a.cfg.GeminiAPIKey == "" {
		return nil, nil
	}
	return llm.NewGeminiClient(ctx, llm.Config{
		Model:       a.cfg.GeminiModel,
		Temperature: llm.DefaultConfig().Temperature,
		Timeout:     a.cfg.AITimeout(),
	}, a.cfg.GeminiAPIKey)
}

// orchestrator wires a pipeline. The returned release func closes the AI client.
func (a *app) orchestrator(ctx context.Context) (*pipeline.Orchestrator, func(), error) {
	gen, err := a.gemini(ctx)
	if err != nil {
		return nil, nil, err
	}

	release := func() {}
	var capability classifier.Capability
	if gen != nil {
		capability = classifier.NewPromptCapability(gen)
		release = func() { _ = gen.Close() }
	} else {
		a.logger.Warn("GEMINI_API_KEY not set — classifying by keywords only")
	}

	// Classifier and geocoder pace their own calls; they never share a limiter.
	cls := classifier.New(capability, utils.NewThrottle(a.cfg.RateLimit()), a.logger)

	lookup := geocoder.NewNominatimClient(a.cfg.NominatimURL, a.cfg.UserAgent, 15*time.Second)
	newGeocoder := func() pipeline.BatchGeocoder {
		return geocoder.New(lookup, geocoder.Options{
			Country:  a.cfg.GeocodeCountry,
			CacheTTL: a.cfg.GeocodeCacheTTL(),
			Throttle: utils.NewThrottle(a.cfg.RateLimit()),
		}, a.logger)
	}

	return pipeline.New(a.launcher(), cls, newGeocoder, a.logger), release, nil
}

func (a *app) postgres(ctx context.Context, attempts int) (*storage.PostgresStore, error) {
	return storage.NewPostgresStore(ctx, a.cfg.DSN(), attempts)
}

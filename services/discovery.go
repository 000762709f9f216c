package services

import (
	"context"

	"repairer-discovery/models"
	"repairer-discovery/utils"
)

// SaveThreshold is the confidence a repairer must exceed to become a suggestion.
// It is stricter than the pipeline's own acceptance threshold.
const SaveThreshold = 0.6

// Runner runs one discovery pipeline.
type Runner interface {
	Run(ctx context.Context, cfg models.RunConfig) ([]*models.ProcessedRepairer, error)
}

// DiscoveryResult is the outcome of one discovery.
type DiscoveryResult struct {
	Processed   []*models.ProcessedRepairer
	Accepted    []*models.ProcessedRepairer
	Suggestions []*models.Suggestion
}

// DiscoveryService runs the pipeline, applies the save threshold and stores
// the survivors as pending suggestions.
type DiscoveryService struct {
	runner      Runner
	suggestions *SuggestionService
	logger      *utils.Logger
}

// NewDiscoveryService creates a DiscoveryService. suggestions may be nil for
// runs that never persist.
func NewDiscoveryService(runner Runner, suggestions *SuggestionService, logger *utils.Logger) *DiscoveryService {
	return &DiscoveryService{runner: runner, suggestions: suggestions, logger: logger}
}

// Discover runs the pipeline once. With save false nothing is persisted.
// Pipeline errors are returned unchanged so callers can inspect their kind.
func (d *DiscoveryService) Discover(ctx context.Context, cfg models.RunConfig, save bool) (*DiscoveryResult, error) {
	processed, err := d.runner.Run(ctx, cfg)
	if err != nil {
		return nil, err
	}

	res := &DiscoveryResult{Processed: processed}
	for _, p := range processed {
		if p.ConfidenceScore > SaveThreshold {
			res.Accepted = append(res.Accepted, p)
		}
	}
	d.logger.Info("[discovery] %d of %d repairers above save threshold %.1f",
		len(res.Accepted), len(processed), SaveThreshold)

	if !save || d.suggestions == nil {
		return res, nil
	}
	res.Suggestions, err = d.suggestions.Save(ctx, res.Accepted)
	if err != nil {
		return res, err
	}
	return res, nil
}

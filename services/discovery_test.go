package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repairer-discovery/models"
	"repairer-discovery/storage"
)

type stubRunner struct {
	out []*models.ProcessedRepairer
	err error
	cfg models.RunConfig
}

func (r *stubRunner) Run(_ context.Context, cfg models.RunConfig) ([]*models.ProcessedRepairer, error) {
	r.cfg = cfg
	return r.out, r.err
}

func withConfidence(name string, conf float64) *models.ProcessedRepairer {
	return processed(name, "Paris", models.SourceDirectory, models.MethodFallback, models.AccuracyFallback, conf, 50)
}

func TestDiscoverAppliesSaveThreshold(t *testing.T) {
	runner := &stubRunner{out: []*models.ProcessedRepairer{
		withConfidence("A", 0.55),
		withConfidence("B", 0.6),
		withConfidence("C", 0.61),
		withConfidence("D", 0.9),
	}}
	store := storage.NewMemoryStore()
	svc := NewDiscoveryService(runner, newTestSuggestionService(store), newTestLogger())

	cfg := models.RunConfig{Source: models.SelectBoth, Location: "Paris", SearchTerm: "réparation"}
	res, err := svc.Discover(context.Background(), cfg, true)
	require.NoError(t, err)
	assert.Equal(t, cfg, runner.cfg)
	assert.Len(t, res.Processed, 4)
	require.Len(t, res.Accepted, 2)
	assert.Equal(t, "C", res.Accepted[0].Name)
	assert.Equal(t, "D", res.Accepted[1].Name)
	assert.Len(t, res.Suggestions, 2)

	stored, err := store.ListSuggestions(context.Background(), models.StatusPending)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestDiscoverDryRunSavesNothing(t *testing.T) {
	runner := &stubRunner{out: []*models.ProcessedRepairer{withConfidence("D", 0.9)}}
	store := storage.NewMemoryStore()
	svc := NewDiscoveryService(runner, newTestSuggestionService(store), newTestLogger())

	res, err := svc.Discover(context.Background(), models.RunConfig{}, false)
	require.NoError(t, err)
	assert.Len(t, res.Accepted, 1)
	assert.Empty(t, res.Suggestions)

	stored, err := store.ListSuggestions(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestDiscoverPropagatesErrors(t *testing.T) {
	runErr := errors.New("source call failed: browser crashed")
	svc := NewDiscoveryService(&stubRunner{err: runErr}, nil, newTestLogger())
	_, err := svc.Discover(context.Background(), models.RunConfig{}, true)
	assert.Equal(t, runErr, err)

	store := storage.NewMemoryStore()
	require.NoError(t, store.Close())
	runner := &stubRunner{out: []*models.ProcessedRepairer{withConfidence("D", 0.9)}}
	svc = NewDiscoveryService(runner, newTestSuggestionService(store), newTestLogger())
	res, err := svc.Discover(context.Background(), models.RunConfig{}, true)
	var pe *storage.PersistenceError
	assert.ErrorAs(t, err, &pe)
	require.NotNil(t, res)
	assert.Len(t, res.Accepted, 1)
}

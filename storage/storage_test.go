package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repairer-discovery/models"
)

func suggestion(id string, status models.SuggestionStatus, created time.Time) *models.Suggestion {
	return &models.Suggestion{
		ID:          id,
		ScrapedData: models.ProcessedRepairer{RawListing: models.RawListing{Name: "Shop " + id}},
		Status:      status,
		CreatedAt:   created,
	}
}

func TestMemoryStoreListNewestFirst(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	m := NewMemoryStore()
	require.NoError(t, m.InsertSuggestions(ctx, []*models.Suggestion{
		suggestion("a", models.StatusPending, base),
		suggestion("b", models.StatusRejected, base.Add(time.Hour)),
		suggestion("c", models.StatusPending, base.Add(2*time.Hour)),
	}))

	all, err := m.ListSuggestions(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].ID, all[1].ID, all[2].ID})

	pending, err := m.ListSuggestions(ctx, models.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "c", pending[0].ID)
}

func TestMemoryStoreDecisionsAreGuarded(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	require.NoError(t, m.InsertSuggestions(ctx, []*models.Suggestion{suggestion("a", models.StatusPending, time.Now())}))

	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, m.RejectSuggestion(ctx, "a", Decision{ReviewedAt: at, ReviewedBy: "alex", RejectionReason: "closed"}))

	err := m.ApproveSuggestion(ctx, "a", &models.RegistryRecord{Name: "Shop a"}, Decision{ReviewedAt: time.Now()})
	assert.ErrorIs(t, err, ErrNotPending)
	assert.Empty(t, m.Registry())

	s, err := m.GetSuggestion(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, s.Status)
	assert.Equal(t, at, *s.ReviewedAt)
	assert.Equal(t, "closed", s.RejectionReason)

	assert.ErrorIs(t, m.RejectSuggestion(ctx, "missing", Decision{}), ErrNotFound)
}

func TestMemoryStoreApproveFailureKeepsPending(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	require.NoError(t, m.InsertSuggestions(ctx, []*models.Suggestion{suggestion("a", models.StatusPending, time.Now())}))
	m.FailRegistryInsert = errors.New("disk full")

	err := m.ApproveSuggestion(ctx, "a", &models.RegistryRecord{Name: "Shop a"}, Decision{ReviewedAt: time.Now()})
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "insert registry record", pe.Op)

	s, err := m.GetSuggestion(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, s.Status)
	assert.Nil(t, s.ReviewedAt)
	assert.Empty(t, m.Registry())
}

func TestMemoryStoreCopiesSlices(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	in := suggestion("a", models.StatusPending, time.Now())
	in.ScrapedData.Services = []string{"Remplacement écran"}
	in.ScrapedData.Specialties = []string{"Apple"}
	require.NoError(t, m.InsertSuggestions(ctx, []*models.Suggestion{in}))

	in.ScrapedData.Services[0] = "changed by caller"

	got, err := m.GetSuggestion(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"Remplacement écran"}, got.ScrapedData.Services)

	got.ScrapedData.Specialties[0] = "changed by reader"
	listed, err := m.ListSuggestions(ctx, "")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, []string{"Apple"}, listed[0].ScrapedData.Specialties)

	rec := models.RegistryRecord{Name: "Shop a", Services: []string{"Remplacement écran"}}
	require.NoError(t, m.ApproveSuggestion(ctx, "a", &rec, Decision{ReviewedAt: time.Now()}))
	rec.Services[0] = "changed after approve"
	m.Registry()[0].Services[0] = "changed through Registry"
	assert.Equal(t, []string{"Remplacement écran"}, m.Registry()[0].Services)

	decided, err := m.GetSuggestion(ctx, "a")
	require.NoError(t, err)
	reviewedAt := *decided.ReviewedAt
	*decided.ReviewedAt = time.Time{}
	again, err := m.GetSuggestion(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, reviewedAt, *again.ReviewedAt)
}

func TestMemoryStoreClosed(t *testing.T) {
	m := NewMemoryStore()
	require.NoError(t, m.Close())
	assert.ErrorIs(t, m.Ping(context.Background()), ErrStoreClosed)
}

func TestPersistenceKeepsSentinels(t *testing.T) {
	assert.Nil(t, persistence("op", nil))
	assert.Equal(t, ErrNotFound, persistence("op", ErrNotFound))

	err := persistence("list suggestions", errors.New("connection reset"))
	assert.EqualError(t, err, "storage: list suggestions: connection reset")
}

func TestSuggestionInsertPlaceholders(t *testing.T) {
	batch := []*models.Suggestion{
		suggestion("a", models.StatusPending, time.Now()),
		suggestion("b", models.StatusPending, time.Now()),
	}
	query, args, err := suggestionInsert(batch)
	require.NoError(t, err)
	assert.Contains(t, query, "($1,$2,$3,$4,$5,$6),($7,$8,$9,$10,$11,$12)")
	require.Len(t, args, 12)
	assert.Equal(t, "b", args[6])
	assert.Contains(t, string(args[1].([]byte)), `"name":"Shop a"`)
}

func TestCSVWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "processed.csv")
	w, err := NewCSVWriter(path)
	require.NoError(t, err)

	p := models.NewProcessedRepairer(
		models.RawListing{Name: "Mobile Fix", PostalCode: "75011", City: "Paris", Source: models.SourceMap},
		models.Classification{IsRepairer: true, Confidence: 0.75, Services: []string{"Remplacement écran", "Remplacement batterie"}, Method: models.MethodFallback, QualityScore: 52},
		models.GeocodingResult{Lat: 48.858, Lng: 2.379, Accuracy: models.AccuracyFallback},
	)
	require.NoError(t, w.WriteProcessed([]*models.ProcessedRepairer{&p}))
	require.NoError(t, w.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, csvHeader, rows[0])

	row := strings.Join(rows[1], "|")
	assert.Contains(t, row, "map|Mobile Fix|")
	assert.Contains(t, row, "|0.75|fallback|52|")
	assert.Contains(t, row, "Remplacement écran; Remplacement batterie")
	assert.Contains(t, row, "|48.858000|2.379000|fallback|")
}

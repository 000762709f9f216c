package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"repairer-discovery/models"
	"repairer-discovery/storage"
	"repairer-discovery/utils"
)

var (
	// ErrSuggestionNotFound is returned when approve or reject targets an unknown id.
	ErrSuggestionNotFound = errors.New("suggestion not found")
	// ErrAlreadyDecided is returned when approve or reject targets a suggestion
	// that was already approved or rejected. The recorded decision is unchanged.
	ErrAlreadyDecided = errors.New("suggestion already decided")
)

// SuggestionService manages the review lifecycle of pipeline output.
type SuggestionService struct {
	store  storage.SuggestionStore
	logger *utils.Logger
	now    func() time.Time
	newID  func() string
}

// NewSuggestionService creates a SuggestionService backed by store.
func NewSuggestionService(store storage.SuggestionStore, logger *utils.Logger) *SuggestionService {
	return &SuggestionService{
		store:  store,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Save persists every repairer of the batch as a pending suggestion and
// returns the created suggestions.
func (s *SuggestionService) Save(ctx context.Context, batch []*models.ProcessedRepairer) ([]*models.Suggestion, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	created := s.now().UTC()
	suggestions := make([]*models.Suggestion, 0, len(batch))
	for _, p := range batch {
		suggestions = append(suggestions, &models.Suggestion{
			ID:              s.newID(),
			ScrapedData:     *p,
			ConfidenceScore: p.ConfidenceScore,
			QualityScore:    p.QualityScore,
			Status:          models.StatusPending,
			CreatedAt:       created,
		})
	}

	if err := s.store.InsertSuggestions(ctx, suggestions); err != nil {
		return nil, fmt.Errorf("saving %d suggestions: %w", len(suggestions), err)
	}
	s.logger.Info("[suggestions] Saved %d pending suggestions", len(suggestions))
	return suggestions, nil
}

// List returns suggestions newest first. An empty status lists all of them.
func (s *SuggestionService) List(ctx context.Context, status models.SuggestionStatus) ([]*models.Suggestion, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("unknown suggestion status %q", status)
	}
	out, err := s.store.ListSuggestions(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("listing suggestions: %w", err)
	}
	if out == nil {
		out = []*models.Suggestion{}
	}
	return out, nil
}

// Approve copies the suggestion's snapshot into the registry and marks it
// approved. Both happen or neither does.
func (s *SuggestionService) Approve(ctx context.Context, id, reviewer string) (*models.RegistryRecord, error) {
	sug, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	rec := models.RegistryRecordFrom(sug.ScrapedData)
	rec.ID = s.newID()
	rec.CreatedAt = now

	err = s.store.ApproveSuggestion(ctx, id, &rec, storage.Decision{ReviewedAt: now, ReviewedBy: reviewer})
	if err != nil {
		return nil, s.decisionError("approve", id, err)
	}
	s.logger.Info("[suggestions] Approved %s (%q) as registry record %s", id, rec.Name, rec.ID)
	return &rec, nil
}

// Reject marks the suggestion rejected with reason. The registry is untouched.
func (s *SuggestionService) Reject(ctx context.Context, id, reason, reviewer string) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}

	d := storage.Decision{ReviewedAt: s.now().UTC(), ReviewedBy: reviewer, RejectionReason: reason}
	if err := s.store.RejectSuggestion(ctx, id, d); err != nil {
		return s.decisionError("reject", id, err)
	}
	s.logger.Info("[suggestions] Rejected %s: %s", id, reason)
	return nil
}

// load fetches a suggestion that is still pending.
func (s *SuggestionService) load(ctx context.Context, id string) (*models.Suggestion, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrSuggestionNotFound, id)
	}
	sug, err := s.store.GetSuggestion(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSuggestionNotFound, id)
		}
		return nil, fmt.Errorf("loading suggestion %s: %w", id, err)
	}
	if sug.Decided() {
		return nil, fmt.Errorf("%w: %s is %s", ErrAlreadyDecided, id, sug.Status)
	}
	return sug, nil
}

// decisionError maps store sentinels raised by a concurrent decision.
func (s *SuggestionService) decisionError(op, id string, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrSuggestionNotFound, id)
	case errors.Is(err, storage.ErrNotPending):
		return fmt.Errorf("%w: %s", ErrAlreadyDecided, id)
	}
	s.logger.Error("[suggestions] %s %s failed: %v", op, id, err)
	return fmt.Errorf("%s suggestion %s: %w", op, id, err)
}

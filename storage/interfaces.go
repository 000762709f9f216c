package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"repairer-discovery/models"
)

var (
	// ErrNotFound is returned when no suggestion has the requested id.
	ErrNotFound = errors.New("suggestion not found")
	// ErrNotPending is returned when a decision targets an already decided suggestion.
	ErrNotPending = errors.New("suggestion is not pending")
)

// Decision is the audit data recorded when a suggestion leaves pending.
type Decision struct {
	ReviewedAt      time.Time
	ReviewedBy      string
	RejectionReason string
}

// SuggestionStore persists suggestions and the registry records created on approval.
type SuggestionStore interface {
	InsertSuggestions(ctx context.Context, batch []*models.Suggestion) error
	// ListSuggestions returns suggestions newest first. An empty status lists all.
	ListSuggestions(ctx context.Context, status models.SuggestionStatus) ([]*models.Suggestion, error)
	GetSuggestion(ctx context.Context, id string) (*models.Suggestion, error)
	// ApproveSuggestion inserts rec and marks the suggestion approved as one
	// unit: on any error the suggestion stays pending and no record exists.
	ApproveSuggestion(ctx context.Context, id string, rec *models.RegistryRecord, d Decision) error
	RejectSuggestion(ctx context.Context, id string, d Decision) error
	Ping(ctx context.Context) error
	Close() error
}

// ProcessedWriter exports a processed batch.
type ProcessedWriter interface {
	WriteProcessed(batch []*models.ProcessedRepairer) error
	Close() error
}

// PersistenceError wraps a storage backend failure with the operation that hit it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func persistence(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrNotPending) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"repairer-discovery/models"
)

const suggestionColumns = 6

// PostgresStore persists suggestions and registry records to PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection to PostgreSQL, waits up to attempts
// pings for it to come up, runs schema migrations, and returns a ready store.
func NewPostgresStore(ctx context.Context, dsn string, attempts int) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, persistence("open", err)
	}

	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				_ = db.Close()
				return nil, persistence("ping", ctx.Err())
			case <-time.After(2 * time.Second):
			}
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, persistence("ping failed after retries", err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, persistence("migrate", err)
	}

	return ps, nil
}

func (ps *PostgresStore) migrate(ctx context.Context) error {
	_, err := ps.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS repairer_suggestions (
			id               UUID          PRIMARY KEY,
			scraped_data     JSONB         NOT NULL,
			confidence_score NUMERIC(4,3)  NOT NULL DEFAULT 0,
			quality_score    INTEGER       NOT NULL DEFAULT 0,
			status           VARCHAR(16)   NOT NULL DEFAULT 'pending',
			created_at       TIMESTAMPTZ   NOT NULL DEFAULT NOW(),
			reviewed_at      TIMESTAMPTZ,
			reviewed_by      TEXT,
			rejection_reason TEXT
		);

		CREATE TABLE IF NOT EXISTS repairers (
			id            UUID          PRIMARY KEY,
			name          TEXT          NOT NULL,
			address       TEXT          NOT NULL DEFAULT '',
			city          TEXT          NOT NULL DEFAULT '',
			postal_code   VARCHAR(5)    NOT NULL DEFAULT '',
			phone         TEXT          NOT NULL DEFAULT '',
			email         TEXT          NOT NULL DEFAULT '',
			website       TEXT          NOT NULL DEFAULT '',
			description   TEXT          NOT NULL DEFAULT '',
			rating        NUMERIC(3,2)  NOT NULL DEFAULT 0,
			lat           DOUBLE PRECISION,
			lng           DOUBLE PRECISION,
			services      TEXT[]        NOT NULL DEFAULT '{}',
			specialties   TEXT[]        NOT NULL DEFAULT '{}',
			quality_score INTEGER       NOT NULL DEFAULT 0,
			is_verified   BOOLEAN       NOT NULL DEFAULT FALSE,
			source        VARCHAR(32)   NOT NULL,
			created_at    TIMESTAMPTZ   NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_suggestions_status  ON repairer_suggestions(status);
		CREATE INDEX IF NOT EXISTS idx_suggestions_created ON repairer_suggestions(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_repairers_postal    ON repairers(postal_code);
	`)
	return err
}

// InsertSuggestions batch-inserts suggestions in one transaction.
func (ps *PostgresStore) InsertSuggestions(ctx context.Context, batch []*models.Suggestion) error {
	if len(batch) == 0 {
		return nil
	}

	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence("insert suggestions", err)
	}
	defer tx.Rollback()

	const batchSize = 50
	for i := 0; i < len(batch); i += batchSize {
		end := i + batchSize
		if end > len(batch) {
			end = len(batch)
		}
		query, args, err := suggestionInsert(batch[i:end])
		if err != nil {
			return persistence("insert suggestions", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return persistence("insert suggestions", err)
		}
	}
	return persistence("insert suggestions", tx.Commit())
}

func suggestionInsert(batch []*models.Suggestion) (string, []interface{}, error) {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*suggestionColumns)

	for idx, s := range batch {
		data, err := json.Marshal(s.ScrapedData)
		if err != nil {
			return "", nil, fmt.Errorf("encode suggestion %s: %w", s.ID, err)
		}
		base := idx * suggestionColumns
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6))
		valueArgs = append(valueArgs,
			s.ID, data, s.ConfidenceScore, s.QualityScore, string(s.Status), s.CreatedAt)
	}

	query := fmt.Sprintf(`
		INSERT INTO repairer_suggestions (id, scraped_data, confidence_score, quality_score, status, created_at)
		VALUES %s
	`, strings.Join(valueStrings, ","))
	return query, valueArgs, nil
}

const selectSuggestion = `
	SELECT id, scraped_data, confidence_score, quality_score, status, created_at,
	       reviewed_at, reviewed_by, rejection_reason
	FROM repairer_suggestions`

// ListSuggestions returns suggestions newest first, optionally filtered by status.
func (ps *PostgresStore) ListSuggestions(ctx context.Context, status models.SuggestionStatus) ([]*models.Suggestion, error) {
	rows, err := ps.db.QueryContext(ctx, selectSuggestion+`
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id DESC
	`, string(status))
	if err != nil {
		return nil, persistence("list suggestions", err)
	}
	defer rows.Close()

	var out []*models.Suggestion
	for rows.Next() {
		s, err := scanSuggestion(rows)
		if err != nil {
			return nil, persistence("scan suggestion", err)
		}
		out = append(out, s)
	}
	return out, persistence("list suggestions", rows.Err())
}

// GetSuggestion loads one suggestion by id.
func (ps *PostgresStore) GetSuggestion(ctx context.Context, id string) (*models.Suggestion, error) {
	row := ps.db.QueryRowContext(ctx, selectSuggestion+` WHERE id = $1`, id)
	s, err := scanSuggestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, persistence("get suggestion", err)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSuggestion(sc scanner) (*models.Suggestion, error) {
	var (
		s          models.Suggestion
		data       []byte
		status     string
		reviewedAt sql.NullTime
		reviewedBy sql.NullString
		reason     sql.NullString
	)
	if err := sc.Scan(&s.ID, &data, &s.ConfidenceScore, &s.QualityScore, &status, &s.CreatedAt,
		&reviewedAt, &reviewedBy, &reason); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &s.ScrapedData); err != nil {
		return nil, fmt.Errorf("decode scraped_data of %s: %w", s.ID, err)
	}
	s.Status = models.SuggestionStatus(status)
	if reviewedAt.Valid {
		t := reviewedAt.Time
		s.ReviewedAt = &t
	}
	s.ReviewedBy = reviewedBy.String
	s.RejectionReason = reason.String
	return &s, nil
}

// ApproveSuggestion marks the suggestion approved and inserts rec in one
// transaction. The status guard makes a concurrent second decision fail.
func (ps *PostgresStore) ApproveSuggestion(ctx context.Context, id string, rec *models.RegistryRecord, d Decision) error {
	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence("approve", err)
	}
	defer tx.Rollback()

	if err := ps.decide(ctx, tx, id, models.StatusApproved, d); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO repairers (id, name, address, city, postal_code, phone, email, website, description,
			rating, lat, lng, services, specialties, quality_score, is_verified, source, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	`, rec.ID, rec.Name, rec.Address, rec.City, rec.PostalCode, rec.Phone, rec.Email, rec.Website,
		rec.Description, rec.Rating, rec.Lat, rec.Lng, pq.Array(rec.Services), pq.Array(rec.Specialties),
		rec.QualityScore, rec.IsVerified, rec.Source, rec.CreatedAt)
	if err != nil {
		return persistence("insert registry record", err)
	}

	return persistence("approve", tx.Commit())
}

// RejectSuggestion marks the suggestion rejected with its reason.
func (ps *PostgresStore) RejectSuggestion(ctx context.Context, id string, d Decision) error {
	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence("reject", err)
	}
	defer tx.Rollback()

	if err := ps.decide(ctx, tx, id, models.StatusRejected, d); err != nil {
		return err
	}
	return persistence("reject", tx.Commit())
}

func (ps *PostgresStore) decide(ctx context.Context, tx *sql.Tx, id string, status models.SuggestionStatus, d Decision) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE repairer_suggestions
		SET status = $2, reviewed_at = $3, reviewed_by = NULLIF($4, ''), rejection_reason = NULLIF($5, '')
		WHERE id = $1 AND status = 'pending'
	`, id, string(status), d.ReviewedAt, d.ReviewedBy, d.RejectionReason)
	if err != nil {
		return persistence("update suggestion", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return persistence("update suggestion", err)
	}
	if n == 1 {
		return nil
	}

	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM repairer_suggestions WHERE id = $1)`, id).Scan(&exists); err != nil {
		return persistence("update suggestion", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrNotPending
}

// Ping checks the database is reachable.
func (ps *PostgresStore) Ping(ctx context.Context) error {
	return persistence("ping", ps.db.PingContext(ctx))
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}

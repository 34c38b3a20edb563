// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/clearclaim/heron/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveClaim upserts a claim keyed by its identifier.
func (r *SQLRepository) SaveClaim(ctx context.Context, claim *domain.Claim) error {
	if claim == nil || claim.ClaimID == "" {
		return fmt.Errorf("%w: claim with non-empty claim_id is required", ErrInvalidInput)
	}

	data, err := json.Marshal(claim)
	if err != nil {
		return fmt.Errorf("failed to encode claim: %w", err)
	}

	query := `
		INSERT INTO claims (
			claim_id, policy_number, status, total_claim_amount,
			created_at, updated_at, data
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(claim_id) DO UPDATE SET
			policy_number = excluded.policy_number,
			status = excluded.status,
			total_claim_amount = excluded.total_claim_amount,
			updated_at = excluded.updated_at,
			data = excluded.data
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		claim.ClaimID, claim.PolicyNumber, claim.Status, claim.TotalClaimAmount,
		claim.CreatedAt, claim.UpdatedAt, string(data),
	)
	return err
}

// GetClaim retrieves a claim by its identifier.
func (r *SQLRepository) GetClaim(ctx context.Context, claimID string) (*domain.Claim, error) {
	if claimID == "" {
		return nil, fmt.Errorf("%w: claimID is required", ErrInvalidInput)
	}

	query := `
		SELECT status, updated_at, data
		FROM claims
		WHERE claim_id = ?
	`

	var status string
	var updatedAt time.Time
	var data string

	err := r.db.QueryRowContext(ctx, r.rebind(query), claimID).Scan(&status, &updatedAt, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return decodeClaim(data, status, updatedAt)
}

// GetClaimsByPolicy retrieves all claims for a policy number, newest first.
func (r *SQLRepository) GetClaimsByPolicy(ctx context.Context, policyNumber string) ([]*domain.Claim, error) {
	if policyNumber == "" {
		return nil, fmt.Errorf("%w: policyNumber is required", ErrInvalidInput)
	}

	query := `
		SELECT status, updated_at, data
		FROM claims
		WHERE policy_number = ?
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), policyNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claims []*domain.Claim
	for rows.Next() {
		var status string
		var updatedAt time.Time
		var data string

		if err := rows.Scan(&status, &updatedAt, &data); err != nil {
			return nil, err
		}

		claim, err := decodeClaim(data, status, updatedAt)
		if err != nil {
			return nil, err
		}
		claims = append(claims, claim)
	}

	return claims, rows.Err()
}

// UpdateClaimStatus sets the status column and refreshes updated_at.
func (r *SQLRepository) UpdateClaimStatus(ctx context.Context, claimID string, status string) error {
	if claimID == "" || status == "" {
		return fmt.Errorf("%w: claimID and status are required", ErrInvalidInput)
	}

	query := `
		UPDATE claims
		SET status = ?, updated_at = ?
		WHERE claim_id = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query), status, time.Now().UTC(), claimID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// SaveAnalysis upserts an analysis result keyed by claim id. One result per
// claim; the latest write wins.
func (r *SQLRepository) SaveAnalysis(ctx context.Context, analysis *domain.AnalysisResult) error {
	if analysis == nil || analysis.ClaimID == "" {
		return fmt.Errorf("%w: analysis with non-empty claim_id is required", ErrInvalidInput)
	}

	data, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("failed to encode analysis: %w", err)
	}

	query := `
		INSERT INTO analyses (
			claim_id, combined_score, fraud_score, risk_level, action,
			analysis_timestamp, processing_ms, data
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(claim_id) DO UPDATE SET
			combined_score = excluded.combined_score,
			fraud_score = excluded.fraud_score,
			risk_level = excluded.risk_level,
			action = excluded.action,
			analysis_timestamp = excluded.analysis_timestamp,
			processing_ms = excluded.processing_ms,
			data = excluded.data
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		analysis.ClaimID, analysis.CombinedScore, analysis.FraudScore,
		analysis.RiskLevel, analysis.Action,
		analysis.AnalysisTimestamp, analysis.ProcessingMs, string(data),
	)
	return err
}

// GetAnalysis retrieves the stored analysis for a claim.
func (r *SQLRepository) GetAnalysis(ctx context.Context, claimID string) (*domain.AnalysisResult, error) {
	if claimID == "" {
		return nil, fmt.Errorf("%w: claimID is required", ErrInvalidInput)
	}

	query := `
		SELECT data
		FROM analyses
		WHERE claim_id = ?
	`

	var data string
	err := r.db.QueryRowContext(ctx, r.rebind(query), claimID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var analysis domain.AnalysisResult
	if err := json.Unmarshal([]byte(data), &analysis); err != nil {
		return nil, fmt.Errorf("failed to decode analysis: %w", err)
	}

	return &analysis, nil
}

// ListHighRisk returns analyses with combined score at or above minScore,
// highest first, each paired with its claim's total amount. Analyses whose
// claim record is missing report a zero amount.
func (r *SQLRepository) ListHighRisk(ctx context.Context, minScore float64) ([]*domain.HighRiskEntry, error) {
	query := `
		SELECT a.data, COALESCE(c.total_claim_amount, 0)
		FROM analyses a
		LEFT JOIN claims c ON c.claim_id = a.claim_id
		WHERE a.combined_score >= ?
		ORDER BY a.combined_score DESC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), minScore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.HighRiskEntry
	for rows.Next() {
		var data string
		var amount float64

		if err := rows.Scan(&data, &amount); err != nil {
			return nil, err
		}

		var analysis domain.AnalysisResult
		if err := json.Unmarshal([]byte(data), &analysis); err != nil {
			return nil, fmt.Errorf("failed to decode analysis: %w", err)
		}

		entries = append(entries, &domain.HighRiskEntry{
			Analysis:         &analysis,
			TotalClaimAmount: amount,
		})
	}

	return entries, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// decodeClaim rebuilds a claim from its stored document, overlaying the
// mutable columns.
func decodeClaim(data, status string, updatedAt time.Time) (*domain.Claim, error) {
	var claim domain.Claim
	if err := json.Unmarshal([]byte(data), &claim); err != nil {
		return nil, fmt.Errorf("failed to decode claim: %w", err)
	}
	claim.Status = status
	claim.UpdatedAt = updatedAt
	return &claim, nil
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}

// Package domain defines the core interfaces and types for Heron.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for claim and analysis persistence.
// Writes are single keyed upserts; there is no cross-record consistency
// requirement.
type Repository interface {
	// Claim operations
	SaveClaim(ctx context.Context, claim *Claim) error
	GetClaim(ctx context.Context, claimID string) (*Claim, error)
	GetClaimsByPolicy(ctx context.Context, policyNumber string) ([]*Claim, error)
	UpdateClaimStatus(ctx context.Context, claimID string, status string) error

	// Analysis operations. SaveAnalysis upserts on claim id: one result per
	// claim, latest overwrites.
	SaveAnalysis(ctx context.Context, result *AnalysisResult) error
	GetAnalysis(ctx context.Context, claimID string) (*AnalysisResult, error)
	ListHighRisk(ctx context.Context, minScore float64) ([]*HighRiskEntry, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// HighRiskEntry pairs a stored analysis with the claimed amount of its
// claim, for dashboard aggregation.
type HighRiskEntry struct {
	Analysis         *AnalysisResult `json:"analysis"`
	TotalClaimAmount float64         `json:"total_claim_amount"`
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

package repository

// Schema definitions for the Heron database.
// Compatible with both SQLite and PostgreSQL.

// Claims are stored as a JSON document plus the columns the gateway
// queries on. Column values win over the document for status and
// updated_at, which change after creation.
const schemaClaims = `
CREATE TABLE IF NOT EXISTS claims (
    claim_id TEXT PRIMARY KEY,
    policy_number TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'submitted',
    total_claim_amount REAL NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    data TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_claims_policy ON claims(policy_number);
CREATE INDEX IF NOT EXISTS idx_claims_status ON claims(status);
`

// One analysis per claim; saving again overwrites.
const schemaAnalyses = `
CREATE TABLE IF NOT EXISTS analyses (
    claim_id TEXT PRIMARY KEY,
    combined_score REAL NOT NULL,
    fraud_score REAL NOT NULL,
    risk_level TEXT NOT NULL,
    action TEXT NOT NULL,
    analysis_timestamp TIMESTAMP NOT NULL,
    processing_ms INTEGER NOT NULL DEFAULT 0,
    data TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analyses_combined ON analyses(combined_score);
CREATE INDEX IF NOT EXISTS idx_analyses_risk ON analyses(risk_level);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaClaims,
		schemaAnalyses,
	}
}

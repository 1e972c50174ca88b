package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the audit tables. Timestamps are stored as Unix nanoseconds.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_records (
    id TEXT PRIMARY KEY,
    event_type TEXT NOT NULL,
    timestamp INTEGER NOT NULL,

    actor TEXT NOT NULL,
    subject_id TEXT NOT NULL,

    decision_id TEXT,
    user_id TEXT,
    session_id TEXT,
    action TEXT,
    status TEXT,
    risk_score INTEGER NOT NULL DEFAULT 0,
    guardrails TEXT,

    summary TEXT,
    payload_hash TEXT,

    recorded_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_records(timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_event_type ON audit_records(event_type);
CREATE INDEX IF NOT EXISTS idx_audit_actor ON audit_records(actor);
CREATE INDEX IF NOT EXISTS idx_audit_subject_id ON audit_records(subject_id);
CREATE INDEX IF NOT EXISTS idx_audit_decision_id ON audit_records(decision_id);
CREATE INDEX IF NOT EXISTS idx_audit_user_id ON audit_records(user_id);
`

// InsertSchemaVersion records the applied schema version.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the newest applied schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const recordColumns = `id, event_type, timestamp, actor, subject_id,
	decision_id, user_id, session_id, action, status, risk_score, guardrails,
	summary, payload_hash, recorded_at`

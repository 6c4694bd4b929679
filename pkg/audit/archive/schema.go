package archive

// schemaVersion is the current archive schema version.
const schemaVersion = 1

// schema contains the SQL statements to create the decision archive.
const schema = `
-- Decision records table
CREATE TABLE IF NOT EXISTS decisions (
    id TEXT PRIMARY KEY,
    schema_version TEXT NOT NULL,
    logged_at_utc TEXT NOT NULL,

    -- Decision identity
    decision_timestamp_ns INTEGER NOT NULL,
    telemetry_timestamp_ns INTEGER,
    outcome TEXT NOT NULL,
    proposed_action TEXT,
    actuation_approved BOOLEAN NOT NULL,
    requires_human_approval BOOLEAN NOT NULL,
    message TEXT,

    -- Deterministic layer
    guardrail_passed BOOLEAN NOT NULL,
    guardrail_has_fatal BOOLEAN NOT NULL,
    guardrail_irreversible BOOLEAN NOT NULL,
    guardrail_violations TEXT,
    guardrail_latency_us INTEGER,

    -- Probabilistic layer (NULL when the detector was not consulted)
    anomaly_detected BOOLEAN,
    anomaly_confidence REAL,
    recommended_action TEXT,
    affected_subsystem TEXT,
    reasoning TEXT,
    detector_latency_us INTEGER,

    -- Cost accounting
    input_tokens INTEGER,
    output_tokens INTEGER,
    total_tokens INTEGER,
    prompt_hash_sha256 TEXT
);

CREATE INDEX IF NOT EXISTS idx_decisions_outcome ON decisions(outcome);
CREATE INDEX IF NOT EXISTS idx_decisions_timestamp ON decisions(decision_timestamp_ns);
CREATE INDEX IF NOT EXISTS idx_decisions_human ON decisions(requires_human_approval);

-- Schema version table
CREATE TABLE IF NOT EXISTS archive_meta (
    version INTEGER PRIMARY KEY
);
`

const insertSchemaVersion = `INSERT OR IGNORE INTO archive_meta (version) VALUES (?);`

const getSchemaVersion = `SELECT version FROM archive_meta LIMIT 1;`

const insertDecision = `
INSERT OR IGNORE INTO decisions (
    id, schema_version, logged_at_utc,
    decision_timestamp_ns, telemetry_timestamp_ns, outcome, proposed_action,
    actuation_approved, requires_human_approval, message,
    guardrail_passed, guardrail_has_fatal, guardrail_irreversible,
    guardrail_violations, guardrail_latency_us,
    anomaly_detected, anomaly_confidence, recommended_action,
    affected_subsystem, reasoning, detector_latency_us,
    input_tokens, output_tokens, total_tokens, prompt_hash_sha256
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`

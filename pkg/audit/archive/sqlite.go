package archive

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"helios-hq/ceres/pkg/audit"
	"helios-hq/ceres/pkg/guardrail"
	"helios-hq/ceres/pkg/router"
)

// Config contains configuration for the SQLite decision archive.
type Config struct {
	// Path is the database file path.
	Path string

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultConfig returns the default archive configuration.
func DefaultConfig() Config {
	return Config{
		Path:        "data/audit.db",
		WALMode:     true,
		BusyTimeout: 5 * time.Second,
	}
}

// Query selects decisions from the archive. Zero values mean "no filter".
type Query struct {
	// Outcomes restricts results to the listed outcomes.
	Outcomes []router.Outcome

	// SinceNS and UntilNS bound the decision timestamp, inclusive.
	SinceNS int64
	UntilNS int64

	// OnlyHumanApproval keeps only decisions routed to an operator.
	OnlyHumanApproval bool

	// Limit caps the result count. Default: 100.
	Limit int

	// Offset skips that many rows for pagination.
	Offset int
}

// Store is a SQLite-backed decision archive.
type Store struct {
	db     *sql.DB
	config Config
	logger *slog.Logger
}

// Open opens (creating if needed) the archive database and prepares its
// schema.
func Open(config Config) (*Store, error) {
	if config.Path == "" {
		config.Path = DefaultConfig().Path
	}
	if config.BusyTimeout <= 0 {
		config.BusyTimeout = DefaultConfig().BusyTimeout
	}

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}

	s := &Store{
		db:     db,
		config: config,
		logger: slog.Default().With("component", "audit.archive"),
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("decision archive opened", "path", config.Path, "wal_mode", config.WALMode)
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return fmt.Errorf("enabling WAL mode: %w", err)
		}
	}

	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	if _, err := s.db.Exec(insertSchemaVersion, schemaVersion); err != nil {
		return fmt.Errorf("recording schema version: %w", err)
	}

	var version int
	if err := s.db.QueryRow(getSchemaVersion).Scan(&version); err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("archive schema version mismatch: expected %d, got %d", schemaVersion, version)
	}
	return nil
}

// ImportResult summarizes one JSONL import.
type ImportResult struct {
	// Imported counts records inserted.
	Imported int

	// Skipped counts records already present (by id).
	Skipped int

	// Malformed counts lines that failed to parse. Malformed lines are
	// reported, not fatal, so one corrupt line cannot block an import.
	Malformed int
}

// ImportJSONL loads one session log file into the archive inside a single
// transaction. Records already archived are skipped, so re-imports are safe.
func (s *Store) ImportJSONL(ctx context.Context, path string) (*ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening session log: %w", err)
	}
	defer f.Close()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning import transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertDecision)
	if err != nil {
		return nil, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	result := &ImportResult{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		var rec audit.Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			result.Malformed++
			s.logger.Warn("skipping malformed session log line", "path", path, "line", line, "error", err)
			continue
		}

		res, err := s.insertRecord(ctx, stmt, &rec)
		if err != nil {
			return nil, fmt.Errorf("inserting record %s: %w", rec.ID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			result.Imported++
		} else {
			result.Skipped++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading session log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing import: %w", err)
	}

	s.logger.Info("session log imported", "path", path,
		"imported", result.Imported, "skipped", result.Skipped, "malformed", result.Malformed)
	return result, nil
}

func (s *Store) insertRecord(ctx context.Context, stmt *sql.Stmt, rec *audit.Record) (sql.Result, error) {
	var violations interface{}
	if len(rec.Guardrail.Violations) > 0 {
		data, err := json.Marshal(rec.Guardrail.Violations)
		if err != nil {
			return nil, err
		}
		violations = string(data)
	}

	var detected, confidence, action, subsystem, reasoning, detLatency interface{}
	if rec.Detector != nil {
		detected = rec.Detector.Detected
		confidence = rec.Detector.Confidence
		action = rec.Detector.RecommendedAction
		subsystem = rec.Detector.AffectedSubsystem
		reasoning = rec.Detector.Reasoning
		detLatency = rec.Detector.LatencyUS
	}

	var inTok, outTok, totTok, promptHash interface{}
	if rec.Cost != nil {
		inTok = rec.Cost.InputTokens
		outTok = rec.Cost.OutputTokens
		totTok = rec.Cost.TotalTokens
		promptHash = rec.Cost.PromptHashSHA256
	}

	return stmt.ExecContext(ctx,
		rec.ID, rec.SchemaVersion, rec.LoggedAtUTC,
		rec.DecisionTimestampNS, rec.TelemetryTimestampNS, string(rec.Outcome), rec.ProposedAction,
		rec.ActuationApproved, rec.RequiresHumanApproval, rec.Message,
		rec.Guardrail.Passed, rec.Guardrail.HasFatal, rec.Guardrail.RequiresIrreversibleAction,
		violations, rec.Guardrail.LatencyUS,
		detected, confidence, action, subsystem, reasoning, detLatency,
		inTok, outTok, totTok, promptHash,
	)
}

// Search returns archived records matching the query, newest first.
func (s *Store) Search(ctx context.Context, query Query) ([]*audit.Record, error) {
	where, args := buildWhereClause(query)

	sqlQuery := `SELECT
		id, schema_version, logged_at_utc,
		decision_timestamp_ns, telemetry_timestamp_ns, outcome, proposed_action,
		actuation_approved, requires_human_approval, message,
		guardrail_passed, guardrail_has_fatal, guardrail_irreversible,
		guardrail_violations, guardrail_latency_us,
		anomaly_detected, anomaly_confidence, recommended_action,
		affected_subsystem, reasoning, detector_latency_us,
		input_tokens, output_tokens, total_tokens, prompt_hash_sha256
	FROM decisions`
	if where != "" {
		sqlQuery += " WHERE " + where
	}
	sqlQuery += " ORDER BY decision_timestamp_ns DESC"

	limit := 100
	if query.Limit > 0 {
		limit = query.Limit
	}
	sqlQuery += fmt.Sprintf(" LIMIT %d", limit)
	if query.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", query.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("querying archive: %w", err)
	}
	defer rows.Close()

	records := []*audit.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning archive row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying archive: %w", err)
	}
	return records, nil
}

// Count returns the number of archived records matching the query.
func (s *Store) Count(ctx context.Context, query Query) (int64, error) {
	where, args := buildWhereClause(query)
	sqlQuery := "SELECT COUNT(*) FROM decisions"
	if where != "" {
		sqlQuery += " WHERE " + where
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting archive: %w", err)
	}
	return count, nil
}

// DeleteBefore removes records whose decision timestamp predates the cutoff
// and returns the number removed.
func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM decisions WHERE decision_timestamp_ns < ?", cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("pruning archive by age: %w", err)
	}
	return res.RowsAffected()
}

// TrimToMax keeps only the newest max records, deleting the rest, and
// returns the number removed.
func (s *Store) TrimToMax(ctx context.Context, max int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM decisions WHERE id NOT IN (
			SELECT id FROM decisions ORDER BY decision_timestamp_ns DESC LIMIT ?
		)`, max)
	if err != nil {
		return 0, fmt.Errorf("pruning archive by count: %w", err)
	}
	return res.RowsAffected()
}

func buildWhereClause(query Query) (string, []interface{}) {
	clauses := []string{}
	args := []interface{}{}

	if len(query.Outcomes) > 0 {
		placeholders := ""
		for i, outcome := range query.Outcomes {
			if i > 0 {
				placeholders += ", "
			}
			placeholders += "?"
			args = append(args, string(outcome))
		}
		clauses = append(clauses, "outcome IN ("+placeholders+")")
	}
	if query.SinceNS > 0 {
		clauses = append(clauses, "decision_timestamp_ns >= ?")
		args = append(args, query.SinceNS)
	}
	if query.UntilNS > 0 {
		clauses = append(clauses, "decision_timestamp_ns <= ?")
		args = append(args, query.UntilNS)
	}
	if query.OnlyHumanApproval {
		clauses = append(clauses, "requires_human_approval = 1")
	}

	where := ""
	for i, clause := range clauses {
		if i > 0 {
			where += " AND "
		}
		where += clause
	}
	return where, args
}

func scanRecord(rows *sql.Rows) (*audit.Record, error) {
	var rec audit.Record
	var outcome string
	var violations sql.NullString
	var detected sql.NullBool
	var confidence sql.NullFloat64
	var action, subsystem, reasoning, promptHash sql.NullString
	var detLatency, inTok, outTok, totTok sql.NullInt64

	err := rows.Scan(
		&rec.ID, &rec.SchemaVersion, &rec.LoggedAtUTC,
		&rec.DecisionTimestampNS, &rec.TelemetryTimestampNS, &outcome, &rec.ProposedAction,
		&rec.ActuationApproved, &rec.RequiresHumanApproval, &rec.Message,
		&rec.Guardrail.Passed, &rec.Guardrail.HasFatal, &rec.Guardrail.RequiresIrreversibleAction,
		&violations, &rec.Guardrail.LatencyUS,
		&detected, &confidence, &action, &subsystem, &reasoning, &detLatency,
		&inTok, &outTok, &totTok, &promptHash,
	)
	if err != nil {
		return nil, err
	}

	rec.Outcome = router.Outcome(outcome)
	if violations.Valid {
		var vs []guardrail.Violation
		if err := json.Unmarshal([]byte(violations.String), &vs); err != nil {
			return nil, fmt.Errorf("decoding archived violations: %w", err)
		}
		rec.Guardrail.Violations = vs
	}
	if detected.Valid {
		rec.Detector = &audit.DetectorRecord{
			Detected:          detected.Bool,
			Confidence:        confidence.Float64,
			RecommendedAction: action.String,
			AffectedSubsystem: subsystem.String,
			Reasoning:         reasoning.String,
			LatencyUS:         detLatency.Int64,
		}
	}
	if totTok.Valid {
		rec.Cost = &audit.CostRecord{
			InputTokens:      inTok.Int64,
			OutputTokens:     outTok.Int64,
			TotalTokens:      totTok.Int64,
			PromptHashSHA256: promptHash.String,
		}
	}
	return &rec, nil
}

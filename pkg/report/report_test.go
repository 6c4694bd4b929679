package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"helios-hq/ceres/pkg/audit"
	"helios-hq/ceres/pkg/router"
)

func record(id string, outcome router.Outcome, guardrailUS int64, passed bool) audit.Record {
	return audit.Record{
		SchemaVersion: audit.SchemaVersion,
		ID:            id,
		Outcome:       outcome,
		Guardrail:     audit.GuardrailRecord{Passed: passed, LatencyUS: guardrailUS},
	}
}

func withDetector(rec audit.Record, detected bool, latencyUS, tokens int64) audit.Record {
	rec.Detector = &audit.DetectorRecord{Detected: detected, LatencyUS: latencyUS, RecommendedAction: "CONTINUE_MONITORING"}
	rec.Cost = &audit.CostRecord{InputTokens: tokens - 100, OutputTokens: 100, TotalTokens: tokens}
	return rec
}

func writeLog(t *testing.T, records []audit.Record) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.jsonl")
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestAnalyze(t *testing.T) {
	records := []audit.Record{
		record("a", router.OutcomePassDetectorSkipped, 100, true),
		record("b", router.OutcomePassDetectorSkipped, 200, true),
		withDetector(record("c", router.OutcomePassDetectorNominal, 300, true), false, 900_000, 2000),
		withDetector(record("d", router.OutcomeAnomalyType2, 400, true), true, 1_100_000, 2200),
		record("e", router.OutcomeViolationFatal, 500, false),
	}

	summary, err := Analyze([]string{writeLog(t, records)})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if summary.TotalDecisions != 5 {
		t.Errorf("TotalDecisions = %d, want 5", summary.TotalDecisions)
	}
	if summary.Outcomes[router.OutcomePassDetectorSkipped] != 2 {
		t.Errorf("skipped = %d, want 2", summary.Outcomes[router.OutcomePassDetectorSkipped])
	}
	if summary.ConstraintAdherenceRate != 0.8 {
		t.Errorf("ConstraintAdherenceRate = %v, want 0.8", summary.ConstraintAdherenceRate)
	}
	if summary.Dispatches != 2 {
		t.Errorf("Dispatches = %d, want 2", summary.Dispatches)
	}
	if summary.TotalTokens != 4200 {
		t.Errorf("TotalTokens = %d, want 4200", summary.TotalTokens)
	}
	if summary.TrustBoundaryRate != 0 {
		t.Errorf("TrustBoundaryRate = %v, want 0", summary.TrustBoundaryRate)
	}

	// One detection over 4200 tokens.
	want := 1.0 / 4200 * 1_000_000
	if diff := summary.DetectionsPerMegatoken - want; diff < -0.01 || diff > 0.01 {
		t.Errorf("DetectionsPerMegatoken = %v, want %v", summary.DetectionsPerMegatoken, want)
	}
}

func TestAnalyzeTrustBoundaryRate(t *testing.T) {
	records := []audit.Record{
		withDetector(record("a", router.OutcomePassDetectorNominal, 100, true), false, 900_000, 2000),
		record("b", router.OutcomeTrustBoundaryViolation, 100, true),
	}

	summary, err := Analyze([]string{writeLog(t, records)})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if summary.TrustBoundaryRate != 0.5 {
		t.Errorf("TrustBoundaryRate = %v, want 0.5", summary.TrustBoundaryRate)
	}
}

func TestAnalyzeSkipsMalformedLines(t *testing.T) {
	path := writeLog(t, []audit.Record{record("a", router.OutcomePassDetectorSkipped, 100, true)})
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	f.WriteString("{broken\n")
	f.Close()

	summary, err := Analyze([]string{path})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if summary.TotalDecisions != 1 || summary.MalformedLines != 1 {
		t.Errorf("summary = %+v, want 1 decision 1 malformed", summary)
	}
}

func TestAnalyzeNoPaths(t *testing.T) {
	if _, err := Analyze(nil); err == nil {
		t.Fatal("expected error for empty path list")
	}
}

func TestPercentiles(t *testing.T) {
	samples := make([]int64, 100)
	for i := range samples {
		samples[i] = int64(i + 1) // 1..100
	}

	p := percentiles(samples)
	if p.P50 != 50 {
		t.Errorf("P50 = %d, want 50", p.P50)
	}
	if p.P95 != 95 {
		t.Errorf("P95 = %d, want 95", p.P95)
	}
	if p.P99 != 99 {
		t.Errorf("P99 = %d, want 99", p.P99)
	}
}

func TestPercentilesSingleSample(t *testing.T) {
	p := percentiles([]int64{42})
	if p.P50 != 42 || p.P95 != 42 || p.P99 != 42 {
		t.Errorf("percentiles = %+v, want all 42", p)
	}
}

func TestRender(t *testing.T) {
	records := []audit.Record{
		record("a", router.OutcomePassDetectorSkipped, 100, true),
		withDetector(record("b", router.OutcomeAnomalyType1, 200, true), true, 1_000_000, 2000),
	}
	summary, err := Analyze([]string{writeLog(t, records)})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	var buf bytes.Buffer
	summary.Render(&buf)

	out := buf.String()
	for _, want := range []string{"Decisions: 2", "PASS_DETECTOR_SKIPPED", "ANOMALY_TYPE1", "Constraint adherence", "Detector dispatches"} {
		if !strings.Contains(out, want) {
			t.Errorf("render output missing %q:\n%s", want, out)
		}
	}
}

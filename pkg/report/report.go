package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"helios-hq/ceres/pkg/audit"
	"helios-hq/ceres/pkg/router"
)

// Percentiles summarizes a latency distribution in microseconds.
type Percentiles struct {
	P50 int64 `json:"p50_us"`
	P95 int64 `json:"p95_us"`
	P99 int64 `json:"p99_us"`
}

// Summary is the KPI rollup for one or more sessions.
type Summary struct {
	// TotalDecisions counts every audit record read.
	TotalDecisions int `json:"total_decisions"`

	// Outcomes is the decision count per outcome.
	Outcomes map[router.Outcome]int `json:"outcomes"`

	// ConstraintAdherenceRate is the fraction of decisions whose frame
	// passed every structural constraint.
	ConstraintAdherenceRate float64 `json:"constraint_adherence_rate"`

	// TrustBoundaryRate is the fraction of detector dispatches that ended
	// in a trust boundary violation.
	TrustBoundaryRate float64 `json:"trust_boundary_rate"`

	// GuardrailLatency covers every decision; DetectorLatency only
	// dispatched ticks.
	GuardrailLatency Percentiles `json:"guardrail_latency"`
	DetectorLatency  Percentiles `json:"detector_latency"`

	// Dispatches counts ticks where the probabilistic layer ran.
	Dispatches int `json:"dispatches"`

	// Token accounting across all dispatches.
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`

	// DetectionsPerMegatoken normalizes anomaly yield by token spend.
	DetectionsPerMegatoken float64 `json:"detections_per_megatoken"`

	// MalformedLines counts unparseable audit lines, reported not fatal.
	MalformedLines int `json:"malformed_lines,omitempty"`
}

// Analyze reads one or more session log files and computes the KPI summary.
func Analyze(paths []string) (*Summary, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no session logs given")
	}

	summary := &Summary{Outcomes: make(map[router.Outcome]int)}

	var guardrailLatencies, detectorLatencies []int64
	var passed, detections int

	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening session log: %w", err)
		}

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			var rec audit.Record
			if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
				summary.MalformedLines++
				continue
			}

			summary.TotalDecisions++
			summary.Outcomes[rec.Outcome]++
			guardrailLatencies = append(guardrailLatencies, rec.Guardrail.LatencyUS)
			if rec.Guardrail.Passed {
				passed++
			}

			if rec.Detector != nil {
				summary.Dispatches++
				detectorLatencies = append(detectorLatencies, rec.Detector.LatencyUS)
				if rec.Detector.Detected {
					detections++
				}
			}
			if rec.Cost != nil {
				summary.InputTokens += rec.Cost.InputTokens
				summary.OutputTokens += rec.Cost.OutputTokens
				summary.TotalTokens += rec.Cost.TotalTokens
			}
		}
		scanErr := scanner.Err()
		f.Close()
		if scanErr != nil {
			return nil, fmt.Errorf("reading session log %q: %w", path, scanErr)
		}
	}

	if summary.TotalDecisions > 0 {
		summary.ConstraintAdherenceRate = float64(passed) / float64(summary.TotalDecisions)
	}

	boundary := summary.Outcomes[router.OutcomeTrustBoundaryViolation]
	if attempts := summary.Dispatches + boundary; attempts > 0 {
		// Boundary violations never carry a detector block, so dispatch
		// attempts are the sum of the two.
		summary.TrustBoundaryRate = float64(boundary) / float64(attempts)
	}

	summary.GuardrailLatency = percentiles(guardrailLatencies)
	summary.DetectorLatency = percentiles(detectorLatencies)

	if summary.TotalTokens > 0 {
		summary.DetectionsPerMegatoken = float64(detections) / float64(summary.TotalTokens) * 1_000_000
	}

	return summary, nil
}

// percentiles computes nearest-rank p50/p95/p99 over the samples.
func percentiles(samples []int64) Percentiles {
	if len(samples) == 0 {
		return Percentiles{}
	}

	sorted := make([]int64, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	rank := func(p float64) int64 {
		idx := int(p*float64(len(sorted))+0.5) - 1
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sorted) {
			idx = len(sorted) - 1
		}
		return sorted[idx]
	}

	return Percentiles{P50: rank(0.50), P95: rank(0.95), P99: rank(0.99)}
}

package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"

	"helios-hq/ceres/pkg/router"
)

// Render writes the summary as human-readable tables.
func (s *Summary) Render(w io.Writer) {
	fmt.Fprintf(w, "Decisions: %d", s.TotalDecisions)
	if s.MalformedLines > 0 {
		fmt.Fprintf(w, " (%d malformed lines skipped)", s.MalformedLines)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w)

	outcomes := tablewriter.NewWriter(w)
	outcomes.Header("Outcome", "Count", "Share")
	for _, outcome := range sortedOutcomes(s) {
		count := s.Outcomes[outcome]
		outcomes.Append(
			string(outcome),
			fmt.Sprintf("%d", count),
			fmt.Sprintf("%.1f%%", float64(count)/float64(s.TotalDecisions)*100),
		)
	}
	outcomes.Render()
	fmt.Fprintln(w)

	kpis := tablewriter.NewWriter(w)
	kpis.Header("KPI", "Value")
	kpis.Append("Constraint adherence", fmt.Sprintf("%.2f%%", s.ConstraintAdherenceRate*100))
	kpis.Append("Trust boundary rate", fmt.Sprintf("%.2f%%", s.TrustBoundaryRate*100))
	kpis.Append("Guardrail latency p50/p95/p99 (µs)",
		fmt.Sprintf("%d / %d / %d", s.GuardrailLatency.P50, s.GuardrailLatency.P95, s.GuardrailLatency.P99))
	if s.Dispatches > 0 {
		kpis.Append("Detector dispatches", fmt.Sprintf("%d", s.Dispatches))
		kpis.Append("Detector latency p50/p95/p99 (µs)",
			fmt.Sprintf("%d / %d / %d", s.DetectorLatency.P50, s.DetectorLatency.P95, s.DetectorLatency.P99))
		kpis.Append("Tokens (in/out/total)",
			fmt.Sprintf("%d / %d / %d", s.InputTokens, s.OutputTokens, s.TotalTokens))
		kpis.Append("Detections per megatoken", fmt.Sprintf("%.2f", s.DetectionsPerMegatoken))
	}
	kpis.Render()
}

func sortedOutcomes(s *Summary) []router.Outcome {
	outcomes := make([]router.Outcome, 0, len(s.Outcomes))
	for outcome := range s.Outcomes {
		outcomes = append(outcomes, outcome)
	}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i] < outcomes[j] })
	return outcomes
}

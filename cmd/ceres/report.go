package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"helios-hq/ceres/pkg/report"
)

var reportFlags struct {
	format string
}

var reportCmd = &cobra.Command{
	Use:   "report <session-log>...",
	Short: "Summarize session KPIs from audit logs",
	Long: `Compute KPIs over one or more JSONL audit logs: outcome distribution,
constraint adherence, latency percentiles per layer, trust boundary rate,
and detector token economics.

Examples:
  # One session, table output
  ceres report logs/audit/audit_20260830T120000Z.jsonl

  # Roll up several sessions as JSON
  ceres report --format json logs/audit/*.jsonl`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportFlags.format, "format", "table", "output format (table, json)")
}

func runReport(cmd *cobra.Command, args []string) error {
	summary, err := report.Analyze(args)
	if err != nil {
		return err
	}

	switch reportFlags.format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	case "table":
		summary.Render(os.Stdout)
		return nil
	default:
		return fmt.Errorf("unknown format %q", reportFlags.format)
	}
}

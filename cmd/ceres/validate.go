package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"helios-hq/ceres/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load the configuration, apply defaults and environment overrides, and
report whether the result is valid.

Examples:
  ceres validate --config ceres.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		fmt.Println("✓ Configuration valid")
		fmt.Printf("  Window size:           %d\n", cfg.Router.WindowSize)
		fmt.Printf("  Confidence threshold:  %.4f\n", cfg.Router.ConfidenceThreshold)
		fmt.Printf("  Wheel RPM limit:       %.0f\n", cfg.Guardrail.MaxWheelRPM)
		fmt.Printf("  Angular rate limit:    %.1f deg/s\n", cfg.Guardrail.MaxAngularRate)
		fmt.Printf("  Quaternion tolerance:  %.4f\n", cfg.Guardrail.QuaternionNormTolerance)
		fmt.Printf("  Detector:              %s (enabled: %v)\n", cfg.Detector.Provider, cfg.Detector.Enabled)
		fmt.Printf("  Audit queue capacity:  %d\n", cfg.Audit.QueueCapacity)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

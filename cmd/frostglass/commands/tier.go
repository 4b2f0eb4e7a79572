package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bryanchriswhite/frostglass/internal/hardware"
)

var tierCmd = &cobra.Command{
	Use:   "tier",
	Short: "Show the hardware tier and capture scale",
	Long: `Classify the host (or a given device model) into a capability tier and
show the capture scale the renderer will use for surfaces without an
override.`,
	Example: `  # Classify this machine
  frostglass tier

  # Classify a specific model
  frostglass tier --model iPhone10,3

  # Show every tier
  frostglass tier --all`,
	RunE: runTier,
}

var (
	tierModel string
	tierAll   bool
)

func init() {
	rootCmd.AddCommand(tierCmd)

	tierCmd.Flags().StringVar(&tierModel, "model", "", "device model identifier (default: detected)")
	tierCmd.Flags().BoolVarP(&tierAll, "all", "a", false, "list every tier and its capture scale")
}

func runTier(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}

	model := tierModel
	if model == "" {
		model = hardware.DetectModel(cfg.DeviceModel)
	}
	printTier(cmd, model, tierAll)
	return nil
}

func printTier(cmd *cobra.Command, model string, all bool) {
	out := cmd.OutOrStdout()
	tier := hardware.ClassifyModel(model)

	if model == "" {
		model = "(unknown)"
	}
	fmt.Fprintf(out, "Model:         %s\n", model)
	fmt.Fprintf(out, "Tier:          %s\n", tier)
	fmt.Fprintf(out, "Capture scale: %.2f\n", tier.Scale())

	if !all {
		return
	}

	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIER\tSCALE\t")
	for _, t := range hardware.Tiers() {
		marker := ""
		if t == tier {
			marker = "*"
		}
		fmt.Fprintf(w, "%s\t%.2f\t%s\n", t, t.Scale(), marker)
	}
	w.Flush()
}

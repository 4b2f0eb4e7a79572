package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bryanchriswhite/frostglass/internal/config"
)

var surfaceCmd = &cobra.Command{
	Use:   "surface",
	Short: "Manage configured effect surfaces",
	Long: `Add, remove and list the effect surfaces rendered by "frostglass serve".
Changes are written to the config file; a running server picks up surfaces
added through its REST API instead.`,
}

var surfaceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured surfaces",
	Example: `  # Table (default)
  frostglass surface list

  # JSON
  frostglass surface list --format json`,
	RunE: runSurfaceList,
}

var surfaceAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a surface",
	Example: `  # A light sidebar
  frostglass surface add --id sidebar --rect 0,0,320,1080 --style light

  # Explicit blur, captured at full resolution
  frostglass surface add --rect 600,400,300,200 --style none --radius 20 --scale 1`,
	RunE: runSurfaceAdd,
}

var surfaceRemoveCmd = &cobra.Command{
	Use:   "remove ID",
	Short: "Remove a surface",
	Args:  cobra.ExactArgs(1),
	RunE:  runSurfaceRemove,
}

var (
	surfaceFormat string
	surfaceID     string
	surfaceRect   string
	surfaceStyle  string
	surfaceScale  float64
)

func init() {
	rootCmd.AddCommand(surfaceCmd)
	surfaceCmd.AddCommand(surfaceListCmd)
	surfaceCmd.AddCommand(surfaceAddCmd)
	surfaceCmd.AddCommand(surfaceRemoveCmd)

	surfaceListCmd.Flags().StringVarP(&surfaceFormat, "format", "f", "table", "output format (table or json)")

	surfaceAddCmd.Flags().StringVar(&surfaceID, "id", "", "surface id (default: generated)")
	surfaceAddCmd.Flags().StringVar(&surfaceRect, "rect", "", "rectangle as x,y,width,height")
	surfaceAddCmd.Flags().StringVarP(&surfaceStyle, "style", "s", "regular", "style (none, light, regular, dark)")
	surfaceAddCmd.Flags().Float64("radius", 0, "blur radius (default: style preset)")
	surfaceAddCmd.Flags().Float64("vibrancy", 0, "saturation factor (default: style preset)")
	surfaceAddCmd.Flags().Float64Var(&surfaceScale, "scale", 0, "capture scale override in (0, 1]")
	surfaceAddCmd.MarkFlagRequired("rect")
}

func runSurfaceList(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	surfaces := configMgr.Get().Surfaces

	out := cmd.OutOrStdout()
	switch surfaceFormat {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(surfaces)
	case "table":
		if len(surfaces) == 0 {
			fmt.Fprintln(out, "No surfaces configured")
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tRECT\tEFFECT")
		for _, s := range surfaces {
			effect := "invalid"
			if d, err := s.Descriptor(); err == nil {
				effect = d.String()
			}
			fmt.Fprintf(w, "%s\t%v\t%s\n", s.ID, s.Bounds(), effect)
		}
		return w.Flush()
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", surfaceFormat)
	}
}

func runSurfaceAdd(cmd *cobra.Command, args []string) error {
	rect, err := parseRect(surfaceRect)
	if err != nil {
		return err
	}

	s := config.SurfaceConfig{
		ID:                   surfaceID,
		X:                    rect.Min.X,
		Y:                    rect.Min.Y,
		Width:                rect.Dx(),
		Height:               rect.Dy(),
		Style:                surfaceStyle,
		CaptureScaleOverride: surfaceScale,
	}
	if cmd.Flags().Changed("radius") {
		v, _ := cmd.Flags().GetFloat64("radius")
		s.BlurRadius = &v
	}
	if cmd.Flags().Changed("vibrancy") {
		v, _ := cmd.Flags().GetFloat64("vibrancy")
		s.Vibrancy = &v
	}

	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	added, err := configMgr.AddSurface(s)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✅ Added surface %s\n", added.ID)
	return nil
}

func runSurfaceRemove(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := configMgr.RemoveSurface(args[0]); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✅ Removed surface %s\n", args[0])
	return nil
}

package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bryanchriswhite/frostglass/internal/window"
)

var windowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "List X11 windows usable as a backdrop",
	Long: `List the top-level windows on the X server with their IDs, so one can be
set as the live backdrop with capture.window_id. Window ID 0 captures the
whole root window.`,
	Example: `  # List windows
  frostglass windows

  # Show the focused window as JSON
  frostglass windows --current --format json

  # Use a window as the backdrop
  frostglass config set capture.window_id 0x4a00007`,
	RunE: runWindows,
}

var (
	windowsFormat  string
	windowsCurrent bool
)

func init() {
	rootCmd.AddCommand(windowsCmd)

	windowsCmd.Flags().StringVarP(&windowsFormat, "format", "f", "table", "output format (table or json)")
	windowsCmd.Flags().BoolVarP(&windowsCurrent, "current", "c", false, "show only the focused window")
}

func runWindows(cmd *cobra.Command, args []string) error {
	lister, err := window.NewLister()
	if err != nil {
		return err
	}
	defer lister.Close()

	var infos []*window.Info
	if windowsCurrent {
		info, err := lister.Focused()
		if err != nil {
			return err
		}
		infos = []*window.Info{info}
	} else {
		infos, err = lister.List()
		if err != nil {
			return err
		}
	}
	return printWindows(cmd.OutOrStdout(), infos, windowsFormat)
}

func printWindows(out io.Writer, infos []*window.Info, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(infos)
	case "table":
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", format)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ID\tCLASS\tGEOMETRY\tTITLE")
	fmt.Fprintln(w, "--\t-----\t--------\t-----")
	for _, info := range infos {
		id := fmt.Sprintf("0x%x", info.ID)
		if info.Focused {
			id += "*"
		}
		g := info.Geometry
		fmt.Fprintf(w, "%s\t%s\t%dx%d+%d+%d\t%s\n", id, info.Class, g.Dx(), g.Dy(), g.Min.X, g.Min.Y, info.Title)
	}
	return nil
}

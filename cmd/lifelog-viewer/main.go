// Package main implements a tray-resident desktop viewer for a lifelog viewer service.
// It polls the service for lifelog summaries, browser history, news and reports and
// shows them in a local window opened in the system browser.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

const appName = "lifelog-viewer"

// Version information - set during build with -ldflags.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type globalOptions struct {
	settingsPath string
	debug        bool
}

func newRootCmd() *cobra.Command {
	var g globalOptions
	var run runOptions

	root := &cobra.Command{
		Use:   appName,
		Short: "Tray viewer for lifelog, browser history, news and reports",
		Long: `Lifelog Viewer sits in the system tray and polls a lifelog viewer service.
Open the window from the tray to browse the dashboard, lifelog summary,
browser history, news and reports. Run without a subcommand to start the tray app.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			run.globalOptions = g
			return runApp(cmd.Context(), run)
		},
	}
	root.PersistentFlags().BoolVar(&g.debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&g.settingsPath, "settings", "", "Settings file (default <config dir>/"+appName+"/settings.json)")
	root.Flags().BoolVar(&run.quitOnClose, "quit-on-close", false, "Quit when the window is closed instead of staying in the tray")
	root.Flags().StringVar(&run.addr, "addr", "127.0.0.1:0", "Loopback host:port for the viewer window (other hosts are refused)")

	root.AddCommand(newProbeCmd(&g), newSettingsCmd(&g), newDashboardCmd(&g), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Aliases: []string{"v"},
		Short:   "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "  %s %s\n", styleBrand.Render(appName), styleValue.Render(version))
			fmt.Fprintf(out, "    %s  %s\n", styleLabel.Render("Commit"), styleValue.Render(commit))
			fmt.Fprintf(out, "    %s   %s\n", styleLabel.Render("Built"), styleValue.Render(date))
			fmt.Fprintf(out, "    %s %s\n", styleLabel.Render("OS/Arch"), styleValue.Render(runtime.GOOS+"/"+runtime.GOARCH))
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

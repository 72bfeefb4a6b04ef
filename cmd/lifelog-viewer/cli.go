package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/lifelog-system/desktop-viewer/pkg/settings"
	"github.com/lifelog-system/desktop-viewer/pkg/view"
	"github.com/lifelog-system/desktop-viewer/pkg/viewerapi"
)

const cliTimeout = 15 * time.Second

var (
	colorWhite = lipgloss.AdaptiveColor{Light: "0", Dark: "15"}
	colorDim   = lipgloss.AdaptiveColor{Light: "242", Dark: "240"}
	colorGreen = lipgloss.AdaptiveColor{Light: "28", Dark: "40"}
	colorRed   = lipgloss.AdaptiveColor{Light: "160", Dark: "196"}
	colorCyan  = lipgloss.AdaptiveColor{Light: "30", Dark: "45"}
)

var (
	styleBrand   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleLabel   = lipgloss.NewStyle().Foreground(colorDim)
	styleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	styleSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleError   = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	styleHeading = lipgloss.NewStyle().Bold(true).Foreground(colorWhite)
)

func newProbeCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "probe [endpoint]",
		Short: "Check that the viewer service answers",
		Long: `Probe sends one GET /api/dashboard to the viewer service and reports whether it
answered with a success status. Without an argument the configured endpoint is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoint := ""
			if len(args) == 1 {
				endpoint = args[0]
			} else {
				store, err := openStore(g.settingsPath)
				if err != nil {
					return err
				}
				endpoint = store.Get().APIEndpoint
			}
			return runProbe(cmd.Context(), cmd.OutOrStdout(), endpoint)
		},
	}
}

func runProbe(ctx context.Context, out io.Writer, endpoint string) error {
	ctx, cancel := context.WithTimeout(ctx, cliTimeout)
	defer cancel()

	fmt.Fprintf(out, "  %s %s\n", styleLabel.Render("Endpoint"), styleValue.Render(endpoint))
	if !viewerapi.New(endpoint).TestConnection(ctx) {
		fmt.Fprintf(out, "  %s\n", styleError.Render("Connection failed"))
		return fmt.Errorf("viewer service at %s is not reachable", endpoint)
	}
	fmt.Fprintf(out, "  %s\n", styleSuccess.Render("Connection successful"))
	return nil
}

func newSettingsCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "settings",
		Short: "Show the stored settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(g.settingsPath)
			if err != nil {
				return err
			}
			printSettings(cmd.OutOrStdout(), store.Path(), store.Get())
			return nil
		},
	}
}

func printSettings(out io.Writer, path string, s settings.Settings) {
	row := func(label, value string) {
		fmt.Fprintf(out, "  %-22s %s\n", styleLabel.Render(label), styleValue.Render(value))
	}
	fmt.Fprintf(out, "  %s\n", styleHeading.Render("Settings"))
	row("File", path)
	row("API endpoint", s.APIEndpoint)
	row("Update interval", fmt.Sprintf("%ds", s.IntervalSeconds()))
	row("Theme", string(s.Theme))
	row("Notifications", onOff(s.NotificationsEnabled))
	row("Start minimized", onOff(s.StartMinimized))
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func newDashboardCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Print today's dashboard summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(g.settingsPath)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cliTimeout)
			defer cancel()

			d, err := viewerapi.New(store.Get().APIEndpoint).Dashboard(ctx)
			if err != nil {
				return fmt.Errorf("fetch dashboard: %w", err)
			}
			printDashboard(cmd.OutOrStdout(), d)
			return nil
		},
	}
}

func printDashboard(out io.Writer, d *viewerapi.Dashboard) {
	row := func(label, value string) {
		fmt.Fprintf(out, "    %-20s %s\n", styleLabel.Render(label), styleValue.Render(value))
	}

	fmt.Fprintf(out, "  %s\n", styleHeading.Render("Today"))
	if d.Lifelog != nil {
		row("Active time", view.FormatDuration(d.Lifelog.ActiveDuration))
		row("Applications", fmt.Sprint(d.Lifelog.AppCount))
	}
	if d.Browser != nil {
		row("Page visits", fmt.Sprint(d.Browser.VisitCount))
		row("Browsing time", view.FormatDuration(d.Browser.TotalTime))
	}
	if d.Info != nil {
		row("News", fmt.Sprint(d.Info.NewsCount))
		row("Reports", fmt.Sprint(d.Info.ReportCount))
	}

	if len(d.RecentActivities) > 0 {
		fmt.Fprintf(out, "\n  %s\n", styleHeading.Render("Recent activity"))
		for _, a := range d.RecentActivities {
			row(view.FormatDateTime(a.Timestamp), a.Description)
		}
	}
	if len(d.RecentNews) > 0 {
		fmt.Fprintf(out, "\n  %s\n", styleHeading.Render("Recent news"))
		for _, n := range d.RecentNews {
			row(view.FormatDateTime(n.Timestamp()), n.Title)
		}
	}
}

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/clintrovert/scrummaster/internal/api/rest"
	"github.com/clintrovert/scrummaster/internal/monitor"
	"github.com/clintrovert/scrummaster/internal/observers"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	goodStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func healthy(ok bool) string {
	if ok {
		return goodStyle.Render("Healthy")
	}
	return badStyle.Render("Unhealthy")
}

func (a *App) newHealthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check system health and status",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.newSession()
			if err != nil {
				return err
			}
			defer s.close()

			fmt.Fprintln(a.Out, titleStyle.Render("System Health Check"))
			fmt.Fprintln(a.Out, "=====================")

			h := s.engine.HealthCheck()
			fmt.Fprintf(a.Out, "Overall Health: %s\n", healthy(h.Overall))
			fmt.Fprintf(a.Out, "Command Invoker: %s\n", healthy(h.CommandInvoker.Healthy))
			fmt.Fprintf(a.Out, "Recent Events: %d\n", h.RecentEvents)
			fmt.Fprintf(a.Out, "Error Events: %d\n", h.ErrorEvents)
			fmt.Fprintf(a.Out, "Currently Processing: %s\n", yesNo(h.IsProcessing))
			if h.LastActivity != nil {
				fmt.Fprintf(a.Out, "Last Activity: %s (%s)\n", h.LastActivity.Format(time.RFC3339), humanize.Time(*h.LastActivity))
			} else {
				fmt.Fprintln(a.Out, "Last Activity: None")
			}

			if !h.Overall {
				fmt.Fprintln(a.Out)
				fmt.Fprintln(a.Out, warnStyle.Render("Issues detected:"))
				if !h.CommandInvoker.Healthy {
					fmt.Fprintln(a.Out, "  - Command invoker is unhealthy")
				}
				if h.ErrorEvents > 0 {
					fmt.Fprintf(a.Out, "  - %d error events in recent history\n", h.ErrorEvents)
				}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			if login, err := s.api.AuthenticatedUser(ctx); err != nil {
				fmt.Fprintf(a.Out, "GitHub API: %s (%v)\n", badStyle.Render("Unreachable"), err)
			} else {
				fmt.Fprintf(a.Out, "GitHub API: %s as %s\n", goodStyle.Render("Authenticated"), login)
			}
			return nil
		},
	}
}

func (a *App) newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show current processing status",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.newSession()
			if err != nil {
				return err
			}
			defer s.close()

			fmt.Fprintln(a.Out, titleStyle.Render("Processing Status"))
			fmt.Fprintln(a.Out, "===================")

			st := s.engine.ProcessingStatus()
			processing := "Idle"
			if st.IsProcessing {
				processing = "Active"
			}
			fmt.Fprintf(a.Out, "Processing: %s\n", processing)
			fmt.Fprintf(a.Out, "Current Repository: %s\n", firstNonEmpty(st.CurrentRepository, "None"))
			fmt.Fprintf(a.Out, "Current Project: %s\n", firstNonEmpty(string(st.CurrentProject), "None"))
			fmt.Fprintf(a.Out, "Active Observers: %d\n", st.TotalObservers)
			if st.LastEvent != nil {
				fmt.Fprintf(a.Out, "Last Event: %s at %s (%s)\n",
					st.LastEvent.Type,
					st.LastEvent.Timestamp.Format(time.RFC3339),
					humanize.Time(st.LastEvent.Timestamp),
				)
				fmt.Fprintf(a.Out, "Message: %s\n", st.LastEvent.Message)
			}
			return nil
		},
	}
}

func (a *App) newMonitorCommand() *cobra.Command {
	var (
		interval int
		listen   string
	)
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Start continuous monitoring mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.newSession()
			if err != nil {
				return err
			}
			defer s.close()

			s.engine.AddObserver(observers.NewHealthMonitor(observers.AlertThresholds{
				MaxErrorRate:     10,
				AlertOnError:     true,
				MaxExecutionTime: 60 * time.Second,
			}, s.logger))

			fmt.Fprintln(a.Out, titleStyle.Render("Starting Monitoring Mode"))
			fmt.Fprintf(a.Out, "Check Interval: %d seconds\n", interval)
			fmt.Fprintln(a.Out, "Press Ctrl+C to stop")
			fmt.Fprintln(a.Out, "========================")

			mon := monitor.New(s.engine, time.Duration(interval)*time.Second, a.Out, s.logger)

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error { return mon.Run(ctx) })
			if listen != "" {
				hub := rest.NewStreamHub(s.logger)
				s.engine.AddObserver(hub)
				handler := rest.NewHandler(s.engine, s.cfg.Server.APIKey, hub, s.logger)
				g.Go(func() error {
					defer hub.Close()
					return rest.Serve(ctx, listen, handler.Router(), s.logger)
				})
			}
			if err := g.Wait(); err != nil {
				s.logger.Error("monitor stopped", zap.Error(err))
				return err
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&interval, "interval", 60, "check interval in seconds")
	cmd.Flags().StringVar(&listen, "listen", "", "also serve the status API on this address")
	return cmd
}

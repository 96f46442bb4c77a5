package cli

import (
	"github.com/spf13/cobra"

	"github.com/clintrovert/scrummaster/internal/api/rest"
	"github.com/clintrovert/scrummaster/internal/observers"
)

func (a *App) newServeCommand() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve engine status, event history and the dashboard ingest endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.newSession()
			if err != nil {
				return err
			}
			defer s.close()

			addr := firstNonEmpty(listen, s.cfg.Server.Listen)
			hub := rest.NewStreamHub(s.logger)
			defer hub.Close()

			s.engine.AddObserver(observers.NewLogWriter(a.Out, s.cfg.Notifications.LogFile))
			s.engine.AddObserver(hub)

			handler := rest.NewHandler(s.engine, s.cfg.Server.APIKey, hub, s.logger)
			return rest.Serve(cmd.Context(), addr, handler.Router(), s.logger)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config, :8080)")
	return cmd
}

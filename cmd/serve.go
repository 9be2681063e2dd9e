package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zdunecki/skymesh/pkg/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Skymesh HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		srv, err := server.New(st, server.Options{
			AllowedOrigins:   cfg.Server.AllowedOrigins,
			SecureCookies:    cfg.Server.SecureCookies,
			AutoAdvanceDelay: cfg.Wizard.AutoAdvanceDelay,
			TransitionSpeed:  cfg.Transition.Speed,
		})
		if err != nil {
			return err
		}
		return srv.Start(ctx, resolvePort(servePort, cfg.Server.Port))
	},
}

// resolvePort prefers the flag over the configured port.
func resolvePort(flag, configured int) int {
	if flag != 0 {
		return flag
	}
	return configured
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP port to listen on (default from config)")
	rootCmd.AddCommand(serveCmd)
}

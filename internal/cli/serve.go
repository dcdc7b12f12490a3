package cli

import (
	"os/signal"
	"syscall"

	"github.com/cwrk-planet/tempvoice/internal/app"

	"github.com/spf13/cobra"
)

func newServeCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Connect to the gateway and manage rooms until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt.log.Info("starting tempvoice",
				"env", rt.cfg.Logging.Env, "version", rt.cfg.Logging.Version)
			return app.Serve(ctx, rt.cfg, rt.log)
		},
	}
}

func newMigrateCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the registry schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := app.OpenStore(cmd.Context(), rt.cfg, rt.log)
			if err != nil {
				return err
			}
			defer st.Close()
			_, err = cmd.OutOrStdout().Write([]byte("migrated " + rt.cfg.Store.Driver + "\n"))
			return err
		},
	}
}

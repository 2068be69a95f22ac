package main

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"github.com/aretw0/bluegreen/internal/cli"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP rotation API",
	Long: `Serves the rotation state over HTTP:

  GET  /state       current record and slot assignment
  POST /rotations   run a deployment, body {"version": N}
  GET  /healthz     liveness
  GET  /metrics     Prometheus metrics`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		port, _ := cmd.Flags().GetString("port")
		host, _ := cmd.Flags().GetString("host")

		ln, err := net.Listen("tcp", net.JoinHostPort(host, port))
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		return cli.RunServe(ctx, cfg, ln, logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().String("host", "", "Interface to bind (all by default)")
}

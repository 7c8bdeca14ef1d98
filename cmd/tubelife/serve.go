package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/tubelife/internal/cli"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP control server",
	Long: `Starts the engine in real time and exposes it over a JSON API, with Prometheus
metrics at /metrics and a Server-Sent Events stream at /api/events.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		addr, _ := cmd.Flags().GetString("addr")
		autoStart, _ := cmd.Flags().GetBool("start")
		debug, _ := cmd.Flags().GetBool("debug")

		return cli.Serve(cli.ServeOptions{
			Config:    cfg,
			Addr:      addr,
			AutoStart: autoStart,
			Debug:     debug,
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Address to listen on (overrides http.addr)")
	serveCmd.Flags().Bool("start", false, "Start the sequence immediately")
}

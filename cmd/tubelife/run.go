package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/tubelife/internal/cli"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [sequence]",
	Short: "Run the rig with a live dashboard",
	Long: `Starts the engine in real time with the named library sequence (or the configured
default). Operator commands are read from stdin; type 'help' for the list.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if len(args) > 0 {
			cfg.Sequence = args[0]
		}

		file, _ := cmd.Flags().GetString("file")
		watchMode, _ := cmd.Flags().GetBool("watch")
		headless, _ := cmd.Flags().GetBool("headless")
		autoStart, _ := cmd.Flags().GetBool("start")
		debug, _ := cmd.Flags().GetBool("debug")
		refresh, _ := cmd.Flags().GetDuration("refresh")
		total, _ := cmd.Flags().GetInt64("total")

		if cmd.Flags().Changed("total") {
			cfg.TotalCycles = total
			if err := cfg.Validate(); err != nil {
				return err
			}
		}
		if headless && !autoStart {
			fmt.Println("Warning: --headless without --start waits for a signal.")
		}

		return cli.RunSession(cli.RunOptions{
			Config:    cfg,
			File:      file,
			Watch:     watchMode,
			Headless:  headless,
			AutoStart: autoStart,
			Debug:     debug,
			Refresh:   refresh,
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("file", "f", "", "Run a sequence document instead of a library entry")
	runCmd.Flags().BoolP("watch", "w", false, "Reload --file when it changes (applied while idle)")
	runCmd.Flags().Bool("headless", false, "No dashboard or stdin; print the event log and exit when idle")
	runCmd.Flags().Bool("start", false, "Start the sequence immediately")
	runCmd.Flags().Int64("total", 0, "Total cycles to run (overrides config)")
	runCmd.Flags().Duration("refresh", cli.DefaultRefresh, "Dashboard redraw period")
}

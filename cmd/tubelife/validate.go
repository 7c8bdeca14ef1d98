package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/tubelife/internal/cli"
	"github.com/aretw0/tubelife/internal/presentation/tui"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Check sequence documents against the schema and stroke limits",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		failed := 0
		for _, path := range args {
			seq, err := cli.ValidateFile(path, cfg.Limits())
			if err != nil {
				failed++
				fmt.Println(tui.ErrorMsg("%v", err))
				continue
			}
			fmt.Println(tui.SuccessMsg("%s: %q, %d steps", path, seq.Name, len(seq.Steps)))
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d documents invalid", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

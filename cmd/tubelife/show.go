package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/tubelife/internal/cli"
	"github.com/aretw0/tubelife/internal/presentation/tui"
	"github.com/aretw0/tubelife/pkg/domain"
)

var showCmd = &cobra.Command{
	Use:   "show [sequence]",
	Short: "Render a sequence as a table",
	Long:  `Renders a library sequence, or a document given with --file, as formatted markdown.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		var seq domain.Sequence
		if file, _ := cmd.Flags().GetString("file"); file != "" {
			seq, err = cli.SequenceFromFile(file)
		} else {
			name := cfg.Sequence
			if len(args) > 0 {
				name = args[0]
			}
			seq, err = loadFromLibrary(cmd.Context(), cfg, name)
		}
		if err != nil {
			return err
		}

		md := tui.SequenceMarkdown(seq)
		if raw, _ := cmd.Flags().GetBool("raw"); raw {
			fmt.Print(md)
			return nil
		}
		out, err := tui.NewRenderer()(md)
		if err != nil {
			fmt.Print(md)
			return nil
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().StringP("file", "f", "", "Show a sequence document instead of a library entry")
	showCmd.Flags().Bool("raw", false, "Print markdown without rendering")
}

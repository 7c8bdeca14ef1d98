package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/tubelife/internal/cli"
	"github.com/aretw0/tubelife/internal/config"
	"github.com/aretw0/tubelife/internal/logging"
	"github.com/aretw0/tubelife/internal/presentation/tui"
	"github.com/aretw0/tubelife/pkg/domain"
	"github.com/aretw0/tubelife/pkg/schema"
)

var libraryCmd = &cobra.Command{
	Use:     "library",
	Aliases: []string{"lib"},
	Short:   "Manage the sequence library",
}

var libraryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved sequences",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLibrary(cmd, func(ctx context.Context, lib *cli.Library) error {
			names, err := lib.Manager.List(ctx)
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Println(tui.MutedStyle.Render("(empty)"))
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		})
	},
}

var libraryDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a saved sequence",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLibrary(cmd, func(ctx context.Context, lib *cli.Library) error {
			if err := lib.Manager.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Println(tui.SuccessMsg("Deleted %q.", args[0]))
			return nil
		})
	},
}

var libraryExportCmd = &cobra.Command{
	Use:   "export <name>",
	Short: "Print a saved sequence as a JSON or YAML document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		return withLibrary(cmd, func(ctx context.Context, lib *cli.Library) error {
			seq, err := lib.Manager.Load(ctx, args[0])
			if err != nil {
				return err
			}
			var data []byte
			switch format {
			case "yaml":
				data, err = schema.MarshalYAML(seq)
			case "json":
				data, err = schema.MarshalIndent(seq)
			default:
				return fmt.Errorf("unknown format %q (use json or yaml)", format)
			}
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		})
	},
}

var libraryImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Validate a sequence document and save it to the library",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		return withLibrary(cmd, func(ctx context.Context, lib *cli.Library) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			seq, err := cli.ValidateFile(args[0], cfg.Limits())
			if err != nil {
				return err
			}
			if name != "" {
				seq.Name = name
			}
			if err := lib.Manager.Save(ctx, seq); err != nil {
				return err
			}
			fmt.Println(tui.SuccessMsg("Imported %q (%d steps).", seq.Name, len(seq.Steps)))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(libraryCmd)
	libraryCmd.AddCommand(libraryListCmd, libraryDeleteCmd, libraryExportCmd, libraryImportCmd)

	libraryExportCmd.Flags().String("format", "json", "Output format: json or yaml")
	libraryImportCmd.Flags().String("name", "", "Save under this name instead of the document's")
}

func withLibrary(cmd *cobra.Command, fn func(context.Context, *cli.Library) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	lib, err := cli.OpenLibrary(cfg, logging.NewNop())
	if err != nil {
		return err
	}
	defer lib.Close()
	return fn(cmd.Context(), lib)
}

func loadFromLibrary(ctx context.Context, cfg *config.Config, name string) (domain.Sequence, error) {
	lib, err := cli.OpenLibrary(cfg, logging.NewNop())
	if err != nil {
		return domain.Sequence{}, err
	}
	defer lib.Close()
	return lib.Manager.Load(ctx, name)
}

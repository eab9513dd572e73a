package main

import (
	"path/filepath"

	"github.com/fmal/impact/internal/config"
	"github.com/fmal/impact/internal/errors"
	"github.com/spf13/cobra"
)

func initCmd() *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a default configuration file",
		Long: `Write impact.json (or impact.yaml with --yaml) with default values.

Examples:
  impact init
  impact init --yaml ./deploy`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			if config.Exists(dir) {
				return errors.New("E102").
					WithDetail("A configuration file already exists in " + dir).
					WithSuggestion("Edit the existing file instead")
			}

			name := config.ConfigFileName
			if asYAML {
				name = config.YAMLConfigFileName
			}
			path := filepath.Join(dir, name)
			if err := config.New().SaveTo(path); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Wrote %s", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Write impact.yaml instead of impact.json")

	return cmd
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/internal/config"
	ferrors "github.com/farhannm/TugasBesar-PCD-Kelompok6-044-050-057/internal/errors"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage faceflap.json",
	}
	cmd.AddCommand(configInitCmd(), configShowCmd())
	return cmd
}

func configInitCmd() *cobra.Command {
	var (
		dir   string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write faceflap.json with default values",
		Long: `Write faceflap.json with default values.

Examples:
  faceflap config init
  faceflap config init --dir ./game --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(dir, config.ConfigFileName)
			if _, err := os.Stat(path); err == nil && !force {
				return ferrors.New("F080").
					WithDetail(path + " already exists").
					WithSuggestion("Pass --force to overwrite it")
			}
			if err := config.New().SaveTo(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Directory to write faceflap.json to")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	return cmd
}

func configShowCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(dir)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(cfg)
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Directory containing faceflap.json")
	return cmd
}

// loadConfig reads faceflap.json from dir, falling back to defaults when the
// file does not exist.
func loadConfig(dir string) (*config.Config, error) {
	cfg, err := config.Load(dir)
	if err == nil {
		return cfg, nil
	}
	if fe := ferrors.FromError(err, "F061"); fe.Code == "F060" {
		return config.New(), nil
	}
	return nil, err
}

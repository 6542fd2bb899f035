// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package cliapp

import (
	"fmt"

	"github.com/spf13/cobra"

	"mitigated.example.com/engine/internal/config"
	"mitigated.example.com/engine/internal/landscape"
	"mitigated.example.com/engine/internal/recipe"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load and validate config, landscape, and recipes without starting the engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			cmd.Printf("config: ok (%s)\n", configFile)

			land, err := landscape.Load(cfg.LandscapeFile)
			if err != nil {
				return fmt.Errorf("landscape: %w", err)
			}
			cmd.Printf("landscape: ok (%d node(s))\n", len(land.Nodes))

			lib, err := recipe.Load(cfg.RecipesDirectory)
			if err != nil {
				return fmt.Errorf("recipes: %w", err)
			}
			cmd.Printf("recipes: ok (%d loaded)\n", len(lib.All()))
			return nil
		},
	}
}

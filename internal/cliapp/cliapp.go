// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package cliapp builds the command tree for the refinement engine,
// grounded on the cobra root-command-plus-subcommands convention used
// elsewhere in the retrieved pack (cmd/mcpproxy/main.go).
package cliapp

import (
	"github.com/spf13/cobra"
)

// version is injected at build time via -ldflags, a package-level var
// with a string literal default.
var version = "v0.1.0"

// configFile is the path shared by every subcommand.
var configFile string

// New builds the root command with its serve/stop/validate/version subtree.
func New() *cobra.Command {
	root := &cobra.Command{
		Use:     "mitigated",
		Short:   "Policy refinement engine: attacks + landscape -> HSPL/MSPL recommendations",
		Version: version,
	}

	root.PersistentFlags().StringVarP(&configFile, "config", "c", "/etc/mitigated/config.hcl", "Configuration file path")

	root.AddCommand(newServeCmd())
	root.AddCommand(newStopCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the engine version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Println(version)
			return nil
		},
	}
}

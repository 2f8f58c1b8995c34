package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

func newManCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "man DIR",
		Short:  "Write man pages for every command into DIR",
		Hidden: true,
		Args:   cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create man directory: %w", err)
			}
			header := &doc.GenManHeader{
				Section: "1",
				Source:  "ledger-beautifier " + Version,
				Manual:  "User Commands",
			}
			return doc.GenManTree(cmd.Root(), header, dir)
		},
	}
}

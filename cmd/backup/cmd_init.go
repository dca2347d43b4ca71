package main

import (
	"github.com/spf13/cobra"
)

func newInitCommand(gopts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a new repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := initRepository(cmd.Context(), gopts, repoConfig(gopts))
			if err != nil {
				return err
			}
			successColor.Fprintf(cmd.OutOrStdout(), "repository initialized: %s\n", repo.Manifest().ID)
			return nil
		},
	}
	return cmd
}

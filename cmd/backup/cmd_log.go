package main

import (
	"github.com/spf13/cobra"

	"github.com/jLantxa/backup/pkg/repository"
)

func newLogCommand(gopts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log <snapshotID>",
		Short: "Show a snapshot's ancestor chain, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepository(cmd.Context(), gopts, repoConfig(gopts))
			if err != nil {
				return err
			}
			id, err := repo.Find(repository.FileSnapshot, args[0])
			if err != nil {
				return err
			}
			history, err := repo.SnapshotHistory(id)
			if err != nil {
				return err
			}
			printSnapshots(cmd, history)
			return nil
		},
	}
	return cmd
}

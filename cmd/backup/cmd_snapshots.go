package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jLantxa/backup/pkg/treemodel"
)

func newSnapshotsCommand(gopts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "List every snapshot in the repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepository(cmd.Context(), gopts, repoConfig(gopts))
			if err != nil {
				return err
			}
			snaps, err := repo.AllSnapshots()
			if err != nil {
				return err
			}
			sort.Slice(snaps, func(i, j int) bool { return snaps[i].Timestamp.Before(snaps[j].Timestamp) })
			printSnapshots(cmd, snaps)
			return nil
		},
	}
	return cmd
}

func printSnapshots(cmd *cobra.Command, snaps []treemodel.Snapshot) {
	w := cmd.OutOrStdout()
	for _, s := range snaps {
		id, err := s.ID()
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "%s  %s  %s  %v\n", id.String()[:12], s.Timestamp.Format("2006-01-02 15:04:05"), s.RootPath, s.Tags)
	}
}

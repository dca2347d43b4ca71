package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jLantxa/backup/pkg/repository"
)

func newStatsCommand(gopts *globalOptions) *cobra.Command {
	var snapshotID string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Report repository-wide (or one snapshot's) size counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepository(cmd.Context(), gopts, repoConfig(gopts))
			if err != nil {
				return err
			}

			var s repository.Stats
			if snapshotID != "" {
				id, err := repo.Find(repository.FileSnapshot, snapshotID)
				if err != nil {
					return err
				}
				s, err = repo.SnapshotStats(id)
				if err != nil {
					return err
				}
			} else {
				s, err = repo.Stats()
				if err != nil {
					return err
				}
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "snapshots:    %d\n", s.Snapshots)
			fmt.Fprintf(w, "unique trees: %d\n", s.UniqueTrees)
			fmt.Fprintf(w, "unique data:  %d\n", s.UniqueData)
			fmt.Fprintf(w, "unique bytes: %d\n", s.UniqueBytes)
			fmt.Fprintf(w, "total bytes:  %d\n", s.TotalBytes)
			fmt.Fprintf(w, "packs:        %d\n", s.Packs)
			return nil
		},
	}
	cmd.Flags().StringVar(&snapshotID, "snapshot", "", "restrict stats to one snapshot (short ID accepted)")
	return cmd
}

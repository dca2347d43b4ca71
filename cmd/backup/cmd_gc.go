package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jLantxa/backup/pkg/gc"
)

func newGCCommand(gopts *globalOptions) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Reclaim space by repacking and dropping unreferenced packs",
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

			collector := gc.New(repo)
			plan, err := collector.Plan(snaps)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "packs to repack: %d\n", len(plan.ToRepack()))
			unused := 0
			for _, pi := range plan.Packs {
				if pi.Class == gc.ClassUnused {
					unused++
				}
			}
			fmt.Fprintf(w, "packs to remove: %d\n", unused)

			if dryRun {
				return nil
			}
			if err := collector.Execute(plan); err != nil {
				return err
			}
			successColor.Fprintln(w, "gc complete")
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report the plan without mutating the repository")
	return cmd
}

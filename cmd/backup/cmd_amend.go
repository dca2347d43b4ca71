package main

import (
	"github.com/spf13/cobra"

	"github.com/jLantxa/backup/pkg/repository"
)

type amendOptions struct {
	Tags        []string
	Description string
}

func newAmendCommand(gopts *globalOptions) *cobra.Command {
	var opts amendOptions
	cmd := &cobra.Command{
		Use:   "amend <snapshotID>",
		Short: "Update a snapshot's tags or description",
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
			newID, err := repo.AmendSnapshot(id, opts.Tags, opts.Description)
			if err != nil {
				return err
			}
			successColor.Fprintf(cmd.OutOrStdout(), "snapshot %s amended as %s\n", id.String()[:12], newID.String()[:12])
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringSliceVar(&opts.Tags, "tag", nil, "replacement tag set (repeatable)")
	flags.StringVar(&opts.Description, "description", "", "replacement description")
	return cmd
}

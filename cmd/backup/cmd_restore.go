package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jLantxa/backup/pkg/repository"
	"github.com/jLantxa/backup/pkg/restorer"
)

type restoreOptions struct {
	Target   string
	Includes []string
	Excludes []string
	Policy   string
}

func newRestoreCommand(gopts *globalOptions) *cobra.Command {
	var opts restoreOptions
	cmd := &cobra.Command{
		Use:   "restore <snapshotID>",
		Short: "Restore a snapshot to a target directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRestore(cmd, gopts, opts, args[0])
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&opts.Target, "target", "t", "", "destination directory (required)")
	flags.StringSliceVar(&opts.Includes, "include", nil, "path to include, with its ancestors and everything under it (repeatable)")
	flags.StringSliceVar(&opts.Excludes, "exclude", nil, "path to exclude, with everything under it (repeatable)")
	flags.StringVar(&opts.Policy, "on-existing", "skip", "policy for existing paths: skip, overwrite, or fail")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func parsePolicy(s string) (restorer.Policy, error) {
	switch s {
	case "skip":
		return restorer.Skip, nil
	case "overwrite":
		return restorer.Overwrite, nil
	case "fail":
		return restorer.FailFast, nil
	default:
		return 0, fmt.Errorf("unknown --on-existing policy %q", s)
	}
}

func runRestore(cmd *cobra.Command, gopts *globalOptions, opts restoreOptions, snapshotID string) error {
	ctx := cmd.Context()
	repo, err := openRepository(ctx, gopts, repoConfig(gopts))
	if err != nil {
		return err
	}
	policy, err := parsePolicy(opts.Policy)
	if err != nil {
		return err
	}

	id, err := repo.Find(repository.FileSnapshot, snapshotID)
	if err != nil {
		return err
	}
	snap, err := loadSnapshot(repo, id)
	if err != nil {
		return err
	}

	r := restorer.New(repo, policy)
	if err := r.Restore(snap, opts.Target, opts.Includes, opts.Excludes); err != nil {
		return err
	}

	successColor.Fprintf(cmd.OutOrStdout(), "restored %d files, %d directories (%d skipped)\n",
		r.FilesWritten, r.DirsCreated, r.Skipped)
	return nil
}

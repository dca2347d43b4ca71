package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/jLantxa/backup/pkg/archiver"
	"github.com/jLantxa/backup/pkg/backuplog"
	"github.com/jLantxa/backup/pkg/blob"
	"github.com/jLantxa/backup/pkg/repository"
	"github.com/jLantxa/backup/pkg/treemodel"
)

type backupOptions struct {
	Excludes    []string
	Tags        []string
	Description string
	Parent      string
}

func newBackupCommand(gopts *globalOptions) *cobra.Command {
	var opts backupOptions
	cmd := &cobra.Command{
		Use:   "snapshot [paths...]",
		Short: "Create a new snapshot of the given paths",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackup(cmd, gopts, opts, args)
		},
	}
	flags := cmd.Flags()
	flags.StringSliceVar(&opts.Excludes, "exclude", nil, "path to exclude, with everything under it (repeatable)")
	flags.StringSliceVar(&opts.Tags, "tag", nil, "tag to attach to the snapshot (repeatable)")
	flags.StringVar(&opts.Description, "description", "", "free-text snapshot description")
	flags.StringVar(&opts.Parent, "parent", "", "parent snapshot ID (short prefix accepted) to diff against")
	return cmd
}

func runBackup(cmd *cobra.Command, gopts *globalOptions, opts backupOptions, sources []string) error {
	ctx := cmd.Context()
	repo, err := openRepository(ctx, gopts, repoConfig(gopts))
	if err != nil {
		return err
	}

	var parent *treemodel.Snapshot
	if opts.Parent != "" {
		id, err := repo.Find(repository.FileSnapshot, opts.Parent)
		if err != nil {
			return err
		}
		snap, err := loadSnapshot(repo, id)
		if err != nil {
			return err
		}
		parent = &snap
	} else if id, ok, err := latestSnapshotID(repo, sources); err != nil {
		return err
	} else if ok {
		snap, err := loadSnapshot(repo, id)
		if err != nil {
			return err
		}
		parent = &snap
	}

	bar := newSpinner("archiving")
	if bar != nil {
		defer bar.Close()
	}

	a := archiver.New(repo, archiver.Options{ReadConcurrency: gopts.ReadConcurrency})
	snap, id, err := a.Run(sources, opts.Excludes, parent, opts.Tags, opts.Description)
	if err != nil {
		return err
	}
	if bar != nil {
		bar.Finish()
	}

	backuplog.Printf("snapshot %s saved (%d new, %d changed, %d unchanged files)",
		id.String(), snap.Summary.FilesNew, snap.Summary.FilesChanged, snap.Summary.FilesUnchanged)
	successColor.Fprintf(cmd.OutOrStdout(), "snapshot %s saved\n", id.String())
	return nil
}

// latestSnapshotID finds the most recent snapshot whose SourcePaths
// equal these sources (same paths, same order), so a bare `snapshot`
// re-run picks up incremental diffing without an explicit --parent.
func latestSnapshotID(repo *repository.Repository, sources []string) (blob.ID, bool, error) {
	snaps, err := repo.AllSnapshots()
	if err != nil {
		return blob.ID{}, false, err
	}
	key := strings.Join(sources, ",")
	var best *treemodel.Snapshot
	for i := range snaps {
		if strings.Join(snaps[i].SourcePaths, ",") != key {
			continue
		}
		if best == nil || snaps[i].Timestamp.After(best.Timestamp) {
			best = &snaps[i]
		}
	}
	if best == nil {
		return blob.ID{}, false, nil
	}
	id, err := best.ID()
	if err != nil {
		return blob.ID{}, false, err
	}
	return id, true, nil
}

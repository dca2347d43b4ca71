package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jLantxa/backup/pkg/backuplog"
)

// globalOptions bundles the flags every subcommand shares: how to
// reach the repository and how chatty to be.
type globalOptions struct {
	RepoURL  string
	Backend  string
	KeyFile  string
	Password string

	SFTPUser string
	SFTPPass string
	SFTPKey  string

	Verbose bool
	Quiet   bool

	PackSizeMiB      int
	ReadConcurrency  int
	WriteConcurrency int
}

func newRootCommand() *cobra.Command {
	gopts := &globalOptions{}

	root := &cobra.Command{
		Use:           "backup",
		Short:         "Incremental, content-addressed, encrypted backup engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case gopts.Quiet:
				backuplog.SetLevel(backuplog.LevelQuiet)
			case gopts.Verbose:
				backuplog.SetLevel(backuplog.LevelVerbose)
			default:
				backuplog.SetLevel(backuplog.LevelNormal)
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&gopts.RepoURL, "repo", "r", os.Getenv("BACKUP_REPOSITORY"), "repository path or sftp address")
	flags.StringVar(&gopts.Backend, "backend", "local", "storage backend: local or sftp")
	flags.StringVar(&gopts.KeyFile, "keyfile", "", "path to an external key file (default: stored inside the repository)")
	flags.StringVar(&gopts.Password, "password", os.Getenv("BACKUP_PASSWORD"), "repository password (prompted if empty)")
	flags.StringVar(&gopts.SFTPUser, "sftp-user", "", "SFTP username")
	flags.StringVar(&gopts.SFTPPass, "sftp-password", "", "SFTP password (may be combined with --sftp-key)")
	flags.StringVar(&gopts.SFTPKey, "sftp-key", "", "path to an SFTP private key file")
	flags.BoolVarP(&gopts.Verbose, "verbose", "v", false, "verbose output")
	flags.BoolVarP(&gopts.Quiet, "quiet", "q", false, "suppress non-error output")
	flags.IntVar(&gopts.PackSizeMiB, "pack-size", 16, "pack flush threshold in MiB")
	flags.IntVar(&gopts.ReadConcurrency, "read-concurrency", 4, "archiver reader pool size")
	flags.IntVar(&gopts.WriteConcurrency, "write-concurrency", 5, "pack saver worker count")

	root.AddCommand(
		newInitCommand(gopts),
		newBackupCommand(gopts),
		newRestoreCommand(gopts),
		newSnapshotsCommand(gopts),
		newLogCommand(gopts),
		newAmendCommand(gopts),
		newStatsCommand(gopts),
		newVerifyCommand(gopts),
		newGCCommand(gopts),
	)
	return root
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jLantxa/backup/pkg/verify"
)

func newVerifyCommand(gopts *globalOptions) *cobra.Command {
	var opts verify.Options
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check repository consistency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := openRepository(cmd.Context(), gopts, repoConfig(gopts))
			if err != nil {
				return err
			}
			v := verify.New(repo)
			results, err := v.VerifySnapshots(opts)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			failed := 0
			for _, res := range results {
				switch {
				case res.Err != nil:
					failed++
					errColor.Fprintf(w, "FAIL %s: %v\n", res.Label, res.Err)
				case !res.OK:
					failed++
					warnColor.Fprintf(w, "FAIL %s: %d corrupt blob(s)\n", res.Label, len(res.CorruptBlobs))
				default:
					successColor.Fprintf(w, "OK   %s\n", res.Label)
				}
			}
			if failed > 0 {
				return fmt.Errorf("verify: %d check(s) failed", failed)
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.BoolVar(&opts.SnapshotData, "snapshot-data", false, "also hash every blob reachable from each snapshot")
	flags.BoolVar(&opts.Unreferenced, "unreferenced", false, "also decode every blob in every pack, not just reachable ones")
	return cmd
}

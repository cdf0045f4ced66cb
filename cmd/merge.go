// file: cmd/merge.go
// version: 1.0.0
// guid: c3518b63-5e16-49b8-bcd2-a2d01849260b

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jdfalk/manga-organizer/internal/config"
	"github.com/jdfalk/manga-organizer/internal/database"
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Find and merge series that are the same",
	Long: `Group series whose titles match once a trailing number or sequel
marker is removed. Without --apply the groups are only listed. With --apply
the volumes move to the oldest series of each group, the other titles become
its aliases, and the other series are deleted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		apply, _ := cmd.Flags().GetBool("apply")
		closer, err := openStore()
		if err != nil {
			return err
		}
		defer closer()
		store := database.GlobalStore
		out := cmd.OutOrStdout()

		groups, err := database.FindMergeGroups(store, config.AppConfig.MatcherPolicy())
		if err != nil {
			return err
		}
		if len(groups) == 0 {
			fmt.Fprintln(out, "No duplicate series found.")
			return nil
		}

		for _, g := range groups {
			fmt.Fprintf(out, "%s %q (score %.3f)\n", g.Target.SeriesCode, g.Target.Title, g.Score)
			for _, o := range g.Others {
				fmt.Fprintf(out, "  <- %s %q\n", o.SeriesCode, o.Title)
			}
		}
		if !apply {
			fmt.Fprintf(out, "%d groups found. Re-run with --apply to merge.\n", len(groups))
			return nil
		}

		moved := 0
		for _, g := range groups {
			n, err := database.ApplyMerge(store, g)
			if err != nil {
				return err
			}
			moved += n
		}
		fmt.Fprintf(out, "Merged %d groups, moved %d volumes.\n", len(groups), moved)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mergeCmd)
	mergeCmd.Flags().Bool("apply", false, "perform the merge")
}

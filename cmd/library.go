// file: cmd/library.go
// version: 1.0.0
// guid: 5cc46e81-2cbb-4516-ab78-844474ba1322

package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jdfalk/manga-organizer/internal/database"
	"github.com/jdfalk/manga-organizer/internal/normalize"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <filename>...",
	Short: "Show how filenames would be resolved",
	Long:  `Dry-run resolution against the stored catalog. Nothing is stored or moved.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		closer, err := openStore()
		if err != nil {
			return err
		}
		defer closer()

		imp := newImporter(database.GlobalStore, nil, newOracle())
		out := cmd.OutOrStdout()
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		for _, name := range args {
			res, err := imp.Resolve(cmd.Context(), name)
			if err != nil {
				return err
			}
			if asJSON {
				if err := enc.Encode(res); err != nil {
					return err
				}
				continue
			}
			r := res.Result
			fmt.Fprintf(out, "%s\n  -> %s/%s\n  decision=%s method=%s score=%.3f", name, res.Code, res.Filename, r.Decision, r.Method, r.Score)
			if r.LowConfidence {
				fmt.Fprint(out, " low_confidence")
			}
			if r.Classification != "" {
				fmt.Fprintf(out, " subtitle=%s", r.Classification)
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

var codeCmd = &cobra.Command{
	Use:   "code <title>",
	Short: "Print the series code of a title",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), normalize.GenerateCode(strings.Join(args, " ")))
		return nil
	},
}

var seriesCmd = &cobra.Command{
	Use:   "series [query]",
	Short: "List or search series",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		closer, err := openStore()
		if err != nil {
			return err
		}
		defer closer()
		store := database.GlobalStore

		var list []database.Series
		if len(args) == 1 {
			list, err = store.SearchSeries(args[0], limit)
		} else {
			list, err = store.ListSeries()
		}
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No series found.")
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CODE\tTITLE\tVOLUMES\tSTATUS")
		for _, s := range list {
			volumes, err := store.ListVolumesBySeries(s.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.SeriesCode, s.Title, len(volumes), s.ReadingStatus)
		}
		return tw.Flush()
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Print recent matching decisions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		closer, err := openStore()
		if err != nil {
			return err
		}
		defer closer()

		logs, err := database.GlobalStore.ListMatchingLogs(limit)
		if err != nil {
			return err
		}
		if len(logs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No matching logs yet.")
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tFILE\tMETHOD\tSCORE\tMATCHED\tNOTE")
		for _, l := range logs {
			note := l.Reason
			if l.Error != "" {
				note = "error: " + l.Error
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%.3f\t%t\t%s\n",
				l.CreatedAt.Format("2006-01-02 15:04:05"), l.Filename, l.Method, l.Score, l.Matched, note)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd, codeCmd, seriesCmd, logsCmd)
	resolveCmd.Flags().Bool("json", false, "print the full resolution as JSON")
	seriesCmd.Flags().Int("limit", 20, "maximum search results")
	logsCmd.Flags().Int("limit", 20, "number of entries to print")
}

// file: cmd/policies.go
// version: 1.0.0
// guid: c48358d0-8eda-4615-a72d-94ccd1768db9

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jdfalk/manga-organizer/internal/database"
)

var policiesCmd = &cobra.Command{
	Use:   "policies",
	Short: "Seed or dump series policies",
}

var policiesImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Apply a policy file, creating missing series",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open policy file: %w", err)
		}
		defer f.Close()

		closer, err := openStore()
		if err != nil {
			return err
		}
		defer closer()

		res, err := database.ImportPolicies(database.GlobalStore, f)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Applied %d policies (%d new series)\n", res.UpdatedPolicies, res.CreatedSeries)
		return nil
	},
}

var policiesExportCmd = &cobra.Command{
	Use:   "export [file.yaml]",
	Short: "Write every policy as YAML (stdout by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		closer, err := openStore()
		if err != nil {
			return err
		}
		defer closer()

		var w io.Writer = cmd.OutOrStdout()
		if len(args) == 1 {
			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", args[0], err)
			}
			defer f.Close()
			w = f
		}
		return database.ExportPolicies(database.GlobalStore, w)
	},
}

func init() {
	policiesCmd.AddCommand(policiesImportCmd, policiesExportCmd)
	rootCmd.AddCommand(policiesCmd)
}

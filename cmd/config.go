// file: cmd/config.go
// version: 1.0.0
// guid: 2aadbf31-c1a1-43fa-abde-dbadeec17959

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jdfalk/manga-organizer/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or persist settings",
}

var configSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Write the effective settings next to the database",
	Long: `Write the current library, inbox, strategy and oracle settings to
config.yaml in the database directory. Saved values fill in settings that
flags, environment and the main config file leave empty.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.SaveConfigToFile()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved settings to %s\n", path)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print where saved settings live",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), config.ConfigFilePath())
	},
}

func init() {
	configCmd.AddCommand(configSaveCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// Package app provides the entry point for the Fountain sync agent.
package app

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fountainhq/fountain-agent/internal/versions"
)

var rootCmd = &cobra.Command{
	Use:               "fountain-agent",
	DisableAutoGenTag: true,
	Short:             "Fountain sync agent",
	Long: `Fountain sync agent periodically pulls reading data (progress, highlights,
bookmarks, favorites) from configured platforms and pushes incremental deltas
to a Fountain backend.`,
	Run: func(cmd *cobra.Command, _ []string) {
		// If no subcommand is provided, print help
		if err := cmd.Help(); err != nil {
			slog.Error("Error displaying help", "error", err)
		}
	},
}

// NewRootCmd creates the root command for the agent.
func NewRootCmd() *cobra.Command {
	rootCmd.PersistentFlags().String("settings", "", "Path to settings file (defaults to the user config dir)")
	if err := viper.BindPFlag("settings", rootCmd.PersistentFlags().Lookup("settings")); err != nil {
		slog.Error("Error binding settings flag", "error", err)
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)

	return rootCmd
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		info := versions.GetVersionInfo()
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			slog.Error("Error retrieving format flag", "error", err)
			return
		}

		if format == "json" {
			output, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				slog.Error("Error formatting version info as JSON", "error", err)
				return
			}
			fmt.Println(string(output))
		} else {
			slog.Info("fountain-agent version",
				"version", info.Version,
				"commit", info.Commit,
				"built", info.BuildDate,
				"go", info.GoVersion,
				"platform", info.Platform)
		}
	},
}

func init() {
	versionCmd.Flags().String("format", "", "Output format (json)")
}

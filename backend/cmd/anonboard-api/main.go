package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configFolder string

var rootCmd = &cobra.Command{
	Use:   "anonboard-api",
	Short: "Anonymous message board JSON API",
	Long: `anonboard-api serves an anonymous message board: boards hold threads,
threads hold replies, and posts are deleted with the password chosen at
creation. Running without a subcommand starts the HTTP server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFolder, "config_folder", "backend/config", "path to folder with configs")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

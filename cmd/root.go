package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the lexsync application
var rootCmd = &cobra.Command{
	Use:   "lexsync",
	Short: "Keeps a local document directory and a Google Drive folder in step",
	Long: `lexsync signs in to a Google account and works with its mail, calendar
and files on the user's behalf.

It can run as:
  - A CLI that reconciles a local directory with a Drive folder
  - An HTTP server exposing the sign-in endpoints and an MCP endpoint
  - An MCP (Model Context Protocol) server on stdio for AI assistants`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "lexsync version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&globals.configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/lexsync/config.toml, or LEXSYNC_CONFIG)")
	flags.StringVar(&globals.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.StringVar(&globals.logFormat, "log-format", "", "Log format: auto, text or json")
	flags.StringVar(&globals.storage, "storage", "", "SQLite database for the stored credential, or 'memory'")

	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newReconcileCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMCPCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}

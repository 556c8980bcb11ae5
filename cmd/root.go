package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxdraft/internal/config"
)

// rootCmd represents the base command for the inboxdraft application
var rootCmd = &cobra.Command{
	Use:   "inboxdraft",
	Short: "Gmail add-on backend that drafts, composes and summarizes email with Gemini",
	Long: `inboxdraft is the HTTP backend of a Google Workspace add-on for Gmail.
It renders the add-on's cards and uses a generative model to draft replies,
compose new emails, summarize messages and turn meeting requests into
calendar events.

It can run as:
  - The add-on HTTP backend (serve)
  - An MCP (Model Context Protocol) server for AI assistants (mcp)
  - A one-shot command line tool (try)`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// configFile is the --config flag shared by all commands.
var configFile string

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "inboxdraft version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"Config file (default: $XDG_CONFIG_HOME/inboxdraft/config.yaml)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMCPCmd())
	rootCmd.AddCommand(newTryCmd())
	rootCmd.AddCommand(newManifestCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// loadConfig reads and validates the configuration for cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configFile
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return cfg, nil
}

// Package main is the ragstore CLI entry point.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperjump/ragstore/internal/cli"
	"github.com/hyperjump/ragstore/internal/config"
)

var version = "dev"

const defaultServerURL = "http://localhost:8000"

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	debug      bool
	serverURL  string
	output     string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "ragstore",
		Short: "In-memory embedding similarity store",
		Long: `ragstore keeps short texts in memory next to their embeddings and
returns the texts most similar to a query.

Run 'ragstore serve' to start the HTTP API; the other commands talk to it.`,
		Version:      version,
		SilenceUsage: true,
	}
	cmd.SetVersionTemplate("ragstore version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file path (default: ./config.yaml, then "+config.DefaultPath()+")")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newInsertCmd(opts))
	cmd.AddCommand(newQueryCmd(opts))
	cmd.AddCommand(newGetCmd(opts))
	cmd.AddCommand(newIngestCmd(opts))
	cmd.AddCommand(newStatusCmd(opts))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// addClientFlags registers the flags of commands that talk to a running server.
func addClientFlags(cmd *cobra.Command, opts *rootOptions) {
	cmd.Flags().StringVar(&opts.serverURL, "server", defaultServerURL, "server URL")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "text", "output format: text or json")
}

func (o *rootOptions) format() (cli.OutputFormat, error) {
	return cli.ParseOutputFormat(o.output)
}

// loadConfig loads the config at path. With no explicit path it prefers
// config.yaml in the current directory, then the user config file, and falls
// back to defaults when neither exists. It returns the path actually used,
// empty when running on defaults.
func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}
	if cwd, err := os.Getwd(); err == nil {
		fallback := filepath.Join(cwd, "config.yaml")
		if _, statErr := os.Stat(fallback); statErr == nil {
			cfg, loadErr := config.Load(fallback)
			if loadErr != nil {
				return nil, "", loadErr
			}
			return cfg, fallback, nil
		}
	}
	userPath := config.DefaultPath()
	if _, err := os.Stat(userPath); err == nil {
		cfg, loadErr := config.Load(userPath)
		if loadErr != nil {
			return nil, "", loadErr
		}
		return cfg, userPath, nil
	}
	return config.Default(), "", nil
}

// joinArgs joins positional args with spaces so multi-word queries work with or
// without quotes. Inserted text is joined without trimming.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ragstore version %s\n", version)
		},
	}
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"chatd/internal/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// globalFlags are shared by every command.
type globalFlags struct {
	configPath  string
	addr        string
	logLevel    string
	corsOrigins string
}

func newRootCmd() *cobra.Command { return newRootCmdWith(runServe) }

// newRootCmdWith builds the command tree with serveFn behind the root and
// serve commands.
func newRootCmdWith(serveFn func(*cobra.Command, *globalFlags) error) *cobra.Command {
	gf := &globalFlags{}
	root := &cobra.Command{
		Use:           "chatd",
		Short:         "Conversational orchestration daemon for Ollama and remote chat APIs",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveFn(cmd, gf)
		},
	}
	root.PersistentFlags().StringVar(&gf.configPath, "config", "", "Config file (.json, .yaml, .toml); defaults apply when empty")
	root.PersistentFlags().StringVar(&gf.addr, "addr", "", "HTTP listen address, e.g. 127.0.0.1:8000")
	root.PersistentFlags().StringVar(&gf.logLevel, "log-level", "", "Log level: debug|info|warn|error")
	root.PersistentFlags().StringVar(&gf.corsOrigins, "cors-origins", "", "Comma-separated allowed origins; enables CORS")

	serve := &cobra.Command{
		Use:     "serve",
		Short:   "Run the HTTP server (default)",
		Example: "  chatd serve --config ~/.config/chatd/config.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveFn(cmd, gf)
		},
	}
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "chatd "+version)
			return err
		},
	}
	root.AddCommand(serve, newModelsCmd(gf), versionCmd)
	return root
}

// loadConfig resolves the config file and environment, then applies flags
// the user set explicitly.
func loadConfig(cmd *cobra.Command, gf *globalFlags) (config.Config, error) {
	cfg, err := config.Resolve(gf.configPath)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Addr = gf.addr
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = strings.ToLower(gf.logLevel)
	}
	if flags.Changed("cors-origins") {
		cfg.CORS.Enabled = true
		cfg.CORS.AllowedOrigins = splitCSV(gf.corsOrigins)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// splitCSV splits a comma-separated list, trimming blanks and dropping empties.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

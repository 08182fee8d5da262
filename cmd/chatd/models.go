package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"chatd/internal/engine"
	"chatd/internal/registry"
	"chatd/pkg/types"
)

// newModelsCmd groups model management commands. They talk to the runtime
// directly and do not need a running server.
func newModelsCmd(gf *globalFlags) *cobra.Command {
	models := &cobra.Command{
		Use:   "models",
		Short: "Manage models on the local runtime",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("models requires a subcommand: list|pull|switch|rm|show")
		},
	}

	withEngine := func(run func(ctx context.Context, eng *engine.Engine, out io.Writer, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, gf)
			if err != nil {
				return err
			}
			catalog, err := registry.Load(cfg.CatalogPath)
			if err != nil {
				return err
			}
			log, closer, err := newLogger(cfg.Log, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closer.Close()
			return run(cmd.Context(), engine.New(cfg, catalog, engine.Options{Logger: &log}), cmd.OutOrStdout(), args)
		}
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List installed and online models",
		Args:  cobra.NoArgs,
		RunE: withEngine(func(ctx context.Context, eng *engine.Engine, out io.Writer, _ []string) error {
			return printModels(out, eng.Models(ctx))
		}),
	}
	pull := &cobra.Command{
		Use:     "pull <name>",
		Short:   "Download a model onto the runtime",
		Example: "  chatd models pull mistral:7b",
		Args:    cobra.ExactArgs(1),
		RunE: withEngine(func(ctx context.Context, eng *engine.Engine, out io.Writer, args []string) error {
			if err := eng.PullModel(ctx, args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintf(out, "Model %s pulled successfully\n", args[0])
			return err
		}),
	}
	var provider string
	switchCmd := &cobra.Command{
		Use:   "switch <name>",
		Short: "Check that a model works and make it current",
		Args:  cobra.ExactArgs(1),
		RunE: withEngine(func(ctx context.Context, eng *engine.Engine, out io.Writer, args []string) error {
			resp, err := eng.SwitchModel(ctx, types.ModelSwitchRequest{ModelName: args[0], Provider: provider})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "current model: %s (%s)\n", resp.CurrentModel, resp.Provider)
			return err
		}),
	}
	switchCmd.Flags().StringVar(&provider, "provider", "ollama", "Provider: ollama|claude|openai|deepseek")
	rm := &cobra.Command{
		Use:     "rm <name>",
		Aliases: []string{"delete"},
		Short:   "Remove a model from the runtime",
		Args:    cobra.ExactArgs(1),
		RunE: withEngine(func(ctx context.Context, eng *engine.Engine, out io.Writer, args []string) error {
			if err := eng.DeleteModel(ctx, args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintf(out, "Model %s deleted\n", args[0])
			return err
		}),
	}
	show := &cobra.Command{
		Use:   "show <name>",
		Short: "Print the runtime's description of a model",
		Args:  cobra.ExactArgs(1),
		RunE: withEngine(func(ctx context.Context, eng *engine.Engine, out io.Writer, args []string) error {
			info, err := eng.ModelInfo(ctx, args[0])
			if err != nil {
				return err
			}
			var v any
			if err := json.Unmarshal(info, &v); err != nil {
				return err
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(v)
		}),
	}
	models.AddCommand(list, pull, switchCmd, rm, show)
	return models
}

func printModels(out io.Writer, m types.ModelsResponse) error {
	var b strings.Builder
	fmt.Fprintf(&b, "current: %s\n", m.CurrentModel)
	b.WriteString("local:\n")
	if len(m.LocalModels) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, n := range m.LocalModels {
		fmt.Fprintf(&b, "  %s\n", n)
	}
	b.WriteString("online:\n")
	providers := make([]string, 0, len(m.OnlineModels))
	for p := range m.OnlineModels {
		providers = append(providers, p)
	}
	slices.Sort(providers)
	for _, p := range providers {
		for _, om := range m.OnlineModels[p] {
			fmt.Fprintf(&b, "  %s/%s\t%s\n", p, om.Name, om.Description)
		}
	}
	_, err := io.WriteString(out, b.String())
	return err
}

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/five82/podtail/internal/app"
	"github.com/five82/podtail/internal/config"
)

// runFunc starts a run; tests substitute it to inspect the resolved options.
type runFunc func(ctx context.Context, opts app.Options) error

// newRootCmd builds the podtail command. Values resolve in order: flag,
// PODTAIL_* environment variable, config file, built-in default.
func newRootCmd(run runFunc) *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "podtail [filter]",
		Short: "Tail logs from many pods, containers or files at once",
		Long: `podtail streams the logs of every source whose name matches filter
(a regular expression) into one output, each line prefixed with its colored
source name. Sources are Kubernetes pods (kubectl), Docker containers or
local files.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(v, args)
			if err != nil {
				return err
			}
			return run(cmd.Context(), app.Options{
				Config: cfg,
				Stdout: cmd.OutOrStdout(),
				Stderr: cmd.ErrOrStderr(),
			})
		},
	}

	flags := cmd.Flags()
	flags.StringP("config", "c", "", "config file (default: "+config.DefaultPath()+")")
	flags.StringP("kind", "k", config.KindKubectl, "source kind: kubectl, docker or file")
	flags.StringSliceP("namespace", "n", nil, "namespaces to search (kubectl namespace, compose project or directory); repeat or comma separate")
	flags.BoolP("all-namespaces", "A", false, "search every namespace")
	flags.BoolP("inverse", "v", false, "tail sources whose names do not match filter")
	flags.IntP("tail", "t", config.DefaultTail, "lines of existing output per source; -1 for all")
	flags.BoolP("follow", "f", false, "keep streaming new output until interrupted")
	flags.BoolP("highlight", "H", false, "highlight failure keywords and structured errors")
	flags.StringP("pattern", "p", "", "custom highlight regular expression (implies --highlight)")
	flags.BoolP("save", "s", false, "also write each source's raw output to a file")
	flags.String("save-dir", "", "directory for saved output (default: current directory)")
	flags.String("context", "", "kubectl context to use")
	flags.String("kubectl", "", "path to the kubectl binary")
	flags.Bool("all-containers", false, "include every container of each pod")
	flags.String("color", config.ColorAuto, "color output: auto, always or never")
	flags.Int64("seed", 0, "seed for source color assignment (0 picks one)")
	flags.Bool("tui", false, "show a scrollable terminal view instead of plain output")
	flags.Bool("debug", false, "log diagnostics at debug level")
	flags.String("debug-log", "", "write diagnostics to this file")

	_ = v.BindPFlags(flags)
	v.SetEnvPrefix("PODTAIL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return cmd
}

// resolveConfig layers flags and environment over the config file.
func resolveConfig(v *viper.Viper, args []string) (config.Config, error) {
	base, err := config.Load(v.GetString("config"))
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}

	// The config file supplies defaults; flags and env override them.
	v.SetDefault("kind", base.Kind)
	v.SetDefault("kubectl", base.KubectlPath)
	v.SetDefault("context", base.Context)
	v.SetDefault("namespace", base.Namespaces)
	v.SetDefault("all-containers", base.AllContainers)
	v.SetDefault("tail", base.Tail)
	v.SetDefault("highlight", base.Highlight)
	v.SetDefault("pattern", base.Pattern)
	v.SetDefault("save-dir", base.SaveDir)
	v.SetDefault("color", base.Color)
	v.SetDefault("seed", base.Seed)
	v.SetDefault("tui", base.TUI)
	v.SetDefault("debug", base.Debug)
	v.SetDefault("debug-log", base.DebugLog)

	cfg := config.Config{
		Kind:          v.GetString("kind"),
		KubectlPath:   v.GetString("kubectl"),
		Context:       v.GetString("context"),
		Namespaces:    config.SplitList(v.GetStringSlice("namespace")...),
		AllNamespaces: v.GetBool("all-namespaces"),
		AllContainers: v.GetBool("all-containers"),
		Inverse:       v.GetBool("inverse"),
		Tail:          v.GetInt("tail"),
		Follow:        v.GetBool("follow"),
		Highlight:     v.GetBool("highlight"),
		Pattern:       v.GetString("pattern"),
		Save:          v.GetBool("save"),
		SaveDir:       v.GetString("save-dir"),
		Color:         v.GetString("color"),
		Seed:          v.GetInt64("seed"),
		TUI:           v.GetBool("tui"),
		Debug:         v.GetBool("debug"),
		DebugLog:      v.GetString("debug-log"),
	}
	if len(args) > 0 {
		cfg.Filter = args[0]
	}
	if cfg.Pattern != "" {
		cfg.Highlight = true
	}

	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/reqsmith/reqsmith/forge"
	"github.com/reqsmith/reqsmith/prompt"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "reqsmith",
		Short: "Generate test cases from ReqIF requirement exports",
		Long: `Reqsmith turns ReqIF requirement exports into reviewable test-case CSVs.

It extracts requirements with their decision tables from .reqifz archives,
renders a prompt per requirement, asks a local Ollama model for test cases,
and writes one CSV per input file.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			setupLogging(cmd)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "path of a YAML config file")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "text", "log format (text, json)")
	pf.String("model", "", "Ollama model name")
	pf.String("endpoint", "", "Ollama endpoint URL")
	pf.String("template", "", "prompt template name (empty = auto-select)")
	pf.String("prompt-config", "", "path of the prompt-store config file")
	pf.String("output-dir", "", "directory for generated CSVs (empty = next to input)")
	pf.String("run-db", "", "path of the SQLite run ledger (empty = disabled)")

	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(templatesCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(modelsCmd())
	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(mcpCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func setupLogging(cmd *cobra.Command) {
	level, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")

	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// loadConfig builds the forge config from the optional config file, with
// set flags overriding file values.
func loadConfig(cmd *cobra.Command) (forge.Config, error) {
	var cfg forge.Config

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := forge.LoadConfigFile(path)
		if err != nil {
			return cfg, err
		}
		cfg = *loaded
	}

	if v, _ := cmd.Flags().GetString("model"); v != "" {
		cfg.Model = v
	}
	if v, _ := cmd.Flags().GetString("endpoint"); v != "" {
		cfg.Ollama.Endpoint = v
	}
	if v, _ := cmd.Flags().GetString("template"); v != "" {
		cfg.Template = v
	}
	if v, _ := cmd.Flags().GetString("prompt-config"); v != "" {
		cfg.PromptConfig = v
	}
	if v, _ := cmd.Flags().GetString("output-dir"); v != "" {
		cfg.OutputDir = v
	}
	if v, _ := cmd.Flags().GetString("run-db"); v != "" {
		cfg.RunDB = v
	}
	cfg.Logger = slog.Default()
	return cfg, nil
}

func newForge(cmd *cobra.Command) (*forge.Forge, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return forge.New(cfg)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func generateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate <path>",
		Short: "Generate test cases from a .reqifz file or a directory of them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := newForge(cmd)
			if err != nil {
				return err
			}
			defer f.Close()

			ctx, cancel := signalContext()
			defer cancel()

			batch, err := f.ProcessBatch(ctx, args[0])
			if err != nil {
				return err
			}

			for _, res := range batch.Results {
				if res.Output == "" {
					fmt.Printf("%s: %d test cases, no output written\n", res.Input, res.Cases)
					continue
				}
				fmt.Printf("%s: %d test cases -> %s\n", res.Input, res.Cases, res.Output)
			}
			for path, msg := range batch.Failed {
				fmt.Fprintf(os.Stderr, "FAILED %s: %s\n", path, msg)
			}
			if len(batch.Failed) > 0 {
				return fmt.Errorf("%d of %d inputs failed", len(batch.Failed), len(batch.Failed)+len(batch.Results))
			}
			return nil
		},
	}
}

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Watch a drop folder and process every .reqifz that lands in it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			debounce, _ := cmd.Flags().GetDuration("debounce")

			f, err := newForge(cmd)
			if err != nil {
				return err
			}
			defer f.Close()

			ctx, cancel := signalContext()
			defer cancel()

			fmt.Printf("Watching %s (debounce %s), Ctrl-C to stop\n", args[0], debounce)
			if err := f.Watch(ctx, args[0], debounce); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
	cmd.Flags().Duration("debounce", 2*time.Second, "settle time before a dropped file is processed")
	return cmd
}

func templatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List the loaded prompt templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := newForge(cmd)
			if err != nil {
				return err
			}
			defer f.Close()

			for _, name := range f.Prompts().List() {
				t, ok := f.Prompts().Info(name)
				if !ok {
					continue
				}
				fmt.Printf("%-28s %s\n", name, t.Description)
			}
			return nil
		},
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <template-file>",
		Short: "Validate a prompt template file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			problems := prompt.ValidateFile(args[0])
			if len(problems) == 0 {
				fmt.Printf("%s: OK\n", args[0])
				return nil
			}
			for _, p := range problems {
				fmt.Fprintf(os.Stderr, "  - %s\n", p)
			}
			return fmt.Errorf("%s: %d problem(s)", args[0], len(problems))
		},
	}
}

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models the Ollama server serves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := newForge(cmd)
			if err != nil {
				return err
			}
			defer f.Close()

			ctx, cancel := signalContext()
			defer cancel()

			models, err := f.Generator().Models(ctx)
			if err != nil {
				return err
			}
			current := f.Generator().Model()
			for _, m := range models {
				marker := "  "
				if m == current {
					marker = "* "
				}
				fmt.Println(marker + m)
			}
			return nil
		},
	}
}

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent processing runs from the run ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			f, err := newForge(cmd)
			if err != nil {
				return err
			}
			defer f.Close()

			ledger := f.Ledger()
			if ledger == nil {
				return fmt.Errorf("no run ledger configured, set --run-db")
			}

			ctx, cancel := signalContext()
			defer cancel()

			runs, err := ledger.Recent(ctx, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("No runs recorded.")
				return nil
			}
			for _, r := range runs {
				started := time.UnixMilli(r.StartedAt).Format(time.RFC3339)
				fmt.Printf("%s  %-9s  %s  model=%s cases=%d\n",
					started, r.Status, r.Input, r.Model, r.Cases)
				if r.Error != "" {
					fmt.Printf("    error: %s\n", r.Error)
				}
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "maximum number of runs to show")
	return cmd
}

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the reqsmith tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := newForge(cmd)
			if err != nil {
				return err
			}
			defer f.Close()

			srv := mcp.NewServer(&mcp.Implementation{Name: "reqsmith", Version: version}, nil)
			f.RegisterMCP(srv)

			ctx, cancel := signalContext()
			defer cancel()

			slog.Info("MCP server on stdio", "version", version)
			return srv.Run(ctx, &mcp.StdioTransport{})
		},
	}
}

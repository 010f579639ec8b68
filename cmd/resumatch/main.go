// Package main is the resumatch CLI entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/resumatch/internal/cli"
	"github.com/hyperjump/resumatch/internal/config"
	"github.com/hyperjump/resumatch/internal/extract"
	"github.com/hyperjump/resumatch/internal/metrics"
	"github.com/hyperjump/resumatch/internal/models"
	"github.com/hyperjump/resumatch/internal/observability"
	"github.com/hyperjump/resumatch/internal/server"
	"github.com/hyperjump/resumatch/internal/watcher"
	"github.com/hyperjump/resumatch/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/resumatch/config.yaml"
	defaultMatchTopK  = 3
)

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development).
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	debug      bool
	logLevel   string
}

func (g *globalFlags) setup() (*config.Config, string, *zap.Logger, error) {
	cfg, resolved, err := loadConfig(g.configPath)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := utils.NewLoggerWithLevel(cfg.Debug || g.debug, g.logLevel)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, resolved, logger, nil
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	g := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:           "resumatch",
		Short:         "Rank resumes against a job description by embedding similarity",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.SetOut(out)
	rootCmd.PersistentFlags().StringVar(&g.configPath, "config", defaultConfigPath, "Config file path")
	rootCmd.PersistentFlags().BoolVar(&g.debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Override the log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newServerCmd(g),
		newIngestCmd(g),
		newMatchCmd(g),
		newStatsCmd(g),
		newInboxCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Show version",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "resumatch version %s\n", version)
			},
		},
	)
	return rootCmd
}

func newServerCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP API and the resume inbox",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(g)
		},
	}
}

func runServer(g *globalFlags) error {
	cfg, resolvedConfigPath, logger, err := g.setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("config loaded", zap.String("config_path", resolvedConfigPath), zap.Bool("debug", cfg.Debug || g.debug))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName:    "resumatch",
		ServiceVersion: version,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}()
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()
	if n, err := components.VectorIndex.Count(ctx); err == nil {
		metrics.IndexedDocuments.Set(float64(n))
	}

	inbox := watcher.NewInbox(components.Indexer, watcher.Options{
		Directories: cfg.Inbox.Directories,
		Extensions:  cfg.Inbox.Extensions,
		Recursive:   cfg.Inbox.RecursiveOrDefault(),
	}, watcher.WithLogger(logger))
	if err := inbox.Start(ctx); err != nil {
		return fmt.Errorf("failed to start inbox: %w", err)
	}
	defer inbox.Stop()

	srv := server.NewServer(components.Engine, components.Indexer, cfg, logger,
		server.WithInbox(inbox, resolvedConfigPath))
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

func newIngestCmd(g *globalFlags) *cobra.Command {
	var (
		force     bool
		recursive bool
	)
	cmd := &cobra.Command{
		Use:   "ingest <file|dir>...",
		Short: "Ingest resume files or directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, logger, err := g.setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			ctx := cmd.Context()
			components, err := initializeComponents(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer components.Close()
			return runIngest(ctx, cmd.OutOrStdout(), components, args, cfg.Inbox.Extensions, recursive, !force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Ingest files again even if unchanged since the last ingest")
	cmd.Flags().BoolVar(&recursive, "recursive", true, "Descend into subdirectories")
	return cmd
}

func runIngest(ctx context.Context, out io.Writer, c *Components, paths, exts []string, recursive, skipUnchanged bool) error {
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return err
		}
		if info.IsDir() {
			ids, err := c.Indexer.IngestDirectory(ctx, p, exts, recursive, skipUnchanged)
			for _, id := range ids {
				fmt.Fprintf(out, "Ingested %s\n", id)
			}
			if err != nil {
				return err
			}
			continue
		}
		// Explicitly named files are ingested whatever their extension.
		id, skipped, err := c.Indexer.IngestFile(ctx, p, nil, skipUnchanged)
		if err != nil {
			return err
		}
		if skipped {
			fmt.Fprintf(out, "Unchanged %s (%s)\n", id, p)
			continue
		}
		fmt.Fprintf(out, "Ingested %s (%s)\n", id, p)
	}
	return nil
}

type matchFlags struct {
	file      string
	topK      int
	output    string
	outPath   string
	serverURL string
	preview   bool
}

func newMatchCmd(g *globalFlags) *cobra.Command {
	f := &matchFlags{}
	cmd := &cobra.Command{
		Use:   "match [job description text...]",
		Short: "Rank stored resumes against a job description",
		Example: `  resumatch match "Senior Go engineer with Kubernetes experience"
  resumatch match --file jd.pdf --top-k 10 --output xlsx --out ranking.xlsx
  resumatch match --server http://localhost:8000 --file jd.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(cmd.Context(), g, f, args, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&f.file, "file", "", "Read the job description from a file (pdf, docx, odt, rtf, txt, md)")
	cmd.Flags().IntVar(&f.topK, "top-k", defaultMatchTopK, "Number of resumes to return")
	cmd.Flags().StringVar(&f.output, "output", "text", "Output format: text, json or xlsx")
	cmd.Flags().StringVar(&f.outPath, "out", "", "Write output to this file instead of stdout (xlsx defaults to matches.xlsx)")
	cmd.Flags().StringVar(&f.serverURL, "server", "", "Query a running server instead of opening the index directly")
	cmd.Flags().BoolVar(&f.preview, "preview", false, "Include the start of each resume's text")
	return cmd
}

// queryText returns the job description from --file or the positional args.
func queryText(file string, args []string) (string, error) {
	if file != "" {
		return extract.NewExtractor().Extract(file)
	}
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return "", errors.New("provide job description text or --file")
	}
	return text, nil
}

// outputTarget resolves where match output goes for the given format.
func outputTarget(format cli.OutputFormat, outPath string) string {
	if outPath == "" && format == cli.OutputXLSX {
		return "matches.xlsx"
	}
	return outPath
}

func runMatch(ctx context.Context, g *globalFlags, f *matchFlags, args []string, stdout io.Writer) error {
	format, err := cli.ParseOutputFormat(f.output)
	if err != nil {
		return err
	}
	if f.topK < 0 {
		return fmt.Errorf("--top-k must be >= 0, got %d", f.topK)
	}
	text, err := queryText(f.file, args)
	if err != nil {
		return err
	}

	report := &cli.Report{Query: text}
	if f.serverURL != "" {
		c := newAPIClient(f.serverURL)
		report.Matches, err = c.match(ctx, text, f.topK)
		if err != nil {
			return err
		}
		if f.preview {
			report.Previews = c.previews(ctx, report.Matches)
		}
	} else {
		cfg, _, logger, err := g.setup()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
		components, err := initializeComponents(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer components.Close()
		report.Matches, err = components.Engine.Search(ctx, text, f.topK)
		if err != nil {
			return err
		}
		if f.preview {
			report.Previews = make(map[string]string, len(report.Matches))
			for _, m := range report.Matches {
				if doc, err := components.Engine.Document(ctx, m.DocumentID); err == nil {
					report.Previews[m.DocumentID] = doc.RawText
				}
			}
		}
	}
	return writeReport(stdout, report, format, outputTarget(format, f.outPath))
}

func writeReport(stdout io.Writer, report *cli.Report, format cli.OutputFormat, outPath string) error {
	if outPath == "" {
		return cli.WriteMatches(stdout, report, format)
	}
	file, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := cli.WriteMatches(file, report, format); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Wrote %d matches to %s\n", len(report.Matches), outPath)
	return nil
}

func newStatsCmd(g *globalFlags) *cobra.Command {
	var (
		output    string
		serverURL string
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show how many resumes are indexed and their IDs",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			var stats models.Stats
			if serverURL != "" {
				stats, err = newAPIClient(serverURL).stats(ctx)
			} else {
				cfg, _, logger, setupErr := g.setup()
				if setupErr != nil {
					return setupErr
				}
				defer func() { _ = logger.Sync() }()
				components, initErr := initializeComponents(ctx, cfg, logger)
				if initErr != nil {
					return initErr
				}
				defer components.Close()
				stats, err = components.Engine.Stats(ctx)
			}
			if err != nil {
				return err
			}
			return cli.WriteStats(cmd.OutOrStdout(), stats, format)
		},
	}
	cmd.Flags().StringVar(&output, "output", "text", "Output format: text or json")
	cmd.Flags().StringVar(&serverURL, "server", "", "Query a running server instead of opening the index directly")
	return cmd
}

func newInboxCmd() *cobra.Command {
	var serverURL string
	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "Manage the inbox directories of a running server",
	}
	cmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8000", "Server URL")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List watched inbox directories",
			RunE: func(cmd *cobra.Command, args []string) error {
				dirs, err := newAPIClient(serverURL).inboxList(cmd.Context())
				if err != nil {
					return err
				}
				for _, d := range dirs {
					fmt.Fprintln(cmd.OutOrStdout(), d)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "add <path>",
			Short: "Watch a directory and ingest the resumes already in it",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := filepath.Abs(args[0])
				if err != nil {
					return err
				}
				if err := newAPIClient(serverURL).inboxAdd(cmd.Context(), path); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added: %s\n", path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "remove <path>",
			Short: "Stop watching a directory",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := filepath.Abs(args[0])
				if err != nil {
					return err
				}
				if err := newAPIClient(serverURL).inboxRemove(cmd.Context(), path); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed: %s\n", path)
				return nil
			},
		},
	)
	return cmd
}

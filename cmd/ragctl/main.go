// Command ragctl ingests files into the vector index and queries it from the shell.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"docrag/internal/app"
	"docrag/internal/config"
	"docrag/internal/indexer"
)

func main() {
	if err := newCLI().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newCLI() *cli.App {
	return &cli.App{
		Name:  "ragctl",
		Usage: "Manage and query the document index",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Override LOG_LEVEL (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Extract, chunk, embed and index files or directories",
				ArgsUsage: "PATH...",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of files processed concurrently (defaults to INGEST_WORKERS)",
					},
					&cli.BoolFlag{
						Name:  "dedupe",
						Usage: "Skip files whose source id is already indexed",
					},
				},
			},
			{
				Name:      "query",
				Usage:     "Retrieve the passages most similar to a question",
				ArgsUsage: "QUESTION",
				Action:    queryCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "k",
						Aliases: []string{"n"},
						Usage:   "Number of passages (defaults to RETRIEVAL_K)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print ranked passages with scores as JSON",
					},
				},
			},
			{
				Name:      "watch",
				Usage:     "Keep the index in sync with a directory until interrupted",
				ArgsUsage: "DIR",
				Action:    watchCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "initial",
						Usage: "Ingest the existing files before watching",
						Value: true,
					},
					&cli.DurationFlag{
						Name:  "debounce",
						Usage: "Quiet period before a changed file is re-indexed",
						Value: indexer.DefaultDebounce,
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Print the number of indexed records",
				Action: statsCommand,
			},
			{
				Name:      "purge",
				Usage:     "Delete every record of a source id",
				ArgsUsage: "SOURCE",
				Action:    purgeCommand,
			},
		},
	}
}

// openApp loads configuration from the environment and wires the components.
// Logs go to the CLI's error writer so stdout stays machine-readable.
func openApp(c *cli.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if lvl := c.String("log-level"); lvl != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(lvl)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", lvl, err)
		}
		cfg.LogLevel = level
	}
	app.ConfigureLogging(cfg, c.App.ErrWriter)

	if c.IsSet("workers") {
		cfg.IngestWorkers = c.Int("workers")
	}
	if c.Bool("dedupe") {
		cfg.IngestDedupe = true
	}
	return app.New(c.Context, cfg)
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one path is required")
	}
	jobs, err := collectJobs(c.Context, c.Args().Slice())
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return fmt.Errorf("no supported files found")
	}

	a, err := openApp(c)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	report, err := a.Pipeline.IngestAll(c.Context, jobs)
	if err != nil {
		return err
	}
	for _, f := range report.Failed {
		fmt.Fprintf(c.App.ErrWriter, "failed: %s: %v\n", f.Job.SourceID, f.Err)
	}
	return writeJSON(c, report.Stats)
}

func queryCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("a question is required")
	}

	a, err := openApp(c)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	k := a.Config.RetrievalK
	if c.IsSet("k") {
		k = c.Int("k")
	}

	if c.Bool("json") {
		passages, err := a.Engine.Search(c.Context, question, k)
		if err != nil {
			return err
		}
		return writeJSON(c, passages)
	}

	text, err := a.Engine.Retrieve(c.Context, question, k)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, text)
	return err
}

func watchCommand(c *cli.Context) error {
	root := c.Args().First()
	if root == "" {
		return fmt.Errorf("a directory is required")
	}

	a, err := openApp(c)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := a.Pipeline.NewWatcher(root, c.Duration("debounce"))
	if err != nil {
		return err
	}

	if c.Bool("initial") {
		jobs, err := indexer.ScanDir(ctx, root)
		if err != nil {
			_ = w.Close()
			return err
		}
		// Replace rather than append so restarts do not duplicate records.
		for _, job := range jobs {
			if _, err := a.Index.DeleteBySource(ctx, job.SourceID); err != nil {
				_ = w.Close()
				return err
			}
		}
		report, err := a.Pipeline.IngestAll(ctx, jobs)
		if err != nil {
			_ = w.Close()
			return err
		}
		if err := writeJSON(c, report.Stats); err != nil {
			_ = w.Close()
			return err
		}
	}

	return w.Run(ctx, func(ch indexer.Change) {
		if ch.Err != nil {
			fmt.Fprintf(c.App.ErrWriter, "%s %s: %v\n", ch.Type, ch.SourceID, ch.Err)
			return
		}
		fmt.Fprintf(c.App.Writer, "%s %s (%d chunks)\n", ch.Type, ch.SourceID, ch.Chunks)
	})
}

func statsCommand(c *cli.Context) error {
	a, err := openApp(c)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	n, err := a.Index.Count(c.Context)
	if err != nil {
		return err
	}
	return writeJSON(c, map[string]any{
		"records":   n,
		"dimension": a.Index.Dimension(),
		"backend":   a.Config.IndexBackend,
	})
}

func purgeCommand(c *cli.Context) error {
	source := c.Args().First()
	if source == "" {
		return fmt.Errorf("a source id is required")
	}

	a, err := openApp(c)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	n, err := a.Index.DeleteBySource(c.Context, source)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.App.Writer, "deleted %d records of %s\n", n, source)
	return err
}

// collectJobs expands directories into the supported files they contain.
// Explicit file arguments are kept even when unsupported so the report shows them.
func collectJobs(ctx context.Context, paths []string) ([]indexer.Job, error) {
	var jobs []indexer.Job
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", root, err)
		}
		if !info.IsDir() {
			jobs = append(jobs, indexer.Job{Path: root, SourceID: filepath.ToSlash(root)})
			continue
		}
		found, err := indexer.ScanDir(ctx, root)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, found...)
	}
	return jobs, nil
}

func writeJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}


package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/raido/internal"
	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/extract"
	"github.com/starford/raido/internal/mcpserver"
	"github.com/starford/raido/internal/progress"
	"github.com/starford/raido/internal/query"
	"github.com/starford/raido/internal/source"
	"github.com/starford/raido/internal/store"
	"github.com/starford/raido/internal/updater"
	pkgconfig "github.com/starford/raido/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadIfPresent(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func textLogger(cfg *internal.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

// runIndex drives one progressive update to completion, printing the
// rate of progress after each step.
func runIndex(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := textLogger(cfg)

	scanner, err := source.NewScanner(cfg.Corpus.Path)
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.Index.Path)
	if err != nil {
		if errors.Is(err, apperr.ErrIndexCorrupt) {
			return fmt.Errorf("index at %s is corrupt; delete it and reindex: %w", cfg.Index.Path, err)
		}
		return err
	}
	defer st.Close()

	u := updater.New(st, scanner, &extract.PDFExtractor{Validate: cfg.Index.ValidatePDF}, logger, updater.Options{
		Reupdate:  cmd.Bool("reupdate"),
		BatchSize: cfg.Index.BatchSize,
	})

	state := progress.Run(ctx, u, func() bool {
		if rate := u.RateOfProgress(); rate >= 0 {
			fmt.Fprintf(os.Stderr, "\rindexing... %3d%%", rate)
		}
		return false
	})
	fmt.Fprintln(os.Stderr)

	for _, de := range u.Errs() {
		logger.Warn("document skipped", slog.String("path", de.Path), slog.String("error", de.Err.Error()))
	}
	if state == progress.Error {
		return u.Err()
	}

	stats, err := st.Stats()
	if err != nil {
		return err
	}
	fmt.Printf("indexed %d documents, %d terms, %d postings\n", stats.Documents, stats.Terms, stats.Postings)
	return nil
}

func runSearch(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.NArg() == 0 {
		return fmt.Errorf("usage: raido search <query>")
	}
	q := cmd.Args().First()

	rank, err := query.ParseRankMode(cmd.String("rank"))
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Index.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	limit := cmd.Int("limit")
	shown := 0
	err = query.New(st).Search(ctx, q, rank, func(m query.Match) bool {
		fmt.Printf("%s#%d [%d:%d] %s\n", m.Path, m.Page, m.Start, m.End, m.MatchedText)
		shown++
		return limit <= 0 || shown < int(limit)
	})
	if err != nil {
		return err
	}
	if shown == 0 {
		fmt.Println("no matches")
	}
	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := textLogger(cfg)

	scanner, err := source.NewScanner(cfg.Corpus.Path)
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.Index.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	reindexer := internal.NewReindexer(ctx, st, scanner,
		&extract.PDFExtractor{Validate: cfg.Index.ValidatePDF}, cfg.Index.BatchSize, logger)

	srv := mcpserver.New(st, query.New(st), reindexer)
	return srv.ServeStdio()
}

func main() {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("RAIDO_CONFIG_FILE"),
	}

	cmd := &cli.Command{
		Name:  "raido",
		Usage: "Progressive full-text indexing and search over PDF collections",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, SSE progress stream, and corpus watcher",
				Action: serve,
				Flags:  []cli.Flag{configFlag},
			},
			{
				Name:   "index",
				Usage:  "Run one incremental index update to completion",
				Action: runIndex,
				Flags: []cli.Flag{
					configFlag,
					&cli.BoolFlag{
						Name:  "reupdate",
						Usage: "Re-extract every document regardless of fingerprint",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Search the index and print matches",
				ArgsUsage: "<query>",
				Action:    runSearch,
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{
						Name:  "rank",
						Usage: "Rank mode: none, asc, or desc (by hit count)",
						Value: "desc",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Stop after this many matches (0 = unlimited)",
						Value: 20,
					},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Expose search tools over MCP stdio",
				Action: runMCP,
				Flags:  []cli.Flag{configFlag},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

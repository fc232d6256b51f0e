package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/expatscout/internal/app"
	"github.com/kailas-cloud/expatscout/internal/config"
	logpkg "github.com/kailas-cloud/expatscout/internal/logger"
	knowrepo "github.com/kailas-cloud/expatscout/internal/repository/knowledge"
	chiTransport "github.com/kailas-cloud/expatscout/internal/transport/chi"
	chatuc "github.com/kailas-cloud/expatscout/internal/usecase/chat"
	knowledgeuc "github.com/kailas-cloud/expatscout/internal/usecase/knowledge"
	"github.com/kailas-cloud/expatscout/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "scoutctl",
		Usage: "Operate the expatscout knowledge store and run queries from the shell",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env",
				Usage:   "Config environment (config/<env>.yaml)",
				EnvVars: []string{"ENV"},
				Value:   "local",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Explicit config file path (overrides --env lookup)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Usage:  "Load knowledge documents from a .json or .parquet file",
				Action: ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Path to the documents file",
						Required: true,
					},
				},
			},
			{
				Name:   "context",
				Usage:  "Show the knowledge snippets retrieved for a query",
				Action: contextCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "query",
						Aliases:  []string{"q"},
						Usage:    "Search text",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Maximum number of snippets",
						Value: 3,
					},
					&cli.StringFlag{
						Name:  "category",
						Usage: "Restrict results to one category",
					},
				},
			},
			{
				Name:   "ask",
				Usage:  "Run a chat query end to end and print the JSON response",
				Action: askCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "message",
						Aliases:  []string{"m"},
						Usage:    "Free-text query",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "page",
						Usage: "Result page (1-based)",
						Value: 1,
					},
					&cli.IntFlag{
						Name:  "page-size",
						Usage: "Results per page (0 = configured default)",
					},
				},
			},
			{
				Name:  "version",
				Usage: "Print build information",
				Action: func(c *cli.Context) error {
					_, err := fmt.Fprintln(c.App.Writer, "scoutctl "+version.String())
					return err
				},
			},
		},
	}
}

// env bundles what every command needs.
type env struct {
	cfg    config.Config
	logger *zap.Logger
	kb     *app.Knowledge
}

func setup(c *cli.Context) (*env, error) {
	var (
		cfg config.Config
		err error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load(c.String("env"))
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(c.String("env"), c.String("log-level"))
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	kb, err := app.OpenKnowledge(c.Context, cfg.Knowledge, logger)
	if err != nil {
		return nil, fmt.Errorf("open knowledge store: %w", err)
	}
	return &env{cfg: cfg, logger: logger, kb: kb}, nil
}

func (e *env) close() {
	e.kb.Close()
	_ = e.logger.Sync()
}

func ingestCommand(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	svc := knowledgeuc.New(e.kb.Repo, knowrepo.LoadDocuments)
	n, err := svc.LoadFromFile(c.Context, c.String("file"))
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	total, err := svc.Count(c.Context)
	if err != nil {
		return fmt.Errorf("count documents: %w", err)
	}

	_, err = fmt.Fprintf(c.App.Writer, "Ingested %d documents (%d in store)\n", n, total)
	return err
}

func contextCommand(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	svc := knowledgeuc.New(e.kb.Repo, knowrepo.LoadDocuments)
	snippets, err := svc.SearchCategory(c.Context, c.String("query"), c.String("category"), c.Int("top-k"))
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	return printJSON(c, snippets)
}

func askCommand(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.close()

	req := chatuc.Request{
		Message:  c.String("message"),
		Page:     c.Int("page"),
		PageSize: c.Int("page-size"),
	}
	if err := req.Validate(); err != nil {
		return err
	}

	gen := app.NewGenerator(e.cfg.Generation, e.logger)
	chat := app.NewChat(&e.cfg, gen.Gen, e.kb.Searcher(), e.logger)

	ctx := logpkg.ContextWithLogger(c.Context, e.logger)
	return printJSON(c, chiTransport.NewChatResponse(chat.Handle(ctx, req)))
}

func printJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

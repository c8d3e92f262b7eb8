package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/kk-code-lab/seekr/internal/indexer"
	"github.com/kk-code-lab/seekr/internal/logging"
)

func indexCommand() *cli.Command {
	return &cli.Command{
		Name:      "index",
		Usage:     "Build or refresh the local index from a directory",
		ArgsUsage: "DIR",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "db",
				Usage: "Path to the sqlite index (defaults to index.path from the config)",
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "Number of files processed in parallel",
			},
			&cli.BoolFlag{
				Name:  "no-prune",
				Usage: "Keep index entries for files that no longer exist",
			},
			&cli.BoolFlag{
				Name:  "no-embed",
				Usage: "Do not embed images",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Do not report progress",
			},
		},
		Action: runIndex,
	}
}

func runIndex(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("index needs exactly one directory")
	}
	cfg := configFrom(c)
	if db := c.String("db"); db != "" {
		cfg.Index.Path = db
	}
	workers := cfg.Index.Workers
	if c.IsSet("workers") {
		workers = c.Int("workers")
	}

	ix, err := openIndex(cfg)
	if err != nil {
		return err
	}
	defer ix.Close()

	opts := []indexer.Option{
		indexer.WithWorkers(workers),
		indexer.WithPrune(!c.Bool("no-prune")),
		indexer.WithLogger(logging.WithPrefix("indexer")),
	}
	if !c.Bool("no-embed") {
		embedder, closeEmbedder := openEmbedder(cfg)
		defer closeEmbedder()
		if embedder != nil {
			opts = append(opts, indexer.WithEmbedder(embedder))
		}
	}
	if !c.Bool("quiet") {
		opts = append(opts, indexer.WithProgress(func(s indexer.Stats) {
			fmt.Fprintf(os.Stderr, "\rscanned %d  indexed %d  unchanged %d  embedded %d", s.Scanned, s.Indexed, s.Unchanged, s.Embedded)
		}))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := indexer.New(ix, opts...).Run(ctx, c.Args().First())
	if !c.Bool("quiet") {
		fmt.Fprintln(os.Stderr)
	}
	printStats(c.App.Writer, stats)
	return err
}

func printStats(w io.Writer, s indexer.Stats) {
	fmt.Fprintf(w, "indexed %d, unchanged %d, skipped %d, failed %d, pruned %d\n",
		s.Indexed, s.Unchanged, s.Skipped, s.Failed, s.Pruned)
	if s.Embedded > 0 || s.EmbedFailed > 0 {
		fmt.Fprintf(w, "embedded %d images, %d failed\n", s.Embedded, s.EmbedFailed)
	}
	fmt.Fprintf(w, "scanned %d files in %s\n", s.Scanned, s.Elapsed.Round(time.Millisecond))
}

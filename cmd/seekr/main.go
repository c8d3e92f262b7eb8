package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/urfave/cli/v2"

	apppkg "github.com/kk-code-lab/seekr/internal/app"
	"github.com/kk-code-lab/seekr/internal/config"
	"github.com/kk-code-lab/seekr/internal/logging"
)

const configKey = "config"

func newApp() *cli.App {
	return &cli.App{
		Name:      "seekr",
		Usage:     "Search file servers by text or by image from the terminal",
		ArgsUsage: "[query]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the JSON config file",
				Value:   config.Path(),
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Search backend (http, local)",
			},
			&cli.StringFlag{
				Name:  "api-url",
				Usage: "Base URL of the search API",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Write logs to this file",
			},
			&cli.StringFlag{
				Name:    "image",
				Aliases: []string{"i"},
				Usage:   "Prefill the image field with `PATH`",
			},
		},
		Before: setup,
		After: func(*cli.Context) error {
			logging.Close()
			return nil
		},
		Action: consoleCommand,
		Commands: []*cli.Command{
			indexCommand(),
			queryCommand(),
		},
	}
}

func main() {
	// Set UTF-8 as fallback encoding for maximum compatibility
	tcell.SetEncodingFallback(tcell.EncodingFallbackUTF8)

	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "seekr: %v\n", err)
		os.Exit(1)
	}
}

// setup loads the config, applies global flag overrides and opens the log.
func setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	applyFlags(cfg, c.String("backend"), c.String("api-url"), c.String("log-level"), c.String("log-file"))
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := logging.Init(cfg.Log.Path, cfg.Log.Level); err != nil {
		return err
	}
	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]interface{})
	}
	c.App.Metadata[configKey] = cfg
	return nil
}

func applyFlags(cfg *config.Config, backend, apiURL, level, logFile string) {
	if backend != "" {
		cfg.Backend.Kind = strings.ToLower(backend)
	}
	if apiURL != "" {
		cfg.Backend.URL = apiURL
	}
	if level != "" {
		cfg.Log.Level = level
	}
	if logFile != "" {
		cfg.Log.Path = logFile
	}
}

func configFrom(c *cli.Context) *config.Config {
	if cfg, ok := c.App.Metadata[configKey].(*config.Config); ok {
		return cfg
	}
	return config.Default()
}

func consoleCommand(c *cli.Context) error {
	cfg := configFrom(c)
	backend, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	embedder, closeEmbedder := openEmbedder(cfg)
	defer closeEmbedder()

	app, err := apppkg.NewApplication(apppkg.Options{
		Config:    cfg,
		Backend:   backend,
		Embedder:  embedder,
		Query:     strings.Join(c.Args().Slice(), " "),
		ImagePath: c.String("image"),
		Logger:    logging.WithPrefix("app"),
	})
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		_ = app.Close()
	}()

	app.Run()
	return nil
}

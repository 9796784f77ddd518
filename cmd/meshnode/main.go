// cmd/meshnode/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/tamzrod/mesh-versioner/internal/config"
	"github.com/tamzrod/mesh-versioner/internal/node"
)

var (
	configFlag = &cli.StringFlag{
		Name:     "config",
		Aliases:  []string{"c"},
		Usage:    "path to the node YAML config",
		Required: true,
	}
	logLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "debug, info, warn or error",
		Value: "info",
	}
)

var commandRun = &cli.Command{
	Name:  "run",
	Usage: "run a mesh node",
	Flags: []cli.Flag{configFlag, logLevelFlag},
	Action: func(ctx *cli.Context) error {
		cfg := loadConfig(ctx.String(configFlag.Name))

		var level slog.Level
		if err := level.UnmarshalText([]byte(ctx.String(logLevelFlag.Name))); err != nil {
			log.Fatalf("bad log level: %v", err)
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)

		n, closeNode, err := node.Build(cfg, logger)
		if err != nil {
			log.Fatalf("node build failed: %v", err)
		}
		defer closeNode()

		runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return n.Run(runCtx)
	},
}

var commandCheck = &cli.Command{
	Name:  "check",
	Usage: "load and validate a config, then exit",
	Flags: []cli.Flag{configFlag},
	Action: func(ctx *cli.Context) error {
		cfg := loadConfig(ctx.String(configFlag.Name))
		fmt.Printf("config ok: node %s, %d handles, %d local values, %d peers\n",
			cfg.Node.Address,
			cfg.Mesh.HandleCount,
			len(cfg.Values),
			len(cfg.Transport.Peers),
		)
		return nil
	},
}

// loadConfig loads, validates and normalizes a config or exits.
func loadConfig(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}
	config.Normalize(cfg)

	return cfg
}

func main() {
	app := &cli.App{
		Name:     "meshnode",
		Usage:    "versioned value dissemination over a simulated mesh",
		Commands: []*cli.Command{commandRun, commandCheck},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

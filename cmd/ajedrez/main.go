// Command ajedrez manages chess sessions from the terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/misaelnieto/itm-2025-soa-u5/internal/apiclient"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/app"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/config"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/msgcat"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/obslog"
)

const version = "0.2.0"

// errRejected marks a command that already reported its failure to stdout.
var errRejected = errors.New("rejected")

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: loading .env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout, os.Stderr).Run(ctx, os.Args); err != nil {
		if !errors.Is(err, errRejected) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}

// runtime is what one command invocation works with.
type runtime struct {
	cfg     *config.AppConfig
	backend backend
	cat     *msgcat.Catalog
	remote  bool
}

func (r *runtime) Close() error { return r.backend.Close() }

func openRuntime(ctx context.Context, c *cli.Command) (*runtime, error) {
	if c.Bool("remote") {
		cfg, err := config.LoadClient()
		if err != nil {
			return nil, err
		}
		cat, err := msgcat.New(cfg.MessagesDir)
		if err != nil {
			return nil, err
		}
		return &runtime{cfg: cfg, backend: newRemoteBackend(apiURL(c, cfg)), cat: cat, remote: true}, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	deps, err := app.New(ctx, cfg, obslog.L())
	if err != nil {
		return nil, err
	}
	return &runtime{cfg: cfg, backend: &localBackend{deps: deps}, cat: deps.Catalog}, nil
}

func apiURL(c *cli.Command, cfg *config.AppConfig) string {
	if v := c.String("api-url"); v != "" {
		return v
	}
	return cfg.APIURL
}

func clientFor(c *cli.Command) (*apiclient.Client, error) {
	cfg, err := config.LoadClient()
	if err != nil {
		return nil, err
	}
	return apiclient.New(apiURL(c, cfg)), nil
}

func newApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "ajedrez",
		Usage:     "Ajedrez command line utility",
		Version:   version,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "remote",
				Usage:   "talk to the HTTP API instead of the store",
				Sources: cli.EnvVars("AJEDREZ_REMOTE"),
			},
			&cli.StringFlag{
				Name:  "api-url",
				Usage: "API base URL (default $AJEDREZ_API_URL)",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "emit logs configured by LOG_* variables",
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			if c.Bool("verbose") {
				if err := obslog.InitFromEnv(); err != nil {
					return ctx, err
				}
			}
			return ctx, nil
		},
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
		Commands:       commands(stdout),
	}
}

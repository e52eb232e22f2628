package main

import (
	"fmt"
	"log"
	"os"

	"github.com/ikkim/storefront/config"
	"github.com/ikkim/storefront/pkg/logger"
	"github.com/urfave/cli/v2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logLevel := cfg.Log.Level
	if logLevel == "" {
		logLevel = "warn"
	}
	logger.Initialize(logger.Config{
		Level:  logLevel,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})

	if err := newApp(cfg).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp(cfg *config.Config) *cli.App {
	return &cli.App{
		Name:  "cartcli",
		Usage: "inspect and edit a storefront cart from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "base-url",
				Usage: "cart service origin",
				Value: cfg.Cart.BaseURL,
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "bearer token from `cartcli login`",
				EnvVars: []string{"CART_TOKEN"},
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "per-request timeout",
				Value: cfg.Cart.RequestTimeout,
			},
			&cli.StringFlag{
				Name:  "reconcile",
				Usage: "which responses replace the cart: last-response or latest-issued",
				Value: cfg.Cart.ReconcilePolicy,
			},
			&cli.StringFlag{
				Name:  "on-failure",
				Usage: "what happens to a failed optimistic add: keep or rollback",
				Value: cfg.Cart.FailurePolicy,
			},
		},
		Commands: []*cli.Command{
			loginCommand(),
			logoutCommand(),
			productsCommand(),
			cartCommand(cfg),
		},
	}
}

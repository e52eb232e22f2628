package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ikkim/storefront/config"
	"github.com/ikkim/storefront/internal/cart"
	"github.com/ikkim/storefront/pkg/cartapi"
	"github.com/ikkim/storefront/pkg/credential"
	"github.com/ikkim/storefront/pkg/logger"
	redispkg "github.com/ikkim/storefront/pkg/redis"
	"github.com/urfave/cli/v2"
)

var errNoToken = errors.New("no token: run `cartcli login` and pass --token or set CART_TOKEN")

func newClient(c *cli.Context, creds credential.Provider) (*cartapi.Client, error) {
	return cartapi.NewClient(cartapi.Config{
		BaseURL: c.String("base-url"),
		Timeout: c.Duration("timeout"),
	}, creds)
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "exchange email and password for a token",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"CART_PASSWORD"}},
		},
		Action: func(c *cli.Context) error {
			client, err := newClient(c, credential.NewStore(""))
			if err != nil {
				return err
			}

			resp, err := client.Login(c.Context, cartapi.LoginRequest{
				Email:    c.String("email"),
				Password: c.String("password"),
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(c.App.Writer, "Logged in as %s <%s>\n", resp.User.Name, resp.User.Email)
			fmt.Fprintf(c.App.Writer, "export CART_TOKEN=%s\n", resp.Token)
			return nil
		},
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "revoke the current token",
		Action: func(c *cli.Context) error {
			token := c.String("token")
			if token == "" {
				return errNoToken
			}

			client, err := newClient(c, credential.StaticProvider(token))
			if err != nil {
				return err
			}
			if err := client.Logout(c.Context); err != nil {
				return err
			}

			fmt.Fprintln(c.App.Writer, "Logged out")
			return nil
		},
	}
}

func productsCommand() *cli.Command {
	return &cli.Command{
		Name:  "products",
		Usage: "list the catalog",
		Action: func(c *cli.Context) error {
			client, err := newClient(c, credential.NewStore(""))
			if err != nil {
				return err
			}

			products, err := client.ListProducts(c.Context)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPRICE")
			for _, p := range products {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Category, p.Price.StringFixed(2))
			}
			return tw.Flush()
		},
	}
}

// cartAction issues store operations once the cart has hydrated
type cartAction func(c *cli.Context, client *cartapi.Client, store *cart.Store) ([]*cart.Operation, error)

func idFlag() cli.Flag {
	return &cli.StringFlag{Name: "id", Usage: "product id", Required: true}
}

func cartCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "cart",
		Usage: "show or change the cart",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "print the cart",
				Action: runCart(cfg, nil),
			},
			{
				Name:  "add",
				Usage: "add one or more units of a product",
				Flags: []cli.Flag{
					idFlag(),
					&cli.IntFlag{Name: "qty", Usage: "units to add, one request per unit", Value: 1},
				},
				Action: runCart(cfg, addAction),
			},
			{
				Name:  "dec",
				Usage: "lower a line's quantity by one",
				Flags: []cli.Flag{idFlag()},
				Action: runCart(cfg, func(c *cli.Context, _ *cartapi.Client, store *cart.Store) ([]*cart.Operation, error) {
					return []*cart.Operation{store.DecrementItem(c.String("id"))}, nil
				}),
			},
			{
				Name:  "remove",
				Usage: "drop a product's line",
				Flags: []cli.Flag{idFlag()},
				Action: runCart(cfg, func(c *cli.Context, _ *cartapi.Client, store *cart.Store) ([]*cart.Operation, error) {
					return []*cart.Operation{store.RemoveItem(c.String("id"))}, nil
				}),
			},
		},
	}
}

func addAction(c *cli.Context, client *cartapi.Client, store *cart.Store) ([]*cart.Operation, error) {
	id := c.String("id")
	qty := c.Int("qty")
	if qty < 1 {
		return nil, fmt.Errorf("--qty must be at least 1, got %d", qty)
	}

	products, err := client.ListProducts(c.Context)
	if err != nil {
		return nil, err
	}

	for _, p := range products {
		if string(p.ID) != id {
			continue
		}
		product := cart.Product{ID: id, Name: p.Name, Price: p.Price, Image: p.Image}
		ops := make([]*cart.Operation, 0, qty)
		for i := 0; i < qty; i++ {
			op := store.AddItem(product)
			ops = append(ops, op)
			// the next unit waits so the last response carries every unit
			if err := op.Wait(c.Context); err != nil {
				break
			}
		}
		return ops, nil
	}
	return nil, fmt.Errorf("product %q is not in the catalog", id)
}

func runCart(cfg *config.Config, action cartAction) cli.ActionFunc {
	return func(c *cli.Context) error {
		token := c.String("token")
		if token == "" {
			return errNoToken
		}

		client, err := newClient(c, credential.NewExpiryGuard(credential.StaticProvider(token), 0))
		if err != nil {
			return err
		}

		opts, cleanup, err := storeOptions(c, cfg, token)
		if err != nil {
			return err
		}
		defer cleanup()

		store := cart.New(client, opts...)
		defer store.Close()

		ctx := c.Context
		if err := store.Hydration().Wait(ctx); err != nil {
			snap := store.Snapshot()
			if action == nil && len(snap.Lines) > 0 {
				fmt.Fprintln(c.App.ErrWriter, "warning: cart service unavailable, showing last saved cart")
				printCart(c.App.Writer, snap)
				return nil
			}
			return fmt.Errorf("failed to load cart: %w", err)
		}

		var opErr error
		if action != nil {
			ops, err := action(c, client, store)
			if err != nil {
				return err
			}
			opErr = waitAll(ctx, ops)
		}

		printCart(c.App.Writer, store.Snapshot())
		return opErr
	}
}

func waitAll(ctx context.Context, ops []*cart.Operation) error {
	var errs []error
	for _, op := range ops {
		if err := op.Wait(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func storeOptions(c *cli.Context, cfg *config.Config, token string) ([]cart.Option, func(), error) {
	reconcile, err := cart.ParseReconcilePolicy(c.String("reconcile"))
	if err != nil {
		return nil, nil, err
	}
	failure, err := cart.ParseFailurePolicy(c.String("on-failure"))
	if err != nil {
		return nil, nil, err
	}

	opts := []cart.Option{
		cart.WithRequestTimeout(c.Duration("timeout")),
		cart.WithReconcilePolicy(reconcile),
		cart.WithFailurePolicy(failure),
	}
	cleanup := func() {}

	if cfg.Redis.Enabled {
		client, err := redispkg.Connect(c.Context, &cfg.Redis)
		if err != nil {
			logger.Warn("Cart snapshot cache unavailable", logger.Fields{
				"error": err.Error(),
			})
			return opts, cleanup, nil
		}
		opts = append(opts,
			cart.WithSnapshotCache(cart.NewRedisSnapshotCache(client, cfg.Cart.SnapshotTTL), snapshotKey(token)),
			cart.WithSnapshotFallback(cfg.Cart.SnapshotFallback),
		)
		cleanup = func() { _ = client.Close() }
	}

	return opts, cleanup, nil
}

// snapshotKey names the cached cart after the token's subject. The token is
// not verified here.
func snapshotKey(token string) string {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil || claims.Subject == "" {
		return "anonymous"
	}
	return "user:" + claims.Subject
}

func printCart(w io.Writer, snap cart.Snapshot) {
	if len(snap.Lines) == 0 {
		fmt.Fprintln(w, "Cart is empty")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tQTY\tPRICE\tSUBTOTAL")
	for _, l := range snap.Lines {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", l.ProductID, l.Name, l.Quantity, l.Price.StringFixed(2), l.Subtotal().StringFixed(2))
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "Total: %s (%s)\n", snap.Total.StringFixed(2), snap.Phase)
}

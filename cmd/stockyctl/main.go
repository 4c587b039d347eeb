// Command stockyctl prints inventory reports from the StockyPocky backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/stockypocky/stockyweb/internal/api"
	"github.com/stockypocky/stockyweb/internal/config"
	"github.com/stockypocky/stockyweb/internal/inventory"
	"github.com/stockypocky/stockyweb/internal/model"
	"github.com/stockypocky/stockyweb/internal/push"
)

type options struct {
	apiURL   string
	email    string
	password string
	timezone string
	timeout  time.Duration
	now      func() time.Time
}

func main() {
	config.LoadDotEnv()
	if err := newRootCmd(os.Getenv, time.Now).Execute(); err != nil {
		os.Exit(1)
	}
}

func envOr(getenv func(string) string, key, fallback string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return fallback
}

func newRootCmd(getenv func(string) string, now func() time.Time) *cobra.Command {
	opts := &options{now: now}

	root := &cobra.Command{
		Use:          "stockyctl",
		Short:        "Inventory reports for StockyPocky",
		SilenceUsage: true,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.apiURL, "api-url", envOr(getenv, "STOCKY_API_URL", "http://localhost:8000"), "backend base URL")
	flags.StringVar(&opts.email, "email", getenv("STOCKY_EMAIL"), "login email")
	flags.StringVar(&opts.password, "password", getenv("STOCKY_PASSWORD"), "login password")
	flags.StringVar(&opts.timezone, "timezone", envOr(getenv, "STOCKY_TIMEZONE", "Asia/Tokyo"), "IANA time zone for dates")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "overall request timeout")

	root.AddCommand(newLowStockCmd(opts), newRecordsCmd(opts), newVAPIDKeysCmd())
	return root
}

// login returns a client authenticated as the configured user.
func (o *options) login(ctx context.Context) (*api.Client, error) {
	if o.email == "" || o.password == "" {
		return nil, errors.New("--email and --password (or STOCKY_EMAIL / STOCKY_PASSWORD) are required")
	}
	client := api.NewClient(api.Config{BaseURL: o.apiURL})
	res, err := client.Login(ctx, o.email, o.password)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return client.WithToken(res.Token), nil
}

func newLowStockCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "low-stock",
		Short: "List items at or below their threshold",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			client, err := opts.login(ctx)
			if err != nil {
				return err
			}
			items, err := push.FetchLowStock(ctx, client)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "在庫が少ないアイテムはありません。")
				return nil
			}
			for _, item := range items {
				fmt.Fprintf(out, "%s\t%s\t%d/%d\t%s\n", item.Name, item.CategoryName, item.StockQuantity, item.Threshold, item.Location)
			}
			return nil
		},
	}
}

func newRecordsCmd(opts *options) *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Show purchase records grouped by week or month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if mode != "week" && mode != "month" {
				return fmt.Errorf("--mode must be week or month, got %q", mode)
			}
			loc, err := time.LoadLocation(opts.timezone)
			if err != nil {
				return fmt.Errorf("load timezone: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			client, err := opts.login(ctx)
			if err != nil {
				return err
			}
			items, err := client.ListItems(ctx)
			if err != nil {
				return err
			}
			records, err := client.ListShoppingRecords(ctx)
			if err != nil {
				return err
			}

			rows := inventory.JoinShoppingRecords(items, records)
			at := func(r model.ShoppingRecordDisplay) time.Time { return r.BoughtAt.Time.In(loc) }
			rows = inventory.Recent(rows, at, -1)
			now := opts.now().In(loc)

			out := cmd.OutOrStdout()
			if mode == "week" {
				b := inventory.PartitionByWeek(rows, at, now)
				printRecords(out, "今週", b.ThisWeek, loc)
				printRecords(out, "先週", b.LastWeek, loc)
				printRecords(out, "それ以前", b.Older, loc)
				return nil
			}
			b := inventory.PartitionByMonth(rows, at, now)
			printRecords(out, "今月", b.ThisMonth, loc)
			printRecords(out, "先月", b.LastMonth, loc)
			printRecords(out, "それ以前", b.Older, loc)
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "week", "grouping: week or month")
	return cmd
}

func printRecords(out io.Writer, title string, rows []model.ShoppingRecordDisplay, loc *time.Location) {
	fmt.Fprintf(out, "## %s (%d)\n", title, len(rows))
	for _, r := range rows {
		fmt.Fprintf(out, "%s\t%s\t%d\t¥%s\t%s\n", inventory.FormatTime(r.BoughtAt.Time, loc), r.Name, r.Quantity, r.Price.StringFixed(0), r.Store)
	}
}

func newVAPIDKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vapid-keys",
		Short: "Generate a VAPID key pair for STOCKY_VAPID_PUBLIC_KEY / STOCKY_VAPID_PRIVATE_KEY",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, priv, err := push.GenerateVAPIDKeys()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "STOCKY_VAPID_PUBLIC_KEY=%s\nSTOCKY_VAPID_PRIVATE_KEY=%s\n", pub, priv)
			return nil
		},
	}
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"

	"github.com/pumpcam/pumpcam/service/ledger"
)

func getUserCommand() *cli.Command {
	return &cli.Command{
		Name:      "get-user",
		Usage:     "Get a wallet's referral ledger record",
		Aliases:   []string{"get"},
		ArgsUsage: "<address>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: wallet address")
			}

			address := c.Args().First()
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			user, err := store.GetUser(context.Background(), address)
			if err != nil {
				return fmt.Errorf("failed to get user: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(user)
			}

			fmt.Printf("Wallet:         %s\n", user.WalletAddress)
			fmt.Printf("Referred by:    %s\n", formatOptionalAddress(user.ReferredBy))
			fmt.Printf("Total earnings: %d lamports\n", user.TotalEarnings)
			fmt.Printf("Has pumped:     %t\n", user.HasPumped)
			fmt.Printf("Created:        %s\n", user.CreatedAt.Format(time.RFC3339))
			fmt.Printf("Updated:        %s\n", user.UpdatedAt.Format(time.RFC3339))

			return nil
		},
	}
}

func listReferralsCommand() *cli.Command {
	return &cli.Command{
		Name:      "referrals",
		Usage:     "List a referrer's earnings breakdown",
		Aliases:   []string{"ls"},
		ArgsUsage: "<address>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: referrer address")
			}

			address := c.Args().First()
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			entries, err := store.ReferralData(context.Background(), address)
			if err != nil {
				return fmt.Errorf("failed to list referrals: %w", err)
			}

			if c.Bool("json") {
				return outputJSON(entries)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PEER WALLET\tLAMPORTS\tLAST UPDATED")
			var total int64
			for _, entry := range entries {
				fmt.Fprintf(w, "%s\t%d\t%s\n",
					entry.PeerWallet,
					entry.Amount,
					entry.LastUpdated.Format(time.RFC3339),
				)
				total += entry.Amount
			}
			w.Flush()

			fmt.Fprintf(os.Stderr, "\nTotal: %d lamports across %d referrals\n", total, len(entries))
			return nil
		},
	}
}

func getStore(c *cli.Context) (*ledger.Store, func(), error) {
	dbURL := c.String("database-url")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		return nil, nil, fmt.Errorf("database-url is required (set DATABASE_URL env var or use --database-url)")
	}

	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	store := ledger.NewStore(pool, nil, logger)
	closer := func() { pool.Close() }

	return store, closer, nil
}

// Helper function to output JSON
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Helper function to format optional address
func formatOptionalAddress(addr *string) string {
	if addr != nil && *addr != "" {
		return *addr
	}
	return "(none)"
}

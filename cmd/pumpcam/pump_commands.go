package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"

	"github.com/pumpcam/pumpcam/service/config"
	"github.com/pumpcam/pumpcam/service/events"
	"github.com/pumpcam/pumpcam/service/ledger"
	"github.com/pumpcam/pumpcam/service/price"
	"github.com/pumpcam/pumpcam/service/pump"
	"github.com/pumpcam/pumpcam/service/session"
	"github.com/pumpcam/pumpcam/service/solana"
	"github.com/pumpcam/pumpcam/service/wallet"
)

func pumpCommand() *cli.Command {
	return &cli.Command{
		Name:  "pump",
		Usage: "Execute a pump payment from a local keypair",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "keypair",
				Aliases:  []string{"k"},
				Usage:    "Path to a solana-keygen JSON keypair file",
				EnvVars:  []string{"PUMPCAM_KEYPAIR"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "ref",
				Usage:   "Referrer wallet address from a sharing link",
				EnvVars: []string{"PUMPCAM_REF"},
			},
		},
		Action: func(c *cli.Context) error {
			// The pump needs the full service configuration: recipient
			// wallet, amounts, RPC and oracle endpoints.
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelWarn,
			}))

			kw, err := wallet.LoadKeypairWallet(c.String("keypair"))
			if err != nil {
				return fmt.Errorf("failed to load keypair: %w", err)
			}

			pool, err := pgxpool.New(c.Context, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer pool.Close()
			store := ledger.NewStore(pool, nil, logger)
			if err := store.EnsureSchema(c.Context); err != nil {
				return fmt.Errorf("failed to ensure schema: %w", err)
			}

			var publisher events.Publisher
			if cfg.NATSURL != "" {
				js, err := events.NewPublisher(cfg.NATSURL, nil, logger)
				if err != nil {
					return fmt.Errorf("failed to connect to NATS: %w", err)
				}
				defer js.Close()
				publisher = js
			}

			oracle := price.NewClient(cfg.PriceURL, cfg.PriceTimeout, nil, logger)
			gateway := solana.NewGateway(solana.NewRPCClient(cfg.SolanaRPCURL), cfg.ConfirmPollEvery, nil, logger)

			orch, err := pump.NewOrchestrator(
				cfg,
				oracle,
				gateway,
				wallet.FixedProbe(kw),
				store,
				publisher,
				session.New(),
				nil,
				logger,
			)
			if err != nil {
				return fmt.Errorf("failed to build orchestrator: %w", err)
			}

			req := pump.Request{}
			if ref := c.String("ref"); ref != "" {
				req.ReferralCode = &ref
			}

			summary, err := orch.Pump(c.Context, req)
			if err != nil {
				var pe *pump.Error
				if errors.As(err, &pe) && pe.Kind == pump.KindLedgerWrite && summary != nil {
					// Transfer went through; only the bookkeeping failed.
					fmt.Fprintf(os.Stderr, "warning: transfer confirmed but ledger update failed: %v\n", err)
				} else {
					return err
				}
			}

			if c.Bool("json") {
				return outputJSON(summary)
			}

			fmt.Printf("Payer:       %s\n", summary.Payer)
			fmt.Printf("Recipient:   %s (%d lamports)\n", summary.Recipient, summary.RecipientLamports)
			if summary.Referrer != nil {
				fmt.Printf("Referrer:    %s (%d lamports)\n", *summary.Referrer, summary.ReferrerLamports)
			}
			fmt.Printf("SOL price:   $%.2f\n", summary.SOLPriceUSD)
			fmt.Printf("Amount:      $%.2f (%d lamports)\n", summary.AmountUSD, summary.GrossLamports)
			fmt.Printf("Signature:   %s\n", summary.Signature)
			return nil
		},
	}
}

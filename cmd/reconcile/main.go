// Command reconcile repairs approved rental payments whose organizer income
// was never recorded. It is meant to run from cron next to the API.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tabung/internal/config"
	"tabung/internal/database"
	"tabung/internal/logger"
	"tabung/internal/pagination"
	"tabung/internal/services"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	limit       int
	dryRun      bool
	organizerID string
}

func newRootCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Create missing ledger entries for approved rental payments",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			logger.Init(cfg.Env, cfg.LogLevel)
			defer logger.Sync()

			if !cmd.Flags().Changed("limit") {
				opts.limit = cfg.ReconcileBatchSize
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, opts)
		},
	}

	cmd.Flags().IntVar(&opts.limit, "limit", 100, "maximum number of payments to repair")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "list unreconciled payments without repairing them")
	cmd.Flags().StringVar(&opts.organizerID, "organizer", "", "with --dry-run, only list payments of this organizer")

	return cmd
}

func run(ctx context.Context, cfg *config.Config, opts options) error {
	log := logger.Get()

	dbManager, err := database.NewManager(database.NewConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnw("failed to close database", "error", err)
		}
	}()

	db := dbManager.DB()
	svc := services.NewReconciliationService(db, services.NewOrganizerResolver(db), services.NewAuditService(db))
	return reconcile(ctx, svc, opts, os.Stdout)
}

// reconcile runs one pass of svc. The service logs the run summary; failed
// payments are also written to out so cron mail carries them.
func reconcile(ctx context.Context, svc services.ReconciliationServicer, opts options, out io.Writer) error {
	if opts.dryRun {
		page, err := svc.FindUnreconciled(opts.organizerID, pagination.PageRequest{Page: 1, PageSize: opts.limit})
		if err != nil {
			return err
		}
		for _, p := range page.Data {
			fmt.Fprintf(out, "%s\ttenant=%s\tamount=%s\tapproved_at=%v\n", p.ID, p.TenantID, p.Amount.StringFixed(2), p.ApprovedAt)
		}
		logger.Get().Infow("dry run", "unreconciled", page.TotalItems, "listed", len(page.Data))
		return nil
	}

	result, err := svc.Reconcile(ctx, opts.limit)
	if err != nil {
		return err
	}
	for _, f := range result.Failed {
		fmt.Fprintf(out, "%s\t%s\t%s\n", f.PaymentID, f.Code, f.Message)
	}
	if len(result.Failed) > 0 {
		return fmt.Errorf("%d payment(s) could not be repaired", len(result.Failed))
	}
	return nil
}

// Command import backfills historical CallRail calls from the command line.
// Useful for the initial load after connecting an account, without going
// through the admin HTTP endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/oakline/callbridge/internal/callrail"
	appconfig "github.com/oakline/callbridge/internal/config"
	"github.com/oakline/callbridge/internal/crm"
	"github.com/oakline/callbridge/internal/importer"
	"github.com/oakline/callbridge/internal/interactions"
	"github.com/oakline/callbridge/internal/matching"
	"github.com/oakline/callbridge/internal/pipeline"
	"github.com/oakline/callbridge/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	days := flag.Int("days", cfg.ImportLookbackDays, "how many days of history to import")
	flag.Parse()

	logger := logging.New(cfg.LogLevel)

	if cfg.DatabaseURL == "" || cfg.CallRailAPIKey == "" || cfg.CallRailAccountID == "" {
		logger.Error("DATABASE_URL, CALLRAIL_API_KEY and CALLRAIL_ACCOUNT_ID are required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	repo := crm.NewPostgresRepository(pool)
	recorder := interactions.NewRecorder(interactions.NewStore(pool), logger).
		WithMaxAttempts(cfg.RecorderMaxAttempts).
		WithBaseDelay(cfg.RecorderBaseDelay)

	processor, err := pipeline.NewProcessor(pipeline.Config{
		OrgID:    cfg.OrgID,
		Matcher:  matching.New(repo),
		Leads:    repo,
		Recorder: recorder,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	client, err := callrail.New(callrail.Config{
		APIKey:     cfg.CallRailAPIKey,
		AccountID:  cfg.CallRailAccountID,
		BaseURL:    cfg.CallRailBaseURL,
		MaxRetries: cfg.CallRailMaxRetries,
		Backoff:    cfg.CallRailRetryBackoff,
		Logger:     logger.Logger,
	})
	if err != nil {
		logger.Error("failed to build callrail client", "error", err)
		os.Exit(1)
	}

	imp, err := importer.New(importer.Config{
		Client:       client,
		Processor:    processor,
		Runs:         importer.NewPostgresRunStore(pool),
		Logger:       logger,
		OrgID:        cfg.OrgID,
		PageSize:     cfg.ImportPageSize,
		PageDelay:    cfg.ImportPageDelay,
		MaxPages:     cfg.ImportMaxPages,
		SkipDispatch: true,
	})
	if err != nil {
		logger.Error("failed to build importer", "error", err)
		os.Exit(1)
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -*days)
	logger.Info("importing call history",
		"window_start", start.Format("2006-01-02"),
		"window_end", end.Format("2006-01-02"),
	)

	summary, err := imp.Run(ctx, start, end)
	if err != nil {
		logger.Error("import failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("imported=%d updated=%d skipped=%d failed=%d pages=%d leads_created=%d\n",
		summary.Imported, summary.Updated, summary.Skipped, summary.Failed,
		summary.Pages, summary.LeadsNew)
}

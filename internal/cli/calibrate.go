package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/credence-core/credence/internal/config"
	"github.com/credence-core/credence/internal/llm"
	"github.com/credence-core/credence/internal/service"
	"github.com/credence-core/credence/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	calibratePerson  string
	calibrateAsOf    string
	calibrateNarrate bool
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Run a one-shot calibration audit for a person",
	RunE:  runCalibrate,
}

func init() {
	calibrateCmd.Flags().StringVar(&calibratePerson, "person", "", "person to audit (required)")
	calibrateCmd.Flags().StringVar(&calibrateAsOf, "as-of", "", "audit as of this RFC 3339 time (default now)")
	calibrateCmd.Flags().BoolVar(&calibrateNarrate, "narrate", false, "summarize the report with the configured LLM provider")
	_ = calibrateCmd.MarkFlagRequired("person")
}

const narrateSystemPrompt = "You are a learning coach. Given a JSON calibration report " +
	"comparing a person's confidence against their verification evidence, write a short, " +
	"plain-language summary of how well calibrated they are and what to do next."

func runCalibrate(cmd *cobra.Command, args []string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := config.Load(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	dbURL := config.DatabaseURL()
	if dbURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	asOf := time.Now().UTC()
	if calibrateAsOf != "" {
		asOf, err = time.Parse(time.RFC3339, calibrateAsOf)
		if err != nil {
			return fmt.Errorf("parse --as-of: %w", err)
		}
		asOf = asOf.UTC()
	}

	ctx := cmd.Context()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	st := store.New(pool)
	projector := service.NewProjector(st, logger)
	trustSvc := service.NewTrustService(st, projector, logger)
	calibrationSvc := service.NewCalibrationService(st, trustSvc, logger)

	report, err := calibrationSvc.Calibrate(ctx, calibratePerson, asOf)
	if err != nil {
		return fmt.Errorf("calibrate: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}

	if calibrateNarrate {
		provider, err := llm.NewProvider(config.LLMProvider(), config.LLMAPIKey(), config.LLMModel())
		if err != nil {
			return fmt.Errorf("create llm provider: %w", err)
		}
		raw, err := json.Marshal(report)
		if err != nil {
			return err
		}
		summary, err := provider.Complete(ctx, narrateSystemPrompt, []llm.Message{
			{Role: "user", Content: string(raw)},
		})
		if err != nil {
			return fmt.Errorf("narrate report: %w", err)
		}
		fmt.Println(summary)
	}

	return nil
}

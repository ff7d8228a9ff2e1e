package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/recommendation-metrics/internal/adapters/cache"
	"github.com/zatekoja/recommendation-metrics/internal/adapters/database"
	"github.com/zatekoja/recommendation-metrics/internal/evaluation"
	"github.com/zatekoja/recommendation-metrics/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/recommendation-metrics/internal/infrastructure/clients/redis"
	"github.com/zatekoja/recommendation-metrics/internal/infrastructure/observability"
	"github.com/zatekoja/recommendation-metrics/pkg/config"
)

var (
	name    = "evaluate"
	version = "1.0.0"
)

type args struct {
	Cutoff       int    `help:"Number of top-ranked predictions to score" arg:"-k"`
	Workers      int    `help:"Goroutines used for batch scoring" arg:"-w"`
	Lenient      bool   `help:"Drop cases that have no prediction list instead of failing"`
	MinRelevance int64  `help:"Minimum qrels grade considered relevant" arg:"-l"`
	Dataset      string `help:"Path to a JSON dataset of cases" arg:"-d"`
	Qrels        string `help:"Path to a TREC qrels file" arg:"-q"`
	Run          string `help:"Path to a TREC run file" arg:"-r"`
	Store        bool   `help:"Read ground truth from Postgres and predictions from Redis" arg:"-s"`
	Cases        bool   `help:"Include per-case scores in the report" arg:"-c"`
}

func (args) Version() string {
	return fmt.Sprintf("%s %s", name, version)
}

func (args) Description() string {
	return "Computes precision@k, recall@k, MAP@k and their batch means for recommendation lists."
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	observability.InitLogger(name, cfg.App.Env)

	a := args{
		Cutoff:       cfg.Evaluation.K,
		Workers:      cfg.Evaluation.Workers,
		Lenient:      !cfg.Evaluation.StrictBatch,
		MinRelevance: cfg.Evaluation.MinRelevance,
	}
	p := arg.MustParse(&a)
	if err := validateArgs(a); err != nil {
		p.Fail(err.Error())
	}

	if err := run(context.Background(), cfg, a); err != nil {
		log.Fatal().Err(err).Msg("evaluation failed")
	}
}

// validateArgs rejects flag values and combinations the parser cannot.
func validateArgs(a args) error {
	if a.Cutoff <= 0 {
		return fmt.Errorf("--cutoff must be a positive integer, got %d", a.Cutoff)
	}
	if a.Workers <= 0 {
		return fmt.Errorf("--workers must be a positive integer, got %d", a.Workers)
	}
	if (a.Qrels == "") != (a.Run == "") {
		return errors.New("--qrels and --run must be given together")
	}

	selected := 0
	for _, set := range []bool{a.Dataset != "", a.Run != "", a.Store} {
		if set {
			selected++
		}
	}
	if selected != 1 {
		return errors.New("exactly one of --dataset, --qrels/--run or --store is required")
	}
	return nil
}

// run returns instead of exiting so deferred store and telemetry shutdown
// always happen.
func run(ctx context.Context, cfg *config.Config, a args) error {
	if cfg.OTEL.Enabled {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			return fmt.Errorf("failed to set up OpenTelemetry: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("failed to flush telemetry")
			}
		}()
	}

	m, err := observability.InitMetrics()
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	source, closeSource, err := buildSource(ctx, cfg, a)
	if err != nil {
		return err
	}
	defer closeSource()

	runner := evaluation.NewRunner(source, evaluation.Options{
		K:           a.Cutoff,
		StrictBatch: !a.Lenient,
		Workers:     a.Workers,
	}, m)

	report, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	if !a.Cases {
		report.Cases = nil
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(out))
	return nil
}

// buildSource picks the case source from flags already checked by validateArgs.
// The returned close func releases any store connections.
func buildSource(ctx context.Context, cfg *config.Config, a args) (evaluation.Source, func(), error) {
	noop := func() {}

	switch {
	case a.Dataset != "":
		return evaluation.FileSource{Path: a.Dataset}, noop, nil

	case a.Run != "":
		return evaluation.TRECSource{QrelsPath: a.Qrels, RunPath: a.Run, MinRelevance: a.MinRelevance}, noop, nil

	case a.Store:
		pg, err := postgres.NewClient(ctx, &cfg.Database)
		if err != nil {
			return nil, noop, err
		}
		rc, err := redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			pg.Close()
			return nil, noop, err
		}

		closeAll := func() {
			pg.Close()
			rc.Close()
		}

		return evaluation.CombinedSource{
			GroundTruth: database.NewInteractionsAdapter(pg, cfg.Database.InteractionsTable, a.MinRelevance),
			Predictions: cache.NewPredictionsAdapter(rc, cfg.Redis.KeyPrefix),
			Limit:       a.Cutoff,
		}, closeAll, nil
	}

	return nil, noop, errors.New("no case source selected")
}

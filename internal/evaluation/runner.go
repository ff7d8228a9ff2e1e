package evaluation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/recommendation-metrics/internal/infrastructure/observability"
	"github.com/zatekoja/recommendation-metrics/internal/metrics"
	apperrors "github.com/zatekoja/recommendation-metrics/pkg/errors"
)

// Runner runs evaluation over the cases produced by a Source.
type Runner struct {
	source  Source
	opts    Options
	metrics *observability.Metrics
}

// NewRunner creates a runner. A non-positive Workers falls back to sequential
// scoring. m may be nil.
func NewRunner(source Source, opts Options, m *observability.Metrics) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Runner{source: source, opts: opts, metrics: m}
}

// Run loads the cases from the source and scores them at the configured cutoff.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	ctx, span := observability.StartSpan(ctx, "evaluation.Run")
	defer span.End()

	if r.opts.K <= 0 {
		err := apperrors.NewInvalidCutoffError(r.opts.K)
		observability.RecordError(span, err)
		return nil, err
	}

	start := time.Now()
	report := &Report{
		RunID:  uuid.New().String(),
		Source: r.source.Name(),
		K:      r.opts.K,
	}
	logger := observability.LoggerFromContext(ctx).With().
		Str("run_id", report.RunID).
		Str("source", report.Source).
		Int("k", report.K).
		Logger()

	cases, err := r.load(ctx)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	report.TotalCases = len(cases)

	cases, err = r.match(cases, report)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	observability.SetSpanAttributes(span,
		attribute.String("evaluation.run_id", report.RunID),
		attribute.Int("evaluation.cases", len(cases)),
	)
	logger.Info().Int("cases", len(cases)).Msg("evaluation started")

	if err := r.score(cases, report); err != nil {
		observability.RecordError(span, err)
		logger.Error().Err(err).Msg("evaluation failed")
		return nil, err
	}

	for _, id := range report.Unmatched {
		logger.Warn().Str("case_id", id).Msg("case has no prediction list; dropped")
	}
	for _, id := range report.Skipped {
		logger.Warn().Str("case_id", id).Msg("case has no ground truth; excluded from recall")
	}

	report.Duration = time.Since(start)
	observability.RecordRunMetric(ctx, r.metrics, report.Source, report.K, report.TotalCases, len(report.Skipped), report.Duration)

	ev := logger.Info().
		Float64("map_at_k", report.MAPK).
		Float64("global_precision", report.GlobalPrecision).
		Dur("duration", report.Duration)
	if report.GlobalRecall != nil {
		ev = ev.Float64("global_recall", *report.GlobalRecall)
	}
	ev.Msg("evaluation finished")

	return report, nil
}

func (r *Runner) load(ctx context.Context) ([]Case, error) {
	ctx, span := observability.StartSpan(ctx, "evaluation.LoadCases")
	defer span.End()

	start := time.Now()
	cases, err := r.source.Load(ctx)
	observability.RecordSourceMetric(ctx, r.metrics, r.source.Name(), time.Since(start))
	if err != nil {
		observability.RecordError(span, err)
		return nil, fmt.Errorf("failed to load cases from %s: %w", r.source.Name(), err)
	}
	if len(cases) == 0 {
		return nil, apperrors.NewEmptyBatchError(fmt.Sprintf("source %s produced no cases", r.source.Name()))
	}
	return cases, nil
}

// match pairs ground truth with prediction lists. A case whose Predicted is nil
// has no stored list, so the two batches differ in length: strict runs fail,
// lenient runs drop the case and list it in report.Unmatched.
func (r *Runner) match(cases []Case, report *Report) ([]Case, error) {
	matched := make([]Case, 0, len(cases))
	for _, c := range cases {
		if c.Predicted == nil {
			report.Unmatched = append(report.Unmatched, c.ID)
			continue
		}
		matched = append(matched, c)
	}
	if len(report.Unmatched) == 0 {
		return cases, nil
	}

	if r.opts.StrictBatch {
		err := apperrors.NewMismatchedBatchLengthError(len(cases), len(matched))
		return nil, fmt.Errorf("cases without predictions %v: %w", report.Unmatched, err)
	}
	if len(matched) == 0 {
		return nil, apperrors.NewEmptyBatchError("no case has a prediction list")
	}
	return matched, nil
}

// score fills the per-case results and the batch means. Recall is undefined for
// cases without ground truth, so those are reported per case as nil and left
// out of the global recall batch.
func (r *Runner) score(cases []Case, report *Report) error {
	k := r.opts.K
	batchOpts := []metrics.BatchOption{metrics.WithWorkers(r.opts.Workers)}

	actual := make([][]string, len(cases))
	predicted := make([][]string, len(cases))
	var recallActual, recallPredicted [][]string

	report.Cases = make([]CaseResult, len(cases))
	for i, c := range cases {
		actual[i], predicted[i] = c.Actual, c.Predicted

		p, err := metrics.Precision(c.Actual, c.Predicted, k)
		if err != nil {
			return fmt.Errorf("case %s: %w", c.ID, err)
		}
		ap, err := metrics.APK(c.Actual, c.Predicted, k)
		if err != nil {
			return fmt.Errorf("case %s: %w", c.ID, err)
		}
		res := CaseResult{
			ID:            c.ID,
			Precision:     p,
			APK:           ap,
			ActualCount:   len(c.Actual),
			PredictedSize: len(c.Predicted),
		}

		rec, err := metrics.Recall(c.Actual, c.Predicted, k)
		switch {
		case err == nil:
			res.Recall = &rec
			recallActual = append(recallActual, c.Actual)
			recallPredicted = append(recallPredicted, c.Predicted)
		case apperrors.IsType(err, apperrors.ErrorTypeEmptyGroundTruth):
			report.Skipped = append(report.Skipped, c.ID)
		default:
			return fmt.Errorf("case %s: %w", c.ID, err)
		}
		report.Cases[i] = res
	}

	var err error
	if report.MAPK, err = metrics.MAPK(actual, predicted, k, batchOpts...); err != nil {
		return err
	}
	if report.GlobalPrecision, err = metrics.GlobalPrecision(actual, predicted, k, batchOpts...); err != nil {
		return err
	}

	report.RecallCases = len(recallActual)
	if report.RecallCases > 0 {
		gr, err := metrics.GlobalRecall(recallActual, recallPredicted, k, batchOpts...)
		if err != nil {
			return err
		}
		report.GlobalRecall = &gr
	}

	return nil
}

package evaluation

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	apperrors "github.com/zatekoja/recommendation-metrics/pkg/errors"
)

// Source produces the cases of one evaluation run.
type Source interface {
	Load(ctx context.Context) ([]Case, error)
	Name() string
}

// GroundTruthProvider returns the relevant items per case id.
type GroundTruthProvider interface {
	GroundTruth(ctx context.Context) (map[string][]string, error)
}

// PredictionProvider returns the ranked recommendations for the given case ids,
// truncated to at most limit items each. Ids without predictions may be omitted.
type PredictionProvider interface {
	Predictions(ctx context.Context, ids []string, limit int) (map[string][]string, error)
}

// FileSource reads cases from a JSON dataset file.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string {
	return "file:" + s.Path
}

func (s FileSource) Load(_ context.Context) ([]Case, error) {
	cases, err := LoadDataset(s.Path)
	if err != nil {
		return nil, notFound(s.Path, err)
	}
	if err := ValidateDataset(cases); err != nil {
		return nil, fmt.Errorf("invalid dataset %s: %w", s.Path, err)
	}
	return cases, nil
}

// TRECSource reads cases from a qrels file and a run file.
type TRECSource struct {
	QrelsPath    string
	RunPath      string
	MinRelevance int64
}

func (s TRECSource) Name() string {
	return "trec:" + s.RunPath
}

func (s TRECSource) Load(_ context.Context) ([]Case, error) {
	qrels, err := os.Open(s.QrelsPath)
	if err != nil {
		return nil, notFound(s.QrelsPath, fmt.Errorf("failed to open qrels file: %w", err))
	}
	defer qrels.Close()

	run, err := os.Open(s.RunPath)
	if err != nil {
		return nil, notFound(s.RunPath, fmt.Errorf("failed to open run file: %w", err))
	}
	defer run.Close()

	return LoadTREC(qrels, run, s.MinRelevance)
}

// notFound turns a missing input file into a NOT_FOUND error.
func notFound(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return apperrors.NewNotFoundError(fmt.Sprintf("input file %s does not exist", path))
	}
	return err
}

// CombinedSource joins stored ground truth with served predictions. Every case
// id with ground truth becomes a case; ids with no stored list keep a nil
// Predicted so the runner can apply its batch policy.
type CombinedSource struct {
	GroundTruth GroundTruthProvider
	Predictions PredictionProvider
	Limit       int
}

func (s CombinedSource) Name() string {
	return "store"
}

func (s CombinedSource) Load(ctx context.Context) ([]Case, error) {
	truth, err := s.GroundTruth.GroundTruth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ground truth: %w", err)
	}

	ids := make([]string, 0, len(truth))
	for id := range truth {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	preds, err := s.Predictions.Predictions(ctx, ids, s.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load predictions: %w", err)
	}

	cases := make([]Case, 0, len(ids))
	for _, id := range ids {
		cases = append(cases, Case{ID: id, Actual: truth[id], Predicted: preds[id]})
	}
	return cases, nil
}

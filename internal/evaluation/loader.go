package evaluation

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/hscells/trecresults"
)

// LoadDataset reads and parses a JSON array of cases from a file.
func LoadDataset(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset file: %w", err)
	}

	var cases []Case
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}

	return cases, nil
}

// ValidateDataset checks that every case has a unique, non-empty id.
// Empty ground truth is allowed: average precision defines it as zero.
func ValidateDataset(cases []Case) error {
	seen := make(map[string]struct{}, len(cases))

	for i, c := range cases {
		if c.ID == "" {
			return fmt.Errorf("case at index %d: missing id", i)
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("case at index %d: duplicate id %q", i, c.ID)
		}
		seen[c.ID] = struct{}{}
	}

	return nil
}

// LoadTREC builds cases from a TREC qrels file and a TREC run file. Each topic
// is a case: judged documents with a grade of at least minRelevance form the
// ground truth, and run documents ordered by rank form the prediction.
// Topics judged but absent from the run get an empty prediction; topics in the
// run without judgements get an empty ground truth.
func LoadTREC(qrels, run io.Reader, minRelevance int64) ([]Case, error) {
	qf, err := trecresults.QrelsFromReader(qrels)
	if err != nil {
		return nil, fmt.Errorf("failed to parse qrels: %w", err)
	}
	rf, err := trecresults.ResultsFromReader(run)
	if err != nil {
		return nil, fmt.Errorf("failed to parse run: %w", err)
	}

	topics := make(map[string]struct{}, len(qf.Qrels)+len(rf.Results))
	for topic := range qf.Qrels {
		topics[topic] = struct{}{}
	}
	for topic := range rf.Results {
		topics[topic] = struct{}{}
	}

	cases := make([]Case, 0, len(topics))
	for topic := range topics {
		c := Case{ID: topic, Actual: []string{}, Predicted: []string{}}

		for docID, q := range qf.Qrels[topic] {
			if q.Score >= minRelevance {
				c.Actual = append(c.Actual, docID)
			}
		}
		sort.Strings(c.Actual)

		results := make(trecresults.ResultList, len(rf.Results[topic]))
		copy(results, rf.Results[topic])
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Rank < results[j].Rank
		})
		for _, r := range results {
			c.Predicted = append(c.Predicted, r.DocId)
		}

		cases = append(cases, c)
	}

	sort.Slice(cases, func(i, j int) bool {
		return cases[i].ID < cases[j].ID
	})
	return cases, nil
}

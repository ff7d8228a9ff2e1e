package evaluation

import "time"

// Case is one evaluation instance: the items a user actually engaged with and the
// ranked list the recommender produced for them. A nil Predicted means no list
// was produced at all, which is distinct from an empty one.
type Case struct {
	ID        string   `json:"id"`
	Actual    []string `json:"actual"`
	Predicted []string `json:"predicted"`
}

// Options controls how a Runner scores a set of cases. StrictBatch rejects a
// run in which some case has no prediction list; otherwise those cases are
// dropped before scoring.
type Options struct {
	K           int
	StrictBatch bool
	Workers     int
}

// CaseResult holds the evaluation outcome for a single case.
type CaseResult struct {
	ID            string   `json:"id"`
	Precision     float64  `json:"precision"`
	Recall        *float64 `json:"recall"` // nil when the case has no ground truth
	APK           float64  `json:"apk"`
	ActualCount   int      `json:"actual_count"`
	PredictedSize int      `json:"predicted_count"`
}

// Report holds aggregate metrics across all cases of a run.
type Report struct {
	RunID           string        `json:"run_id"`
	Source          string        `json:"source"`
	K               int           `json:"k"`
	TotalCases      int           `json:"total_cases"`
	RecallCases     int           `json:"recall_cases"`
	MAPK            float64       `json:"map_at_k"`
	GlobalPrecision float64       `json:"global_precision"`
	GlobalRecall    *float64      `json:"global_recall"`
	Skipped         []string      `json:"skipped,omitempty"`   // cases excluded from recall
	Unmatched       []string      `json:"unmatched,omitempty"` // cases dropped for lack of predictions
	Cases           []CaseResult  `json:"cases,omitempty"`
	Duration        time.Duration `json:"duration_ns"`
}

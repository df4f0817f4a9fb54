package coverage

import (
	"encoding/json"
	"time"

	"github.com/unbound-force/apicov/internal/model"
)

// GenerationStatistics holds run counters.
type GenerationStatistics struct {
	// ResultFileCount is the number of capture sources processed
	// successfully.
	ResultFileCount int64 `json:"resultFileCount"`

	// FailedFileCount is the number of capture sources skipped
	// because they could not be read or parsed.
	FailedFileCount int64 `json:"failedFileCount"`

	// GenerationTime is the wall-clock duration of the run.
	GenerationTime time.Duration `json:"-"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"-"`
}

// MarshalJSON encodes GenerationTime as milliseconds under
// "generationTime".
func (s GenerationStatistics) MarshalJSON() ([]byte, error) {
	type Alias GenerationStatistics
	started := ""
	if !s.StartedAt.IsZero() {
		started = s.StartedAt.UTC().Format(time.RFC3339)
	}
	return json.Marshal(&struct {
		Alias
		GenerationTime int64  `json:"generationTime"`
		StartedAt      string `json:"startedAt,omitempty"`
	}{
		Alias:          Alias(s),
		GenerationTime: s.GenerationTime.Milliseconds(),
		StartedAt:      started,
	})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (s *GenerationStatistics) UnmarshalJSON(data []byte) error {
	type Alias GenerationStatistics
	aux := struct {
		*Alias
		GenerationTime int64  `json:"generationTime"`
		StartedAt      string `json:"startedAt,omitempty"`
	}{Alias: (*Alias)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.GenerationTime = time.Duration(aux.GenerationTime) * time.Millisecond
	if aux.StartedAt != "" {
		t, err := time.Parse(time.RFC3339, aux.StartedAt)
		if err != nil {
			return err
		}
		s.StartedAt = t
	}
	return nil
}

// Results is the immutable outcome of one run, handed to writers.
type Results struct {
	RunID      string
	Info       model.Info
	Operations []OperationResult
	Missed     map[model.OperationKey]model.Operation
	Statistics GenerationStatistics

	// Errors lists recoverable per-source failures, in discovery
	// order.
	Errors []string
}

// MissedKeys returns the missed operation keys in order.
func (r *Results) MissedKeys() []model.OperationKey {
	keys := make([]model.OperationKey, 0, len(r.Missed))
	for k := range r.Missed {
		keys = append(keys, k)
	}
	model.SortKeys(keys)
	return keys
}

// Summary aggregates a Results.
type Summary struct {
	Operations         int     `json:"operations"`
	FullyCovered       int     `json:"fullyCovered"`
	PartiallyCovered   int     `json:"partiallyCovered"`
	Uncovered          int     `json:"uncovered"`
	Conditions         int     `json:"conditions"`
	CoveredConditions  int     `json:"coveredConditions"`
	Percentage         float64 `json:"percentage"`
	MissedOperations   int     `json:"missedOperations"`
	OperationsReached  int     `json:"operationsReached"`
	ReachedPercentage  float64 `json:"reachedPercentage"`
	ConditionsPerOp    float64 `json:"conditionsPerOperation"`
	ResultFileCount    int64   `json:"resultFileCount"`
	FailedFileCount    int64   `json:"failedFileCount"`
	GenerationTimeMS   int64   `json:"generationTime"`
	HasCaptureFailures bool    `json:"hasCaptureFailures"`
}

// Summarize computes aggregate figures. An operation is fully covered
// when all its conditions are covered and uncovered when none is.
func Summarize(r *Results) Summary {
	s := Summary{
		Operations:         len(r.Operations),
		MissedOperations:   len(r.Missed),
		ResultFileCount:    r.Statistics.ResultFileCount,
		FailedFileCount:    r.Statistics.FailedFileCount,
		GenerationTimeMS:   r.Statistics.GenerationTime.Milliseconds(),
		HasCaptureFailures: r.Statistics.FailedFileCount > 0,
	}

	for _, op := range r.Operations {
		covered, total := op.Counts()
		s.Conditions += total
		s.CoveredConditions += covered
		switch {
		case total > 0 && covered == total:
			s.FullyCovered++
		case covered == 0:
			s.Uncovered++
		default:
			s.PartiallyCovered++
		}
		for _, c := range op.Conditions {
			if c.Name == OperationReached && c.Covered {
				s.OperationsReached++
			}
		}
	}

	if s.Conditions > 0 {
		s.Percentage = float64(s.CoveredConditions) * 100.0 / float64(s.Conditions)
	}
	if s.Operations > 0 {
		s.ReachedPercentage = float64(s.OperationsReached) * 100.0 / float64(s.Operations)
		s.ConditionsPerOp = float64(s.Conditions) / float64(s.Operations)
	}
	return s
}

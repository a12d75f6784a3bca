// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/okian/fairlens/internal/domain/fairness"
)

// ReportRequest carries one dataset snapshot and asks for every measure its
// vectors allow. Optional vectors left nil skip the matching measure.
type ReportRequest struct {
	RequestID string // client idempotency key, optional

	Outcomes  []int
	Protected []int

	Stratum     []string       // enables the stratified measure
	Individuals [][]float64    // enables situation testing, needs Situation
	Situation   *SituationSpec // threshold and neighbour count
	Predicted   []int          // enables error rates against Outcomes
	Distances   [][2]float64   // {favourable, unfavourable} prototype distances, enables soft scores
}

// SituationSpec holds the caller-chosen situation testing parameters.
type SituationSpec struct {
	Threshold float64 `json:"t"`
	K         int     `json:"k"`
}

// Report is the evaluation result of a ReportRequest.
type Report struct {
	N        int                `json:"n"`
	Measures map[string]float64 `json:"measures"`

	Stratified          *StratifiedResult    `json:"stratified,omitempty"`
	Situation           *SituationResult     `json:"situation,omitempty"`
	ScoreMeanDifference *float64             `json:"score_mean_difference,omitempty"`
	ErrorRates          *fairness.ErrorRates `json:"error_rates,omitempty"`
}

// StratifiedResult splits the mean difference by a confounding stratum.
type StratifiedResult struct {
	Explained   float64 `json:"explained"`
	Unexplained float64 `json:"unexplained"`
	Strata      int     `json:"strata"`
}

// SituationResult summarizes situation testing over protected-group-1 individuals.
type SituationResult struct {
	Fraction float64 `json:"fraction"`
	Tested   int     `json:"tested"`
	Flagged  []int   `json:"flagged"` // input indices of individuals flagged as discriminated
}

// JobStatus is the lifecycle state of an asynchronous report.
type JobStatus string

// Job states.
const (
	JobPending JobStatus = "pending"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// Job is a report request travelling through the queue.
type Job struct {
	ID          string
	Request     ReportRequest
	SubmittedAt time.Time
}

// JobResult is what the report store keeps for a job.
type JobResult struct {
	ID          string    `json:"job_id"`
	RequestID   string    `json:"request_id,omitempty"`
	Status      JobStatus `json:"status"`
	Report      *Report   `json:"report,omitempty"`
	Error       string    `json:"error,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
	CompletedAt time.Time `json:"completed_at,omitzero"`
}

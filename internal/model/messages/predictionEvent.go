package messages

import (
	"time"

	"github.com/google/uuid"
)

// Kinds of prediction the web service records.
const (
	KindCrop       = "crop"
	KindFertilizer = "fertilizer"
	KindDisease    = "disease"
)

// Outcomes of a prediction request.
const (
	OutcomeOK          = "ok"
	OutcomeUnavailable = "unavailable" // weather unknown or model down
	OutcomeRejected    = "rejected"    // bad input
	OutcomeFailed      = "failed"
)

// PredictionEvent is emitted once per handled prediction request.
type PredictionEvent struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Outcome   string    `json:"outcome"`
	Label     string    `json:"label,omitempty"`  // crop, advisory key or disease class
	Detail    string    `json:"detail,omitempty"` // failure reason or city
	Timestamp time.Time `json:"timestamp"`
}

// NewPredictionEvent stamps a fresh ID and the current UTC time.
func NewPredictionEvent(kind, outcome, label, detail string) PredictionEvent {
	return PredictionEvent{
		ID:        uuid.NewString(),
		Kind:      kind,
		Outcome:   outcome,
		Label:     label,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	}
}

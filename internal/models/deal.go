package models

import (
	"time"
)

// Stage is a position of a deal in the sales pipeline.
type Stage string

const (
	StageProspecting Stage = "prospecting"
	StageNegotiation Stage = "negotiation"
	StageDealing     Stage = "dealing"
	StageClosedWon   Stage = "closedWon"
	StageClosedLost  Stage = "closedLost"
)

var stages = []Stage{
	StageProspecting,
	StageNegotiation,
	StageDealing,
	StageClosedWon,
	StageClosedLost,
}

// Stages returns the pipeline stages in display order.
func Stages() []Stage {
	out := make([]Stage, len(stages))
	copy(out, stages)
	return out
}

func (s Stage) Valid() bool {
	for _, st := range stages {
		if st == s {
			return true
		}
	}
	return false
}

// Closed reports whether the stage ends the pipeline.
func (s Stage) Closed() bool {
	return s == StageClosedWon || s == StageClosedLost
}

type Deal struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Stage     Stage     `json:"stage"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// DealCandidate is raw user input for a create or an update, not yet validated.
type DealCandidate struct {
	Name  string `json:"name"`
	Stage string `json:"stage"`
}

// DealFields are the only fields an update is allowed to touch.
type DealFields struct {
	Name  string `json:"name"`
	Stage Stage  `json:"stage"`
}

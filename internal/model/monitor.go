package model

import (
	"time"

	"github.com/google/uuid"
)

// MonitorEventType enumerates live events published to HR monitors.
type MonitorEventType string

const (
	MonitorAttemptStarted   MonitorEventType = "attempt_started"
	MonitorProgressSaved    MonitorEventType = "progress_saved"
	MonitorProctorEvent     MonitorEventType = "proctor_event"
	MonitorAttemptSubmitted MonitorEventType = "attempt_submitted"
	MonitorAttemptReset     MonitorEventType = "attempt_reset"
)

// MonitorEvent is published on a position's monitor channel.
type MonitorEvent struct {
	Type        MonitorEventType `json:"type"`
	AttemptID   uuid.UUID        `json:"attempt_id"`
	CandidateID uuid.UUID        `json:"candidate_id"`
	PositionID  uuid.UUID        `json:"position_id"`
	Data        any              `json:"data,omitempty"`
	At          time.Time        `json:"at"`
}

// LiveAttempt is a row of the monitor's initial snapshot.
type LiveAttempt struct {
	AttemptID     uuid.UUID `json:"attempt_id"`
	CandidateID   uuid.UUID `json:"candidate_id"`
	CandidateName string    `json:"candidate_name"`
	AttemptNumber int       `json:"attempt_number"`
	StartedAt     time.Time `json:"started_at"`
	ExpiresAt     time.Time `json:"expires_at"`
	ProctorEvents int64     `json:"proctor_events"`
}

package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ProctorEventType enumerates monitoring signals reported by the candidate client.
type ProctorEventType string

const (
	ProctorTabSwitch          ProctorEventType = "tab_switch"
	ProctorFullscreenExit     ProctorEventType = "fullscreen_exit"
	ProctorCameraOff          ProctorEventType = "camera_off"
	ProctorScreenShareStopped ProctorEventType = "screen_share_stopped"
	ProctorMultipleFaces      ProctorEventType = "multiple_faces"
	ProctorOther              ProctorEventType = "other"
)

// ProctorEvent is a single monitoring signal recorded against an attempt.
type ProctorEvent struct {
	ID         int64            `json:"id"`
	AttemptID  uuid.UUID        `json:"attempt_id"`
	EventType  ProctorEventType `json:"event_type"`
	Payload    json.RawMessage  `json:"payload,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// ReportProctorEventRequest is the payload the client sends for a monitoring signal.
type ReportProctorEventRequest struct {
	EventType  ProctorEventType `json:"event_type" binding:"required,oneof=tab_switch fullscreen_exit camera_off screen_share_stopped multiple_faces other"`
	Payload    json.RawMessage  `json:"payload"`
	OccurredAt *time.Time       `json:"occurred_at"`
}

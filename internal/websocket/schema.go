package websocket

import (
	"github.com/proctorly/interview-backend/internal/model"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionProgress Action = "progress"
	ActionProctor  Action = "proctor"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ProgressRequest replaces the attempt's progress snapshot.
type ProgressRequest struct {
	Action   Action                 `json:"action"`
	Progress model.ProgressSnapshot `json:"progress"`
}

// ProctorRequest reports a monitoring signal.
type ProctorRequest struct {
	Action Action `json:"action"`
	model.ReportProctorEventRequest
}

// SubmitRequest finishes and grades the attempt. Recordings go through the HTTP submit endpoint.
type SubmitRequest struct {
	Action             Action                  `json:"action"`
	Answers            []model.SubmittedAnswer `json:"answers"`
	TimeTakenSeconds   int                     `json:"timeTakenInSeconds"`
	TimeTakenFormatted string                  `json:"timeTakenFormatted"`
	Auto               bool                    `json:"auto"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventTick    Event = "tick"
	EventError   Event = "error"
	EventSuccess Event = "success"
	EventGraded  Event = "graded"
	EventPong    Event = "pong"
)

// TickEvent carries the server-side countdown once per second.
type TickEvent struct {
	Event    Event `json:"event"`
	TimeLeft int   `json:"time_left"`
}

type SuccessResponse struct {
	Event  Event  `json:"event"`
	Action Action `json:"action"`
	Status string `json:"status"`
}

type GradedResponse struct {
	Event Event `json:"event"`
	model.SubmitResponse
	Auto bool `json:"auto"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/proctorly/interview-backend/internal/countdown"
	"github.com/proctorly/interview-backend/internal/metrics"
	"github.com/proctorly/interview-backend/internal/model"
	"github.com/proctorly/interview-backend/internal/response"
	"github.com/proctorly/interview-backend/internal/service"
	"github.com/proctorly/interview-backend/internal/validator"
	ws "github.com/proctorly/interview-backend/internal/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

type streamSubmitter interface {
	Submit(ctx context.Context, in service.SubmitInput) (*model.SubmitResponse, error)
	AutoSubmitFromProgress(ctx context.Context, attemptID uuid.UUID) (*model.SubmitResponse, error)
}

type progressSaver interface {
	SaveProgress(ctx context.Context, attemptID uuid.UUID, snap model.ProgressSnapshot) (*model.Progress, error)
}

// WSHandler streams a live attempt: server countdown, autosave, proctoring and submission.
type WSHandler struct {
	attempts    attemptOwner
	progress    progressSaver
	proctor     proctorReporter
	submissions streamSubmitter
	log         zerolog.Logger
	upgrader    websocket.Upgrader
	tick        time.Duration
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(
	attempts attemptOwner,
	progress progressSaver,
	proctor proctorReporter,
	submissions streamSubmitter,
	log zerolog.Logger,
	allowedOrigins []string,
) *WSHandler {
	return &WSHandler{
		attempts:    attempts,
		progress:    progress,
		proctor:     proctor,
		submissions: submissions,
		log:         log.With().Str("component", "ws_handler").Logger(),
		upgrader:    buildUpgrader(allowedOrigins),
		tick:        time.Second,
	}
}

// stream is the state of one connected attempt.
type stream struct {
	h       *WSHandler
	conn    *ws.Conn
	attempt *model.Attempt
	timer   *countdown.Countdown
	log     zerolog.Logger
}

// AttemptStream godoc
// WS /ws/v1/test-attempt/:attemptId/stream
// Upgrades to WebSocket. The server owns the countdown and auto-submits the
// saved progress when it reaches zero.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims, ok := candidateClaims(c)
	if !ok {
		return
	}
	attemptID, ok := parseUUIDParam(c, "attemptId")
	if !ok {
		return
	}

	// Ownership and state are checked before the upgrade so failures get a JSON error.
	a, err := h.attempts.GetOwnedAttempt(c.Request.Context(), attemptID, claims.CandidateID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if !a.InProgress() {
		respondError(c, h.log, service.ErrInvalidState)
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.Wrap(raw)
	defer conn.Close()

	metrics.LiveStreams.Inc()
	defer metrics.LiveStreams.Dec()

	// The session outlives no request but must not die with it either.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &stream{
		h:       h,
		conn:    conn,
		attempt: a,
		log: h.log.With().
			Str("attempt_id", a.ID.String()).
			Str("candidate_id", a.CandidateID.String()).
			Logger(),
	}
	s.timer = countdown.New(secondsLeft(a), func() { s.expire(ctx) })
	defer s.timer.Stop()

	s.log.Info().Int("time_left", s.timer.Remaining()).Msg("Candidate connected")

	go s.timer.Run(ctx, h.tick, func(remaining int) {
		if err := conn.WriteTyped(ws.TickEvent{Event: ws.EventTick, TimeLeft: remaining}); err != nil {
			s.log.Debug().Err(err).Msg("Tick write failed")
		}
	})

	for {
		var msg json.RawMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn().Err(err).Msg("Unexpected close")
			} else {
				s.log.Debug().Msg("Connection closed")
			}
			return
		}
		if s.timer.State() == countdown.Terminal {
			return
		}

		var env ws.RequestEnvelope
		if err := json.Unmarshal(msg, &env); err != nil {
			conn.WriteError(string(response.ErrInvalidPayload), "message must be a JSON object with an action")
			continue
		}

		switch env.Action {
		case ws.ActionProgress:
			s.handleProgress(ctx, msg)
		case ws.ActionProctor:
			s.handleProctor(ctx, msg)
		case ws.ActionSubmit:
			if s.handleSubmit(ctx, msg) {
				return
			}
		case ws.ActionPing:
			conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
		default:
			s.log.Warn().Str("action", string(env.Action)).Msg("Unknown action")
			conn.WriteError(string(response.ErrInvalidPayload), "unknown action: "+string(env.Action))
		}
	}
}

// handleProgress saves the snapshot and re-aligns the countdown with the stored deadline.
func (s *stream) handleProgress(ctx context.Context, msg json.RawMessage) {
	var req ws.ProgressRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		s.conn.WriteError(string(response.ErrInvalidPayload), "invalid progress payload")
		return
	}
	if fields := validator.Validate(&req.Progress); fields != nil {
		s.conn.WriteError(string(response.ErrValidation), firstField(fields))
		return
	}

	if _, err := s.h.progress.SaveProgress(ctx, s.attempt.ID, req.Progress); err != nil {
		s.writeServiceError(err)
		return
	}
	s.timer.Sync(secondsLeft(s.attempt))

	s.conn.WriteTyped(ws.SuccessResponse{Event: ws.EventSuccess, Action: ws.ActionProgress, Status: "saved"})
}

func (s *stream) handleProctor(ctx context.Context, msg json.RawMessage) {
	var req ws.ProctorRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		s.conn.WriteError(string(response.ErrInvalidPayload), "invalid proctor payload")
		return
	}
	if fields := validator.Validate(&req.ReportProctorEventRequest); fields != nil {
		s.conn.WriteError(string(response.ErrValidation), firstField(fields))
		return
	}

	if err := s.h.proctor.Report(ctx, s.attempt, &req.ReportProctorEventRequest); err != nil {
		s.writeServiceError(err)
		return
	}

	s.conn.WriteTyped(ws.SuccessResponse{Event: ws.EventSuccess, Action: ws.ActionProctor, Status: "queued"})
}

// handleSubmit grades a manual submission. It reports whether the stream is finished.
func (s *stream) handleSubmit(ctx context.Context, msg json.RawMessage) bool {
	var req ws.SubmitRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		s.conn.WriteError(string(response.ErrInvalidPayload), "invalid submit payload")
		return false
	}
	for i := range req.Answers {
		if fields := validator.Validate(&req.Answers[i]); fields != nil {
			s.conn.WriteError(string(response.ErrValidation), firstField(fields))
			return false
		}
	}

	if !s.timer.BeginSubmit() {
		s.conn.WriteError(string(response.ErrInvalidAttemptState), "attempt is already being submitted")
		return false
	}

	res, err := s.h.submissions.Submit(ctx, service.SubmitInput{
		AttemptID:          s.attempt.ID,
		Answers:            req.Answers,
		TimeTakenSeconds:   req.TimeTakenSeconds,
		TimeTakenFormatted: req.TimeTakenFormatted,
		Auto:               req.Auto,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidState) {
			s.timer.Finish()
			s.writeServiceError(err)
			s.conn.WriteClose(websocket.CloseNormalClosure, "attempt finished")
			return true
		}
		s.timer.Resume(secondsLeft(s.attempt))
		s.writeServiceError(err)
		return false
	}

	s.timer.Finish()
	s.conn.WriteTyped(ws.GradedResponse{Event: ws.EventGraded, SubmitResponse: *res, Auto: req.Auto})
	s.conn.WriteClose(websocket.CloseNormalClosure, "attempt submitted")
	return true
}

// expire runs from the countdown when it reaches zero and submits the saved progress.
func (s *stream) expire(ctx context.Context) {
	defer s.conn.Close()
	defer s.timer.Finish()

	res, err := s.h.submissions.AutoSubmitFromProgress(ctx, s.attempt.ID)
	if err != nil {
		if !errors.Is(err, service.ErrInvalidState) {
			s.log.Error().Err(err).Msg("Auto submit on expiry failed")
		}
		s.writeServiceError(err)
		s.conn.WriteClose(websocket.CloseNormalClosure, "time is up")
		return
	}

	s.log.Info().Int("score", res.Score).Msg("Attempt auto-submitted on expiry")
	s.conn.WriteTyped(ws.GradedResponse{Event: ws.EventGraded, SubmitResponse: *res, Auto: true})
	s.conn.WriteClose(websocket.CloseNormalClosure, "time is up")
}

// writeServiceError reports a service error on the socket with its API code.
func (s *stream) writeServiceError(err error) {
	code, msg := wsErrorCode(err)
	if code == response.ErrInternal {
		s.log.Error().Err(err).Msg("Stream action failed")
	}
	s.conn.WriteError(string(code), msg)
}

func wsErrorCode(err error) (response.ErrCode, string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return response.ErrNotFound, response.GetMessage(response.ErrNotFound)
	case errors.Is(err, service.ErrInvalidState):
		return response.ErrInvalidAttemptState, response.GetMessage(response.ErrInvalidAttemptState)
	case errors.Is(err, service.ErrIncomplete):
		return response.ErrIncompleteSubmission, err.Error()
	case errors.Is(err, service.ErrValidation):
		return response.ErrValidation, validationDetail(err)["detail"]
	case errors.Is(err, service.ErrForbidden):
		return response.ErrForbidden, response.GetMessage(response.ErrForbidden)
	default:
		return response.ErrInternal, response.GetMessage(response.ErrInternal)
	}
}

func secondsLeft(a *model.Attempt) int {
	return int(a.Remaining(time.Now()).Round(time.Second) / time.Second)
}

// firstField flattens validator output into a single line for socket errors.
func firstField(fields map[string]string) string {
	for k, v := range fields {
		return k + ": " + v
	}
	return "invalid payload"
}

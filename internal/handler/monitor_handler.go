package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/proctorly/interview-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	refreshInterval   = 15 * time.Second
	keepAliveInterval = 30 * time.Second
	refreshTimeout    = 5 * time.Second // prevent slow queries from blocking the SSE loop
)

type positionGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Position, error)
}

type liveMonitor interface {
	Snapshot(ctx context.Context, positionID uuid.UUID) ([]model.LiveAttempt, error)
	Subscribe(ctx context.Context, positionID uuid.UUID) *redis.PubSub
}

type MonitorHandler struct {
	positions positionGetter
	monitor   liveMonitor
	log       zerolog.Logger
}

func NewMonitorHandler(positions positionGetter, monitor liveMonitor, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		positions: positions,
		monitor:   monitor,
		log:       log.With().Str("component", "monitor_handler").Logger(),
	}
}

// MonitorPositionSSE godoc
// GET /api/v1/admin/positions/:id/monitor
// Streams the position's in-progress attempts, then live attempt events.
func (h *MonitorHandler) MonitorPositionSSE(c *gin.Context) {
	positionID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	pos, err := h.positions.Get(c.Request.Context(), positionID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	if err := h.sendSnapshot(c, reqCtx, pos, "snapshot"); err != nil {
		h.log.Warn().Err(err).Str("position_id", positionID.String()).Msg("Initial monitor snapshot failed")
	}

	pubsub := h.monitor.Subscribe(reqCtx, positionID)
	defer pubsub.Close()
	ch := pubsub.Channel()

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()
	refreshTicker := time.NewTicker(refreshInterval)
	defer refreshTicker.Stop()

	// Skip refreshes until something has happened on the channel.
	active := false

	h.log.Info().Str("position_id", positionID.String()).Msg("Admin attached to live monitor SSE")

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Str("position_id", positionID.String()).Msg("Admin disconnected from live monitor SSE")
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			// Events are already JSON; forward them as-is.
			c.Writer.Write([]byte("data: "))
			c.Writer.Write([]byte(msg.Payload))
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
			active = true

		case <-refreshTicker.C:
			if !active {
				continue
			}
			if err := h.sendSnapshot(c, reqCtx, pos, "refresh"); err != nil {
				h.log.Warn().Err(err).Msg("Monitor refresh failed")
			}

		case <-keepAliveTicker.C:
			c.Writer.Write([]byte("data: {\"type\":\"ping\"}\n\n"))
			c.Writer.Flush()
		}
	}
}

// sendSnapshot writes the in-progress attempts of the position as one SSE event.
func (h *MonitorHandler) sendSnapshot(c *gin.Context, parent context.Context, pos *model.Position, kind string) error {
	ctx, cancel := context.WithTimeout(parent, refreshTimeout)
	defer cancel()

	live, err := h.monitor.Snapshot(ctx, pos.ID)
	if err != nil {
		return err
	}

	var proctorTotal int64
	for _, a := range live {
		proctorTotal += a.ProctorEvents
	}

	c.SSEvent("message", gin.H{
		"type": kind,
		"data": gin.H{
			"position": gin.H{
				"id":               pos.ID,
				"name":             pos.Name,
				"duration_minutes": pos.DurationMinutes,
				"question_count":   pos.QuestionCount,
			},
			"stats": gin.H{
				"in_progress":    len(live),
				"proctor_events": proctorTotal,
			},
			"attempts": live,
		},
	})
	c.Writer.Flush()
	return nil
}

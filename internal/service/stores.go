package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/proctorly/interview-backend/internal/model"
	"github.com/proctorly/interview-backend/internal/repository"
)

// AttemptStore is the attempt persistence used by the lifecycle, progress and submission services.
type AttemptStore interface {
	InPairTx(ctx context.Context, candidateID, positionID uuid.UUID, fn func(repository.PairTx) error) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error)
	GetWithResult(ctx context.Context, id uuid.UUID) (*model.Attempt, error)
	GetLatest(ctx context.Context, candidateID, positionID uuid.UUID) (*model.Attempt, error)
	ListByPair(ctx context.Context, candidateID, positionID uuid.UUID) ([]model.Attempt, error)
	Abandon(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) (*model.Attempt, error)
	ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]model.Attempt, error)
	List(ctx context.Context, f model.AttemptFilter) ([]model.AttemptSummary, int64, error)
	GetSummary(ctx context.Context, id uuid.UUID) (*model.AttemptSummary, error)
	ListLive(ctx context.Context, positionID uuid.UUID) ([]model.LiveAttempt, error)
}

// ProgressStore is the durable progress snapshot store.
type ProgressStore interface {
	Upsert(ctx context.Context, p *model.Progress) error
	Get(ctx context.Context, attemptID uuid.UUID) (*model.Progress, error)
	Delete(ctx context.Context, attemptID uuid.UUID) error
}

// ProgressCache is the hot progress snapshot store and persistence queue.
type ProgressCache interface {
	Get(ctx context.Context, attemptID uuid.UUID) (*model.Progress, error)
	Set(ctx context.Context, p *model.Progress) error
	Delete(ctx context.Context, attemptID uuid.UUID) error
	EnqueuePersist(ctx context.Context, attemptID uuid.UUID) error
}

// ResultStore persists scored results.
type ResultStore interface {
	CompleteWithResult(ctx context.Context, res *model.Result) error
	SetRecordingURL(ctx context.Context, resultID uuid.UUID, url string) error
}

// QuestionStore is the question bank.
type QuestionStore interface {
	ListByPosition(ctx context.Context, positionID uuid.UUID) ([]model.Question, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error)
	DrawRandomIDs(ctx context.Context, positionID uuid.UUID, n int) ([]uuid.UUID, error)
	Create(ctx context.Context, q *model.Question) error
	Delete(ctx context.Context, positionID, id uuid.UUID) error
}

// PositionStore persists positions.
type PositionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Position, error)
	List(ctx context.Context) ([]model.Position, error)
	Create(ctx context.Context, p *model.Position) error
	Update(ctx context.Context, p *model.Position) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CandidateStore persists candidates.
type CandidateStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Candidate, error)
	GetByEmail(ctx context.Context, email string) (*model.Candidate, error)
	ListPaginated(ctx context.Context, positionID *uuid.UUID, limit, offset int) ([]model.Candidate, int, error)
	Create(ctx context.Context, c *model.Candidate) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Publisher fans out live monitor events. Publishing is best-effort.
type Publisher interface {
	Publish(ctx context.Context, evt model.MonitorEvent)
}

// RecordingSpooler accepts a session recording for asynchronous upload.
type RecordingSpooler interface {
	SpoolRecording(ctx context.Context, resultID, attemptID uuid.UUID, rec *RecordingUpload) error
}

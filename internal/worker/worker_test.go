package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/proctorly/interview-backend/internal/model"
	"github.com/proctorly/interview-backend/internal/service"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockExpiredLister struct {
	mock.Mock
}

func (m *mockExpiredLister) ListExpired(ctx context.Context, grace time.Duration, limit int) ([]model.Attempt, error) {
	args := m.Called(ctx, grace, limit)
	attempts, _ := args.Get(0).([]model.Attempt)
	return attempts, args.Error(1)
}

type mockAutoSubmitter struct {
	mock.Mock
}

func (m *mockAutoSubmitter) AutoSubmitFromProgress(ctx context.Context, attemptID uuid.UUID) (*model.SubmitResponse, error) {
	args := m.Called(ctx, attemptID)
	res, _ := args.Get(0).(*model.SubmitResponse)
	return res, args.Error(1)
}

func TestExpiryWorker_Sweep(t *testing.T) {
	done, raced, broken := uuid.New(), uuid.New(), uuid.New()

	lister := &mockExpiredLister{}
	lister.On("ListExpired", mock.Anything, 30*time.Second, sweepLimit).
		Return([]model.Attempt{{ID: done}, {ID: raced}, {ID: broken}}, nil)

	submitter := &mockAutoSubmitter{}
	submitter.On("AutoSubmitFromProgress", mock.Anything, done).Return(&model.SubmitResponse{Score: 40}, nil)
	submitter.On("AutoSubmitFromProgress", mock.Anything, raced).Return(nil, service.ErrInvalidState)
	submitter.On("AutoSubmitFromProgress", mock.Anything, broken).Return(nil, errors.New("db down"))

	w := NewExpiryWorker(lister, submitter, 30*time.Second, time.Second, zerolog.Nop())
	assert.Equal(t, 1, w.sweep(context.Background()))

	lister.AssertExpectations(t)
	submitter.AssertExpectations(t)
}

func TestExpiryWorker_SweepListError(t *testing.T) {
	lister := &mockExpiredLister{}
	lister.On("ListExpired", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	submitter := &mockAutoSubmitter{}
	w := NewExpiryWorker(lister, submitter, time.Second, time.Second, zerolog.Nop())

	assert.Zero(t, w.sweep(context.Background()))
	submitter.AssertNotCalled(t, "AutoSubmitFromProgress", mock.Anything, mock.Anything)
}

func TestExpiryWorker_StopsOnCancel(t *testing.T) {
	lister := &mockExpiredLister{}
	lister.On("ListExpired", mock.Anything, mock.Anything, mock.Anything).Return([]model.Attempt{}, nil).Maybe()

	w := NewExpiryWorker(lister, &mockAutoSubmitter{}, time.Second, 10*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(stopped)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestDedupe(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	assert.Equal(t, []uuid.UUID{a, b, c}, dedupe([]uuid.UUID{a, b, a, c, b, a}))
	assert.Empty(t, dedupe(nil))
}

func TestRecordingKey(t *testing.T) {
	job := &model.RecordingJob{
		AttemptID: uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		ResultID:  uuid.MustParse("22222222-2222-2222-2222-222222222222"),
		Ext:       ".webm",
	}
	assert.Equal(t,
		"recordings/11111111-1111-1111-1111-111111111111/22222222-2222-2222-2222-222222222222.webm",
		recordingKey(job))
}

func TestDecodeProctorEvent(t *testing.T) {
	evt, err := decodeProctorEvent(`{"attempt_id":"11111111-1111-1111-1111-111111111111","event_type":"tab_switch","payload":{"count":2}}`)
	require.NoError(t, err)
	assert.Equal(t, model.ProctorTabSwitch, evt.EventType)
	assert.JSONEq(t, `{"count":2}`, string(evt.Payload))
	assert.False(t, evt.OccurredAt.IsZero())

	_, err = decodeProctorEvent(`not json`)
	assert.Error(t, err)
}

package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/proctorly/interview-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSubmit_ScoresSevenOfTen(t *testing.T) {
	f := newFixture(10)
	ctx := context.Background()
	a := f.create()

	res, err := f.submission.Submit(ctx, SubmitInput{
		AttemptID:        a.ID,
		Answers:          answers(a, 10, 7),
		TimeTakenSeconds: 754,
	})
	require.NoError(t, err)

	assert.Equal(t, 70, res.Score)
	assert.Equal(t, 7, res.CorrectCount)
	assert.Equal(t, 10, res.TotalQuestions)

	stored, err := f.attempts.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptStatusCompleted, stored.Status)
	require.NotNil(t, stored.ResultID)
	assert.Equal(t, res.ResultID, *stored.ResultID)

	result := f.results.get(a.ID)
	require.NotNil(t, result)
	assert.Equal(t, "12:34", result.TimeTakenFormatted)
	assert.Len(t, result.Answers, 10)
	assert.False(t, result.AutoSubmitted)
	assert.Contains(t, f.publisher.types(), model.MonitorAttemptSubmitted)
}

func TestSubmit_BreakdownFollowsAttemptOrder(t *testing.T) {
	f := newFixture(3)
	a := f.create()

	_, err := f.submission.Submit(context.Background(), SubmitInput{AttemptID: a.ID, Answers: answers(a, 3, 1)})
	require.NoError(t, err)

	result := f.results.get(a.ID)
	require.Len(t, result.Answers, 3)
	for i, b := range result.Answers {
		assert.Equal(t, a.QuestionIDs[i], b.QuestionID)
		assert.Equal(t, "a", b.CorrectOption)
		assert.Equal(t, "Right", b.CorrectOptionText)
	}
	assert.True(t, result.Answers[0].IsCorrect)
	assert.Equal(t, "Wrong", *result.Answers[1].SelectedOptionText)
}

func TestSubmit_KeepsClientFormattedTime(t *testing.T) {
	f := newFixture(2)
	a := f.create()

	_, err := f.submission.Submit(context.Background(), SubmitInput{
		AttemptID:          a.ID,
		Answers:            answers(a, 2, 2),
		TimeTakenSeconds:   61,
		TimeTakenFormatted: "1 min 1 sec",
	})
	require.NoError(t, err)
	assert.Equal(t, "1 min 1 sec", f.results.get(a.ID).TimeTakenFormatted)
}

func TestSubmit_ManualRequiresEveryQuestion(t *testing.T) {
	f := newFixture(10)
	ctx := context.Background()
	a := f.create()

	_, err := f.submission.Submit(ctx, SubmitInput{AttemptID: a.ID, Answers: answers(a, 9, 9)})
	assert.ErrorIs(t, err, ErrIncomplete)

	stored, err := f.attempts.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptStatusInProgress, stored.Status)
	assert.Nil(t, f.results.get(a.ID))
}

func TestSubmit_AutoAcceptsUnanswered(t *testing.T) {
	f := newFixture(10)
	a := f.create()
	f.pastDeadline(a)

	res, err := f.submission.Submit(context.Background(), SubmitInput{AttemptID: a.ID, Answers: answers(a, 3, 2), Auto: true})
	require.NoError(t, err)
	assert.Equal(t, 20, res.Score)
	assert.Equal(t, 10, res.TotalQuestions)

	result := f.results.get(a.ID)
	assert.True(t, result.AutoSubmitted)
	assert.Nil(t, result.Answers[5].SelectedOption)
	assert.False(t, result.Answers[5].IsCorrect)
}

func TestSubmit_AutoBeforeDeadlineIsTreatedAsManual(t *testing.T) {
	ctx := context.Background()

	t.Run("IncompleteRejected", func(t *testing.T) {
		f := newFixture(10)
		a := f.create()
		f.submission.now = func() time.Time { return a.ExpiresAt.Add(-20 * time.Minute) }

		_, err := f.submission.Submit(ctx, SubmitInput{AttemptID: a.ID, Answers: answers(a, 1, 1), Auto: true})
		assert.ErrorIs(t, err, ErrIncomplete)
		assert.Nil(t, f.results.get(a.ID))

		got, err := f.attempts.GetByID(ctx, a.ID)
		require.NoError(t, err)
		assert.True(t, got.InProgress())
	})

	t.Run("CompleteGradedAsManual", func(t *testing.T) {
		f := newFixture(3)
		a := f.create()
		f.submission.now = func() time.Time { return a.ExpiresAt.Add(-time.Minute) }

		res, err := f.submission.Submit(ctx, SubmitInput{AttemptID: a.ID, Answers: answers(a, 3, 3), Auto: true})
		require.NoError(t, err)
		assert.Equal(t, 100, res.Score)
		assert.False(t, f.results.get(a.ID).AutoSubmitted)
	})

	t.Run("WithinSkewHonored", func(t *testing.T) {
		f := newFixture(10)
		a := f.create()
		f.submission.now = func() time.Time { return a.ExpiresAt.Add(-testAutoSkew / 2) }

		res, err := f.submission.Submit(ctx, SubmitInput{AttemptID: a.ID, Answers: answers(a, 1, 1), Auto: true})
		require.NoError(t, err)
		assert.Equal(t, 10, res.Score)
		assert.True(t, f.results.get(a.ID).AutoSubmitted)
	})
}

func TestSubmit_NoQuestionsScoresZero(t *testing.T) {
	f := newFixture(0)
	a := f.create()
	f.pastDeadline(a)

	res, err := f.submission.Submit(context.Background(), SubmitInput{AttemptID: a.ID, Auto: true})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Score)
	assert.Equal(t, 0, res.TotalQuestions)
}

func TestSubmit_RejectsQuestionOutsideAttempt(t *testing.T) {
	f := newFixture(3)
	a := f.create()

	in := answers(a, 3, 3)
	in[1].QuestionID = uuid.New()
	_, err := f.submission.Submit(context.Background(), SubmitInput{AttemptID: a.ID, Answers: in})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSubmit_RejectsDuplicateAnswers(t *testing.T) {
	f := newFixture(3)
	a := f.create()

	in := answers(a, 3, 3)
	in = append(in, in[0])
	_, err := f.submission.Submit(context.Background(), SubmitInput{AttemptID: a.ID, Answers: in, Auto: true})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSubmit_UnknownOption(t *testing.T) {
	f := newFixture(2)
	ctx := context.Background()

	a := f.create()
	in := answers(a, 2, 2)
	in[0].SelectedOptionID = "z"
	_, err := f.submission.Submit(ctx, SubmitInput{AttemptID: a.ID, Answers: in})
	assert.ErrorIs(t, err, ErrValidation)

	f.pastDeadline(a)
	res, err := f.submission.Submit(ctx, SubmitInput{AttemptID: a.ID, Answers: in, Auto: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.CorrectCount)
}

func TestSubmit_FinishedAttemptIsRejectedAndResultUnchanged(t *testing.T) {
	f := newFixture(4)
	ctx := context.Background()
	a := f.create()

	first, err := f.submission.Submit(ctx, SubmitInput{AttemptID: a.ID, Answers: answers(a, 4, 4)})
	require.NoError(t, err)
	assert.Equal(t, 100, first.Score)

	_, err = f.submission.Submit(ctx, SubmitInput{AttemptID: a.ID, Answers: answers(a, 4, 0)})
	assert.ErrorIs(t, err, ErrInvalidState)

	result := f.results.get(a.ID)
	assert.Equal(t, first.ResultID, result.ID)
	assert.Equal(t, 100, result.Score)
}

func TestSubmit_AbandonedAttemptIsRejected(t *testing.T) {
	f := newFixture(2)
	ctx := context.Background()
	a := f.create()

	_, err := f.attemptSvc.ResetAttempt(ctx, a.ID)
	require.NoError(t, err)

	_, err = f.submission.Submit(ctx, SubmitInput{AttemptID: a.ID, Answers: answers(a, 2, 2)})
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Nil(t, f.results.get(a.ID))
}

func TestSubmit_ConcurrentSubmissionsCompleteOnce(t *testing.T) {
	f := newFixture(4)
	a := f.create()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.submission.Submit(context.Background(), SubmitInput{AttemptID: a.ID, Answers: answers(a, 4, 2)})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrInvalidState)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestSubmit_ClearsProgress(t *testing.T) {
	f := newFixture(2)
	ctx := context.Background()
	a := f.create()

	_, err := f.progress.SaveProgress(ctx, a.ID, snapshotFor(a, 1))
	require.NoError(t, err)

	_, err = f.submission.Submit(ctx, SubmitInput{AttemptID: a.ID, Answers: answers(a, 2, 2)})
	require.NoError(t, err)

	p, err := f.progress.GetProgress(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestSubmit_RecordingFailureDoesNotFailSubmission(t *testing.T) {
	f := newFixture(2)
	a := f.create()

	rec := &RecordingUpload{Reader: strings.NewReader("webm"), Filename: "session.webm", ContentType: "video/webm", Size: 4}
	f.spooler.On("SpoolRecording", mock.Anything, mock.AnythingOfType("uuid.UUID"), a.ID, rec).
		Return(errors.New("disk full"))

	res, err := f.submission.Submit(context.Background(), SubmitInput{AttemptID: a.ID, Answers: answers(a, 2, 1), Recording: rec})
	require.NoError(t, err)
	assert.Equal(t, 50, res.Score)
	f.spooler.AssertExpectations(t)
}

func TestAutoSubmitFromProgress_UsesSavedAnswers(t *testing.T) {
	f := newFixture(4)
	ctx := context.Background()
	a := f.create()

	_, err := f.progress.SaveProgress(ctx, a.ID, snapshotFor(a, 3))
	require.NoError(t, err)

	f.pastDeadline(a)
	res, err := f.submission.AutoSubmitFromProgress(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, res.CorrectCount)
	assert.Equal(t, 75, res.Score)
	assert.True(t, f.results.get(a.ID).AutoSubmitted)

	_, err = f.submission.AutoSubmitFromProgress(ctx, a.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestAutoSubmitFromProgress_WithoutProgress(t *testing.T) {
	f := newFixture(4)
	a := f.create()
	f.pastDeadline(a)

	res, err := f.submission.AutoSubmitFromProgress(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Score)
	assert.Equal(t, 4, res.TotalQuestions)
}

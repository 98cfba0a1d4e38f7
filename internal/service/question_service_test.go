package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/proctorly/interview-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateQuestion(t *testing.T) {
	opts := []model.Option{{ID: "a", Text: "One"}, {ID: "b", Text: "Two"}}

	tests := []struct {
		name    string
		req     model.AddQuestionRequest
		wantErr bool
	}{
		{name: "valid", req: model.AddQuestionRequest{QuestionText: "Q", Options: opts, CorrectOption: "b"}},
		{name: "correct option missing", req: model.AddQuestionRequest{QuestionText: "Q", Options: opts, CorrectOption: "c"}, wantErr: true},
		{
			name: "duplicate option id",
			req: model.AddQuestionRequest{
				QuestionText:  "Q",
				Options:       []model.Option{{ID: "a", Text: "One"}, {ID: "a", Text: "Two"}},
				CorrectOption: "a",
			},
			wantErr: true,
		},
		{
			name: "empty option",
			req: model.AddQuestionRequest{
				QuestionText:  "Q",
				Options:       []model.Option{{ID: "a", Text: "One"}, {ID: "b"}},
				CorrectOption: "a",
			},
			wantErr: true,
		},
		{
			name: "image only option",
			req: model.AddQuestionRequest{
				QuestionText:  "Q",
				Options:       []model.Option{{ID: "a", Text: "One"}, {ID: "b", ImageURL: "/uploads/images/b.png"}},
				CorrectOption: "b",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQuestion(&tt.req)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBuildPaper_AttemptOrderWithoutAnswers(t *testing.T) {
	f := newFixture(5)
	a := f.create()

	// Bank order is deliberately reversed against the attempt order.
	bank := make([]model.Question, len(f.questions.rows))
	for i, q := range f.questions.rows {
		bank[len(bank)-1-i] = q
	}

	paper, err := BuildPaper(a, f.position, bank)
	require.NoError(t, err)
	require.Len(t, paper.Questions, len(a.QuestionIDs))
	for i, q := range paper.Questions {
		assert.Equal(t, a.QuestionIDs[i], q.ID)
		assert.Len(t, q.Options, 3)
	}
	assert.Equal(t, 30, paper.DurationMinutes)
	assert.Equal(t, a.ExpiresAt, paper.ExpiresAt)

	raw, err := json.Marshal(paper)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "correct_option")
}

func TestBuildPaper_SkipsDeletedQuestions(t *testing.T) {
	f := newFixture(3)
	a := f.create()

	paper, err := BuildPaper(a, f.position, f.questions.rows[:2])
	require.NoError(t, err)
	assert.Len(t, paper.Questions, 2)
}

func TestAddQuestion(t *testing.T) {
	f := newFixture(0)
	svc := NewQuestionService(f.questions, newFakePositionStore(f.position), nil, nopLog)
	ctx := context.Background()

	req := &model.AddQuestionRequest{
		QuestionText:  "What does HTTP 409 mean?",
		Options:       []model.Option{{ID: "a", Text: "Conflict"}, {ID: "b", Text: "Gone"}},
		CorrectOption: "a",
	}
	q, err := svc.AddQuestion(ctx, f.position.ID, req)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, q.ID)

	list, err := svc.ListByPosition(ctx, f.position.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.AddQuestion(ctx, uuid.New(), req)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.DeleteQuestion(ctx, f.position.ID, q.ID))
	assert.ErrorIs(t, svc.DeleteQuestion(ctx, f.position.ID, q.ID), ErrNotFound)
}

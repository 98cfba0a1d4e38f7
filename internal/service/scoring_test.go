package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/proctorly/interview-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	tests := []struct {
		correct, total, want int
	}{
		{7, 10, 70},
		{0, 10, 0},
		{10, 10, 100},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13},
		{0, 0, 0},
		{3, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Score(tt.correct, tt.total), "Score(%d, %d)", tt.correct, tt.total)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "00:00"},
		{-5, "00:00"},
		{59, "00:59"},
		{754, "12:34"},
		{3599, "59:59"},
		{3600, "1:00:00"},
		{3725, "1:02:05"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.seconds))
	}
}

func TestGrade_MissingQuestionCountsAsIncorrect(t *testing.T) {
	kept := model.Question{
		ID:            uuid.New(),
		QuestionText:  "Kept",
		Options:       []model.Option{{ID: "a", Text: "Yes"}, {ID: "b", Text: "No", ImageURL: "/uploads/images/no.png"}},
		CorrectOption: "b",
	}
	removed := uuid.New()

	breakdown, correct := Grade(
		[]uuid.UUID{removed, kept.ID},
		[]model.Question{kept},
		map[uuid.UUID]string{removed: "a", kept.ID: "b"},
	)

	require.Len(t, breakdown, 2)
	assert.Equal(t, 1, correct)

	assert.Equal(t, removed, breakdown[0].QuestionID)
	assert.False(t, breakdown[0].IsCorrect)
	assert.Equal(t, "a", *breakdown[0].SelectedOption)

	assert.True(t, breakdown[1].IsCorrect)
	assert.Equal(t, "No", breakdown[1].CorrectOptionText)
	require.NotNil(t, breakdown[1].CorrectOptionImage)
	assert.Equal(t, "/uploads/images/no.png", *breakdown[1].CorrectOptionImage)
}

func TestGrade_Unanswered(t *testing.T) {
	q := model.Question{ID: uuid.New(), Options: []model.Option{{ID: "a", Text: "A"}}, CorrectOption: "a"}

	breakdown, correct := Grade([]uuid.UUID{q.ID}, []model.Question{q}, map[uuid.UUID]string{})
	assert.Equal(t, 0, correct)
	assert.Nil(t, breakdown[0].SelectedOption)
	assert.Nil(t, breakdown[0].SelectedOptionText)
}

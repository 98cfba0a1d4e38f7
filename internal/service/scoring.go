package service

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/proctorly/interview-backend/internal/model"
)

// Score returns round(100*correct/total), or 0 when there are no questions.
func Score(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(correct) / float64(total)))
}

// FormatDuration renders seconds as MM:SS, or H:MM:SS from one hour up.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// Grade scores every question of the attempt's set against the selected options.
// Questions missing from the bank or left unanswered count as incorrect.
func Grade(questionIDs []uuid.UUID, bank []model.Question, selected map[uuid.UUID]string) ([]model.AnswerBreakdown, int) {
	byID := make(map[uuid.UUID]*model.Question, len(bank))
	for i := range bank {
		byID[bank[i].ID] = &bank[i]
	}

	breakdown := make([]model.AnswerBreakdown, 0, len(questionIDs))
	correct := 0

	for _, qid := range questionIDs {
		b := model.AnswerBreakdown{QuestionID: qid}

		q, ok := byID[qid]
		if ok {
			b.QuestionText = q.QuestionText
			b.QuestionImage = q.ImageURL
			b.CorrectOption = q.CorrectOption
			if opt, found := q.FindOption(q.CorrectOption); found {
				b.CorrectOptionText = opt.Text
				b.CorrectOptionImage = optionalString(opt.ImageURL)
			}
		}

		if sel, answered := selected[qid]; answered && sel != "" {
			sel := sel
			b.SelectedOption = &sel
			if ok {
				if opt, found := q.FindOption(sel); found {
					b.SelectedOptionText = optionalString(opt.Text)
					b.SelectedOptionImage = optionalString(opt.ImageURL)
				}
				b.IsCorrect = sel == q.CorrectOption
			}
		}

		if b.IsCorrect {
			correct++
		}
		breakdown = append(breakdown, b)
	}

	return breakdown, correct
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

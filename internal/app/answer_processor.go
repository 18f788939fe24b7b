package app

import (
	"context"

	"quizlive-service/internal/domain"
)

// Points a correct answer adds to the room-local running score. This is
// a live indicator only; the authoritative score for a completed
// attempt is the accuracy percentage computed at settlement.
const correctAnswerPoints = 10

// AnswerProcessor validates one submission against the canonical quiz
// definition and produces a correctness verdict with its score delta.
type AnswerProcessor struct {
	quizzes QuizRepository
}

func NewAnswerProcessor(quizzes QuizRepository) *AnswerProcessor {
	return &AnswerProcessor{quizzes: quizzes}
}

func (p *AnswerProcessor) Process(ctx context.Context, sub domain.AnswerSubmission) (domain.AnswerVerdict, error) {
	quiz, err := p.quizzes.GetQuiz(ctx, sub.QuizID)
	if err != nil {
		return domain.AnswerVerdict{}, err
	}
	if sub.QuestionIndex < 0 || sub.QuestionIndex >= len(quiz.Questions) {
		return domain.AnswerVerdict{}, domain.ErrQuestionOutOfRange
	}

	question := quiz.Questions[sub.QuestionIndex]
	verdict := domain.AnswerVerdict{IsCorrect: sub.SelectedOption == question.CorrectIndex}
	if verdict.IsCorrect {
		verdict.ScoreDelta = correctAnswerPoints
	}
	return verdict, nil
}

// GradeAttempt re-validates a full answer sheet at completion time and
// returns the immutable score record for it. The authoritative score is
// the rounded accuracy percentage.
func (p *AnswerProcessor) GradeAttempt(ctx context.Context, userID, quizID string, answers []domain.SubmittedAnswer, totalTimeSeconds int) (domain.ScoreRecord, error) {
	quiz, err := p.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.ScoreRecord{}, err
	}
	total := len(quiz.Questions)
	if total == 0 {
		return domain.ScoreRecord{}, domain.ErrQuizNotFound
	}
	if len(answers) != total {
		return domain.ScoreRecord{}, domain.ErrAnswerCountMismatch
	}

	correct := 0
	recorded := make([]domain.RecordedAnswer, 0, len(answers))
	for i, answer := range answers {
		isCorrect := answer.SelectedOption == quiz.Questions[i].CorrectIndex
		if isCorrect {
			correct++
		}
		recorded = append(recorded, domain.RecordedAnswer{
			QuestionIndex:    i,
			SelectedOption:   answer.SelectedOption,
			IsCorrect:        isCorrect,
			TimeSpentSeconds: answer.TimeSpentSeconds,
		})
	}

	accuracy := float64(correct) / float64(total) * 100
	return domain.ScoreRecord{
		UserID:           userID,
		QuizID:           quizID,
		Score:            int(accuracy + 0.5),
		Accuracy:         accuracy,
		TotalQuestions:   total,
		CorrectAnswers:   correct,
		TimeSpentSeconds: totalTimeSeconds,
		Answers:          recorded,
	}, nil
}

// Package quiz checks submitted answers against catalog questions.
package quiz

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/p-n-ai/pai-quest/internal/catalog"
)

// QuestionSource resolves questions by ID.
type QuestionSource interface {
	GetQuestion(id int64) (catalog.Question, error)
}

// Result is the outcome of one answer submission.
type Result struct {
	QuestionID    int64  `json:"question_id"`
	Correct       bool   `json:"correct"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation"`
	UserAnswer    string `json:"user_answer"`
}

// Evaluator compares answers. It holds no state and never mutates its source.
type Evaluator struct {
	questions QuestionSource
}

// NewEvaluator creates an evaluator backed by src.
func NewEvaluator(src QuestionSource) *Evaluator {
	return &Evaluator{questions: src}
}

// Evaluate checks answer against the question's canonical answer.
// Only surrounding whitespace and letter case are ignored.
func (e *Evaluator) Evaluate(questionID int64, answer string) (Result, error) {
	q, err := e.questions.GetQuestion(questionID)
	if err != nil {
		return Result{}, err
	}

	return Result{
		QuestionID:    q.ID,
		Correct:       Normalize(answer) == Normalize(q.CorrectAnswer),
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
		UserAnswer:    answer,
	}, nil
}

// Normalize trims surrounding whitespace and case-folds s.
func Normalize(s string) string {
	// A Caser carries state, so each call gets its own.
	return cases.Fold().String(strings.TrimSpace(s))
}

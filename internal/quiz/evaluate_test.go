package quiz_test

import (
	"errors"
	"testing"

	"github.com/p-n-ai/pai-quest/internal/catalog"
	"github.com/p-n-ai/pai-quest/internal/platform/apperr"
	"github.com/p-n-ai/pai-quest/internal/quiz"
)

func newEvaluator(t *testing.T) (*quiz.Evaluator, *catalog.Catalog) {
	t.Helper()
	c, err := catalog.LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault() error = %v", err)
	}
	return quiz.NewEvaluator(c), c
}

func TestEvaluate(t *testing.T) {
	ev, _ := newEvaluator(t)

	tests := []struct {
		name       string
		questionID int64
		answer     string
		want       bool
	}{
		{"exact", 1, "Hello", true},
		{"padded lowercase", 1, " hello ", true},
		{"upper with tabs", 1, "\tHELLO\n", true},
		{"wrong word", 1, "Hi", false},
		{"inner whitespace matters", 1, "Hel lo", false},
		{"fill blank", 2, "Morning", true},
		{"numeric answer", 3, " 3", true},
		{"numeric wrong", 3, "three", false},
		{"empty", 2, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ev.Evaluate(tt.questionID, tt.answer)
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if got.Correct != tt.want {
				t.Errorf("Evaluate(%d, %q).Correct = %v, want %v", tt.questionID, tt.answer, got.Correct, tt.want)
			}
			if got.UserAnswer != tt.answer {
				t.Errorf("UserAnswer = %q, want %q", got.UserAnswer, tt.answer)
			}
		})
	}
}

func TestEvaluate_ReturnsCanonicalData(t *testing.T) {
	ev, _ := newEvaluator(t)

	got, err := ev.Evaluate(1, "Hi")
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if got.CorrectAnswer != "Hello" {
		t.Errorf("CorrectAnswer = %q, want Hello", got.CorrectAnswer)
	}
	if got.Explanation == "" {
		t.Error("Explanation should be returned")
	}
}

func TestEvaluate_CorrectAnswerAlwaysAccepted(t *testing.T) {
	ev, c := newEvaluator(t)

	for _, l := range c.ListLessons("", "") {
		for _, q := range c.QuestionsForLesson(l.ID) {
			for _, variant := range []string{q.CorrectAnswer, "  " + q.CorrectAnswer + " ", upper(q.CorrectAnswer)} {
				got, err := ev.Evaluate(q.ID, variant)
				if err != nil {
					t.Fatalf("Evaluate(%d) error = %v", q.ID, err)
				}
				if !got.Correct {
					t.Errorf("Evaluate(%d, %q) should be correct", q.ID, variant)
				}
			}
		}
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	ev, c := newEvaluator(t)
	before := c.Fingerprint()

	first, _ := ev.Evaluate(2, "evening")
	second, _ := ev.Evaluate(2, "evening")
	if first != second {
		t.Errorf("repeated Evaluate() differ: %+v vs %+v", first, second)
	}
	if c.Fingerprint() != before {
		t.Error("Evaluate() must not change the catalog")
	}
}

func TestEvaluate_UnknownQuestion(t *testing.T) {
	ev, _ := newEvaluator(t)

	_, err := ev.Evaluate(404, "Hello")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Evaluate(404) error = %v, want ErrNotFound", err)
	}
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"  Hello ": "hello",
		"STRASSE":  "strasse",
		"":         "",
	}
	for in, want := range tests {
		if got := quiz.Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func upper(s string) string {
	out := []rune(s)
	for i, r := range out {
		if r >= 'a' && r <= 'z' {
			out[i] = r - 'a' + 'A'
		}
	}
	return string(out)
}

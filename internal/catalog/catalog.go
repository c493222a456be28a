// Package catalog holds the read-only lesson and question content.
package catalog

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/p-n-ai/pai-quest/internal/platform/apperr"
)

// Catalog is an immutable, ordered set of lessons and their questions.
// Lookups return deep copies, so it has no mutation path after New
// returns and is safe for concurrent use.
type Catalog struct {
	lessons     []Lesson
	lessonIdx   map[int64]int
	questions   []Question
	questionIdx map[int64]int
	byLesson    map[int64][]int
	fingerprint string
}

// New builds a catalog, keeping lessons and questions in the given order.
// It returns an ErrIntegrity error when the content is inconsistent.
func New(lessons []Lesson, questions []Question) (*Catalog, error) {
	const op = "catalog.New"

	c := &Catalog{
		lessons:     make([]Lesson, 0, len(lessons)),
		lessonIdx:   make(map[int64]int, len(lessons)),
		questions:   make([]Question, 0, len(questions)),
		questionIdx: make(map[int64]int, len(questions)),
		byLesson:    make(map[int64][]int),
	}

	for _, l := range lessons {
		if err := checkLesson(l); err != nil {
			return nil, apperr.Integrity(op, "lesson %d: %s", l.ID, err)
		}
		if _, dup := c.lessonIdx[l.ID]; dup {
			return nil, apperr.Integrity(op, "duplicate lesson id %d", l.ID)
		}
		c.lessonIdx[l.ID] = len(c.lessons)
		c.lessons = append(c.lessons, cloneLesson(l))
	}

	for _, q := range questions {
		if err := checkQuestion(q); err != nil {
			return nil, apperr.Integrity(op, "question %d: %s", q.ID, err)
		}
		if _, dup := c.questionIdx[q.ID]; dup {
			return nil, apperr.Integrity(op, "duplicate question id %d", q.ID)
		}
		if _, ok := c.lessonIdx[q.LessonID]; !ok {
			return nil, apperr.Integrity(op, "question %d references unknown lesson %d", q.ID, q.LessonID)
		}
		c.questionIdx[q.ID] = len(c.questions)
		c.byLesson[q.LessonID] = append(c.byLesson[q.LessonID], len(c.questions))
		c.questions = append(c.questions, cloneQuestion(q))
	}

	fp, err := fingerprint(c.lessons, c.questions)
	if err != nil {
		return nil, fmt.Errorf("fingerprint catalog: %w", err)
	}
	c.fingerprint = fp

	return c, nil
}

// GetLesson returns a lesson by ID.
func (c *Catalog) GetLesson(id int64) (Lesson, error) {
	i, ok := c.lessonIdx[id]
	if !ok {
		return Lesson{}, apperr.NotFound("catalog.GetLesson", "lesson %d not found", id)
	}
	return cloneLesson(c.lessons[i]), nil
}

// ListLessons returns lessons matching both filters in catalog order.
// An empty filter matches everything; an unknown value matches nothing.
func (c *Catalog) ListLessons(level Level, typ LessonType) []Lesson {
	out := []Lesson{}
	for _, l := range c.lessons {
		if level != "" && l.Level != level {
			continue
		}
		if typ != "" && l.Type != typ {
			continue
		}
		out = append(out, cloneLesson(l))
	}
	return out
}

// QuestionsForLesson returns the lesson's questions in catalog order.
// A lesson without questions, known or not, yields an empty slice.
func (c *Catalog) QuestionsForLesson(lessonID int64) []Question {
	idx := c.byLesson[lessonID]
	out := make([]Question, 0, len(idx))
	for _, i := range idx {
		out = append(out, cloneQuestion(c.questions[i]))
	}
	return out
}

// GetQuestion returns a question by ID.
func (c *Catalog) GetQuestion(id int64) (Question, error) {
	i, ok := c.questionIdx[id]
	if !ok {
		return Question{}, apperr.NotFound("catalog.GetQuestion", "question %d not found", id)
	}
	return cloneQuestion(c.questions[i]), nil
}

// LessonCount returns the number of lessons.
func (c *Catalog) LessonCount() int { return len(c.lessons) }

// QuestionCount returns the number of questions.
func (c *Catalog) QuestionCount() int { return len(c.questions) }

// Fingerprint is a stable digest of the catalog content.
func (c *Catalog) Fingerprint() string { return c.fingerprint }

func cloneLesson(l Lesson) Lesson {
	if l.Content != nil {
		l.Content = cloneValue(l.Content).(map[string]any)
	}
	return l
}

func cloneQuestion(q Question) Question {
	q.Options = slices.Clone(q.Options)
	return q
}

// cloneValue deep-copies the maps and slices YAML decoding produces.
func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := maps.Clone(v)
		for k, e := range out {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := slices.Clone(v)
		for i, e := range out {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

func checkLesson(l Lesson) error {
	switch {
	case l.ID <= 0:
		return fmt.Errorf("id must be positive")
	case strings.TrimSpace(l.Title) == "":
		return fmt.Errorf("title is required")
	case !l.Level.Valid():
		return fmt.Errorf("unknown level %q", l.Level)
	case !l.Type.Valid():
		return fmt.Errorf("unknown type %q", l.Type)
	case l.ExperienceReward < 0 || l.CoinReward < 0:
		return fmt.Errorf("rewards must be non-negative")
	}
	return nil
}

func checkQuestion(q Question) error {
	switch {
	case q.ID <= 0:
		return fmt.Errorf("id must be positive")
	case !q.QuestionType.Valid():
		return fmt.Errorf("unknown question type %q", q.QuestionType)
	case strings.TrimSpace(q.CorrectAnswer) == "":
		return fmt.Errorf("correct answer is required")
	}

	if q.QuestionType != QuestionMultipleChoice {
		return nil
	}
	if len(q.Options) == 0 {
		return fmt.Errorf("multiple choice question has no options")
	}
	for _, o := range q.Options {
		if strings.EqualFold(strings.TrimSpace(o), strings.TrimSpace(q.CorrectAnswer)) {
			return nil
		}
	}
	return fmt.Errorf("correct answer %q is not one of the options", q.CorrectAnswer)
}

func fingerprint(lessons []Lesson, questions []Question) (string, error) {
	data, err := json.Marshal(struct {
		Lessons   []Lesson   `json:"lessons"`
		Questions []Question `json:"questions"`
	}{lessons, questions})
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

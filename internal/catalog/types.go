package catalog

// Level is a CEFR proficiency tier.
type Level string

const (
	LevelA1 Level = "A1"
	LevelA2 Level = "A2"
	LevelB1 Level = "B1"
	LevelB2 Level = "B2"
	LevelC1 Level = "C1"
	LevelC2 Level = "C2"
)

// Levels lists every level from beginner to mastery.
var Levels = []Level{LevelA1, LevelA2, LevelB1, LevelB2, LevelC1, LevelC2}

// Valid reports whether l is a known level.
func (l Level) Valid() bool {
	for _, v := range Levels {
		if l == v {
			return true
		}
	}
	return false
}

// LessonType is the skill a lesson trains.
type LessonType string

const (
	TypeVocabulary LessonType = "vocabulary"
	TypeGrammar    LessonType = "grammar"
	TypeListening  LessonType = "listening"
	TypeSpeaking   LessonType = "speaking"
	TypeReading    LessonType = "reading"
	TypeWriting    LessonType = "writing"
)

// LessonTypes lists every lesson type.
var LessonTypes = []LessonType{TypeVocabulary, TypeGrammar, TypeListening, TypeSpeaking, TypeReading, TypeWriting}

// Valid reports whether t is a known lesson type.
func (t LessonType) Valid() bool {
	for _, v := range LessonTypes {
		if t == v {
			return true
		}
	}
	return false
}

// QuestionType is how a question is presented and answered.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionFillBlank      QuestionType = "fill_blank"
	QuestionTranslate      QuestionType = "translate"
	QuestionAudio          QuestionType = "audio"
)

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionMultipleChoice, QuestionFillBlank, QuestionTranslate, QuestionAudio:
		return true
	}
	return false
}

// Lesson is a unit of study loaded from YAML.
type Lesson struct {
	ID               int64          `yaml:"id" json:"id"`
	Title            string         `yaml:"title" json:"title"`
	Description      string         `yaml:"description" json:"description"`
	Level            Level          `yaml:"level" json:"level"`
	Type             LessonType     `yaml:"type" json:"type"`
	Content          map[string]any `yaml:"content" json:"content"`
	ExperienceReward int            `yaml:"experience_reward" json:"experience_reward"`
	CoinReward       int            `yaml:"coin_reward" json:"coin_reward"`
}

// Question belongs to exactly one lesson.
type Question struct {
	ID            int64        `yaml:"id" json:"id"`
	LessonID      int64        `yaml:"lesson_id" json:"lesson_id"`
	QuestionText  string       `yaml:"question_text" json:"question_text"`
	QuestionType  QuestionType `yaml:"question_type" json:"question_type"`
	Options       []string     `yaml:"options,omitempty" json:"options,omitempty"`
	CorrectAnswer string       `yaml:"correct_answer" json:"correct_answer"`
	Explanation   string       `yaml:"explanation,omitempty" json:"explanation,omitempty"`
}

// document is the shape of one catalog YAML file.
type document struct {
	Lessons   []Lesson   `yaml:"lessons"`
	Questions []Question `yaml:"questions"`
}

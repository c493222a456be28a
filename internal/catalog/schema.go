package catalog

// schemaJSON describes one catalog YAML file after decoding.
const schemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "lessons": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "title", "level", "type", "experience_reward", "coin_reward"],
        "properties": {
          "id": {"type": "integer", "minimum": 1},
          "title": {"type": "string", "minLength": 1},
          "description": {"type": "string"},
          "level": {"enum": ["A1", "A2", "B1", "B2", "C1", "C2"]},
          "type": {"enum": ["vocabulary", "grammar", "listening", "speaking", "reading", "writing"]},
          "content": {"type": "object"},
          "experience_reward": {"type": "integer", "minimum": 0},
          "coin_reward": {"type": "integer", "minimum": 0}
        }
      }
    },
    "questions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "lesson_id", "question_text", "question_type", "correct_answer"],
        "properties": {
          "id": {"type": "integer", "minimum": 1},
          "lesson_id": {"type": "integer", "minimum": 1},
          "question_text": {"type": "string", "minLength": 1},
          "question_type": {"enum": ["multiple_choice", "fill_blank", "translate", "audio"]},
          "options": {"type": "array", "items": {"type": "string"}},
          "correct_answer": {"type": "string", "minLength": 1},
          "explanation": {"type": "string"}
        }
      }
    }
  }
}`

package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/p-n-ai/pai-quest/internal/platform/apperr"
)

//go:embed seed/*.yaml
var seedFS embed.FS

// LoadDefault loads the catalog shipped with the binary.
func LoadDefault() (*Catalog, error) {
	sub, err := fs.Sub(seedFS, "seed")
	if err != nil {
		return nil, fmt.Errorf("open seed catalog: %w", err)
	}
	return LoadFS(sub)
}

// Load reads every catalog YAML file under rootDir.
func Load(rootDir string) (*Catalog, error) {
	info, err := os.Stat(rootDir)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("loading catalog: %s is not a directory", rootDir)
	}
	return LoadFS(os.DirFS(rootDir))
}

// LoadFS reads every *.yaml / *.yml file in fsys in lexical path order.
// Files without a lessons or questions list are skipped.
func LoadFS(fsys fs.FS) (*Catalog, error) {
	var lessons []Lesson
	var questions []Question
	files := 0

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := path.Ext(p)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		doc, ok, err := loadDocument(fsys, p)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		files++
		lessons = append(lessons, doc.Lessons...)
		questions = append(questions, doc.Questions...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	c, err := New(lessons, questions)
	if err != nil {
		return nil, err
	}

	slog.Info("catalog loaded",
		"files", files,
		"lessons", c.LessonCount(),
		"questions", c.QuestionCount(),
		"fingerprint", c.Fingerprint()[:12],
	)
	return c, nil
}

func loadDocument(fsys fs.FS, p string) (document, bool, error) {
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return document{}, false, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		slog.Warn("skipping invalid catalog YAML", "path", p, "error", err)
		return document{}, false, nil
	}
	_, hasLessons := raw["lessons"]
	_, hasQuestions := raw["questions"]
	if !hasLessons && !hasQuestions {
		return document{}, false, nil // not a catalog file
	}

	if err := validateDocument(raw); err != nil {
		return document{}, false, apperr.Integrity("catalog.Load", "%s: %s", p, err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return document{}, false, fmt.Errorf("decode %s: %w", p, err)
	}
	return doc, true, nil
}

var documentSchema = mustCompileSchema()

func mustCompileSchema() *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		panic(fmt.Sprintf("catalog schema: %v", err))
	}
	return s
}

// validateDocument checks a decoded YAML document against the catalog schema.
func validateDocument(raw map[string]any) error {
	res, err := documentSchema.Validate(gojsonschema.NewGoLoader(raw))
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("schema violations: %s", strings.Join(msgs, "; "))
}

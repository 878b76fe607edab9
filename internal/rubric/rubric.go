package rubric

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed rubric.yaml
var defaultRubric []byte

// Kind selects how a criterion walks a unit's paragraphs.
type Kind string

const (
	KindParagraph Kind = "paragraph" // one call per paragraph
	KindPair      Kind = "pair"      // one call per adjacent pair in the same group
)

// DefaultExpectedStyle is used when a dataset item names no style.
const DefaultExpectedStyle = "遵循特定人工智能领域的规范，保持准确性、客观性、一致性和清晰性，具备良好的组织结构，并在写作前深入思考核心内容和表达方式。"

var gradeLabels = [5]string{"很差", "较差", "一般", "良好", "优秀"}

// Criterion is one rubric dimension.
type Criterion struct {
	ID               string   `yaml:"id"`
	Name             string   `yaml:"name"`
	English          string   `yaml:"english"`
	Kind             Kind     `yaml:"kind"`
	Summary          string   `yaml:"summary"`
	SummarySuffix    string   `yaml:"summary_suffix"`
	EmptyExplanation string   `yaml:"empty_explanation"`
	Grades           []string `yaml:"grades"`
	Prompt           string   `yaml:"prompt"`

	tmpl *template.Template
}

// SectionCoherence configures the cross-unit coherence pass.
type SectionCoherence struct {
	Criterion       string `yaml:"criterion"`
	SkipExplanation string `yaml:"skip_explanation"`
	Prompt          string `yaml:"prompt"`

	tmpl   *template.Template
	grades string
}

// Rubric is the full set of criteria and prompts.
type Rubric struct {
	OutputFormat     string           `yaml:"output_format"`
	Criteria         []*Criterion     `yaml:"criteria"`
	SectionCoherence SectionCoherence `yaml:"section_coherence"`
}

// Brief carries the per-document context that prompts refer to.
type Brief struct {
	Topic         string
	Description   string
	ExpectedStyle string
}

// PromptData is the template input for every prompt.
type PromptData struct {
	Brief
	Paragraph   string
	First       string
	Second      string
	FirstTitle  string
	SecondTitle string
	Grades      string
}

// Default returns the embedded rubric.
func Default() (*Rubric, error) {
	return Parse(defaultRubric)
}

// Load reads a rubric file, or the embedded rubric when path is empty.
func Load(path string) (*Rubric, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rubric: %w", err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("rubric %s: %w", path, err)
	}
	return r, nil
}

// Parse decodes and validates a YAML rubric.
func Parse(data []byte) (*Rubric, error) {
	var r Rubric
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode rubric: %w", err)
	}
	if err := r.compile(); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *Rubric) compile() error {
	if len(r.Criteria) == 0 {
		return errors.New("rubric has no criteria")
	}
	seen := make(map[string]bool)
	for _, c := range r.Criteria {
		if c.ID == "" {
			return errors.New("criterion without id")
		}
		if seen[c.ID] {
			return fmt.Errorf("duplicate criterion %q", c.ID)
		}
		seen[c.ID] = true
		if c.Kind != KindParagraph && c.Kind != KindPair {
			return fmt.Errorf("criterion %s: unknown kind %q", c.ID, c.Kind)
		}
		if len(c.Grades) != 5 {
			return fmt.Errorf("criterion %s: want 5 grade descriptions, got %d", c.ID, len(c.Grades))
		}
		t, err := template.New(c.ID).Option("missingkey=error").Parse(c.Prompt)
		if err != nil {
			return fmt.Errorf("criterion %s: %w", c.ID, err)
		}
		c.tmpl = t
	}

	sc := &r.SectionCoherence
	base := r.Criterion(sc.Criterion)
	if base == nil {
		return fmt.Errorf("section coherence refers to unknown criterion %q", sc.Criterion)
	}
	t, err := template.New("section_coherence").Parse(sc.Prompt)
	if err != nil {
		return fmt.Errorf("section coherence: %w", err)
	}
	sc.tmpl = t
	sc.grades = base.GradeBlock()
	return nil
}

// Criterion returns the criterion with the given id, or nil.
func (r *Rubric) Criterion(id string) *Criterion {
	for _, c := range r.Criteria {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// IDs returns criterion ids in rubric order.
func (r *Rubric) IDs() []string {
	ids := make([]string, len(r.Criteria))
	for i, c := range r.Criteria {
		ids[i] = c.ID
	}
	return ids
}

// GradeBlock renders the 1-5 scale descriptions.
func (c *Criterion) GradeBlock() string {
	var sb strings.Builder
	sb.WriteString("评分标准：\n")
	for i, g := range c.Grades {
		fmt.Fprintf(&sb, "%d分（%s）：%s\n", i+1, gradeLabels[i], g)
	}
	return sb.String()
}

// Render builds the prompt for this criterion.
func (r *Rubric) Render(c *Criterion, data PromptData) (string, error) {
	data.Grades = c.GradeBlock()
	return r.execute(c.tmpl, data)
}

// RenderSectionCoherence builds the prompt comparing two adjacent units.
func (r *Rubric) RenderSectionCoherence(data PromptData) (string, error) {
	data.Grades = r.SectionCoherence.grades
	return r.execute(r.SectionCoherence.tmpl, data)
}

func (r *Rubric) execute(t *template.Template, data PromptData) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", t.Name(), err)
	}
	sb.WriteString("\n")
	sb.WriteString(r.OutputFormat)
	return sb.String(), nil
}

package gateway

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/p-n-ai/preppysphere/internal/ai"
	"github.com/p-n-ai/preppysphere/internal/intent"
)

// validator checks structured answers against the same schemas the
// prompts declare. Anything that does not fit is ErrMalformed.
type validator struct {
	studyPlanSchema      *gojsonschema.Schema
	categorizationSchema *gojsonschema.Schema
	wellnessSchema       *gojsonschema.Schema
}

func newValidator() (*validator, error) {
	compile := func(name string, s *ai.Schema) (*gojsonschema.Schema, error) {
		compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(s.JSONSchema()))
		if err != nil {
			return nil, fmt.Errorf("%s schema: %w", name, err)
		}
		return compiled, nil
	}

	var v validator
	var err error
	if v.studyPlanSchema, err = compile("study plan", intent.StudyPlanSchema()); err != nil {
		return nil, err
	}
	if v.categorizationSchema, err = compile("categorization", intent.CategorizationSchema()); err != nil {
		return nil, err
	}
	if v.wellnessSchema, err = compile("wellness tips", intent.WellnessTipsSchema()); err != nil {
		return nil, err
	}
	return &v, nil
}

func (v *validator) studyPlan(content string) (intent.StudyPlan, error) {
	var plan intent.StudyPlan
	if err := decode(content, v.studyPlanSchema, &plan); err != nil {
		return intent.StudyPlan{}, err
	}
	if len(plan.Tasks) == 0 {
		return intent.StudyPlan{}, fmt.Errorf("%w: study plan has no tasks", ai.ErrMalformed)
	}
	return plan, nil
}

func (v *validator) categorization(content string) (intent.Categorization, error) {
	var c intent.Categorization
	if err := decode(content, v.categorizationSchema, &c); err != nil {
		return intent.Categorization{}, err
	}
	if _, ok := intent.ParseIssueCategory(string(c.Category)); !ok {
		return intent.Categorization{}, fmt.Errorf("%w: unknown issue category %q", ai.ErrMalformed, c.Category)
	}
	c.Routing = strings.TrimSpace(c.Routing)
	if c.Routing == "" {
		return intent.Categorization{}, fmt.Errorf("%w: empty routing", ai.ErrMalformed)
	}
	return c, nil
}

func (v *validator) wellnessTips(content string) ([]intent.WellnessTip, error) {
	var tips []intent.WellnessTip
	if err := decode(content, v.wellnessSchema, &tips); err != nil {
		return nil, err
	}
	if len(tips) == 0 {
		return nil, fmt.Errorf("%w: no wellness tips", ai.ErrMalformed)
	}
	for i := range tips {
		if !tips[i].Category.Valid() {
			return nil, fmt.Errorf("%w: tip %d has unknown category %q", ai.ErrMalformed, i, tips[i].Category)
		}
		tips[i].Completed = false
	}
	return tips, nil
}

// decode validates content against schema and unmarshals it into out.
func decode(content string, schema *gojsonschema.Schema, out any) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return fmt.Errorf("%w: empty response", ai.ErrMalformed)
	}
	if !json.Valid([]byte(content)) {
		return fmt.Errorf("%w: response is not JSON", ai.ErrMalformed)
	}

	result, err := schema.Validate(gojsonschema.NewStringLoader(content))
	if err != nil {
		return fmt.Errorf("%w: %w", ai.ErrMalformed, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ai.ErrMalformed, strings.Join(msgs, "; "))
	}

	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("%w: %w", ai.ErrMalformed, err)
	}
	return nil
}

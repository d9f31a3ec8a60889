package wellness

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/p-n-ai/preppysphere/internal/intent"
)

//go:embed questionnaire.yaml
var questionnaireYAML []byte

// Question is one Stress Buster item.
type Question struct {
	ID     int    `yaml:"id" json:"id"`
	Text   string `yaml:"text" json:"text"`
	Points int    `yaml:"points" json:"points"`
}

// Questionnaire is the rapid stress check.
type Questionnaire struct {
	Questions []Question `yaml:"questions" json:"questions"`
}

// LoadQuestionnaire returns the bundled questionnaire.
func LoadQuestionnaire() (*Questionnaire, error) {
	var q Questionnaire
	if err := yaml.Unmarshal(questionnaireYAML, &q); err != nil {
		return nil, fmt.Errorf("parse questionnaire: %w", err)
	}
	if len(q.Questions) == 0 {
		return nil, fmt.Errorf("questionnaire is empty")
	}
	return &q, nil
}

// Score sums the points of the checked question IDs and clamps the result
// to the stress scale. Unknown and repeated IDs are ignored.
func (q *Questionnaire) Score(checked []int) int {
	seen := make(map[int]bool, len(checked))
	points := 0
	for _, id := range checked {
		if seen[id] {
			continue
		}
		seen[id] = true
		for _, question := range q.Questions {
			if question.ID == id {
				points += question.Points
				break
			}
		}
	}
	return min(max(points, intent.MinStressLevel), intent.MaxStressLevel)
}

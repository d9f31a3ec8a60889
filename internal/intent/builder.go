package intent

import (
	"errors"
	"fmt"
	"strings"

	"github.com/p-n-ai/preppysphere/internal/ai"
)

// ErrInvalidRequest marks input that fails validation before any call is made.
var ErrInvalidRequest = errors.New("invalid request")

// WellnessTipCount is how many tips are requested. Responses may contain fewer.
const WellnessTipCount = 3

// DoubtTemperature keeps tutor answers focused and simple.
const DoubtTemperature = 0.3

// Prompt is everything the transport needs for one intent.
type Prompt struct {
	Text        string
	Schema      *ai.Schema // nil for free-text intents
	Temperature *float64
}

// Build turns an intent into a prompt. It is a pure function of its input.
func Build(in Intent) (Prompt, error) {
	if in == nil {
		return Prompt{}, fmt.Errorf("%w: nil intent", ErrInvalidRequest)
	}
	if err := in.Validate(); err != nil {
		return Prompt{}, err
	}

	switch r := in.(type) {
	case StudyPlanRequest:
		duration := strings.TrimSpace(r.Duration)
		if duration == "" {
			duration = DefaultStudyDuration
		}
		return Prompt{
			Text:   fmt.Sprintf("Create a study plan for %s for a duration of %s.", strings.TrimSpace(r.Subject), duration),
			Schema: StudyPlanSchema(),
		}, nil

	case IssueCategorizationRequest:
		return Prompt{
			Text: fmt.Sprintf(
				"Analyze this campus issue: Title: %q, Description: %q. Categorize it and suggest which department/club "+
					"(e.g., Campus Maintenance, Student Union, Dean of Academics, etc.) should handle it.",
				strings.TrimSpace(r.Title), strings.TrimSpace(r.Description)),
			Schema: CategorizationSchema(),
		}, nil

	case WellnessTipsRequest:
		var text string
		if r.General() {
			text = fmt.Sprintf("Provide %d wellness tips for a student with a stress level of %d/10.",
				WellnessTipCount, r.StressLevel)
		} else {
			text = fmt.Sprintf("Provide %d wellness tips for a student facing this specific problem: %q. Current stress: %d/10.",
				WellnessTipCount, strings.TrimSpace(r.Query), r.StressLevel)
		}
		return Prompt{Text: text, Schema: WellnessTipsSchema()}, nil

	case DoubtRequest:
		return Prompt{
			Text:        doubtPrompt(strings.TrimSpace(r.Question)),
			Temperature: ai.Float64(DoubtTemperature),
		}, nil
	}

	return Prompt{}, fmt.Errorf("%w: unsupported intent %T", ErrInvalidRequest, in)
}

func doubtPrompt(question string) string {
	return `You are an AI Tutor for students. Explain the following doubt in extremely easy language that a 10-year-old could understand.

CRITICAL RULES:
1. Be very concise.
2. DO NOT use hashtags (#).
3. DO NOT use asterisks (*) for bolding or lists.
4. DO NOT use dollar signs ($) for math notation.
5. If you need a list, use plain numbers (1. 2.) or simple dashes (-).
6. No markdown formatting symbols should be visible in your text.

Doubt: ` + question
}

// StudyPlanSchema is the response shape of a study plan.
func StudyPlanSchema() *ai.Schema {
	return &ai.Schema{
		Type: ai.TypeObject,
		Properties: map[string]*ai.Schema{
			"subject":  {Type: ai.TypeString},
			"duration": {Type: ai.TypeString},
			"tasks":    {Type: ai.TypeArray, Items: &ai.Schema{Type: ai.TypeString}},
			"tips":     {Type: ai.TypeString},
		},
		Required: []string{"subject", "duration", "tasks", "tips"},
	}
}

// CategorizationSchema is the response shape of an issue categorization.
func CategorizationSchema() *ai.Schema {
	enum := make([]string, len(IssueCategories))
	for i, c := range IssueCategories {
		enum[i] = string(c)
	}
	return &ai.Schema{
		Type: ai.TypeObject,
		Properties: map[string]*ai.Schema{
			"category": {Type: ai.TypeString, Enum: enum},
			"routing":  {Type: ai.TypeString},
		},
		Required: []string{"category", "routing"},
	}
}

// WellnessTipsSchema is the response shape of a wellness tip list.
func WellnessTipsSchema() *ai.Schema {
	enum := make([]string, len(TipCategories))
	for i, c := range TipCategories {
		enum[i] = string(c)
	}
	return &ai.Schema{
		Type:     ai.TypeArray,
		MinItems: ai.Int(1),
		Items: &ai.Schema{
			Type: ai.TypeObject,
			Properties: map[string]*ai.Schema{
				"category": {Type: ai.TypeString, Enum: enum},
				"tip":      {Type: ai.TypeString},
				"action":   {Type: ai.TypeString},
			},
			Required: []string{"category", "tip", "action"},
		},
	}
}

// Package intent describes what a student asks the AI for and the typed
// contract of each answer.
package intent

import (
	"fmt"
	"strings"
)

// Kind identifies an intent for logging and routing.
type Kind int

const (
	KindStudyPlan Kind = iota
	KindIssueCategorization
	KindWellnessTips
	KindDoubt
)

func (k Kind) String() string {
	switch k {
	case KindStudyPlan:
		return "study_plan"
	case KindIssueCategorization:
		return "issue_categorization"
	case KindWellnessTips:
		return "wellness_tips"
	case KindDoubt:
		return "doubt"
	default:
		return "unknown"
	}
}

// Intent is a request for AI-generated content.
type Intent interface {
	Kind() Kind
	Validate() error
}

// DefaultStudyDuration is used when a study plan request leaves the duration blank.
const DefaultStudyDuration = "2 hours"

// StudyPlanRequest asks for a study plan for a subject over a duration.
type StudyPlanRequest struct {
	Subject  string `json:"subject"`
	Duration string `json:"duration"`
}

func (StudyPlanRequest) Kind() Kind { return KindStudyPlan }

func (r StudyPlanRequest) Validate() error {
	if strings.TrimSpace(r.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidRequest)
	}
	return nil
}

// IssueCategorizationRequest asks which category and department a campus issue belongs to.
type IssueCategorizationRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (IssueCategorizationRequest) Kind() Kind { return KindIssueCategorization }

func (r IssueCategorizationRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" || strings.TrimSpace(r.Description) == "" {
		return fmt.Errorf("%w: title and description are required", ErrInvalidRequest)
	}
	return nil
}

// Stress levels are on a 1-10 scale.
const (
	MinStressLevel = 1
	MaxStressLevel = 10
)

// WellnessTipsRequest asks for tips at a stress level, optionally about a specific problem.
type WellnessTipsRequest struct {
	StressLevel int    `json:"stress_level"`
	Query       string `json:"query,omitempty"`
}

func (WellnessTipsRequest) Kind() Kind { return KindWellnessTips }

func (r WellnessTipsRequest) Validate() error {
	if r.StressLevel < MinStressLevel || r.StressLevel > MaxStressLevel {
		return fmt.Errorf("%w: stress level %d outside %d-%d", ErrInvalidRequest, r.StressLevel, MinStressLevel, MaxStressLevel)
	}
	return nil
}

// General reports whether the request is the default daily view (no search query).
func (r WellnessTipsRequest) General() bool {
	return strings.TrimSpace(r.Query) == ""
}

// DoubtRequest asks the tutor to explain something.
type DoubtRequest struct {
	Question string `json:"question"`
}

func (DoubtRequest) Kind() Kind { return KindDoubt }

func (r DoubtRequest) Validate() error {
	if strings.TrimSpace(r.Question) == "" {
		return fmt.Errorf("%w: question is required", ErrInvalidRequest)
	}
	return nil
}

// StudyPlan is a generated study plan.
type StudyPlan struct {
	Subject  string   `json:"subject"`
	Duration string   `json:"duration"`
	Tasks    []string `json:"tasks"`
	Tips     string   `json:"tips"`
}

// IssueCategory is the closed set of campus issue categories.
type IssueCategory string

const (
	CategoryInfrastructure IssueCategory = "Infrastructure"
	CategoryAcademic       IssueCategory = "Academic"
	CategorySafety         IssueCategory = "Safety"
	CategoryAdministration IssueCategory = "Administration"
	CategorySportsClubs    IssueCategory = "Sports & Clubs"
	CategorySocial         IssueCategory = "Social"
)

// IssueCategories lists every category in display order.
var IssueCategories = []IssueCategory{
	CategoryInfrastructure,
	CategoryAcademic,
	CategorySafety,
	CategoryAdministration,
	CategorySportsClubs,
	CategorySocial,
}

// ParseIssueCategory accepts only exact members of the enumeration.
func ParseIssueCategory(s string) (IssueCategory, bool) {
	for _, c := range IssueCategories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Categorization is the routing decision for a campus issue.
type Categorization struct {
	Category IssueCategory `json:"category"`
	Routing  string        `json:"routing"`
}

// TipCategory is the area of wellness a tip targets.
type TipCategory string

const (
	TipMental   TipCategory = "mental"
	TipPhysical TipCategory = "physical"
	TipSocial   TipCategory = "social"
)

// TipCategories lists every tip category.
var TipCategories = []TipCategory{TipMental, TipPhysical, TipSocial}

// Valid reports whether c is a known tip category.
func (c TipCategory) Valid() bool {
	for _, known := range TipCategories {
		if c == known {
			return true
		}
	}
	return false
}

// WellnessTip is a single tip. Completed is tracked client-side only.
type WellnessTip struct {
	Category  TipCategory `json:"category"`
	Tip       string      `json:"tip"`
	Action    string      `json:"action"`
	Completed bool        `json:"completed"`
}

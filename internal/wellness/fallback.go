package wellness

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/p-n-ai/preppysphere/internal/intent"
)

//go:embed fallback.yaml
var fallbackYAML []byte

// FallbackTable maps query keywords to locally bundled tips.
type FallbackTable struct {
	Default []intent.WellnessTip `yaml:"default"`
	Topics  []FallbackTopic      `yaml:"topics"`
}

// FallbackTopic is one keyword group.
type FallbackTopic struct {
	Name     string               `yaml:"name"`
	Keywords []string             `yaml:"keywords"`
	Tips     []intent.WellnessTip `yaml:"tips"`
}

var (
	defaultTable     *FallbackTable
	defaultTableErr  error
	defaultTableOnce sync.Once
)

// ParseFallbackTable decodes and checks a fallback table.
func ParseFallbackTable(data []byte) (*FallbackTable, error) {
	var t FallbackTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse fallback table: %w", err)
	}
	if len(t.Default) == 0 {
		return nil, fmt.Errorf("fallback table has no default tips")
	}
	check := func(where string, tips []intent.WellnessTip) error {
		for i, tip := range tips {
			if !tip.Category.Valid() || tip.Tip == "" || tip.Action == "" {
				return fmt.Errorf("fallback table %s tip %d is incomplete", where, i)
			}
		}
		return nil
	}
	if err := check("default", t.Default); err != nil {
		return nil, err
	}
	for i := range t.Topics {
		topic := &t.Topics[i]
		if err := check(topic.Name, topic.Tips); err != nil {
			return nil, err
		}
		for j, kw := range topic.Keywords {
			topic.Keywords[j] = fold(kw)
		}
	}
	return &t, nil
}

// DefaultFallbackTable returns the bundled table.
func DefaultFallbackTable() (*FallbackTable, error) {
	defaultTableOnce.Do(func() {
		defaultTable, defaultTableErr = ParseFallbackTable(fallbackYAML)
	})
	return defaultTable, defaultTableErr
}

// Tips returns the tips for query: the first topic with a keyword found in
// the query, or the default presets.
func (t *FallbackTable) Tips(query string) []intent.WellnessTip {
	q := fold(query)
	if q != "" {
		for _, topic := range t.Topics {
			for _, kw := range topic.Keywords {
				if kw != "" && strings.Contains(q, kw) {
					return cloneTips(topic.Tips)
				}
			}
		}
	}
	return cloneTips(t.Default)
}

// fold normalizes s for keyword matching. A Caser is stateful, so one is
// made per call.
func fold(s string) string {
	return strings.TrimSpace(cases.Fold().String(norm.NFC.String(s)))
}

func cloneTips(tips []intent.WellnessTip) []intent.WellnessTip {
	out := make([]intent.WellnessTip, len(tips))
	for i, tip := range tips {
		tip.Completed = false
		out[i] = tip
	}
	return out
}

package router

import (
	"encoding/json"
	"fmt"
	"os"
)

// OverrideRule boosts or forces tags when one of its literal patterns occurs
// in the query. Rules apply in declaration order.
type OverrideRule struct {
	Patterns  []string           `json:"patterns"`
	BoostTags map[string]float64 `json:"boost_tags"`
	ForceTags []string           `json:"force_tags"`
}

type overridesDocument struct {
	Rules []OverrideRule `json:"rules"`
}

// LoadOverrides reads the override-rules document. A missing or malformed
// file is an error; the caller treats it as fatal at startup.
func LoadOverrides(path string) ([]OverrideRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overrides %s: %w", path, err)
	}

	var doc overridesDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse overrides %s: %w", path, err)
	}

	for i, rule := range doc.Rules {
		if len(rule.Patterns) == 0 {
			return nil, fmt.Errorf("overrides %s: rules[%d] has no patterns", path, i)
		}
	}

	return doc.Rules, nil
}

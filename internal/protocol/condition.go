package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ConditionKind enumerates the closed set of trigger condition variants.
type ConditionKind int

const (
	// KindEvent matches a named hardware/sensor event.
	KindEvent ConditionKind = iota
	// KindTextContainsAny matches any literal word as a substring of the text.
	KindTextContainsAny
	// KindTagsAny matches when any listed tag is routed.
	KindTagsAny
	// KindTagsAll matches when every listed tag is routed.
	KindTagsAll
)

// Condition is one trigger condition. Exactly one variant is populated,
// selected by Kind.
type Condition struct {
	Kind  ConditionKind
	Event string
	Words []string
	Tags  []string
}

// UnmarshalJSON decodes the one-key document form:
//
//	{"event": "imu_strong_shake"}
//	{"text_contains_any": ["余震", "晃"]}
//	{"tags_any": ["scn_aftershock"]}
//	{"tags_all": ["a", "b"]}
//
// Anything else is a schema violation and fails the load.
func (c *Condition) UnmarshalJSON(data []byte) error {
	var raw struct {
		Event           *string  `json:"event"`
		TextContainsAny []string `json:"text_contains_any"`
		TagsAny         []string `json:"tags_any"`
		TagsAll         []string `json:"tags_all"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	variants := 0
	if raw.Event != nil {
		variants++
		c.Kind = KindEvent
		c.Event = *raw.Event
	}
	if raw.TextContainsAny != nil {
		variants++
		c.Kind = KindTextContainsAny
		c.Words = raw.TextContainsAny
	}
	if raw.TagsAny != nil {
		variants++
		c.Kind = KindTagsAny
		c.Tags = raw.TagsAny
	}
	if raw.TagsAll != nil {
		variants++
		c.Kind = KindTagsAll
		c.Tags = raw.TagsAll
	}

	if variants != 1 {
		return fmt.Errorf("condition must have exactly one of event/text_contains_any/tags_any/tags_all, got %d", variants)
	}
	return nil
}

// Eval evaluates the condition against one turn's text, routed tags and events.
func (c *Condition) Eval(text string, tags, events []string) bool {
	switch c.Kind {
	case KindEvent:
		return contains(events, c.Event)
	case KindTextContainsAny:
		for _, w := range c.Words {
			if w != "" && strings.Contains(text, w) {
				return true
			}
		}
		return false
	case KindTagsAny:
		for _, t := range c.Tags {
			if contains(tags, t) {
				return true
			}
		}
		return false
	case KindTagsAll:
		for _, t := range c.Tags {
			if !contains(tags, t) {
				return false
			}
		}
		return len(c.Tags) > 0
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

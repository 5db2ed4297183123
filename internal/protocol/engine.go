package protocol

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/calmbox/calmbox/internal/domain"
)

// Action types a protocol can emit.
const (
	ActionTTS    = "tts"
	ActionLED    = "led"
	ActionScreen = "screen"
)

// Action is one ordered output step of a matched protocol.
type Action struct {
	Type    string            `json:"type"`
	Text    string            `json:"text,omitempty"`
	Style   string            `json:"style,omitempty"`
	Pattern domain.LEDPattern `json:"pattern,omitempty"`
	MS      int               `json:"ms,omitempty"`
}

// Trigger is a boolean expression over conditions. A trigger with all three
// lists empty never matches; that is policy, not an omission.
type Trigger struct {
	AllOf  []Condition `json:"all_of"`
	AnyOf  []Condition `json:"any_of"`
	NoneOf []Condition `json:"none_of"`
}

// Protocol is a fixed, pre-authored response that bypasses generation.
type Protocol struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Priority int      `json:"priority"`
	Trigger  Trigger  `json:"trigger"`
	Actions  []Action `json:"actions"`
}

// Engine evaluates protocols in priority order. Immutable after load.
type Engine struct {
	protocols []Protocol
}

type protocolsDocument struct {
	Protocols []Protocol `json:"protocols"`
}

// Load reads the protocol document and sorts it once, descending by
// priority with declaration order as the stable tie-break.
func Load(path string) (*Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read protocols %s: %w", path, err)
	}

	var doc protocolsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse protocols %s: %w", path, err)
	}

	for i, p := range doc.Protocols {
		if p.ID == "" {
			return nil, fmt.Errorf("protocols %s: protocols[%d] has no id", path, i)
		}
		if err := validateTrigger(p.Trigger); err != nil {
			return nil, fmt.Errorf("protocols %s: protocol %s: %w", path, p.ID, err)
		}
	}

	sort.SliceStable(doc.Protocols, func(i, j int) bool {
		return doc.Protocols[i].Priority > doc.Protocols[j].Priority
	})

	return &Engine{protocols: doc.Protocols}, nil
}

// validateTrigger rejects degenerate conditions at load time so they cannot
// silently change trigger semantics at query time.
func validateTrigger(t Trigger) error {
	for _, group := range [][]Condition{t.AllOf, t.AnyOf, t.NoneOf} {
		for _, c := range group {
			switch c.Kind {
			case KindEvent:
				if c.Event == "" {
					return fmt.Errorf("event condition with empty name")
				}
			case KindTextContainsAny:
				if len(c.Words) == 0 {
					return fmt.Errorf("text_contains_any condition with no words")
				}
			case KindTagsAny, KindTagsAll:
				if len(c.Tags) == 0 {
					return fmt.Errorf("tag condition with no tags")
				}
			}
		}
	}
	return nil
}

// Match returns the first protocol whose trigger evaluates true, or nil.
func (e *Engine) Match(text string, routedTags, events []string) *Protocol {
	for i := range e.protocols {
		p := &e.protocols[i]
		if evalTrigger(p.Trigger, text, routedTags, events) {
			return p
		}
	}
	return nil
}

func evalTrigger(t Trigger, text string, tags, events []string) bool {
	if len(t.AllOf) == 0 && len(t.AnyOf) == 0 && len(t.NoneOf) == 0 {
		return false
	}

	for _, c := range t.AllOf {
		if !c.Eval(text, tags, events) {
			return false
		}
	}

	if len(t.AnyOf) > 0 {
		hit := false
		for _, c := range t.AnyOf {
			if c.Eval(text, tags, events) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}

	for _, c := range t.NoneOf {
		if c.Eval(text, tags, events) {
			return false
		}
	}

	return true
}

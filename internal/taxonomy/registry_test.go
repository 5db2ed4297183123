package taxonomy

import (
	"reflect"
	"testing"
)

func testDoc() *Document {
	return &Document{
		DefaultDimension: "动态心理认知状态",
		Entries: []Entry{
			{TagID: "scn_aftershock", Name: "余震场景", Dimension: "D1", RecallTerms: []string{"余震", "晃动"}},
			{TagID: "psy_panic", Name: "恐慌情绪", Dimension: "动态心理认知状态", RecallTerms: []string{"害怕"}},
			{TagID: "med_bleeding", Name: "出血处理", Dimension: "D3", RecallTerms: []string{"流血"}},
		},
		Aliases: map[string]aliasTargets{
			"aftershock": {"scn_aftershock"},
			// first target missing from the taxonomy, second valid
			"fear": {"psy_missing", "psy_panic"},
			// legacy id that is itself still allowed but remapped
			"med_bleeding": {"scn_aftershock"},
			"dead_alias":   {"nowhere"},
		},
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Scn Aftershock", "scn_aftershock"},
		{"  SCN--after..shock  ", "scn_after_shock"},
		{"tag42", "tag42"},
		{"___", ""},
		{"", ""},
		{"余震", ""},
	}

	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCanonicalize_Name(t *testing.T) {
	r := NewRegistry(testDoc())

	if got := r.Canonicalize("余震场景"); got != "scn_aftershock" {
		t.Errorf("name lookup = %q, want scn_aftershock", got)
	}
}

func TestCanonicalize_AliasFirstValidTarget(t *testing.T) {
	r := NewRegistry(testDoc())

	if got := r.Canonicalize("fear"); got != "psy_panic" {
		t.Errorf("alias lookup = %q, want psy_panic (first valid target)", got)
	}
}

func TestCanonicalize_AliasBeatsMembership(t *testing.T) {
	r := NewRegistry(testDoc())

	// med_bleeding is in the allowed set, but the alias remap wins
	if got := r.Canonicalize("med_bleeding"); got != "scn_aftershock" {
		t.Errorf("remapped id = %q, want scn_aftershock", got)
	}
}

func TestCanonicalize_AllowedPassthrough(t *testing.T) {
	r := NewRegistry(testDoc())

	if got := r.Canonicalize("Scn Aftershock"); got != "scn_aftershock" {
		t.Errorf("slug passthrough = %q, want scn_aftershock", got)
	}
}

func TestCanonicalize_Unresolvable(t *testing.T) {
	r := NewRegistry(testDoc())

	for _, in := range []string{"unknown_tag", "dead_alias", "", "   ", "！！"} {
		if got := r.Canonicalize(in); got != "" {
			t.Errorf("Canonicalize(%q) = %q, want empty", in, got)
		}
	}
}

func TestCanonicalize_Idempotent(t *testing.T) {
	r := NewRegistry(testDoc())

	once := r.Canonicalize("aftershock")
	twice := r.Canonicalize(once)
	if once != twice {
		t.Errorf("canonicalize not idempotent: %q vs %q", once, twice)
	}
}

func TestCanonicalizeList(t *testing.T) {
	r := NewRegistry(testDoc())

	got := r.CanonicalizeList([]string{"aftershock", "scn_aftershock", "unknown", "fear", ""})
	want := []string{"scn_aftershock", "psy_panic"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CanonicalizeList = %v, want %v", got, want)
	}
}

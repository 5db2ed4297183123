package router

import (
	"reflect"
	"testing"

	"github.com/calmbox/calmbox/internal/taxonomy"
)

func routeDoc() *taxonomy.Document {
	return &taxonomy.Document{
		DefaultDimension: "动态心理认知状态",
		Entries: []taxonomy.Entry{
			{TagID: "scn_aftershock", Name: "余震场景", Dimension: "D1", RecallTerms: []string{"余震", "晃动"}},
			{TagID: "psy_panic", Name: "恐慌情绪", Dimension: "动态心理认知状态", RecallTerms: []string{"害怕"}},
			{TagID: "med_bleeding", Name: "出血处理", Dimension: "D3", RecallTerms: []string{"流血"}},
		},
	}
}

func newTestRouter(rules []OverrideRule) *Router {
	doc := routeDoc()
	return New(doc, rules, taxonomy.NewRegistry(doc))
}

func TestRoute_RecallHit(t *testing.T) {
	r := newTestRouter(nil)

	res := r.Route("又有余震了，一直在晃动", 2)

	if res.Dimension != "D1" {
		t.Errorf("dimension = %q, want D1", res.Dimension)
	}
	if !reflect.DeepEqual(res.Tags, []string{"scn_aftershock"}) {
		t.Errorf("tags = %v", res.Tags)
	}
	if ev := res.Evidence["scn_aftershock"]; len(ev) != 2 {
		t.Errorf("evidence = %v, want both matched terms", ev)
	}
	if res.CrossDimension {
		t.Error("single dimension marked cross-dimension")
	}
}

func TestRoute_NoSignal(t *testing.T) {
	r := newTestRouter(nil)

	for _, q := range []string{"", "   ", "今天天气怎么样"} {
		res := r.Route(q, 2)
		if res.Dimension != "动态心理认知状态" {
			t.Errorf("Route(%q) dimension = %q, want default", q, res.Dimension)
		}
		if len(res.Tags) != 0 {
			t.Errorf("Route(%q) tags = %v, want empty", q, res.Tags)
		}
	}
}

func TestRoute_BoostOverride(t *testing.T) {
	r := newTestRouter([]OverrideRule{
		{Patterns: []string{"救命"}, BoostTags: map[string]float64{"med_bleeding": 5.0}},
	})

	res := r.Route("救命", 2)

	if !reflect.DeepEqual(res.Tags, []string{"med_bleeding"}) {
		t.Errorf("tags = %v, want boosted med_bleeding", res.Tags)
	}
	if res.Dimension != "D3" {
		t.Errorf("dimension = %q, want D3", res.Dimension)
	}
	if ev := res.Evidence["med_bleeding"]; !reflect.DeepEqual(ev, []string{"救命"}) {
		t.Errorf("evidence = %v, want the matched pattern", ev)
	}
}

func TestRoute_ForceOverrideWinsOverRecall(t *testing.T) {
	r := newTestRouter([]OverrideRule{
		{Patterns: []string{"余震"}, ForceTags: []string{"psy_panic"}},
	})

	// the recall hit scores ~1.16, the forced tag gets 99
	res := r.Route("余震来了", 2)

	if len(res.Tags) != 2 || res.Tags[0] != "psy_panic" {
		t.Errorf("tags = %v, want forced psy_panic first", res.Tags)
	}
}

func TestRoute_UnknownOverrideTagIgnored(t *testing.T) {
	r := newTestRouter([]OverrideRule{
		{Patterns: []string{"救命"}, ForceTags: []string{"no_such_tag"}},
	})

	res := r.Route("救命", 2)

	if len(res.Tags) != 0 {
		t.Errorf("tags = %v, want no-signal fallback", res.Tags)
	}
}

func TestRoute_CrossDimension(t *testing.T) {
	r := newTestRouter(nil)

	res := r.Route("余震的时候流血了", 2)

	if !res.CrossDimension {
		t.Error("tags from two dimensions not marked cross-dimension")
	}
	if len(res.Tags) != 2 {
		t.Fatalf("tags = %v, want two", res.Tags)
	}
	// equal scores: D1 is declared before D3
	if res.Dimension != "D1" {
		t.Errorf("dimension = %q, want earliest-declared on tie", res.Dimension)
	}
	if res.TagDims["med_bleeding"] != "D3" {
		t.Errorf("tag dims = %v", res.TagDims)
	}
}

func TestRoute_TieBreakByDeclarationOrder(t *testing.T) {
	r := newTestRouter(nil)

	res := r.Route("余震流血", 1)

	if !reflect.DeepEqual(res.Tags, []string{"scn_aftershock"}) {
		t.Errorf("tags = %v, want earliest-declared tag on score tie", res.Tags)
	}
}

func TestRoute_TopTagsClamped(t *testing.T) {
	r := newTestRouter(nil)

	res := r.Route("余震的时候流血了", 0)

	if len(res.Tags) != 1 {
		t.Errorf("tags = %v, want exactly one with topTags < 1", res.Tags)
	}
}

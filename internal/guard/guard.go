// Package guard is the rule-based content-safety gate. Every outbound
// utterance passes through Check before it reaches the speaker.
package guard

import (
	"regexp"
	"strings"

	"github.com/calmbox/calmbox/internal/domain"
)

// Rule category codes surfaced in GuardResult.Reasons.
const (
	codeInvasive      = "invasive_procedure"
	codeTourniquet    = "tourniquet_instruction"
	codeIV            = "iv_instruction"
	codeDiagnosis     = "diagnosis_assertion"
	codeRescueTime    = "guarantee_rescue_time"
	codeDosageUnit    = "med_dosage_unit"
	codeDosageHint    = "medication_dosage_hint"
	codeMedGeneric    = "medication_generic"
	codeAirwayForeign = "airway_foreign_body_check"
)

type rule struct {
	re   *regexp.Regexp
	code string
}

type substitution struct {
	re   *regexp.Regexp
	repl string
}

// Guard holds the compiled rule lists. Patterns compile once at
// construction; evaluation order is fixed: block, dosage units, rewrite.
type Guard struct {
	blockRules  []rule
	dosageUnits []rule
	medContext  *regexp.Regexp
	rewriteRule []rule
	rewrites    []substitution

	blockFallback  string
	dosageFallback string
}

// New compiles the disaster-rescue rule set.
func New() *Guard {
	return &Guard{
		blockRules: []rule{
			// invasive procedures
			{regexp.MustCompile(`缝合|切开|穿刺|引流|开口`), codeInvasive},
			{regexp.MustCompile(`止血带`), codeTourniquet},
			// explicit injection/infusion; a plain mention of venous bleeding
			// must not trip this
			{regexp.MustCompile(`静脉(注射|输液|给药|穿刺)`), codeIV},
			{regexp.MustCompile(`注射|输液|点滴|静脉输液|静脉注射`), codeIV},
			// hard diagnosis / rescue-time guarantees
			{regexp.MustCompile(`你(一定|肯定)是`), codeDiagnosis},
			{regexp.MustCompile(`(马上|立刻)就能获救`), codeRescueTime},
		},
		dosageUnits: []rule{
			{regexp.MustCompile(`毫克|毫升|片|粒`), codeDosageUnit},
			// letter-bounded so that e.g. "img" or "html" cannot hit
			{regexp.MustCompile(`(?i)(^|[^a-z])mg($|[^a-z])`), codeDosageUnit},
			{regexp.MustCompile(`(?i)(^|[^a-z])ml($|[^a-z])`), codeDosageUnit},
		},
		medContext: regexp.MustCompile(`药|服用|吃药|用药|喷雾|吸入`),
		rewriteRule: []rule{
			{regexp.MustCompile(`按(常规)?剂量使用`), codeDosageHint},
			{regexp.MustCompile(`剂量`), codeDosageHint},
			{regexp.MustCompile(`按说明书`), codeMedGeneric},
			{regexp.MustCompile(`按医嘱`), codeMedGeneric},
			{regexp.MustCompile(`检查其口鼻是否有明显异物`), codeAirwayForeign},
		},
		rewrites: []substitution{
			{
				regexp.MustCompile(`如果身边有药物，请按常规剂量使用。`),
				"如果你有医生长期让你随身携带的急救药物，请按你最熟悉且安全的方式使用。",
			},
			{regexp.MustCompile(`按说明书`), "按你最熟悉且安全的方式"},
			{regexp.MustCompile(`按医嘱`), "按你最熟悉且安全的方式"},
			{
				regexp.MustCompile(`情况危急。请立即检查其口鼻是否有明显异物，并小心将其头部偏向一侧，保持气道尽可能通畅。`),
				"情况紧急。请尽量让对方头部偏向一侧，保持呼吸尽可能通畅。避免进行可能导致误吸或误伤的操作，等待专业救援。",
			},
		},
		blockFallback: "我不能指导你进行用药剂量或高风险处置。" +
			"你先尽量保持呼吸顺畅、减少活动、节省体力，并等待专业救援。" +
			"如果你愿意，告诉我：你现在呼吸更像'喘不上气'，还是'胸口很闷'？",
		dosageFallback: "我不能提供药物剂量建议。请优先保持呼吸顺畅、减少活动、等待专业救援。",
	}
}

// Check classifies a candidate outbound text. It never fails: absence of a
// pattern match is itself an allow.
func (g *Guard) Check(text string) domain.GuardResult {
	t := strings.TrimSpace(text)
	if t == "" {
		return domain.GuardResult{Level: domain.GuardAllow, SafeText: t}
	}

	// 1) block: fixed fallback, never the original text
	var reasons []string
	for _, r := range g.blockRules {
		if r.re.MatchString(t) {
			reasons = append(reasons, r.code)
		}
	}
	if len(reasons) > 0 {
		return domain.GuardResult{Level: domain.GuardBlock, Reasons: reasons, SafeText: g.blockFallback}
	}

	// 2) explicit dosage units escalate only in a medication context;
	// "少量水" or "500ml 的瓶子" alone must not trip the gate
	unitHit := false
	for _, r := range g.dosageUnits {
		if r.re.MatchString(t) {
			unitHit = true
			reasons = append(reasons, r.code)
		}
	}
	if unitHit {
		if g.medContext.MatchString(t) {
			return domain.GuardResult{Level: domain.GuardRewrite, Reasons: reasons, SafeText: g.dosageFallback}
		}
		// no medication context: drop the finding and keep evaluating
		reasons = nil
	}

	// 3) rewrite: category-specific safer phrasings substituted in place
	var rw []string
	for _, r := range g.rewriteRule {
		if r.re.MatchString(t) {
			rw = append(rw, r.code)
		}
	}
	if len(rw) > 0 {
		safe := t
		for _, sub := range g.rewrites {
			safe = sub.re.ReplaceAllString(safe, sub.repl)
		}
		return domain.GuardResult{Level: domain.GuardRewrite, Reasons: rw, SafeText: safe}
	}

	return domain.GuardResult{Level: domain.GuardAllow, SafeText: t}
}

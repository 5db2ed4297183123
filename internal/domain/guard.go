package domain

// GuardLevel classifies a candidate outbound text.
type GuardLevel string

const (
	GuardAllow   GuardLevel = "allow"
	GuardRewrite GuardLevel = "rewrite"
	GuardBlock   GuardLevel = "block"
)

// GuardResult is the safety classification for one text.
// SafeText is the original on allow, the substituted text on rewrite,
// and a fixed pre-approved fallback on block.
type GuardResult struct {
	Level    GuardLevel
	Reasons  []string
	SafeText string
}

package taxonomy

import "strings"

// Registry canonicalizes arbitrary tag spellings onto the fixed taxonomy.
// Built once at startup; read-only afterwards.
type Registry struct {
	allowed  map[string]struct{}
	nameToID map[string]string
	aliases  map[string][]string
}

// NewRegistry builds a registry from a validated taxonomy document.
func NewRegistry(doc *Document) *Registry {
	r := &Registry{
		allowed:  make(map[string]struct{}, len(doc.Entries)),
		nameToID: make(map[string]string, len(doc.Entries)),
		aliases:  make(map[string][]string, len(doc.Aliases)),
	}

	for _, e := range doc.Entries {
		r.allowed[e.TagID] = struct{}{}
		if name := strings.TrimSpace(e.Name); name != "" {
			r.nameToID[name] = e.TagID
		}
	}

	for raw, targets := range doc.Aliases {
		key := Slugify(raw)
		if key == "" {
			continue
		}
		var slugged []string
		for _, t := range targets {
			if st := Slugify(t); st != "" {
				slugged = append(slugged, st)
			}
		}
		if len(slugged) > 0 {
			r.aliases[key] = slugged
		}
	}

	return r
}

// Slugify lowercases and collapses non-alphanumeric runs into a single
// underscore, trimming leading and trailing underscores.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	b.Grow(len(s))
	pending := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
		} else {
			pending = true
		}
	}
	return b.String()
}

// Canonicalize maps an arbitrary tag spelling to its canonical tag id, or ""
// when the tag cannot be resolved. Alias resolution deliberately takes
// priority over "already valid" membership so legacy ids can be remapped
// even when they still exist in the allowed set.
func (r *Registry) Canonicalize(tag string) string {
	raw := strings.TrimSpace(tag)
	if raw == "" {
		return ""
	}

	// 1) human-readable name
	if id, ok := r.nameToID[raw]; ok {
		return id
	}

	tid := Slugify(raw)
	if tid == "" {
		return ""
	}

	// 2) alias map: first target that is a member of the allowed set
	for _, target := range r.aliases[tid] {
		if _, ok := r.allowed[target]; ok {
			return target
		}
	}

	// 3) already canonical
	if _, ok := r.allowed[tid]; ok {
		return tid
	}

	return ""
}

// CanonicalizeList resolves a tag list preserving first-seen order and
// dropping duplicates and unresolvable tags silently.
func (r *Registry) CanonicalizeList(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		c := r.Canonicalize(t)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

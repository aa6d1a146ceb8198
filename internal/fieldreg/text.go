package fieldreg

import (
	"strings"

	"fieldcore/internal/fieldcore"
)

// DefineText parses a "key:value;key:value;..." spec and routes it through
// Define. field and kind are required; db falling back to an
// already-registered expression's position is the one escape hatch that
// lets a spec re-describe an existing field without a dbField.
func (r *Registry) DefineText(spec string) int32 {
	kv := parseTextSpec(spec)

	expression := kv["field"]
	kindStr := kv["kind"]
	if expression == "" || kindStr == "" {
		fatalf("fieldreg: DefineText requires both field and kind, got %q", spec)
	}

	kind, ok := fieldcore.ParseKind(kindStr)
	if !ok {
		kind = textKindAlias(kindStr)
	}

	dbField := kv["db"]
	if dbField == "" {
		if pos, exists := r.existingPos(expression); exists {
			return pos
		}
	}
	if kindStr == "termfield" && strings.HasSuffix(dbField, "-term") {
		fatalf("fieldreg: DefineText: termfield db %q must not end with -term", dbField)
	}

	group := kv["group"]
	if group == "" {
		group = deriveGroup(expression)
	}

	var flags fieldcore.Flags
	if truthy(kv["count"]) {
		flags |= fieldcore.FlagCnt
	}
	if truthy(kv["nolinked"]) {
		// nolinked is the inverse of FlagLinkedSessions: absence of the bit
		// is the default, so nolinked only matters if some other path set
		// FlagLinkedSessions by default, which none does here. Kept as a
		// recognized, accepted no-op key for spec-grammar compatibility.
		_ = struct{}{}
	}
	if truthy(kv["noutf8"]) {
		// ForceUTF8 is opt-in (not set by default), so noutf8 is likewise
		// a recognized no-op; see nolinked above.
		_ = struct{}{}
	}
	if truthy(kv["fake"]) || truthy(kv["viewerOnly"]) {
		flags |= fieldcore.FlagFake
	}

	opts := fieldcore.Options{
		Category:  kv["category"],
		Transform: kv["transform"],
	}
	if aliases := kv["aliases"]; aliases != "" {
		opts.Aliases = strings.Split(aliases, ",")
	}

	friendly := kv["friendly"]
	help := kv["help"]

	pos := r.Define(group, kind, expression, friendly, dbField, help, flags, opts)

	if shortcut := kv["shortcut"]; shortcut != "" && pos >= 0 {
		r.mu.Lock()
		if fi, ok := r.byExp[expression]; ok {
			fi.Shortcut = shortcut
		}
		r.mu.Unlock()
	}

	return pos
}

// existingPos reports the position of an already-registered expression
// without promoting a schema-only entry, since DefineText's "db omitted,
// expression already exists" escape hatch only wants to reuse a position
// that's already materialized.
func (r *Registry) existingPos(expression string) (int32, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fi, ok := r.byExp[expression]
	if !ok {
		return 0, false
	}
	return fi.Pos, true
}

// ByShortcut resolves a DefineText "shortcut" alias to its field's
// position, or (-1, false) if no field was registered with that shortcut.
func (r *Registry) ByShortcut(shortcut string) (int32, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, fi := range r.byExp {
		if fi.Shortcut == shortcut {
			return fi.Pos, true
		}
	}
	return -1, false
}

// deriveGroup returns the prefix of expression up to (not including) its
// first dot, or "general" if expression has no dot.
func deriveGroup(expression string) string {
	if idx := strings.IndexByte(expression, '.'); idx > 0 {
		return expression[:idx]
	}
	return "general"
}

// truthy treats DefineText's boolean-flag keys ("count", "fake", ...) as
// present-and-non-"false" meaning true, matching the C source's
// NULL/empty-string-means-absent convention.
func truthy(v string) bool {
	return v != "" && v != "false" && v != "0"
}

// textKindAlias maps a couple of DefineText-only kind spellings (the
// "termfield" family used throughout the original schema) onto the closed
// FieldKind enum; anything else falls back to KindInvalid, which DefineText
// leaves for the caller to catch via the registered field's later use.
func textKindAlias(kindStr string) fieldcore.FieldKind {
	switch kindStr {
	case "termfield", "uptermfield", "lotermfield":
		return fieldcore.KindString
	case "integer":
		return fieldcore.KindInt
	default:
		return fieldcore.KindInvalid
	}
}

// parseTextSpec splits a "key:value;key:value" spec into a map. A key with
// no ':' is treated as a bare boolean flag (value "true").
func parseTextSpec(spec string) map[string]string {
	kv := make(map[string]string)
	for _, part := range strings.Split(spec, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx := strings.IndexByte(part, ':')
		if idx < 0 {
			kv[part] = "true"
			continue
		}
		key := strings.TrimSpace(part[:idx])
		value := strings.TrimSpace(part[idx+1:])
		kv[key] = value
	}
	return kv
}

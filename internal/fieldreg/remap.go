package fieldreg

import (
	"strconv"
	"strings"

	"fieldcore/internal/logging"
)

// LoadRemap parses the `custom-fields-remap` config section: section keys
// are expressions, values are "match1=new1;match2=new2;...". Each name
// resolves through ByExp (not the raw map, since the entries here are
// typically already-registered custom fields); an unknown name logs an
// "unknown field name in remap config" warning and that single entry is
// skipped.
//
// Must run exactly once, after all fields are registered and before packet
// processing begins.
func (r *Registry) LoadRemap(section map[string]string) {
	for expression, rules := range section {
		fieldPos, ok := r.tryByExp(expression)
		if !ok {
			logging.Warnf("fieldreg: custom-fields-remap: unknown field %q, skipping", expression)
			continue
		}

		for _, rule := range strings.Split(rules, ";") {
			rule = strings.TrimSpace(rule)
			if rule == "" {
				continue
			}
			matchExpr, newExpr, ok := strings.Cut(rule, "=")
			if !ok {
				logging.Warnf("fieldreg: custom-fields-remap: malformed rule %q for %q, skipping", rule, expression)
				continue
			}
			matchPos, ok := r.resolveRemapName(strings.TrimSpace(matchExpr))
			if !ok {
				logging.Warnf("fieldreg: custom-fields-remap: unknown match field %q, skipping", matchExpr)
				continue
			}
			newPos, ok := r.resolveRemapName(strings.TrimSpace(newExpr))
			if !ok {
				logging.Warnf("fieldreg: custom-fields-remap: unknown target field %q, skipping", newExpr)
				continue
			}
			r.setRemap(fieldPos, matchPos, newPos)
		}
	}
}

// resolveRemapName accepts either a plain integer position (for pseudo-field
// targets like STOP_SPI, which have no expression in the registry) or an
// expression resolved via ByExp.
func (r *Registry) resolveRemapName(name string) (int32, bool) {
	if n, err := strconv.ParseInt(name, 10, 32); err == nil {
		return int32(n), true
	}
	return r.tryByExp(name)
}

// tryByExp is ByExp without the fatal-on-miss behavior, for remap loading
// where an unknown name is a warning, not a fatal error.
func (r *Registry) tryByExp(expression string) (int32, bool) {
	r.mu.RLock()
	fi, ok := r.byExp[expression]
	r.mu.RUnlock()
	if !ok {
		return 0, false
	}
	if fi.Pos >= 0 {
		return fi.Pos, true
	}
	return r.promote(fi), true
}

// setRemap installs remap[fieldPos][matchPos] = newPos.
func (r *Registry) setRemap(fieldPos, matchPos, newPos int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.remap[fieldPos]
	if !ok {
		row = make(map[int32]int32)
		r.remap[fieldPos] = row
	}
	row[matchPos] = newPos
}

// Remap reports the one-step substitution for (fieldPos, matchPos), per
// the "run(ops, matchPos)" rule: if remap[fieldPos][matchPos] is
// set, the caller should execute against that position instead. Returns
// (-1, false) when no remap entry exists.
func (r *Registry) Remap(fieldPos, matchPos int32) (int32, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.remap[fieldPos]
	if !ok {
		return -1, false
	}
	newPos, ok := row[matchPos]
	return newPos, ok
}

package fieldreg

import (
	"strings"

	"fieldcore/internal/fieldcore"
	"fieldcore/internal/logging"
)

// Define is the canonical field registration path. group, kind and
// expression/dbField name the field being registered; opts carries the
// three recognized named options (category/transform/aliases).
//
// Define returns the field's final position, or -1 if the registration was
// FAKE and has already been dropped after use.
func (r *Registry) Define(group string, kind fieldcore.FieldKind, expression, friendly, dbField, help string, flags fieldcore.Flags, opts fieldcore.Options) int32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byDB[dbField]; ok {
		return r.unifyExisting(existing, kind, flags, opts)
	}

	fi := fieldcore.NewFieldInfo(expression, dbField, kind)
	fi.Group = group
	fi.Category = opts.Category
	fi.Transform = opts.Transform
	fi.Aliases = opts.Aliases
	fi.SetFlags(flags)

	fi.DBGroup, _ = splitGroup(dbField)
	fi.DBGroupNum = r.groupNum(fi.DBGroup)

	r.byDB[dbField] = fi
	r.byExp[expression] = fi

	if flags.Has(fieldcore.FlagFake) {
		// FAKE registrations never get a durable position: the entry is
		// dropped again and Define reports -1.
		delete(r.byDB, dbField)
		delete(r.byExp, expression)
		return -1
	}

	pos := r.allocDbPos()
	r.setPos(pos, fi)

	if flags.Has(fieldcore.FlagCnt) {
		r.synthesizeCountCompanion(fi)
	}
	if flags.Has(fieldcore.FlagIPPre) || kind == fieldcore.KindIP || kind == fieldcore.KindIPMap {
		r.synthesizeGeoCompanions(fi)
	}

	return pos
}

// unifyExisting implements the "unify with an existing db-side entry" rules
// from the Define bullet list. Must be called with r.mu held.
func (r *Registry) unifyExisting(existing *fieldcore.FieldInfo, kind fieldcore.FieldKind, flags fieldcore.Flags, opts fieldcore.Options) int32 {
	wasDisabled := existing.Disabled()
	if wasDisabled {
		flags |= fieldcore.FlagDisabled
	}

	if existing.Pos >= 0 && flags.Has(fieldcore.FlagFake) {
		return existing.Pos
	}

	if existing.Pos < 0 && !flags.Has(fieldcore.FlagFake) {
		// A schema-only entry (loaded by DefineJSON) takes the caller's kind
		// and gets its real position now.
		if existing.Kind == fieldcore.KindInvalid {
			existing.Kind, existing.Type = kind, kind
		}
		r.setPos(r.allocDbPos(), existing)
	}

	if existing.Kind != kind {
		logging.Warnf("fieldreg: kind mismatch for db field %q: registered as %s, redefined as %s", existing.DBField, existing.Kind, kind)
	}

	if existing.Category != opts.Category && opts.Category != "" {
		logging.Warnf("fieldreg: category mismatch for %q: %q -> %q (updating index)", existing.Expression, existing.Category, opts.Category)
		existing.Category = opts.Category
		r.announceUpdate(existing.Expression, "category", opts.Category)
	}
	if existing.Transform != opts.Transform && opts.Transform != "" {
		logging.Warnf("fieldreg: transform mismatch for %q: %q -> %q (updating index)", existing.Expression, existing.Transform, opts.Transform)
		existing.Transform = opts.Transform
		r.announceUpdate(existing.Expression, "transform", opts.Transform)
	}
	if len(opts.Aliases) > 0 && !equalAliases(existing.Aliases, opts.Aliases) {
		logging.Warnf("fieldreg: aliases mismatch for %q (updating index)", existing.Expression)
		existing.Aliases = opts.Aliases
		r.announceUpdate(existing.Expression, "aliases", strings.Join(opts.Aliases, ","))
	}

	return existing.Pos
}

// announceUpdate emits a schema patch to the external index for a single
// changed key, if one is wired. Must be called with r.mu held. The Client
// call runs synchronously and returns no error (MySQL bounds each
// statement with a 5-second timeout).
func (r *Registry) announceUpdate(expression, key, value string) {
	if r.Index != nil {
		r.Index.UpdateField(expression, key, value)
	}
}

func equalAliases(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// splitGroup splits dbField on its first '.', returning the prefix
// (including the dot) and the tail. If there is no dot, group is "" and
// tail is dbField unchanged.
func splitGroup(dbField string) (group, tail string) {
	idx := strings.IndexByte(dbField, '.')
	if idx < 0 {
		return "", dbField
	}
	return dbField[:idx+1], dbField[idx+1:]
}

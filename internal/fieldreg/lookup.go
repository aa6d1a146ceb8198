package fieldreg

import "fieldcore/internal/fieldcore"

// ByDB resolves a backing-store name to its position. This must succeed for
// defined fields; a miss is a fatal programmer error (the caller asked
// about a field that was never registered at all, as opposed to one
// that's merely un-promoted).
func (r *Registry) ByDB(dbField string) int32 {
	r.mu.RLock()
	fi, ok := r.byDB[dbField]
	r.mu.RUnlock()
	if !ok {
		fatalf("fieldreg: ByDB miss for never-defined field %q", dbField)
	}
	return fi.Pos
}

// ByExp resolves an expression to its position, promoting a schema-only
// entry (Pos == -1, loaded via DefineJSON) to a real position on first use.
// Fatal on a true miss (expression never registered at all).
func (r *Registry) ByExp(expression string) int32 {
	r.mu.RLock()
	fi, ok := r.byExp[expression]
	r.mu.RUnlock()
	if !ok {
		fatalf("fieldreg: ByExp miss for never-defined expression %q", expression)
	}
	if fi.Pos >= 0 {
		return fi.Pos
	}
	return r.promote(fi)
}

// promote assigns a real position to a schema-only FieldInfo, picking a
// session-side container kind from the schema "kind" string exactly as
// the describes: "integer"/"seconds" -> intMap, "ip" -> ipMap, else
// strMap.
func (r *Registry) promote(fi *fieldcore.FieldInfo) int32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if fi.Pos >= 0 {
		return fi.Pos
	}

	if fi.Kind == fieldcore.KindInvalid {
		fi.Kind = PromotionKindForSchema(fi.SchemaKind)
		fi.Type = fi.Kind
	}

	pos := r.allocDbPos()
	r.setPos(pos, fi)
	return pos
}

// PromotionKindForSchema maps a schema "kind" string (as loaded by
// DefineJSON) to the session-side container kind a schema-only entry gets
// when promote assigns it a real position at its first ByExp lookup.
func PromotionKindForSchema(schemaKind string) fieldcore.FieldKind {
	switch schemaKind {
	case "integer", "seconds":
		return fieldcore.KindIntMap
	case "ip":
		return fieldcore.KindIPMap
	default:
		return fieldcore.KindStringMap
	}
}

// ByExpAddSpecial installs an expression-only alias resolving to one of the
// negative pseudo-positions (the "special expressions mapped to
// pseudo-fields").
func (r *Registry) ByExpAddSpecial(name string, specialPos int32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fi := fieldcore.NewFieldInfo(name, "", fieldcore.KindInt)
	fi.Pos = specialPos
	r.byExp[name] = fi
}

// ByExpAddInternal allocates a position in the internal region and installs
// getter/setter callbacks for a session-computed field.
func (r *Registry) ByExpAddInternal(name string, kind fieldcore.FieldKind, getter fieldcore.InternalGetter, setter fieldcore.InternalSetter) int32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	fi := fieldcore.NewFieldInfo(name, "", kind)
	fi.Getter = getter
	fi.Setter = setter

	pos := r.allocInternalPos()
	r.setPos(pos, fi)
	r.byExp[name] = fi
	return pos
}

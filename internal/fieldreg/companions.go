package fieldreg

import "fieldcore/internal/fieldcore"

// synthesizeCountCompanion installs the "<expression>.cnt" / "<dbField>Cnt"
// (or "<dbField>-cnt" under FlagECSCnt) companion field for parent. The
// companion's position lives in the internal region and its
// CntForPos points back at the parent; session.Session reads it as a
// computed field rather than ever having AddX called on it directly. Must
// be called with r.mu held for write.
func (r *Registry) synthesizeCountCompanion(parent *fieldcore.FieldInfo) {
	dbSuffix := "Cnt"
	if parent.Flags().Has(fieldcore.FlagECSCnt) {
		dbSuffix = "-cnt"
	}
	cntExpr := parent.Expression + ".cnt"
	cntDB := parent.DBField + dbSuffix

	if _, exists := r.byExp[cntExpr]; exists {
		return
	}

	companion := fieldcore.NewFieldInfo(cntExpr, cntDB, fieldcore.KindInt)
	companion.Group = parent.Group
	companion.CntForPos = parent.Pos

	pos := r.allocInternalPos()
	r.setPos(pos, companion)
	r.byExp[cntExpr] = companion
	r.byDB[cntDB] = companion
}

// synthesizeGeoCompanions installs up to three geo-enrichment companions
// (GEO/ASN/RIR) for an IP-kind field. Under FlagIPPre the
// companions use the "country.<suffix>/asn.<suffix>/rir.<suffix>" naming
// scheme; otherwise the generic "<expr>.country/.asn/.rir" scheme is used.
// In both cases the companion dbField is the base dbField with its last two
// bytes trimmed (see geoDBBase) plus GEO/ASN/RIR.
// Must be called with r.mu held for write.
func (r *Registry) synthesizeGeoCompanions(base *fieldcore.FieldInfo) {
	ipPre := base.Flags().Has(fieldcore.FlagIPPre)

	type companionSpec struct {
		suffix string // dbField suffix, e.g. "GEO"
		label  string // expression label, e.g. "country"
	}
	specs := []companionSpec{
		{"GEO", "country"},
		{"ASN", "asn"},
		{"RIR", "rir"},
	}

	for _, spec := range specs {
		var expr string
		if ipPre {
			suffix := ipPreSuffix(base.Expression)
			expr = spec.label + "." + suffix
		} else {
			expr = base.Expression + "." + spec.label
		}
		if _, exists := r.byExp[expr]; exists {
			continue
		}

		dbField := geoDBBase(base.DBField) + spec.suffix
		companion := fieldcore.NewFieldInfo(expr, dbField, fieldcore.KindStringSet)
		companion.Group = base.Group
		companion.SetFlags(fieldcore.FlagNoDB)

		pos := r.allocInternalPos()
		r.setPos(pos, companion)
		r.byExp[expr] = companion
		r.byDB[dbField] = companion
	}
}

// geoDBBase strips the trailing two bytes of dbField before a GEO/ASN/RIR
// suffix is appended (e.g. "srcIp" -> "src", so the companion becomes
// "srcGEO" rather than "srcIpGEO"). dbField shorter than two bytes is
// returned unchanged.
func geoDBBase(dbField string) string {
	if len(dbField) < 2 {
		return dbField
	}
	return dbField[:len(dbField)-2]
}

// ipPreSuffix extracts the "<suffix>" half of an "ip.<suffix>"-shaped
// expression (e.g. "ip.src" -> "src"). Falls back to the full expression if
// it doesn't have the expected "ip." prefix.
func ipPreSuffix(expression string) string {
	const prefix = "ip."
	if len(expression) > len(prefix) && expression[:len(prefix)] == prefix {
		return expression[len(prefix):]
	}
	return expression
}

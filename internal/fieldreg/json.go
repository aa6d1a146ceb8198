package fieldreg

import (
	"encoding/json"
	"strings"

	"fieldcore/internal/fieldcore"
	"fieldcore/internal/indexclient"
)

// schemaDoc mirrors the fields DefineJSON reads out of an external-index
// schema blob.
type schemaDoc struct {
	Group     string   `json:"group"`
	DBField2  string   `json:"dbField2"`
	FieldECS  string   `json:"fieldECS"`
	Type      string   `json:"type"`
	Category  string   `json:"category"`
	Transform string   `json:"transform"`
	Aliases   []string `json:"aliases"`
	Disabled  bool     `json:"disabled"`
}

// DefineJSON installs a schema-only entry from the external index. If the
// expression is already registered, the call returns nil and the existing
// entry is left unchanged; it is not updated from blob. index is used only to issue the delete call for the
// legacy-prefix-drop rule; pass nil when there is no external index wired
// (the drop still happens locally either way).
func (r *Registry) DefineJSON(expression string, blob []byte, index indexclient.Client) error {
	var doc schemaDoc
	if err := json.Unmarshal(blob, &doc); err != nil {
		return err
	}

	dbField := doc.DBField2
	if dbField == "" {
		dbField = doc.FieldECS
	}

	if isLegacyHTTPPrefix(dbField) && !matchesModernHTTPForm(expression) {
		if index != nil {
			index.DeleteField(expression)
		}
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byExp[expression]; exists {
		return nil
	}

	fi := fieldcore.NewFieldInfo(expression, dbField, fieldcore.KindInvalid)
	fi.Group = doc.Group
	fi.Category = doc.Category
	fi.Transform = doc.Transform
	fi.Aliases = doc.Aliases
	fi.SchemaKind = doc.Type
	fi.SetDisabled(doc.Disabled)
	fi.DBGroup, _ = splitGroup(dbField)
	fi.DBGroupNum = r.groupNum(fi.DBGroup)

	r.byDB[dbField] = fi
	r.byExp[expression] = fi
	return nil
}

// isLegacyHTTPPrefix reports whether dbField begins with one of the
// deprecated "http.request-"/"http.response-" prefixes.
func isLegacyHTTPPrefix(dbField string) bool {
	return strings.HasPrefix(dbField, "http.request-") || strings.HasPrefix(dbField, "http.response-")
}

// matchesModernHTTPForm reports whether expression looks like the modern
// "http.request.<field>"/"http.response.<field>" replacement for a legacy
// "http.request-<field>"/"http.response-<field>" dbField.
func matchesModernHTTPForm(expression string) bool {
	return strings.HasPrefix(expression, "http.request.") || strings.HasPrefix(expression, "http.response.")
}

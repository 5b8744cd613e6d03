package domain

import (
	"regexp"
	"sort"
	"strings"
)

// footnoteRe matches footnote markers appended to report headers:
// "Capacidad firme disponible (MW) [2]", "Municipio (1)", "Provincia *".
var footnoteRe = regexp.MustCompile(`(\s*(\[\d+\]|\(\d+\)|\*+))+$`)

// baseColumns maps cleaned, lower-cased header variants to canonical field
// names. One line per variant; operator-specific phrasings go in the
// schema's extra table.
var baseColumns = map[string]string{
	"gestor":                           FieldGridOperator,
	"gestor_red":                       FieldGridOperator,
	"gestor de la red de distribución": FieldGridOperator,
	"distribuidora":                    FieldGridOperator,

	"provincia": FieldProvince,
	"municipio": FieldMunicipality,

	"coordenadas x (m) (etrs89)": FieldX,
	"coordenadas y (m) (etrs89)": FieldY,
	"coordenada x (etrs89)":      FieldX,
	"coordenada y (etrs89)":      FieldY,
	"utm x":                      FieldX,
	"utm y":                      FieldY,

	"lat":      FieldLatitude,
	"latitud":  FieldLatitude,
	"lon":      FieldLongitude,
	"lng":      FieldLongitude,
	"longitud": FieldLongitude,

	"identificador de la subestación": FieldSubstationID,
	"id_subestacion":                  FieldSubstationID,
	"subestacion":                     FieldSubstationName,
	"nombre subestación":              FieldSubstationName,
	"nombre de la subestación":        FieldSubstationName,
	"subestacion_nombre":              FieldSubstationName,

	"nivel de tensión (kv)": FieldVoltageKV,
	"tensión (kv)":          FieldVoltageKV,
	"kv":                    FieldVoltageKV,

	"capacidad firme disponible (mw)": FieldCapAvailable,
	"capacidad disponible (mw)":       FieldCapAvailable,
	"cap_disp":                        FieldCapAvailable,

	"capacidad comprometida por cuestiones regulatorias":      FieldCapCommitted,
	"capacidad comprometida por cuestiones regulatorias (mw)": FieldCapCommitted,
	"cap_comp":                                                FieldCapCommitted,

	"capacidad de acceso firme de demanda ocupada (mw)": FieldCapOccupied,
	"capacidad ocupada (mw)":                            FieldCapOccupied,
	"cap_ocup":                                          FieldCapOccupied,

	"capacidad de acceso firme admitida y no evaluada (mw)": FieldCapUnevaluated,
	"capacidad admitida y no evaluada (mw)":                 FieldCapUnevaluated,
	"cap_no_eval":                                           FieldCapUnevaluated,

	"comentario regulatorio": FieldComments,
	"comentario":             FieldComments,
	"comentarios":            FieldComments,
	"observaciones":          FieldComments,
}

func init() {
	for _, f := range CanonicalHeader {
		baseColumns[f] = f
	}
	baseColumns[FieldX] = FieldX
	baseColumns[FieldY] = FieldY
}

// CleanHeader normalizes a raw header for lookup: line breaks become spaces,
// whitespace runs collapse, trailing footnote markers are removed and the
// result is lower-cased.
func CleanHeader(h string) string {
	h = NormalizeString(h)
	h = footnoteRe.ReplaceAllString(h, "")
	return strings.ToLower(strings.TrimSpace(h))
}

// Reconciler renames source headers to canonical field names.
type Reconciler struct {
	table map[string]string
}

// NewReconciler returns a Reconciler over the shared table plus extra
// variant → canonical entries. Extra keys are cleaned like headers.
func NewReconciler(extra map[string]string) *Reconciler {
	table := make(map[string]string, len(baseColumns)+len(extra))
	for k, v := range baseColumns {
		table[k] = v
	}
	for k, v := range extra {
		table[CleanHeader(k)] = v
	}
	return &Reconciler{table: table}
}

// Canonical returns the canonical name for header and whether it was
// recognized.
func (r *Reconciler) Canonical(header string) (string, bool) {
	name, ok := r.table[CleanHeader(header)]
	return name, ok
}

// Rename builds the rename map for a header set. Unrecognized headers map
// to themselves.
func (r *Reconciler) Rename(headers []string) map[string]string {
	out := make(map[string]string, len(headers))
	for _, h := range headers {
		if name, ok := r.Canonical(h); ok {
			out[h] = name
			continue
		}
		out[h] = h
	}
	return out
}

// Apply returns a copy of raw keyed by canonical names. When several source
// headers reconcile to the same field, a non-empty value wins over an empty
// one, and ties go to the lexicographically smallest source header so the
// result does not depend on column order.
func (r *Reconciler) Apply(raw RawRecord) RawRecord {
	headers := make([]string, 0, len(raw))
	for h := range raw {
		headers = append(headers, h)
	}
	sort.Strings(headers)

	rename := r.Rename(headers)
	out := make(RawRecord, len(raw))
	for _, h := range headers {
		name := rename[h]
		v := raw[h]
		if prev, exists := out[name]; exists && !isEmptyCell(prev) {
			continue
		}
		out[name] = v
	}
	return out
}

// Recognized reports how many of headers map to a canonical field.
func (r *Reconciler) Recognized(headers []string) int {
	n := 0
	for _, h := range headers {
		if _, ok := r.Canonical(h); ok {
			n++
		}
	}
	return n
}

func isEmptyCell(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	}
	return false
}

package sdx

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Row is one port listing entry keyed by loosely-normalized column names.
// The identifying key is resolved in a fixed order — "id", "Port ID",
// "port_id" — once here, never re-derived at call sites.
type Row map[string]any

// idKeys is the canonical identifying-key resolution order for a Row.
var idKeys = []string{"id", "Port ID", "port_id"}

// matchColumns are the columns whose concatenated values a filter/search
// term is matched against.
var matchColumns = []string{"Domain", "Device", "Port", "Port ID", "Entities", "Status", "device", "port_id", "id"}

// PortID returns the row's port URN, or "" if the row carries none.
func (r Row) PortID() string {
	for _, key := range idKeys {
		if s := strings.TrimSpace(scalarString(r[key])); s != "" {
			return s
		}
	}
	return ""
}

// extractRows normalizes common listing payload shapes into a flat row
// slice. Bare arrays pass through; maps are probed for the first
// list-valued key among data, rows, items, results. Unrecognized shapes
// yield no rows — callers treat that as "no rows", not as failure.
func extractRows(payload any) []Row {
	switch v := payload.(type) {
	case []any:
		return toRows(v)
	case map[string]any:
		for _, key := range []string{"data", "rows", "items", "results"} {
			if list, ok := v[key].([]any); ok {
				return toRows(list)
			}
		}
	}
	return nil
}

func toRows(list []any) []Row {
	rows := make([]Row, 0, len(list))
	for _, entry := range list {
		if m, ok := entry.(map[string]any); ok {
			rows = append(rows, Row(m))
		}
	}
	return rows
}

// matchRows returns every row whose match-column concatenation contains
// the query as a case-insensitive substring, preserving input order.
// Zero-match and multi-match policy belongs to the caller.
func matchRows(rows []Row, query string) []Row {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil
	}
	var matches []Row
	for _, row := range rows {
		if strings.Contains(rowHaystack(row), needle) {
			matches = append(matches, row)
		}
	}
	return matches
}

// pickRow returns the first row matching the filter, or the first row
// outright when the filter is empty. This is the legacy convenience
// path for cached-listing setters; it deliberately does not share the
// exactly-one-match rule of the discovery path.
func pickRow(rows []Row, filter string) Row {
	if len(rows) == 0 {
		return nil
	}
	needle := strings.ToLower(strings.TrimSpace(filter))
	if needle == "" {
		return rows[0]
	}
	for _, row := range rows {
		if strings.Contains(rowHaystack(row), needle) {
			return row
		}
	}
	return nil
}

func rowHaystack(row Row) string {
	parts := make([]string, len(matchColumns))
	for i, col := range matchColumns {
		parts[i] = scalarString(row[col])
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// scalarString renders a decoded JSON scalar the way callers expect to
// see it: whole-number floats without a decimal point, nil as "".
func scalarString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

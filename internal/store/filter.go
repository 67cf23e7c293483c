// ABOUTME: Sparse query filters built from the fields a caller actually supplied
// ABOUTME: Absent or empty fields never participate, so an empty filter matches everything

package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownFilterField is returned when a filter names a field the record kind cannot be queried by
var ErrUnknownFilterField = errors.New("unknown filter field")

// Filter maps a record field name to the value it must equal.
type Filter map[string]string

// BuildFilter keeps exactly the fields whose value is present and non-empty.
func BuildFilter(fields map[string]*string) Filter {
	f := make(Filter, len(fields))
	for name, v := range fields {
		if v == nil || *v == "" {
			continue
		}
		f[name] = *v
	}
	return f
}

// Keys returns the filter's field names in sorted order.
func (f Filter) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Filterable field names per record kind, mapped to their column.
var (
	mediationFilterColumns = map[string]string{
		"mediation_id":  "mediation_id",
		"connection_id": "connection_id",
		"state":         "state",
		"role":          "role",
	}
	routeFilterColumns = map[string]string{
		"record_id":     "record_id",
		"connection_id": "connection_id",
		"recipient_key": "recipient_key",
		"role":          "role",
	}
)

// whereClause renders the filter as an AND of equality predicates over the
// allowed columns. Returns an empty clause for an empty filter.
func whereClause(f Filter, columns map[string]string) (string, []any, error) {
	if len(f) == 0 {
		return "", nil, nil
	}

	preds := make([]string, 0, len(f))
	args := make([]any, 0, len(f))
	for _, k := range f.Keys() {
		col, ok := columns[k]
		if !ok {
			return "", nil, fmt.Errorf("%w: %s", ErrUnknownFilterField, k)
		}
		preds = append(preds, col+" = ?")
		args = append(args, f[k])
	}
	return " WHERE " + strings.Join(preds, " AND "), args, nil
}

// checkFields validates filter keys for in-memory stores.
func checkFields(f Filter, columns map[string]string) error {
	for k := range f {
		if _, ok := columns[k]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownFilterField, k)
		}
	}
	return nil
}

package jsondoc

import (
	"maps"
	"strings"
)

// KeywordField is the reserved criterion matched against every field of a record.
const KeywordField = "keyword"

// Criteria maps a field name to the substring its value must contain.
// The KeywordField entry instead must appear in at least one field.
type Criteria map[string]string

// Filter keeps the records of data that satisfy c. data may be a bare array or
// an object whose "data" member is an array; sibling members of such an object
// are carried over unchanged. Any other shape is returned as is.
func Filter(data any, c Criteria) any {
	if len(c) == 0 {
		return data
	}
	switch t := data.(type) {
	case []any:
		return filterRecords(t, c)
	case map[string]any:
		records, ok := t["data"].([]any)
		if !ok {
			return data
		}
		out := maps.Clone(t)
		out["data"] = filterRecords(records, c)
		return out
	}
	return data
}

func filterRecords(records []any, c Criteria) []any {
	keyword := strings.ToLower(c[KeywordField])
	fields := make(map[string]string, len(c))
	for k, v := range c {
		if k != KeywordField {
			fields[k] = strings.ToLower(v)
		}
	}

	kept := make([]any, 0, len(records))
	for _, rec := range records {
		obj, ok := rec.(map[string]any)
		if !ok {
			continue
		}
		if matchFields(obj, fields) && matchKeyword(obj, keyword) {
			kept = append(kept, rec)
		}
	}
	return kept
}

// matchFields ANDs every field criterion. A missing or null field never matches.
func matchFields(obj map[string]any, fields map[string]string) bool {
	for name, want := range fields {
		v, ok := obj[name]
		if !ok || v == nil {
			return false
		}
		if !strings.Contains(strings.ToLower(stringify(v)), want) {
			return false
		}
	}
	return true
}

// matchKeyword ORs the keyword across all fields. An empty keyword matches.
func matchKeyword(obj map[string]any, keyword string) bool {
	if keyword == "" {
		return true
	}
	for _, v := range obj {
		if v == nil {
			continue
		}
		if strings.Contains(strings.ToLower(stringify(v)), keyword) {
			return true
		}
	}
	return false
}

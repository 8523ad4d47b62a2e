package jsondoc

import (
	"maps"
	"slices"
)

// Format selects the pagination output shape.
type Format string

const (
	// FormatArray returns only the page slice.
	FormatArray Format = "array"
	// FormatMetadata returns {data, total, hasMore} plus preserved siblings.
	FormatMetadata Format = "metadata"
)

// PageRequest asks for a 1-based page of PageSize records.
type PageRequest struct {
	Page     int
	PageSize int
	Format   Format
}

// Valid reports whether both page and page size are positive.
func (p PageRequest) Valid() bool {
	return p.Page > 0 && p.PageSize > 0
}

// Paginate slices data to the requested page. data follows the same shape rules
// as Filter. For an object input, a numeric "total" member overrides the array
// length when computing total and hasMore. Out-of-range pages are empty.
func Paginate(data any, req PageRequest) any {
	if !req.Valid() {
		return data
	}

	var (
		records  []any
		siblings map[string]any
		total    any
	)
	switch t := data.(type) {
	case []any:
		records = t
		total = int64(len(t))
	case map[string]any:
		arr, ok := t["data"].([]any)
		if !ok {
			return data
		}
		records, siblings = arr, t
		total = int64(len(arr))
		if _, ok := number(t["total"]); ok {
			total = t["total"]
		}
	default:
		return data
	}

	page := window(records, req.Page, req.PageSize)
	if req.Format == FormatArray {
		return page
	}

	limit, _ := number(total)
	out := make(map[string]any, len(siblings)+3)
	maps.Copy(out, siblings)
	out["data"] = page
	out["total"] = total
	out["hasMore"] = float64(req.Page)*float64(req.PageSize) < limit
	return out
}

// window returns the half-open slice [(page-1)*size, page*size) of records.
func window(records []any, page, size int) []any {
	pages := len(records) / size
	if len(records)%size != 0 {
		pages++
	}
	if page > pages {
		return []any{}
	}
	start := (page - 1) * size
	end := start + size
	if end < start || end > len(records) {
		end = len(records)
	}
	return slices.Clone(records[start:end])
}

// View applies Filter and then Paginate, so total and hasMore always describe
// the filtered collection. A caller-supplied "total" no longer holds once
// records were filtered out, so it is dropped before paginating.
func View(data any, c Criteria, page PageRequest) any {
	filtered := Filter(data, c)
	if obj, ok := filtered.(map[string]any); ok && len(c) > 0 && page.Valid() {
		if _, stale := obj["total"]; stale {
			obj = maps.Clone(obj)
			delete(obj, "total")
			filtered = obj
		}
	}
	return Paginate(filtered, page)
}

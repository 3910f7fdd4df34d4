package listing

import "strings"

// Page carries one slice of a filtered collection plus the counts a list
// view needs to render pagination controls.
type Page[T any] struct {
	Data       []T `json:"data"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Predicate reports whether an item passes one filter. A nil Predicate
// always passes, which lets callers hand over unset filters untouched.
type Predicate[T any] func(T) bool

// Filter keeps the items matching every predicate.
func Filter[T any](items []T, preds ...Predicate[T]) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if matchesAll(item, preds) {
			out = append(out, item)
		}
	}
	return out
}

func matchesAll[T any](item T, preds []Predicate[T]) bool {
	for _, pred := range preds {
		if pred == nil {
			continue
		}
		if !pred(item) {
			return false
		}
	}
	return true
}

// Paginate slices an already-filtered collection. Page and limit are
// clamped to 1; a page beyond the last yields empty data with the counts
// still accurate.
func Paginate[T any](items []T, page, limit int) Page[T] {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	total := len(items)
	totalPages := (total + limit - 1) / limit
	offset := (page - 1) * limit
	if offset >= total {
		return Page[T]{Data: []T{}, Total: total, TotalPages: totalPages}
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return Page[T]{Data: items[offset:end], Total: total, TotalPages: totalPages}
}

// FilterAndPaginate composes Filter and Paginate for the common browse
// screen flow. Total always reflects the filtered count.
func FilterAndPaginate[T any](items []T, page, limit int, preds ...Predicate[T]) Page[T] {
	return Paginate(Filter(items, preds...), page, limit)
}

// Equals builds a predicate comparing an extracted value to want. An
// empty want passes everything, matching the "unset filter" rule.
func Equals[T any](want string, get func(T) string) Predicate[T] {
	if want == "" {
		return nil
	}
	return func(item T) bool { return get(item) == want }
}

// BoolEquals builds a predicate on a boolean field; a nil want passes.
func BoolEquals[T any](want *bool, get func(T) bool) Predicate[T] {
	if want == nil {
		return nil
	}
	return func(item T) bool { return get(item) == *want }
}

// Contains builds a case-insensitive substring predicate over the
// designated text fields; an empty query passes everything.
func Contains[T any](query string, get func(T) []string) Predicate[T] {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}
	return func(item T) bool {
		for _, field := range get(item) {
			if strings.Contains(strings.ToLower(field), query) {
				return true
			}
		}
		return false
	}
}

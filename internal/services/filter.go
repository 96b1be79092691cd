package services

import (
	"strings"

	"github.com/tech17x/fizzyadmin-sub000/internal/models"
)

// FilterQuery is the table filter state: a free-text term searched across
// dotted paths plus exact-match constraints on top-level fields.
type FilterQuery struct {
	SearchTerm string
	SearchKeys []string
	// Filters maps a top-level field to its required string value. An empty
	// value leaves the field unconstrained.
	Filters map[string]string
}

// FilterRecords returns the records matching q, in input order. The result
// shares record maps with the input and is never nil.
func FilterRecords(records []models.Record, q FilterQuery) []models.Record {
	result := make([]models.Record, 0, len(records))
	if len(records) == 0 {
		return result
	}

	term := strings.ToLower(q.SearchTerm)
	paths := make([][]string, 0, len(q.SearchKeys))
	for _, key := range q.SearchKeys {
		paths = append(paths, strings.Split(key, "."))
	}

	for _, rec := range records {
		if !matchesFilters(rec, q.Filters) {
			continue
		}
		if term != "" && !matchesSearch(rec, paths, term) {
			continue
		}
		result = append(result, rec)
	}
	return result
}

func matchesFilters(rec models.Record, filters map[string]string) bool {
	for field, want := range filters {
		if want == "" {
			continue
		}
		got, ok := rec[field].Str()
		if !ok || got != want {
			return false
		}
	}
	return true
}

func matchesSearch(rec models.Record, paths [][]string, term string) bool {
	root := models.Object(rec)
	for _, path := range paths {
		v, ok := ResolvePath(root, path)
		if ok && containsTerm(v, term) {
			return true
		}
	}
	return false
}

// containsTerm reports whether v, or any element of v when it is a list, is a
// string containing the lowercased term.
func containsTerm(v models.Value, term string) bool {
	if s, ok := v.Str(); ok {
		return strings.Contains(strings.ToLower(s), term)
	}
	for _, item := range v.Items() {
		if s, ok := item.Str(); ok && strings.Contains(strings.ToLower(s), term) {
			return true
		}
	}
	return false
}

// ResolvePath walks path segments through v. A list resolves the remaining
// segments on each element, dropping undefined results and flattening list
// results one level. The boolean is false when the path is undefined.
func ResolvePath(v models.Value, path []string) (models.Value, bool) {
	if len(path) == 0 {
		return v, true
	}

	switch v.Kind() {
	case models.KindList:
		var out []models.Value
		for _, item := range v.Items() {
			r, ok := ResolvePath(item, path)
			if !ok {
				continue
			}
			if r.Kind() == models.KindList {
				out = append(out, r.Items()...)
				continue
			}
			out = append(out, r)
		}
		return models.List(out...), true
	case models.KindObject:
		child, ok := v.Field(path[0])
		if !ok {
			return models.Value{}, false
		}
		return ResolvePath(child, path[1:])
	default:
		return models.Value{}, false
	}
}

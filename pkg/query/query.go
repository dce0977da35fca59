// Package query turns untrusted list parameters into a bounded query plan.
// Parsing never fails: malformed input degrades to the documented defaults,
// and the emitted plan is the only form in which list queries reach storage.
package query

import (
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// SortField names a column the store may order by.
type SortField string

const (
	SortCreatedAt SortField = "createdAt"
	SortUpdatedAt SortField = "updatedAt"
	SortPriority  SortField = "priority"
)

// Predicate holds the recognized filter keys. Empty string means
// "no constraint"; non-empty values combine with logical AND.
type Predicate struct {
	Status   string
	Owner    string
	Priority string
}

// Order is the single ordering clause applied to a list query.
type Order struct {
	Field SortField
	Desc  bool
}

// Plan is the bounded predicate/order/limit/offset tuple handed to storage.
type Plan struct {
	Predicate Predicate
	Order     Order
	Limit     int
	Offset    int
}

// Parse builds a Plan from raw page/limit/filter/sort strings.
func Parse(page, limit, filter, sort string) Plan {
	p := parsePage(page)
	l := parseLimit(limit)
	return Plan{
		Predicate: parseFilter(filter),
		Order:     parseSort(sort),
		Limit:     l,
		Offset:    (p - 1) * l,
	}
}

func parsePage(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return DefaultPage
	}
	return n
}

func parseLimit(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return DefaultLimit
	}
	if n < 1 {
		return 1
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

// parseFilter splits "key:value,key2:value2" into a predicate. Tokens
// missing either side are dropped, unknown keys are ignored, and a
// repeated key keeps its last occurrence.
func parseFilter(s string) Predicate {
	var pred Predicate
	if s == "" {
		return pred
	}
	for _, tok := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(tok, ":")
		if !ok || key == "" || value == "" {
			continue
		}
		switch key {
		case "status":
			pred.Status = value
		case "owner":
			pred.Owner = value
		case "priority":
			pred.Priority = value
		}
	}
	return pred
}

// parseSort accepts "field:direction". Unsupported fields fall back to
// createdAt descending; any direction other than "asc" means descending.
func parseSort(s string) Order {
	field, dir, _ := strings.Cut(s, ":")
	switch SortField(field) {
	case SortCreatedAt, SortUpdatedAt, SortPriority:
		return Order{Field: SortField(field), Desc: dir != "asc"}
	}
	return Order{Field: SortCreatedAt, Desc: true}
}

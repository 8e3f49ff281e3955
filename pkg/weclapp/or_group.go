package weclapp

import (
	"maps"
	"strconv"
	"strings"
)

const orPrefix = "or-"

// OrFilterCollector gathers OR-combined filters. It is what OrWhereGroup hands
// to the caller's configure function, and it backs the ungrouped OrWhere*
// methods of QueryParams.
//
// The collector deliberately has no OrWhereGroup method: groups nest one level
// deep only.
type OrFilterCollector struct {
	filters map[string]string
}

func newOrFilterCollector() *OrFilterCollector {
	return &OrFilterCollector{filters: make(map[string]string)}
}

func filterKey(field, operator string) string {
	if operator == "" {
		return field
	}

	return field + "-" + operator
}

func customFieldName(customFieldID int) string {
	return "customField" + strconv.Itoa(customFieldID)
}

func put(target *map[string]string, key, value string) {
	if *target == nil {
		*target = make(map[string]string)
	}

	(*target)[key] = value
}

// OrWhere adds an OR-combined filter under "or-{field}-{operator}".
func (c *OrFilterCollector) OrWhere(field, operator string, value any) *OrFilterCollector {
	put(&c.filters, orPrefix+filterKey(field, operator), FormatValue(value))

	return c
}

func (c *OrFilterCollector) OrWhereEq(field string, value any) *OrFilterCollector {
	return c.OrWhere(field, OpEq, value)
}

func (c *OrFilterCollector) OrWhereNe(field string, value any) *OrFilterCollector {
	return c.OrWhere(field, OpNe, value)
}

func (c *OrFilterCollector) OrWhereGt(field string, value any) *OrFilterCollector {
	return c.OrWhere(field, OpGt, value)
}

func (c *OrFilterCollector) OrWhereGe(field string, value any) *OrFilterCollector {
	return c.OrWhere(field, OpGe, value)
}

func (c *OrFilterCollector) OrWhereLt(field string, value any) *OrFilterCollector {
	return c.OrWhere(field, OpLt, value)
}

func (c *OrFilterCollector) OrWhereLe(field string, value any) *OrFilterCollector {
	return c.OrWhere(field, OpLe, value)
}

func (c *OrFilterCollector) OrWhereLike(field string, value any) *OrFilterCollector {
	return c.OrWhere(field, OpLike, value)
}

func (c *OrFilterCollector) OrWhereILike(field string, value any) *OrFilterCollector {
	return c.OrWhere(field, OpILike, value)
}

func (c *OrFilterCollector) OrWhereNotLike(field string, value any) *OrFilterCollector {
	return c.OrWhere(field, OpNotLike, value)
}

func (c *OrFilterCollector) OrWhereNotILike(field string, value any) *OrFilterCollector {
	return c.OrWhere(field, OpNotILike, value)
}

// OrWhereIn adds "or-{field}-in" with values as JSON array text.
func (c *OrFilterCollector) OrWhereIn(field string, values ...any) *OrFilterCollector {
	put(&c.filters, orPrefix+filterKey(field, OpIn), jsonArray(values))

	return c
}

// OrWhereNotIn adds "or-{field}-notin" with values as JSON array text.
func (c *OrFilterCollector) OrWhereNotIn(field string, values ...any) *OrFilterCollector {
	put(&c.filters, orPrefix+filterKey(field, OpNotIn), jsonArray(values))

	return c
}

func (c *OrFilterCollector) OrWhereNull(field string) *OrFilterCollector {
	put(&c.filters, orPrefix+filterKey(field, OpNull), "true")

	return c
}

func (c *OrFilterCollector) OrWhereNotNull(field string) *OrFilterCollector {
	put(&c.filters, orPrefix+filterKey(field, OpNotNull), "true")

	return c
}

func (c *OrFilterCollector) OrWhereCustomField(customFieldID int, operator string, value any) *OrFilterCollector {
	return c.OrWhere(customFieldName(customFieldID), operator, value)
}

// Filters returns a copy of the collected "or-" keyed filters.
func (c *OrFilterCollector) Filters() map[string]string {
	return maps.Clone(c.filters)
}

// grouped rewrites every "or-" key to "or{name}-".
func (c *OrFilterCollector) grouped(name string) map[string]string {
	out := make(map[string]string, len(c.filters))

	for key, value := range c.filters {
		out["or"+name+"-"+strings.TrimPrefix(key, orPrefix)] = value
	}

	return out
}

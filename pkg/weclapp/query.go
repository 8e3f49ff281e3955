package weclapp

import (
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// Filter operators understood by the weclapp API.
const (
	OpEq       = "eq"
	OpNe       = "ne"
	OpGt       = "gt"
	OpGe       = "ge"
	OpLt       = "lt"
	OpLe       = "le"
	OpLike     = "like"
	OpILike    = "ilike"
	OpNotLike  = "notlike"
	OpNotILike = "notilike"
	OpIn       = "in"
	OpNotIn    = "notin"
	OpNull     = "null"
	OpNotNull  = "notnull"
)

// Pagination bounds enforced by the weclapp API.
const (
	DefaultPageSize = 100
	MaxPageSize     = 100
)

// Rendered parameter names.
const (
	ParamPage                      = "page"
	ParamPageSize                  = "pageSize"
	ParamSort                      = "sort"
	ParamDryRun                    = "dryRun"
	ParamSerializeNulls            = "serializeNulls"
	ParamFilter                    = "filter"
	ParamIncludeReferencedEntities = "includeReferencedEntities"
	ParamProperties                = "properties"
	ParamAdditionalProperties      = "additionalProperties"
	ParamIgnoreMissingProperties   = "ignoreMissingProperties"
)

// QueryParams accumulates filters, sorting, pagination and selection options
// for one logical query and renders them as weclapp query parameters.
//
// A QueryParams is not safe for concurrent use. Multi-page fetches update its
// page fields in place between requests.
type QueryParams struct {
	filters   map[string]string
	orFilters *OrFilterCollector
	orGroups  map[string]string
	extra     map[string]string

	page           int
	pageSize       int
	serializeNulls bool
	rawFilter      string

	orderFields               []string
	includeReferencedEntities []string
	properties                []string
	additionalProperties      []string

	maxTotal                int
	forceAll                bool
	dryRun                  bool
	ignoreMissingProperties bool

	err error
}

// NewQueryParams creates an empty query in auto-pagination mode.
func NewQueryParams() *QueryParams {
	return &QueryParams{
		filters:   make(map[string]string),
		orFilters: newOrFilterCollector(),
		orGroups:  make(map[string]string),
		extra:     make(map[string]string),
		forceAll:  true,
	}
}

func (q *QueryParams) ors() *OrFilterCollector {
	if q.orFilters == nil {
		q.orFilters = newOrFilterCollector()
	}

	return q.orFilters
}

// Where sets the filter "{field}-{operator}" (or bare field when operator is
// empty). Setting the same field and operator again overwrites the value.
func (q *QueryParams) Where(field, operator string, value any) *QueryParams {
	put(&q.filters, filterKey(field, operator), FormatValue(value))

	return q
}

func (q *QueryParams) WhereEq(field string, value any) *QueryParams {
	return q.Where(field, OpEq, value)
}

func (q *QueryParams) WhereNe(field string, value any) *QueryParams {
	return q.Where(field, OpNe, value)
}

func (q *QueryParams) WhereGt(field string, value any) *QueryParams {
	return q.Where(field, OpGt, value)
}

func (q *QueryParams) WhereGe(field string, value any) *QueryParams {
	return q.Where(field, OpGe, value)
}

func (q *QueryParams) WhereLt(field string, value any) *QueryParams {
	return q.Where(field, OpLt, value)
}

func (q *QueryParams) WhereLe(field string, value any) *QueryParams {
	return q.Where(field, OpLe, value)
}

func (q *QueryParams) WhereLike(field string, value any) *QueryParams {
	return q.Where(field, OpLike, value)
}

func (q *QueryParams) WhereILike(field string, value any) *QueryParams {
	return q.Where(field, OpILike, value)
}

func (q *QueryParams) WhereNotLike(field string, value any) *QueryParams {
	return q.Where(field, OpNotLike, value)
}

func (q *QueryParams) WhereNotILike(field string, value any) *QueryParams {
	return q.Where(field, OpNotILike, value)
}

// WhereIn sets "{field}-in" to the JSON array of values. Order and duplicates
// are kept as given. A single slice argument is expanded into its elements.
func (q *QueryParams) WhereIn(field string, values ...any) *QueryParams {
	put(&q.filters, filterKey(field, OpIn), jsonArray(values))

	return q
}

// WhereNotIn sets "{field}-notin" to the JSON array of values.
func (q *QueryParams) WhereNotIn(field string, values ...any) *QueryParams {
	put(&q.filters, filterKey(field, OpNotIn), jsonArray(values))

	return q
}

func (q *QueryParams) WhereNull(field string) *QueryParams {
	put(&q.filters, filterKey(field, OpNull), "true")

	return q
}

func (q *QueryParams) WhereNotNull(field string) *QueryParams {
	put(&q.filters, filterKey(field, OpNotNull), "true")

	return q
}

// WhereCustomField filters on custom attribute customField{id}.
func (q *QueryParams) WhereCustomField(customFieldID int, operator string, value any) *QueryParams {
	return q.Where(customFieldName(customFieldID), operator, value)
}

// OrWhere adds an ungrouped OR filter "or-{field}-{operator}".
func (q *QueryParams) OrWhere(field, operator string, value any) *QueryParams {
	q.ors().OrWhere(field, operator, value)

	return q
}

func (q *QueryParams) OrWhereEq(field string, value any) *QueryParams {
	return q.OrWhere(field, OpEq, value)
}

func (q *QueryParams) OrWhereNe(field string, value any) *QueryParams {
	return q.OrWhere(field, OpNe, value)
}

func (q *QueryParams) OrWhereGt(field string, value any) *QueryParams {
	return q.OrWhere(field, OpGt, value)
}

func (q *QueryParams) OrWhereGe(field string, value any) *QueryParams {
	return q.OrWhere(field, OpGe, value)
}

func (q *QueryParams) OrWhereLt(field string, value any) *QueryParams {
	return q.OrWhere(field, OpLt, value)
}

func (q *QueryParams) OrWhereLe(field string, value any) *QueryParams {
	return q.OrWhere(field, OpLe, value)
}

func (q *QueryParams) OrWhereLike(field string, value any) *QueryParams {
	return q.OrWhere(field, OpLike, value)
}

func (q *QueryParams) OrWhereILike(field string, value any) *QueryParams {
	return q.OrWhere(field, OpILike, value)
}

func (q *QueryParams) OrWhereNotLike(field string, value any) *QueryParams {
	return q.OrWhere(field, OpNotLike, value)
}

func (q *QueryParams) OrWhereNotILike(field string, value any) *QueryParams {
	return q.OrWhere(field, OpNotILike, value)
}

func (q *QueryParams) OrWhereIn(field string, values ...any) *QueryParams {
	q.ors().OrWhereIn(field, values...)

	return q
}

func (q *QueryParams) OrWhereNotIn(field string, values ...any) *QueryParams {
	q.ors().OrWhereNotIn(field, values...)

	return q
}

func (q *QueryParams) OrWhereNull(field string) *QueryParams {
	q.ors().OrWhereNull(field)

	return q
}

func (q *QueryParams) OrWhereNotNull(field string) *QueryParams {
	q.ors().OrWhereNotNull(field)

	return q
}

func (q *QueryParams) OrWhereCustomField(customFieldID int, operator string, value any) *QueryParams {
	q.ors().OrWhereCustomField(customFieldID, operator, value)

	return q
}

// OrWhereGroup collects OR filters into the named group. Each "or-" key the
// configure function produces is stored as "or{name}-...", e.g.
// "or-x-eq" becomes "org-x-eq" for the group "g".
//
// Groups cannot be nested. An empty name is recorded as an error that the
// terminal operation returns.
func (q *QueryParams) OrWhereGroup(name string, configure func(group *OrFilterCollector)) *QueryParams {
	if name == "" {
		if q.err == nil {
			q.err = NewLocalError(ErrorCodeInvalidField, ErrInvalidGroupName)
		}

		return q
	}

	collector := newOrFilterCollector()
	if configure != nil {
		configure(collector)
	}

	for key, value := range collector.grouped(name) {
		put(&q.orGroups, key, value)
	}

	return q
}

// WhereRaw stores a raw filter expression under the "filter" parameter,
// bypassing all key construction.
//
// EXPERIMENTAL: the weclapp semantics of this parameter are not stable and
// this method may change or disappear.
func (q *QueryParams) WhereRaw(expression string) *QueryParams {
	q.rawFilter = expression

	return q
}

// IncludeReferencedEntities replaces the list of referenced entity properties
// to include in the response.
func (q *QueryParams) IncludeReferencedEntities(properties ...string) *QueryParams {
	q.includeReferencedEntities = slices.Clone(properties)

	return q
}

// Properties replaces the list of properties to select.
func (q *QueryParams) Properties(properties ...string) *QueryParams {
	q.properties = slices.Clone(properties)

	return q
}

// AdditionalProperties replaces the list of computed properties to request.
func (q *QueryParams) AdditionalProperties(properties ...string) *QueryParams {
	q.additionalProperties = slices.Clone(properties)

	return q
}

func (q *QueryParams) OrderAsc(field string) *QueryParams {
	q.orderFields = append(q.orderFields, field)

	return q
}

func (q *QueryParams) OrderDesc(field string) *QueryParams {
	q.orderFields = append(q.orderFields, "-"+field)

	return q
}

// OrderBy sorts descending when direction is "desc" (any case), otherwise ascending.
func (q *QueryParams) OrderBy(field, direction string) *QueryParams {
	if strings.EqualFold(direction, "desc") {
		return q.OrderDesc(field)
	}

	return q.OrderAsc(field)
}

// Limit caps the total number of results across all pages. The cap is applied
// client-side and never sent to the server.
func (q *QueryParams) Limit(limit int) *QueryParams {
	q.maxTotal = max(1, limit)

	return q
}

// Page selects a single page and disables auto-pagination. The page is at
// least 1 and the size is clamped to 1..100.
func (q *QueryParams) Page(page, size int) *QueryParams {
	q.forceAll = false
	q.setPage(page, size)

	return q
}

// PageSize changes the page size (clamped to 1..100) without leaving
// auto-pagination mode.
func (q *QueryParams) PageSize(size int) *QueryParams {
	q.pageSize = clampPageSize(size)

	return q
}

// NoLimit returns to auto-pagination and removes the result cap.
func (q *QueryParams) NoLimit() *QueryParams {
	q.forceAll = true
	q.maxTotal = 0

	return q
}

func (q *QueryParams) setPage(page, size int) {
	q.page = max(1, page)
	q.pageSize = clampPageSize(size)
}

func clampPageSize(size int) int {
	return min(MaxPageSize, max(1, size))
}

// DryRun makes mutating operations validate without persisting.
func (q *QueryParams) DryRun() *QueryParams {
	q.dryRun = true

	return q
}

func (q *QueryParams) IsDryRun() bool {
	return q.dryRun
}

// SerializeNulls asks the server to include null properties in responses.
func (q *QueryParams) SerializeNulls() *QueryParams {
	q.serializeNulls = true

	return q
}

// IgnoreMissingProperties makes Update leave properties absent from the
// payload untouched.
func (q *QueryParams) IgnoreMissingProperties() *QueryParams {
	q.ignoreMissingProperties = true

	return q
}

func (q *QueryParams) IsIgnoreMissingProperties() bool {
	return q.ignoreMissingProperties
}

// WithOption sets a free-form option rendered alongside page and pageSize.
func (q *QueryParams) WithOption(key, value string) *QueryParams {
	put(&q.extra, key, value)

	return q
}

// MaxTotal returns the cross-page result cap, if set.
func (q *QueryParams) MaxTotal() (int, bool) {
	return q.maxTotal, q.maxTotal > 0
}

// IsAutoPaginated reports whether All fetches every page.
func (q *QueryParams) IsAutoPaginated() bool {
	return q.forceAll
}

// CurrentPage returns the selected page, 0 when unset.
func (q *QueryParams) CurrentPage() int {
	return q.page
}

// CurrentPageSize returns the selected page size, 0 when unset.
func (q *QueryParams) CurrentPageSize() int {
	return q.pageSize
}

// Err returns the first error recorded while building the query.
func (q *QueryParams) Err() error {
	return q.err
}

func (q *QueryParams) options() map[string]string {
	options := maps.Clone(q.extra)
	if options == nil {
		options = make(map[string]string)
	}

	if q.page > 0 {
		options[ParamPage] = strconv.Itoa(q.page)
	}

	if q.pageSize > 0 {
		options[ParamPageSize] = strconv.Itoa(q.pageSize)
	}

	if q.serializeNulls {
		options[ParamSerializeNulls] = "true"
	}

	if q.rawFilter != "" {
		options[ParamFilter] = q.rawFilter
	}

	return options
}

// BuildQueryParams renders the query. Filters, options, OR filters and
// OR groups are merged in that order, later entries winning on key collision;
// sort, selection lists and the dry-run flag are applied last. The cross-page
// cap is never rendered.
func (q *QueryParams) BuildQueryParams() map[string]string {
	params := make(map[string]string)

	maps.Copy(params, q.filters)
	maps.Copy(params, q.options())

	if q.orFilters != nil {
		maps.Copy(params, q.orFilters.filters)
	}

	maps.Copy(params, q.orGroups)

	if len(q.orderFields) > 0 {
		params[ParamSort] = strings.Join(q.orderFields, ",")
	}

	if len(q.includeReferencedEntities) > 0 {
		params[ParamIncludeReferencedEntities] = strings.Join(q.includeReferencedEntities, ",")
	}

	if len(q.properties) > 0 {
		params[ParamProperties] = strings.Join(q.properties, ",")
	}

	if len(q.additionalProperties) > 0 {
		params[ParamAdditionalProperties] = strings.Join(q.additionalProperties, ",")
	}

	if q.dryRun {
		params[ParamDryRun] = "true"
	}

	return params
}

// ToValues renders the query as url.Values.
func (q *QueryParams) ToValues() url.Values {
	return toValues(q.BuildQueryParams())
}

// FilterValues renders only the plain filters, as used by count requests.
func (q *QueryParams) FilterValues() url.Values {
	return toValues(q.filters)
}

func toValues(params map[string]string) url.Values {
	values := url.Values{}
	for key, value := range params {
		values.Set(key, value)
	}

	return values
}

// Clone returns a deep copy.
func (q *QueryParams) Clone() *QueryParams {
	clone := *q
	clone.filters = maps.Clone(q.filters)
	clone.orGroups = maps.Clone(q.orGroups)
	clone.extra = maps.Clone(q.extra)
	clone.orFilters = &OrFilterCollector{filters: maps.Clone(q.ors().filters)}
	clone.orderFields = slices.Clone(q.orderFields)
	clone.includeReferencedEntities = slices.Clone(q.includeReferencedEntities)
	clone.properties = slices.Clone(q.properties)
	clone.additionalProperties = slices.Clone(q.additionalProperties)

	return &clone
}

package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/fivetwenty-io/weclapp-client/internal/constants"
	"github.com/fivetwenty-io/weclapp-client/pkg/weclapp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// filterFlags are the filter options shared by query and count.
type filterFlags struct {
	where    []string
	orWhere  []string
	orGroups []string
	whereIn  []string
	null     []string
	notNull  []string
	filter   string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&f.where, "where", "w", nil, `filter "field operator value", e.g. "name eq Foo" (repeatable)`)
	cmd.Flags().StringArrayVar(&f.orWhere, "or-where", nil, `OR filter "field operator value" (repeatable)`)
	cmd.Flags().StringArrayVar(&f.orGroups, "or-group", nil, `named OR group "group:field operator value" (repeatable)`)
	cmd.Flags().StringArrayVar(&f.whereIn, "where-in", nil, "filter field=value1,value2 (repeatable)")
	cmd.Flags().StringSliceVar(&f.null, "null", nil, "fields that must be null")
	cmd.Flags().StringSliceVar(&f.notNull, "not-null", nil, "fields that must not be null")
	cmd.Flags().StringVar(&f.filter, "filter", "", "raw filter expression (experimental)")
}

func (f *filterFlags) apply(params *weclapp.QueryParams) error {
	for _, raw := range f.where {
		clause, err := parseWhere(raw)
		if err != nil {
			return err
		}

		applyWhere(params, clause, false)
	}

	for _, raw := range f.orWhere {
		clause, err := parseWhere(raw)
		if err != nil {
			return err
		}

		applyWhere(params, clause, true)
	}

	groups, order, err := parseOrGroups(f.orGroups)
	if err != nil {
		return err
	}

	for _, name := range order {
		clauses := groups[name]
		params.OrWhereGroup(name, func(group *weclapp.OrFilterCollector) {
			for _, clause := range clauses {
				applyGroupWhere(group, clause)
			}
		})
	}

	for _, raw := range f.whereIn {
		field, values, err := parseWhereIn(raw)
		if err != nil {
			return err
		}

		params.WhereIn(field, values...)
	}

	for _, field := range f.null {
		params.WhereNull(field)
	}

	for _, field := range f.notNull {
		params.WhereNotNull(field)
	}

	if f.filter != "" {
		params.WhereRaw(f.filter)
	}

	return nil
}

// parseOrGroups groups "name:field operator value" clauses by name, keeping
// the order in which group names first appear.
func parseOrGroups(raw []string) (map[string][]whereClause, []string, error) {
	groups := make(map[string][]whereClause)

	var order []string

	for _, entry := range raw {
		name, expression, found := strings.Cut(entry, ":")
		if !found {
			return nil, nil, fmt.Errorf("%q: %w", entry, constants.ErrInvalidWhereClause)
		}

		clause, err := parseWhere(expression)
		if err != nil {
			return nil, nil, err
		}

		if _, seen := groups[name]; !seen {
			order = append(order, name)
		}

		groups[name] = append(groups[name], clause)
	}

	return groups, order, nil
}

// queryFlags are the options of the query command.
type queryFlags struct {
	filterFlags

	sort              []string
	properties        []string
	includeReferenced []string
	limit             int
	page              int
	pageSize          int
	serializeNulls    bool
}

func (f *queryFlags) register(cmd *cobra.Command) {
	f.filterFlags.register(cmd)

	cmd.Flags().StringSliceVarP(&f.sort, "sort", "s", nil, "sort fields, prefix with - for descending")
	cmd.Flags().StringSliceVarP(&f.properties, "properties", "p", nil, "properties to return")
	cmd.Flags().StringSliceVar(&f.includeReferenced, "include-referenced", nil, "referenced entities to include")
	cmd.Flags().IntVarP(&f.limit, "limit", "l", 0, "maximum number of entities to fetch (0 for no limit)")
	cmd.Flags().IntVar(&f.page, "page", 0, "fetch a single page instead of all pages")
	cmd.Flags().IntVar(&f.pageSize, "page-size", weclapp.DefaultPageSize, "entities per page")
	cmd.Flags().BoolVar(&f.serializeNulls, "serialize-nulls", false, "include null properties in results")
}

func (f *queryFlags) build() (*weclapp.QueryParams, error) {
	params := weclapp.NewQueryParams()

	err := f.apply(params)
	if err != nil {
		return nil, err
	}

	applySort(params, f.sort)

	if len(f.properties) > 0 {
		params.Properties(f.properties...)
	}

	if len(f.includeReferenced) > 0 {
		params.IncludeReferencedEntities(f.includeReferenced...)
	}

	if f.serializeNulls {
		params.SerializeNulls()
	}

	if f.page > 0 {
		params.Page(f.page, f.pageSize)
	} else {
		params.PageSize(f.pageSize)
	}

	if f.limit > 0 {
		params.Limit(f.limit)
	}

	return params, nil
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	flags := &queryFlags{}

	cmd := &cobra.Command{
		Use:     "query ENDPOINT",
		Aliases: []string{"list", "ls"},
		Short:   "Query entities of an endpoint",
		Long: `Query entities of an endpoint such as article, customer or salesOrder.

All pages are fetched unless --page is given. Filters use weclapp operators:
eq, ne, gt, ge, lt, le, like, ilike, notlike, notilike, in, notin, null, notnull.`,
		Example: `  weclapp query article --where "articleNumber eq 1001"
  weclapp query customer --where "company ilike %gmbh%" --sort -lastModifiedDate --limit 20
  weclapp query salesOrder --or-group "status:status eq OPEN" --or-group "status:status eq ORDER_CONFIRMATION_PRINTED"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat()
			if err != nil {
				return err
			}

			params, err := flags.build()
			if err != nil {
				return err
			}

			c, err := createClient(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			opts := weclapp.DefaultPaginationOptions()
			if viper.GetBool("verbose") {
				opts.Progress = func(page, count int) {
					_, _ = fmt.Fprintf(os.Stderr, "Fetched page %d (%d entities)\n", page, count)
				}
			}

			records, err := c.Query(args[0]).AllWithOptions(commandContext(cmd), params, opts)
			if err != nil {
				return fmt.Errorf("failed to query %s: %w", args[0], err)
			}

			return renderRecords(cmd.OutOrStdout(), format, records, flags.properties)
		},
	}

	flags.register(cmd)

	return cmd
}

// NewCountCommand creates the count command.
func NewCountCommand() *cobra.Command {
	flags := &filterFlags{}

	cmd := &cobra.Command{
		Use:   "count ENDPOINT",
		Short: "Count entities of an endpoint",
		Long:  "Count the entities of an endpoint that match the given filters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := weclapp.NewQueryParams()

			err := flags.apply(params)
			if err != nil {
				return err
			}

			c, err := createClient(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			count, err := c.Query(args[0]).Count(commandContext(cmd), params)
			if err != nil {
				return fmt.Errorf("failed to count %s: %w", args[0], err)
			}

			format, err := outputFormat()
			if err != nil {
				return err
			}

			if format == constants.FormatTable {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), count)

				return nil
			}

			return encodeStructured(cmd.OutOrStdout(), format, map[string]int{"count": count})
		},
	}

	flags.register(cmd)

	return cmd
}

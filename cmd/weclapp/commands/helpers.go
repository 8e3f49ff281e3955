package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fivetwenty-io/weclapp-client/internal/constants"
	"github.com/fivetwenty-io/weclapp-client/pkg/weclapp"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var knownOperators = map[string]bool{
	weclapp.OpEq: true, weclapp.OpNe: true,
	weclapp.OpGt: true, weclapp.OpGe: true,
	weclapp.OpLt: true, weclapp.OpLe: true,
	weclapp.OpLike: true, weclapp.OpILike: true,
	weclapp.OpNotLike: true, weclapp.OpNotILike: true,
	weclapp.OpIn: true, weclapp.OpNotIn: true,
	weclapp.OpNull: true, weclapp.OpNotNull: true,
}

// whereClause is a parsed "field operator value" expression.
type whereClause struct {
	Field    string
	Operator string
	Values   []any
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}

// parseWhere parses "field operator value". The value may contain spaces.
// null and notnull take no value; in and notin take a comma separated list.
func parseWhere(clause string) (whereClause, error) {
	parts := strings.SplitN(strings.TrimSpace(clause), " ", 3)
	if len(parts) < 2 || parts[0] == "" {
		return whereClause{}, fmt.Errorf("%q: %w", clause, constants.ErrInvalidWhereClause)
	}

	operator := strings.ToLower(strings.TrimSpace(parts[1]))
	if !knownOperators[operator] {
		return whereClause{}, fmt.Errorf("%q: unknown operator %q: %w", clause, operator, constants.ErrInvalidWhereClause)
	}

	parsed := whereClause{Field: parts[0], Operator: operator}

	switch operator {
	case weclapp.OpNull, weclapp.OpNotNull:
		return parsed, nil
	case weclapp.OpIn, weclapp.OpNotIn:
		if len(parts) < 3 {
			return whereClause{}, fmt.Errorf("%q: %w", clause, constants.ErrInvalidWhereClause)
		}

		parsed.Values = splitList(parts[2])

		return parsed, nil
	}

	if len(parts) < 3 {
		return whereClause{}, fmt.Errorf("%q: %w", clause, constants.ErrInvalidWhereClause)
	}

	parsed.Values = []any{parts[2]}

	return parsed, nil
}

// parseWhereIn parses "field=value1,value2".
func parseWhereIn(clause string) (string, []any, error) {
	field, list, found := strings.Cut(clause, "=")
	field = strings.TrimSpace(field)

	if !found || field == "" || strings.TrimSpace(list) == "" {
		return "", nil, fmt.Errorf("%q: %w", clause, constants.ErrInvalidWhereIn)
	}

	return field, splitList(list), nil
}

func splitList(list string) []any {
	items := strings.Split(list, ",")
	values := make([]any, 0, len(items))

	for _, item := range items {
		values = append(values, strings.TrimSpace(item))
	}

	return values
}

// applyWhere adds clause as an AND filter, or as an OR filter when or is set.
func applyWhere(params *weclapp.QueryParams, clause whereClause, or bool) {
	switch {
	case clause.Operator == weclapp.OpNull && or:
		params.OrWhereNull(clause.Field)
	case clause.Operator == weclapp.OpNull:
		params.WhereNull(clause.Field)
	case clause.Operator == weclapp.OpNotNull && or:
		params.OrWhereNotNull(clause.Field)
	case clause.Operator == weclapp.OpNotNull:
		params.WhereNotNull(clause.Field)
	case clause.Operator == weclapp.OpIn && or:
		params.OrWhereIn(clause.Field, clause.Values...)
	case clause.Operator == weclapp.OpIn:
		params.WhereIn(clause.Field, clause.Values...)
	case clause.Operator == weclapp.OpNotIn && or:
		params.OrWhereNotIn(clause.Field, clause.Values...)
	case clause.Operator == weclapp.OpNotIn:
		params.WhereNotIn(clause.Field, clause.Values...)
	case or:
		params.OrWhere(clause.Field, clause.Operator, clause.Values[0])
	default:
		params.Where(clause.Field, clause.Operator, clause.Values[0])
	}
}

func applyGroupWhere(group *weclapp.OrFilterCollector, clause whereClause) {
	switch clause.Operator {
	case weclapp.OpNull:
		group.OrWhereNull(clause.Field)
	case weclapp.OpNotNull:
		group.OrWhereNotNull(clause.Field)
	case weclapp.OpIn:
		group.OrWhereIn(clause.Field, clause.Values...)
	case weclapp.OpNotIn:
		group.OrWhereNotIn(clause.Field, clause.Values...)
	default:
		group.OrWhere(clause.Field, clause.Operator, clause.Values[0])
	}
}

// applySort adds "field" ascending or "-field" descending.
func applySort(params *weclapp.QueryParams, fields []string) {
	for _, field := range fields {
		field = strings.TrimSpace(field)

		switch {
		case field == "", field == "-":
			continue
		case strings.HasPrefix(field, "-"):
			params.OrderDesc(field[1:])
		default:
			params.OrderAsc(field)
		}
	}
}

// readPayload reads a single JSON or YAML object from path, or stdin for "-".
func readPayload(path string, stdin io.Reader) (weclapp.Record, error) {
	if path == "" {
		return nil, constants.ErrDataRequired
	}

	var (
		data []byte
		err  error
	)

	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = readPayloadFile(path)
	}

	if err != nil {
		return nil, err
	}

	var payload interface{}

	err = yaml.Unmarshal(data, &payload)
	if err != nil {
		return nil, fmt.Errorf("failed to parse payload: %w", err)
	}

	object, ok := payload.(map[string]interface{})
	if !ok {
		return nil, constants.ErrPayloadNotObject
	}

	return weclapp.Record(object), nil
}

func readPayloadFile(path string) ([]byte, error) {
	if strings.Contains(path, "..") {
		return nil, fmt.Errorf("%s: %w", path, constants.ErrDirectoryTraversalDetected)
	}

	cleaned := filepath.Clean(path)

	info, err := os.Stat(cleaned)
	if err != nil {
		return nil, fmt.Errorf("failed to access payload file: %w", err)
	}

	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: %w", path, constants.ErrNotRegularFile)
	}

	// #nosec G304 -- path validated above
	data, err := os.ReadFile(cleaned)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload file: %w", err)
	}

	return data, nil
}

func outputFormat() (string, error) {
	format := viper.GetString("output")

	switch format {
	case "", constants.FormatTable:
		return constants.FormatTable, nil
	case constants.FormatJSON, constants.FormatYAML:
		return format, nil
	default:
		return "", fmt.Errorf("%q: %w", format, constants.ErrInvalidOutput)
	}
}

func encodeStructured(w io.Writer, format string, data interface{}) error {
	if format == constants.FormatYAML {
		encoder := yaml.NewEncoder(w)
		defer func() { _ = encoder.Close() }()

		return encoder.Encode(data)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", strings.Repeat(" ", constants.JSONIndent))

	return encoder.Encode(data)
}

// renderRecords prints records as a table of columns, or as JSON/YAML.
func renderRecords(w io.Writer, format string, records []weclapp.Record, columns []string) error {
	if format != constants.FormatTable {
		return encodeStructured(w, format, records)
	}

	if len(records) == 0 {
		_, _ = fmt.Fprintln(w, "No entities found")

		return nil
	}

	if len(columns) == 0 {
		columns = defaultColumns(records)
	}

	table := tablewriter.NewWriter(w)

	header := make([]any, 0, len(columns))
	for _, column := range columns {
		header = append(header, column)
	}

	table.Header(header...)

	for _, record := range records {
		row := make([]string, 0, len(columns))
		for _, column := range columns {
			row = append(row, formatCell(record[column]))
		}

		_ = table.Append(row)
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

// renderRecord prints one record as a property/value table, or as JSON/YAML.
func renderRecord(w io.Writer, format string, record weclapp.Record) error {
	if format != constants.FormatTable {
		return encodeStructured(w, format, record)
	}

	keys := make([]string, 0, len(record))
	for key := range record {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	table := tablewriter.NewWriter(w)
	table.Header("Property", "Value")

	for _, key := range keys {
		_ = table.Append([]string{key, formatCell(record[key])})
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

// defaultColumns selects id first followed by the scalar properties of the
// first record in name order.
func defaultColumns(records []weclapp.Record) []string {
	first := records[0]
	keys := make([]string, 0, len(first))

	for key, value := range first {
		if key == "id" {
			continue
		}

		switch value.(type) {
		case map[string]interface{}, []interface{}:
			continue
		}

		keys = append(keys, key)
	}

	sort.Strings(keys)

	columns := []string{}
	if _, ok := first["id"]; ok {
		columns = append(columns, "id")
	}

	for _, key := range keys {
		if len(columns) == constants.DefaultTableColumns {
			break
		}

		columns = append(columns, key)
	}

	return columns
}

func formatCell(value interface{}) string {
	var text string

	switch v := value.(type) {
	case nil:
		return "-"
	case map[string]interface{}, []interface{}:
		data, err := json.Marshal(v)
		if err != nil {
			return constants.NotAvailable
		}

		text = string(data)
	default:
		text = weclapp.FormatValue(v)
	}

	if len(text) > constants.MaxColumnWidth {
		text = text[:constants.MaxColumnWidth-3] + "..."
	}

	return text
}

package importer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vitebski/mysql-library-manager/pkg/models"
)

// nullMarkers are field values read as NULL in addition to empty fields
var nullMarkers = map[string]bool{
	"#N/A": true, "N/A": true, "n/a": true, "NA": true, "<NA>": true,
	"NULL": true, "null": true, "NaN": true, "nan": true, "-NaN": true, "-nan": true,
	"None": true,
}

// ParseHeader turns the header record into the insert column list. Empty or
// repeated names make the header malformed.
func ParseHeader(header []string) ([]string, error) {
	if len(header) == 0 {
		return nil, fmt.Errorf("malformed header: no columns")
	}

	columns := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("malformed header: column %d has no name", i+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("malformed header: column %s appears more than once", name)
		}
		seen[name] = true
		columns[i] = name
	}
	return columns, nil
}

// BuildInsertSQL builds the parameterised insert for a table and column list.
// Table and column names are interpolated; values are always bound.
func BuildInsertSQL(table string, columns []string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = "?"
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)
}

// ColumnKind says how CSV fields of a column are bound
type ColumnKind int

const (
	// TextColumn fields are bound verbatim
	TextColumn ColumnKind = iota
	// IntegerColumn fields are bound as int64 when they parse
	IntegerColumn
	// NumericColumn fields are bound as trimmed text and cast by MySQL,
	// keeping DECIMAL digits exact
	NumericColumn
)

// KindOf classifies a declared column type such as "INT NOT NULL" or
// "DECIMAL(10,2)"
func KindOf(sqlType string) ColumnKind {
	base := strings.ToUpper(strings.TrimSpace(sqlType))
	if i := strings.IndexAny(base, " ("); i >= 0 {
		base = base[:i]
	}

	switch base {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "INTEGER", "BIGINT", "YEAR":
		return IntegerColumn
	case "DECIMAL", "DEC", "NUMERIC", "FIXED", "FLOAT", "DOUBLE", "REAL":
		return NumericColumn
	default:
		return TextColumn
	}
}

// ColumnKinds returns the kind of every header column. Columns the table
// does not declare are treated as text.
func ColumnKinds(def models.TableDefinition, columns []string) []ColumnKind {
	declared := make(map[string]string, len(def.Columns))
	for _, col := range def.Columns {
		declared[col.Name] = col.Type
	}

	kinds := make([]ColumnKind, len(columns))
	for i, name := range columns {
		if sqlType, ok := declared[name]; ok {
			kinds[i] = KindOf(sqlType)
		}
	}
	return kinds
}

// ConvertValue converts a raw CSV field for a column of the given kind.
// Empty and NULL-like fields become nil. Text is never rewritten, so "007"
// stays "007"; integers that do not parse are passed on as text for the
// server to reject.
func ConvertValue(raw string, kind ColumnKind) interface{} {
	if kind == TextColumn {
		if raw == "" || nullMarkers[raw] {
			return nil
		}
		return raw
	}

	s := strings.TrimSpace(raw)
	if s == "" || nullMarkers[s] {
		return nil
	}
	if kind == IntegerColumn {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
	}
	return s
}

// RowValues converts a record into insert arguments using the kind of each
// column. Missing trailing fields become NULL; surplus fields are an error.
func RowValues(columns []string, kinds []ColumnKind, record []string) ([]interface{}, map[string]string, error) {
	data := make(map[string]string, len(columns))
	for i, col := range columns {
		if i < len(record) {
			data[col] = record[i]
		} else {
			data[col] = ""
		}
	}

	if len(record) > len(columns) {
		return nil, data, fmt.Errorf("row has %d fields but the header has %d columns", len(record), len(columns))
	}

	values := make([]interface{}, len(columns))
	for i := range columns {
		if i < len(record) {
			values[i] = ConvertValue(record[i], kinds[i])
		}
	}
	return values, data, nil
}

package schema

import (
	"fmt"
	"strings"

	"github.com/vitebski/mysql-library-manager/pkg/models"
)

// CreateTableSQL renders a definition into an idempotent CREATE TABLE
// statement. Every foreign key column gets an idx_<table>_<column> index.
// Identifiers are interpolated as-is; they come from operator supplied
// definitions.
func CreateTableSQL(def models.TableDefinition) string {
	var parts []string
	for _, col := range def.Columns {
		parts = append(parts, fmt.Sprintf("%s %s", col.Name, col.Type))
	}

	if def.PrimaryKey != "" {
		parts = append(parts, fmt.Sprintf("PRIMARY KEY (%s)", def.PrimaryKey))
	}

	for _, fk := range def.ForeignKeys {
		parts = append(parts, fmt.Sprintf("INDEX %s (%s)", IndexName(def.Name, fk.Column), fk.Column))
	}

	for _, fk := range def.ForeignKeys {
		clause := fmt.Sprintf(
			"CONSTRAINT fk_%s_%s FOREIGN KEY (%s) REFERENCES %s (%s)",
			def.Name, fk.Column, fk.Column, fk.ReferencedTable, fk.ReferencedColumn,
		)
		if fk.OnDelete != "" {
			clause += " ON DELETE " + fk.OnDelete
		}
		parts = append(parts, clause)
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", def.Name, strings.Join(parts, ", "))
}

// IndexName returns the name of the index backing a foreign key column
func IndexName(table, column string) string {
	return fmt.Sprintf("idx_%s_%s", table, column)
}

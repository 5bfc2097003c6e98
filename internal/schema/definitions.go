package schema

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/vitebski/mysql-library-manager/pkg/models"
)

// Fixed table names of the library schema
const (
	BooksTable    = "books"
	StudentsTable = "students"
	LoanTable     = "loan"
	FineTable     = "fine"
)

// DefaultDefinitions returns the canonical library schema
func DefaultDefinitions() []models.TableDefinition {
	return []models.TableDefinition{
		{
			Name: BooksTable,
			Columns: []models.Column{
				{Name: "id", Type: "INT NOT NULL"},
				{Name: "title", Type: "VARCHAR(255) NOT NULL"},
				{Name: "author", Type: "VARCHAR(255) NOT NULL"},
				{Name: "publication_year", Type: "INT NULL"},
				{Name: "category", Type: "VARCHAR(100) NULL"},
			},
			PrimaryKey: "id",
		},
		{
			Name: StudentsTable,
			Columns: []models.Column{
				{Name: "id", Type: "INT NOT NULL"},
				{Name: "name", Type: "VARCHAR(255) NOT NULL"},
				{Name: "major", Type: "VARCHAR(100) NULL"},
				{Name: "year", Type: "INT NULL"},
			},
			PrimaryKey: "id",
		},
		{
			Name: LoanTable,
			Columns: []models.Column{
				{Name: "record_id", Type: "INT NOT NULL"},
				{Name: "book_id", Type: "INT NOT NULL"},
				{Name: "student_id", Type: "INT NOT NULL"},
				{Name: "borrow_date", Type: "DATE NOT NULL"},
				{Name: "return_date", Type: "DATE NULL"},
			},
			PrimaryKey: "record_id",
			ForeignKeys: []models.ForeignKey{
				{Column: "book_id", ReferencedTable: BooksTable, ReferencedColumn: "id", OnDelete: "CASCADE"},
				{Column: "student_id", ReferencedTable: StudentsTable, ReferencedColumn: "id", OnDelete: "CASCADE"},
			},
		},
		{
			Name: FineTable,
			Columns: []models.Column{
				{Name: "fine_id", Type: "VARCHAR(36) NOT NULL"},
				{Name: "student_id", Type: "INT NOT NULL"},
				{Name: "amount", Type: "DECIMAL(10,2) NOT NULL"},
				{Name: "reason", Type: "VARCHAR(255) NOT NULL"},
				{Name: "fine_date", Type: "DATE NOT NULL"},
			},
			PrimaryKey: "fine_id",
			ForeignKeys: []models.ForeignKey{
				{Column: "student_id", ReferencedTable: StudentsTable, ReferencedColumn: "id", OnDelete: "CASCADE"},
			},
		},
	}
}

// LoadDefinitions reads table definitions from a JSON file holding an array
// of table objects. An empty path yields the default definitions.
func LoadDefinitions(path string) ([]models.TableDefinition, error) {
	if path == "" {
		return DefaultDefinitions(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}

	var defs []models.TableDefinition
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parse schema file %s: %w", path, err)
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("schema file %s declares no tables", path)
	}

	seen := make(map[string]bool, len(defs))
	for _, def := range defs {
		if err := Validate(def); err != nil {
			return nil, err
		}
		if seen[def.Name] {
			return nil, fmt.Errorf("table %s declared twice", def.Name)
		}
		seen[def.Name] = true
	}
	return defs, nil
}

// Validate checks that a definition can be rendered into DDL
func Validate(def models.TableDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("table definition without a name")
	}
	if len(def.Columns) == 0 {
		return fmt.Errorf("table %s declares no columns", def.Name)
	}
	for _, col := range def.Columns {
		if col.Name == "" || col.Type == "" {
			return fmt.Errorf("table %s has a column without name or type", def.Name)
		}
	}
	if def.PrimaryKey != "" && !def.HasColumn(def.PrimaryKey) {
		return fmt.Errorf("table %s: primary key %s is not a declared column", def.Name, def.PrimaryKey)
	}
	for _, fk := range def.ForeignKeys {
		if !def.HasColumn(fk.Column) {
			return fmt.Errorf("table %s: foreign key column %s is not a declared column", def.Name, fk.Column)
		}
		if fk.ReferencedTable == "" || fk.ReferencedColumn == "" {
			return fmt.Errorf("table %s: foreign key %s has no referenced table or column", def.Name, fk.Column)
		}
	}
	return nil
}

// Find returns the definition with the given name
func Find(defs []models.TableDefinition, name string) (models.TableDefinition, bool) {
	for _, def := range defs {
		if def.Name == name {
			return def, true
		}
	}
	return models.TableDefinition{}, false
}

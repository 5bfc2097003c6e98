package analyzer

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/mysql-library-manager/internal/connector"
	"github.com/vitebski/mysql-library-manager/pkg/models"
	"github.com/yourbasic/graph"
)

const (
	tablesQuery = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ?
		AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`
	triggersQuery = `
		SELECT trigger_name
		FROM information_schema.triggers
		WHERE trigger_schema = ?
		ORDER BY trigger_name
	`
)

// SchemaAnalyzer inspects the live database and orders table definitions
// along their foreign key dependencies
type SchemaAnalyzer struct {
	Logger *logrus.Logger
}

// NewSchemaAnalyzer creates a new schema analyzer
func NewSchemaAnalyzer(logger *logrus.Logger) *SchemaAnalyzer {
	return &SchemaAnalyzer{Logger: logger}
}

// ListTables returns every base table present in the schema
func (sa *SchemaAnalyzer) ListTables(q connector.Querier, schemaName string) ([]string, error) {
	tables, err := connector.QueryStrings(q, tablesQuery, schemaName)
	if err != nil {
		sa.Logger.Errorf("Error getting tables: %v", err)
		return nil, fmt.Errorf("list tables of %s: %w", schemaName, err)
	}
	return tables, nil
}

// ListTriggers returns every trigger present in the schema
func (sa *SchemaAnalyzer) ListTriggers(q connector.Querier, schemaName string) ([]string, error) {
	triggers, err := connector.QueryStrings(q, triggersQuery, schemaName)
	if err != nil {
		sa.Logger.Errorf("Error getting triggers: %v", err)
		return nil, fmt.Errorf("list triggers of %s: %w", schemaName, err)
	}
	return triggers, nil
}

// DependencyGraph builds a graph with an edge from every referenced table to
// the table holding the foreign key. Self references are ignored.
func DependencyGraph(defs []models.TableDefinition) (*graph.Mutable, map[string]int) {
	index := make(map[string]int, len(defs))
	for i, def := range defs {
		index[def.Name] = i
	}

	g := graph.New(len(defs))
	for i, def := range defs {
		for _, fk := range def.ForeignKeys {
			parent, ok := index[fk.ReferencedTable]
			if !ok || parent == i {
				continue
			}
			g.Add(parent, i)
		}
	}
	return g, index
}

// GetTableCreationOrder orders definitions so that every referenced table
// comes before the tables that reference it
func (sa *SchemaAnalyzer) GetTableCreationOrder(defs []models.TableDefinition) ([]models.TableDefinition, error) {
	g, _ := DependencyGraph(defs)

	order, ok := graph.TopSort(g)
	if !ok {
		return nil, fmt.Errorf("foreign keys between tables %v form a cycle", tableNames(defs))
	}

	ordered := make([]models.TableDefinition, 0, len(defs))
	for _, i := range order {
		ordered = append(ordered, defs[i])
	}
	sa.Logger.Debugf("Table creation order: %v", tableNames(ordered))
	return ordered, nil
}

// GetTableDropOrder returns the reverse of the creation order
func (sa *SchemaAnalyzer) GetTableDropOrder(defs []models.TableDefinition) ([]models.TableDefinition, error) {
	ordered, err := sa.GetTableCreationOrder(defs)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(ordered)-1; i < j; i, j = i+1, j-1 {
		ordered[i], ordered[j] = ordered[j], ordered[i]
	}
	return ordered, nil
}

// SortTablesByDependency orders live table names: tables with a definition
// follow the drop order, unknown tables go first sorted by name
func (sa *SchemaAnalyzer) SortTablesByDependency(tables []string, defs []models.TableDefinition) []string {
	dropOrder, err := sa.GetTableDropOrder(defs)
	if err != nil {
		sa.Logger.Warningf("Falling back to name order: %v", err)
		sorted := append([]string(nil), tables...)
		sort.Strings(sorted)
		return sorted
	}

	present := make(map[string]bool, len(tables))
	for _, t := range tables {
		present[t] = true
	}

	known := make(map[string]bool, len(defs))
	var ordered []string
	for _, def := range dropOrder {
		known[def.Name] = true
	}

	var unknown []string
	for _, t := range tables {
		if !known[t] {
			unknown = append(unknown, t)
		}
	}
	sort.Strings(unknown)
	ordered = append(ordered, unknown...)

	for _, def := range dropOrder {
		if present[def.Name] {
			ordered = append(ordered, def.Name)
		}
	}
	return ordered
}

func tableNames(defs []models.TableDefinition) []string {
	names := make([]string, len(defs))
	for i, def := range defs {
		names[i] = def.Name
	}
	return names
}

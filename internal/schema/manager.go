package schema

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/mysql-library-manager/internal/analyzer"
	"github.com/vitebski/mysql-library-manager/internal/connector"
	"github.com/vitebski/mysql-library-manager/pkg/models"
)

// Manager creates, resets and recreates the library tables
type Manager struct {
	Session     *connector.Session
	Analyzer    *analyzer.SchemaAnalyzer
	Definitions []models.TableDefinition
	Strategy    models.ResetStrategy
	Logger      *logrus.Logger
}

// NewManager creates a schema manager for the given definitions
func NewManager(session *connector.Session, defs []models.TableDefinition, logger *logrus.Logger) *Manager {
	if len(defs) == 0 {
		defs = DefaultDefinitions()
	}
	return &Manager{
		Session:     session,
		Analyzer:    analyzer.NewSchemaAnalyzer(logger),
		Definitions: defs,
		Strategy:    models.ResetDropDatabase,
		Logger:      logger,
	}
}

// CreateSchema creates every defined table that does not exist yet.
// A failing table is recorded and the remaining tables are still attempted;
// the batch only reports success when every table was created.
func (m *Manager) CreateSchema() *models.SchemaStatus {
	status := &models.SchemaStatus{StartTime: time.Now()}
	defer func() {
		status.EndTime = time.Now()
		status.TablesCreatedCount = len(status.TablesCreated)
		status.FailedTables = len(status.Errors)
	}()

	ordered, err := m.Analyzer.GetTableCreationOrder(m.Definitions)
	if err != nil {
		m.Logger.Errorf("Table creation failed: %v", err)
		status.Errors = append(status.Errors, models.TableError{Error: err.Error()})
		return status
	}

	err = m.Session.WithTransaction(func(tx *sql.Tx) error {
		for _, def := range ordered {
			if err := Validate(def); err != nil {
				m.recordTableError(status, def.Name, err)
				continue
			}

			if _, err := tx.Exec(CreateTableSQL(def)); err != nil {
				m.recordTableError(status, def.Name, err)
				continue
			}

			m.Logger.Infof("Created table %s", def.Name)
			status.TablesCreated = append(status.TablesCreated, def.Name)
		}
		return nil
	})
	if err != nil {
		m.Logger.Errorf("Table creation failed: %v", err)
		status.Errors = append(status.Errors, models.TableError{Error: err.Error()})
		return status
	}

	if len(status.Errors) > 0 {
		// MySQL commits DDL implicitly, created tables stay in place
		m.Logger.Warningf("%d of %d tables failed, %d tables were created and remain",
			len(status.Errors), len(ordered), len(status.TablesCreated))
		return status
	}

	status.Success = true
	return status
}

func (m *Manager) recordTableError(status *models.SchemaStatus, table string, err error) {
	status.Errors = append(status.Errors, models.TableError{Table: table, Error: err.Error()})
	m.Logger.Errorf("Error creating table %s: %v", table, err)
}

// ResetSchema destroys every table and trigger of the schema using the
// manager's strategy. Absent tables or schemas are not an error.
//
// MySQL commits every DROP implicitly. With ResetDropTables a failure part
// way through leaves the tables already listed in DroppedTables dropped.
func (m *Manager) ResetSchema(schemaName string) *models.ResetStatus {
	status := &models.ResetStatus{StartTime: time.Now(), Strategy: m.Strategy}
	defer func() {
		status.EndTime = time.Now()
	}()

	if schemaName == "" {
		schemaName = m.Session.Database
	}

	var err error
	switch m.Strategy {
	case models.ResetDropDatabase:
		err = m.Session.WithTransaction(func(tx *sql.Tx) error {
			return m.dropDatabase(tx, schemaName, status)
		})
	default:
		err = m.Session.WithTransaction(func(tx *sql.Tx) error {
			return m.dropTables(tx, schemaName, status)
		})
	}

	if err != nil {
		status.Error = err.Error()
		m.Logger.Errorf("Reset of schema %s failed: %v", schemaName, err)
		if len(status.DroppedTables) > 0 || len(status.DroppedTriggers) > 0 {
			m.Logger.Warningf("Schema %s is partially reset: %d tables and %d triggers were already dropped",
				schemaName, len(status.DroppedTables), len(status.DroppedTriggers))
		}
		return status
	}

	m.Logger.Infof("Reset schema %s (%s): dropped %d tables and %d triggers",
		schemaName, m.Strategy, len(status.DroppedTables), len(status.DroppedTriggers))
	status.Success = true
	return status
}

// dropTables drops triggers first, then tables, with foreign key checks
// disabled for the duration of the drop
func (m *Manager) dropTables(tx *sql.Tx, schemaName string, status *models.ResetStatus) (err error) {
	if _, err := tx.Exec("SET FOREIGN_KEY_CHECKS = 0"); err != nil {
		return fmt.Errorf("disable foreign key checks: %w", err)
	}
	defer func() {
		if _, restoreErr := tx.Exec("SET FOREIGN_KEY_CHECKS = 1"); restoreErr != nil {
			m.Logger.Errorf("Error restoring foreign key checks: %v", restoreErr)
			if err == nil {
				err = fmt.Errorf("restore foreign key checks: %w", restoreErr)
			}
		}
	}()

	triggers, err := m.Analyzer.ListTriggers(tx, schemaName)
	if err != nil {
		return err
	}
	for _, trigger := range triggers {
		if _, err := tx.Exec(fmt.Sprintf("DROP TRIGGER IF EXISTS %s.%s", quoteIdent(schemaName), quoteIdent(trigger))); err != nil {
			return fmt.Errorf("drop trigger %s: %w", trigger, err)
		}
		m.Logger.Infof("Dropped trigger %s", trigger)
		status.DroppedTriggers = append(status.DroppedTriggers, trigger)
	}

	tables, err := m.Analyzer.ListTables(tx, schemaName)
	if err != nil {
		return err
	}
	for _, table := range m.Analyzer.SortTablesByDependency(tables, m.Definitions) {
		if _, err := tx.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s.%s", quoteIdent(schemaName), quoteIdent(table))); err != nil {
			return fmt.Errorf("drop table %s: %w", table, err)
		}
		m.Logger.Infof("Dropped table %s", table)
		status.DroppedTables = append(status.DroppedTables, table)
	}
	return nil
}

// dropDatabase drops and recreates the whole database, then selects it again
func (m *Manager) dropDatabase(tx *sql.Tx, schemaName string, status *models.ResetStatus) error {
	tables, err := m.Analyzer.ListTables(tx, schemaName)
	if err != nil {
		return err
	}

	statements := []string{
		fmt.Sprintf("DROP DATABASE IF EXISTS %s", quoteIdent(schemaName)),
		fmt.Sprintf("CREATE DATABASE %s", quoteIdent(schemaName)),
		fmt.Sprintf("USE %s", quoteIdent(schemaName)),
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}

	status.DroppedTables = tables
	return nil
}

// Recreate resets the schema and creates the tables again. The schema
// status is nil when the reset failed.
func (m *Manager) Recreate(schemaName string) (*models.ResetStatus, *models.SchemaStatus) {
	reset := m.ResetSchema(schemaName)
	if !reset.Success {
		return reset, nil
	}
	return reset, m.CreateSchema()
}

// VerifyTables counts the rows of every defined table
func (m *Manager) VerifyTables() (map[string]int64, error) {
	ordered, err := m.Analyzer.GetTableCreationOrder(m.Definitions)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(ordered))
	err = m.Session.WithTransaction(func(tx *sql.Tx) error {
		for _, def := range ordered {
			var count int64
			if err := tx.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", def.Name)).Scan(&count); err != nil {
				return fmt.Errorf("count rows of %s: %w", def.Name, err)
			}
			counts[def.Name] = count
		}
		return nil
	})
	if err != nil {
		m.Logger.Errorf("Could not verify tables: %v", err)
		return nil, err
	}
	return counts, nil
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

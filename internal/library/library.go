// Package library runs the reporting queries of the library schema and
// records loan returns.
package library

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/mysql-library-manager/internal/connector"
	"github.com/vitebski/mysql-library-manager/internal/schema"
	"github.com/vitebski/mysql-library-manager/pkg/models"
)

var (
	ErrUnknownTable        = errors.New("unknown table")
	ErrUnknownColumn       = errors.New("unknown column")
	ErrInvalidCount        = errors.New("count must not be negative")
	ErrLoanNotFound        = errors.New("loan not found")
	ErrLoanAlreadyReturned = errors.New("loan already returned")
	ErrReturnBeforeBorrow  = errors.New("return date is before borrow date")
)

// Library wraps a session with the report queries of the library schema
type Library struct {
	Session     *connector.Session
	Definitions []models.TableDefinition
	Logger      *logrus.Logger
}

// New creates a library bound to a session
func New(session *connector.Session, defs []models.TableDefinition, logger *logrus.Logger) *Library {
	if len(defs) == 0 {
		defs = schema.DefaultDefinitions()
	}
	return &Library{
		Session:     session,
		Definitions: defs,
		Logger:      logger,
	}
}

// run executes fn in its own transaction
func (l *Library) run(fn func(tx *sql.Tx) error) error {
	return l.Session.WithTransaction(fn)
}

// lookupTable resolves a caller supplied table name against the definitions
// so that only declared identifiers reach the SQL text
func (l *Library) lookupTable(table string) (models.TableDefinition, error) {
	def, ok := schema.Find(l.Definitions, table)
	if !ok {
		return models.TableDefinition{}, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	return def, nil
}

// GetInfo returns every row of a table
func (l *Library) GetInfo(table string) (*models.ResultSet, error) {
	def, err := l.lookupTable(table)
	if err != nil {
		return nil, err
	}

	var rs *models.ResultSet
	err = l.run(func(tx *sql.Tx) error {
		var err error
		rs, err = connector.QueryResultSet(tx, fmt.Sprintf("SELECT * FROM %s", def.Name))
		return err
	})
	if err != nil {
		l.Logger.Errorf("Error reading table %s: %v", table, err)
		return nil, err
	}
	return rs, nil
}

// FuzzySearch returns the rows of table whose column contains keyword
func (l *Library) FuzzySearch(table, column, keyword string) (*models.ResultSet, error) {
	def, err := l.lookupTable(table)
	if err != nil {
		return nil, err
	}
	if !def.HasColumn(column) {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, column)
	}

	query := fmt.Sprintf("SELECT * FROM %s WHERE %s LIKE ?", def.Name, column)

	var rs *models.ResultSet
	err = l.run(func(tx *sql.Tx) error {
		var err error
		rs, err = connector.QueryResultSet(tx, query, "%"+keyword+"%")
		return err
	})
	if err != nil {
		l.Logger.Errorf("Error searching %s.%s: %v", table, column, err)
		return nil, err
	}
	return rs, nil
}

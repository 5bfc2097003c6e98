package importer

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/mysql-library-manager/internal/connector"
	"github.com/vitebski/mysql-library-manager/internal/schema"
	"github.com/vitebski/mysql-library-manager/pkg/models"
)

// FileErrorIndex is the RowIndex of errors that concern the whole file
const FileErrorIndex = -1

// BulkImporter loads CSV files into tables one row at a time
type BulkImporter struct {
	Session     *connector.Session
	Definitions []models.TableDefinition
	Logger      *logrus.Logger
}

// NewBulkImporter creates a new bulk importer. Field values are bound
// according to the column types of defs, the built-in schema when empty.
func NewBulkImporter(session *connector.Session, defs []models.TableDefinition, logger *logrus.Logger) *BulkImporter {
	if len(defs) == 0 {
		defs = schema.DefaultDefinitions()
	}
	return &BulkImporter{
		Session:     session,
		Definitions: defs,
		Logger:      logger,
	}
}

// ImportCSV inserts every data row of filePath into tableName. The header row
// names the target columns. A failing row is recorded and skipped; a failure
// of the file itself rolls the whole import back.
func (bi *BulkImporter) ImportCSV(tableName, filePath string) *models.ImportStatus {
	status := &models.ImportStatus{
		Table:     tableName,
		File:      filePath,
		StartTime: time.Now(),
	}
	defer func() {
		status.EndTime = time.Now()
	}()

	bi.Logger.Infof("Importing %s into table %s", filePath, tableName)

	file, err := os.Open(filePath)
	if err != nil {
		bi.fail(status, fmt.Errorf("open %s: %w", filePath, err))
		return status
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		bi.fail(status, fmt.Errorf("malformed header: %s is empty", filePath))
		return status
	}
	if err != nil {
		bi.fail(status, fmt.Errorf("read header of %s: %w", filePath, err))
		return status
	}

	columns, err := ParseHeader(header)
	if err != nil {
		bi.fail(status, err)
		return status
	}

	def, _ := schema.Find(bi.Definitions, tableName)
	kinds := ColumnKinds(def, columns)

	insertSQL := BuildInsertSQL(tableName, columns)
	bi.Logger.Debugf("Insert statement: %s", insertSQL)

	err = bi.Session.WithTransaction(func(tx *sql.Tx) error {
		return bi.insertRows(tx, reader, insertSQL, columns, kinds, status)
	})
	if err != nil {
		status.RecordsProcessed = 0
		bi.fail(status, err)
		return status
	}

	status.Success = true
	if len(status.Errors) > 0 {
		bi.Logger.Warningf("Imported %d rows into %s, %d rows failed",
			status.RecordsProcessed, tableName, len(status.Errors))
	} else {
		bi.Logger.Infof("Imported %d rows into %s", status.RecordsProcessed, tableName)
	}
	return status
}

// insertRows executes the insert for every remaining record of reader
func (bi *BulkImporter) insertRows(tx *sql.Tx, reader *csv.Reader, insertSQL string, columns []string, kinds []ColumnKind, status *models.ImportStatus) error {
	for rowIndex := 0; ; rowIndex++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", status.File, err)
		}
		line, _ := reader.FieldPos(0)

		values, data, err := RowValues(columns, kinds, record)
		if err != nil {
			bi.recordRowError(status, rowIndex, line, data, err)
			continue
		}

		if _, err := tx.Exec(insertSQL, values...); err != nil {
			bi.recordRowError(status, rowIndex, line, data, err)
			continue
		}
		status.RecordsProcessed++
	}
}

func (bi *BulkImporter) recordRowError(status *models.ImportStatus, rowIndex, line int, data map[string]string, err error) {
	status.Errors = append(status.Errors, models.RowError{
		RowIndex:   rowIndex,
		LineNumber: line,
		Error:      err.Error(),
		Data:       data,
	})

	fields := logrus.Fields{"table": status.Table, "row": rowIndex, "line": line}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		fields["mysql_error"] = mysqlErr.Number
	}
	bi.Logger.WithFields(fields).Errorf("Error processing row %d: %v", rowIndex, err)
}

func (bi *BulkImporter) fail(status *models.ImportStatus, err error) {
	status.Success = false
	status.Errors = append(status.Errors, models.RowError{
		RowIndex: FileErrorIndex,
		Error:    err.Error(),
	})
	bi.Logger.Errorf("Import of %s into %s failed: %v", status.File, status.Table, err)
}

// ImportDirectory imports <table>.csv from dir for each table in order
func (bi *BulkImporter) ImportDirectory(dir string, tables []string) []*models.ImportStatus {
	statuses := make([]*models.ImportStatus, 0, len(tables))
	for _, table := range tables {
		statuses = append(statuses, bi.ImportCSV(table, filepath.Join(dir, table+".csv")))
	}
	return statuses
}

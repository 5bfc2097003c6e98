package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/mysql-library-manager/internal/connector"
	"github.com/vitebski/mysql-library-manager/internal/importer"
	"github.com/vitebski/mysql-library-manager/internal/library"
	"github.com/vitebski/mysql-library-manager/internal/schema"
	"github.com/vitebski/mysql-library-manager/internal/utils"
	"github.com/vitebski/mysql-library-manager/pkg/models"
)

const dateLayout = "2006-01-02"

// runner executes one user action against an open session and prints its
// result. It is shared by the one-shot commands and the interactive shell.
type runner struct {
	session  *connector.Session
	defs     []models.TableDefinition
	manager  *schema.Manager
	importer *importer.BulkImporter
	library  *library.Library
	logger   *logrus.Logger
	out      io.Writer
}

func newRunner(session *connector.Session, defs []models.TableDefinition, logger *logrus.Logger, out io.Writer) *runner {
	return &runner{
		session:  session,
		defs:     defs,
		manager:  schema.NewManager(session, defs, logger),
		importer: importer.NewBulkImporter(session, defs, logger),
		library:  library.New(session, defs, logger),
		logger:   logger,
		out:      out,
	}
}

// setup creates the schema and imports <table>.csv from dataDir for every
// table that has one, parents first
func (r *runner) setup(dataDir string, verify bool) error {
	status := r.manager.CreateSchema()
	utils.PrintSchemaStatus(r.out, status)
	if !status.Success {
		return fmt.Errorf("schema creation failed for %d table(s)", status.FailedTables)
	}

	ordered, err := r.manager.Analyzer.GetTableCreationOrder(r.defs)
	if err != nil {
		return err
	}

	var tables []string
	for _, def := range ordered {
		path := filepath.Join(dataDir, def.Name+".csv")
		if _, err := os.Stat(path); err != nil {
			r.logger.Warningf("No %s found, table %s left empty", path, def.Name)
			continue
		}
		tables = append(tables, def.Name)
	}

	statuses := r.importer.ImportDirectory(dataDir, tables)
	utils.PrintImportSummary(r.out, statuses)

	if verify {
		counts, err := r.manager.VerifyTables()
		if err != nil {
			return err
		}
		utils.PrintVerificationResults(r.out, counts)
	}

	failed := 0
	for _, s := range statuses {
		if !s.Success {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d import(s) failed", failed, len(statuses))
	}
	return nil
}

func (r *runner) importFile(table, path string) error {
	if _, ok := schema.Find(r.defs, table); !ok {
		return fmt.Errorf("%w: %s", library.ErrUnknownTable, table)
	}

	status := r.importer.ImportCSV(table, path)
	utils.PrintImportSummary(r.out, []*models.ImportStatus{status})
	if !status.Success {
		return fmt.Errorf("import of %s into %s failed", path, table)
	}
	return nil
}

func (r *runner) info(table string) error {
	rs, err := r.library.GetInfo(table)
	if err != nil {
		return err
	}
	utils.PrintResultSet(r.out, rs)
	return nil
}

func (r *runner) unreturned() error {
	rows, err := r.library.UnreturnedBooks()
	if err != nil {
		return err
	}
	utils.PrintTransactions(r.out, rows)
	return nil
}

func (r *runner) search(table, column, keyword string) error {
	rs, err := r.library.FuzzySearch(table, column, keyword)
	if err != nil {
		return err
	}
	utils.PrintResultSet(r.out, rs)
	return nil
}

func (r *runner) frequency(desc bool, limit int) error {
	rows, err := r.library.BorrowingFrequency(desc, limit)
	if err != nil {
		return err
	}
	utils.PrintFrequency(r.out, rows)
	return nil
}

func (r *runner) recent(count int) error {
	rows, err := r.library.RecentBorrowTransactions(count)
	if err != nil {
		return err
	}
	utils.PrintTransactions(r.out, rows)
	return nil
}

func (r *runner) stats(desc bool) error {
	rows, err := r.library.AvgBorrowsByMajor(desc)
	if err != nil {
		return err
	}
	utils.PrintMajorStats(r.out, rows)
	return nil
}

func (r *runner) recordReturn(recordID int64, returned time.Time) error {
	fine, err := r.library.RecordReturn(recordID, returned)
	if err != nil {
		return err
	}
	if fine == nil {
		fmt.Fprintf(r.out, "Loan %d returned on %s.\n", recordID, returned.Format(dateLayout))
		return nil
	}
	fmt.Fprintf(r.out, "Loan %d returned late on %s.\n", recordID, returned.Format(dateLayout))
	utils.PrintFines(r.out, []models.Fine{*fine})
	return nil
}

func (r *runner) fines(studentID *int64) error {
	rows, err := r.library.Fines(studentID)
	if err != nil {
		return err
	}
	utils.PrintFines(r.out, rows)
	return nil
}

// reset destroys the schema with the given strategy and, when recreate is
// set, creates the tables again
func (r *runner) reset(strategy models.ResetStrategy, recreate bool) error {
	r.manager.Strategy = strategy

	if !recreate {
		status := r.manager.ResetSchema("")
		utils.PrintResetStatus(r.out, status)
		if !status.Success {
			return fmt.Errorf("reset failed: %s", status.Error)
		}
		return nil
	}

	resetStatus, schemaStatus := r.manager.Recreate("")
	utils.PrintResetStatus(r.out, resetStatus)
	if !resetStatus.Success {
		return fmt.Errorf("reset failed: %s", resetStatus.Error)
	}
	utils.PrintSchemaStatus(r.out, schemaStatus)
	if !schemaStatus.Success {
		return fmt.Errorf("schema creation failed for %d table(s)", schemaStatus.FailedTables)
	}
	return nil
}

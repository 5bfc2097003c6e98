package schema

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/mysql-library-manager/internal/connector"
	"github.com/vitebski/mysql-library-manager/pkg/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress log output during tests
	return logger
}

func newTestManager(t *testing.T) (*Manager, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	session := connector.NewSessionFromDB(db, "midterm", testLogger())
	return NewManager(session, nil, testLogger()), mock
}

func creationOrder(t *testing.T, m *Manager) []models.TableDefinition {
	t.Helper()
	ordered, err := m.Analyzer.GetTableCreationOrder(m.Definitions)
	if err != nil {
		t.Fatalf("Unexpected ordering error: %v", err)
	}
	return ordered
}

func TestCreateTableSQL(t *testing.T) {
	def, ok := Find(DefaultDefinitions(), LoanTable)
	if !ok {
		t.Fatal("Expected loan definition")
	}

	ddl := CreateTableSQL(def)

	wants := []string{
		"CREATE TABLE IF NOT EXISTS loan (",
		"record_id INT NOT NULL",
		"return_date DATE NULL",
		"PRIMARY KEY (record_id)",
		"INDEX idx_loan_book_id (book_id)",
		"INDEX idx_loan_student_id (student_id)",
		"FOREIGN KEY (book_id) REFERENCES books (id) ON DELETE CASCADE",
		"FOREIGN KEY (student_id) REFERENCES students (id) ON DELETE CASCADE",
	}
	for _, want := range wants {
		if !strings.Contains(ddl, want) {
			t.Errorf("Expected DDL to contain %q, got %s", want, ddl)
		}
	}
}

func TestDefaultDefinitionsAreValid(t *testing.T) {
	defs := DefaultDefinitions()
	if len(defs) != 4 {
		t.Fatalf("Expected 4 tables, got %d", len(defs))
	}
	for _, def := range defs {
		if err := Validate(def); err != nil {
			t.Errorf("Definition %s invalid: %v", def.Name, err)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		def  models.TableDefinition
	}{
		{"missing name", models.TableDefinition{Columns: []models.Column{{Name: "id", Type: "INT"}}}},
		{"no columns", models.TableDefinition{Name: "books"}},
		{"column without type", models.TableDefinition{Name: "books", Columns: []models.Column{{Name: "id"}}}},
		{"unknown primary key", models.TableDefinition{Name: "books", Columns: []models.Column{{Name: "id", Type: "INT"}}, PrimaryKey: "isbn"}},
		{"unknown foreign key column", models.TableDefinition{
			Name:        "loan",
			Columns:     []models.Column{{Name: "id", Type: "INT"}},
			ForeignKeys: []models.ForeignKey{{Column: "book_id", ReferencedTable: "books", ReferencedColumn: "id"}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Validate(tt.def); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestLoadDefinitions(t *testing.T) {
	t.Run("empty path uses defaults", func(t *testing.T) {
		defs, err := LoadDefinitions("")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(defs) != 4 {
			t.Errorf("Expected 4 default tables, got %d", len(defs))
		}
	})

	t.Run("reads json file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "table_info.json")
		content := `[
			{"name": "members", "primary_key": "id", "columns": [
				{"name": "id", "type": "INT NOT NULL"},
				{"name": "name", "type": "VARCHAR(100) NOT NULL"}
			]},
			{"name": "visits", "primary_key": "id", "columns": [
				{"name": "id", "type": "INT NOT NULL"},
				{"name": "member_id", "type": "INT NOT NULL"}
			], "foreign_keys": [
				{"column": "member_id", "referenced_table": "members", "referenced_column": "id", "on_delete": "CASCADE"}
			]}
		]`
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write schema file: %v", err)
		}

		defs, err := LoadDefinitions(path)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(defs) != 2 {
			t.Fatalf("Expected 2 tables, got %d", len(defs))
		}
		if defs[1].Columns[1].Name != "member_id" {
			t.Errorf("Expected column order to be preserved, got %+v", defs[1].Columns)
		}
		if defs[1].ForeignKeys[0].OnDelete != "CASCADE" {
			t.Errorf("Expected ON DELETE CASCADE, got %q", defs[1].ForeignKeys[0].OnDelete)
		}
	})

	t.Run("duplicate table", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dup.json")
		content := `[{"name": "a", "columns": [{"name": "id", "type": "INT"}]},
			{"name": "a", "columns": [{"name": "id", "type": "INT"}]}]`
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write schema file: %v", err)
		}
		if _, err := LoadDefinitions(path); err == nil {
			t.Error("Expected duplicate table error")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadDefinitions(filepath.Join(t.TempDir(), "nope.json")); err == nil {
			t.Error("Expected error for missing file")
		}
	})
}

func TestCreateSchema(t *testing.T) {
	m, mock := newTestManager(t)
	ordered := creationOrder(t, m)

	mock.ExpectBegin()
	for _, def := range ordered {
		mock.ExpectExec(regexp.QuoteMeta(CreateTableSQL(def))).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectCommit()

	status := m.CreateSchema()

	if !status.Success {
		t.Errorf("Expected success, got errors %+v", status.Errors)
	}
	if status.TablesCreatedCount != 4 || status.FailedTables != 0 {
		t.Errorf("Expected 4 created and 0 failed, got %d and %d", status.TablesCreatedCount, status.FailedTables)
	}
	if status.EndTime.Before(status.StartTime) {
		t.Error("Expected end time after start time")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestCreateSchemaContinuesAfterTableError(t *testing.T) {
	m, mock := newTestManager(t)
	ordered := creationOrder(t, m)

	mock.ExpectBegin()
	for _, def := range ordered {
		exp := mock.ExpectExec(regexp.QuoteMeta(CreateTableSQL(def)))
		if def.Name == LoanTable {
			exp.WillReturnError(errors.New("Error 1215: Cannot add foreign key constraint"))
			continue
		}
		exp.WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectCommit()

	status := m.CreateSchema()

	if status.Success {
		t.Error("Expected batch to report failure")
	}
	if status.TablesCreatedCount != 3 {
		t.Errorf("Expected 3 tables created, got %d", status.TablesCreatedCount)
	}
	if status.FailedTables != 1 || status.Errors[0].Table != LoanTable {
		t.Errorf("Expected loan to be the failed table, got %+v", status.Errors)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestCreateSchemaBeginFails(t *testing.T) {
	m, mock := newTestManager(t)
	mock.ExpectBegin().WillReturnError(sql.ErrConnDone)

	status := m.CreateSchema()
	if status.Success {
		t.Error("Expected failure when the transaction cannot start")
	}
	if len(status.Errors) != 1 {
		t.Errorf("Expected one batch error, got %+v", status.Errors)
	}
}

func expectDropTables(mock sqlmock.Sqlmock, m *Manager, triggers, tables []string) {
	mock.ExpectExec(regexp.QuoteMeta("SET FOREIGN_KEY_CHECKS = 0")).WillReturnResult(sqlmock.NewResult(0, 0))

	triggerRows := sqlmock.NewRows([]string{"trigger_name"})
	for _, trg := range triggers {
		triggerRows.AddRow(trg)
	}
	mock.ExpectQuery("FROM information_schema.triggers").WithArgs("midterm").WillReturnRows(triggerRows)
	for _, trg := range triggers {
		mock.ExpectExec(regexp.QuoteMeta("DROP TRIGGER IF EXISTS `midterm`.`" + trg + "`")).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	tableRows := sqlmock.NewRows([]string{"table_name"})
	for _, tbl := range tables {
		tableRows.AddRow(tbl)
	}
	mock.ExpectQuery("FROM information_schema.tables").WithArgs("midterm").WillReturnRows(tableRows)
	for _, tbl := range m.Analyzer.SortTablesByDependency(tables, m.Definitions) {
		mock.ExpectExec(regexp.QuoteMeta("DROP TABLE IF EXISTS `midterm`.`" + tbl + "`")).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	mock.ExpectExec(regexp.QuoteMeta("SET FOREIGN_KEY_CHECKS = 1")).WillReturnResult(sqlmock.NewResult(0, 0))
}

func TestResetSchemaDropTables(t *testing.T) {
	m, mock := newTestManager(t)
	m.Strategy = models.ResetDropTables
	tables := []string{"books", "fine", "loan", "students"}

	mock.ExpectBegin()
	expectDropTables(mock, m, []string{"late_return_fine"}, tables)
	mock.ExpectCommit()

	status := m.ResetSchema("midterm")

	if !status.Success {
		t.Fatalf("Expected reset to succeed, got %s", status.Error)
	}
	if len(status.DroppedTables) != 4 {
		t.Errorf("Expected 4 dropped tables, got %v", status.DroppedTables)
	}
	if len(status.DroppedTriggers) != 1 {
		t.Errorf("Expected 1 dropped trigger, got %v", status.DroppedTriggers)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestResetSchemaToleratesEmptySchema(t *testing.T) {
	m, mock := newTestManager(t)
	m.Strategy = models.ResetDropTables

	mock.ExpectBegin()
	expectDropTables(mock, m, nil, nil)
	mock.ExpectCommit()

	status := m.ResetSchema("")
	if !status.Success {
		t.Fatalf("Expected reset of an empty schema to succeed, got %s", status.Error)
	}
	if len(status.DroppedTables) != 0 {
		t.Errorf("Expected nothing dropped, got %v", status.DroppedTables)
	}
}

func TestNewManagerDropsDatabaseByDefault(t *testing.T) {
	m, _ := newTestManager(t)
	if m.Strategy != models.ResetDropDatabase {
		t.Errorf("Expected drop-database by default, got %s", m.Strategy)
	}
}

func TestResetSchemaDropTablesReportsPartialDrop(t *testing.T) {
	m, mock := newTestManager(t)
	m.Strategy = models.ResetDropTables

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET FOREIGN_KEY_CHECKS = 0")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM information_schema.triggers").WithArgs("midterm").
		WillReturnRows(sqlmock.NewRows([]string{"trigger_name"}))
	mock.ExpectQuery("FROM information_schema.tables").WithArgs("midterm").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("books").AddRow("loan"))
	mock.ExpectExec(regexp.QuoteMeta("DROP TABLE IF EXISTS `midterm`.`loan`")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DROP TABLE IF EXISTS `midterm`.`books`")).
		WillReturnError(errors.New("Error 1142: DROP command denied"))
	mock.ExpectExec(regexp.QuoteMeta("SET FOREIGN_KEY_CHECKS = 1")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	status := m.ResetSchema("midterm")

	if status.Success {
		t.Error("Expected reset to fail")
	}
	if !strings.Contains(status.Error, "DROP command denied") {
		t.Errorf("Expected error detail, got %q", status.Error)
	}
	// loan was dropped before books failed; MySQL does not restore it
	if len(status.DroppedTables) != 1 || status.DroppedTables[0] != "loan" {
		t.Errorf("Expected loan reported as already dropped, got %v", status.DroppedTables)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestResetSchemaDropDatabase(t *testing.T) {
	m, mock := newTestManager(t)
	m.Strategy = models.ResetDropDatabase

	mock.ExpectBegin()
	mock.ExpectQuery("FROM information_schema.tables").WithArgs("midterm").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("books").AddRow("loan"))
	mock.ExpectExec(regexp.QuoteMeta("DROP DATABASE IF EXISTS `midterm`")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE DATABASE `midterm`")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("USE `midterm`")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	status := m.ResetSchema("midterm")
	if !status.Success {
		t.Fatalf("Expected success, got %s", status.Error)
	}
	if status.Strategy != models.ResetDropDatabase {
		t.Errorf("Expected drop-database strategy, got %s", status.Strategy)
	}
	if len(status.DroppedTables) != 2 {
		t.Errorf("Expected 2 dropped tables reported, got %v", status.DroppedTables)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestRecreateLeavesEmptyTables(t *testing.T) {
	m, mock := newTestManager(t)
	m.Strategy = models.ResetDropTables
	ordered := creationOrder(t, m)

	mock.ExpectBegin()
	expectDropTables(mock, m, nil, []string{"books", "fine", "loan", "students"})
	mock.ExpectCommit()

	mock.ExpectBegin()
	for _, def := range ordered {
		mock.ExpectExec(regexp.QuoteMeta(CreateTableSQL(def))).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectCommit()

	mock.ExpectBegin()
	for _, def := range ordered {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM " + def.Name)).
			WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(0))
	}
	mock.ExpectCommit()

	reset, created := m.Recreate("midterm")
	if !reset.Success {
		t.Fatalf("Expected reset success, got %s", reset.Error)
	}
	if created == nil || !created.Success {
		t.Fatalf("Expected tables to be recreated, got %+v", created)
	}

	counts, err := m.VerifyTables()
	if err != nil {
		t.Fatalf("VerifyTables failed: %v", err)
	}
	for _, def := range ordered {
		count, ok := counts[def.Name]
		if !ok {
			t.Errorf("Expected table %s to be present", def.Name)
		}
		if count != 0 {
			t.Errorf("Expected table %s to be empty, got %d rows", def.Name, count)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestRecreateStopsWhenResetFails(t *testing.T) {
	m, mock := newTestManager(t)
	m.Strategy = models.ResetDropTables

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET FOREIGN_KEY_CHECKS = 0")).WillReturnError(errors.New("lost connection"))
	mock.ExpectRollback()

	reset, created := m.Recreate("midterm")
	if reset.Success {
		t.Error("Expected reset failure")
	}
	if created != nil {
		t.Error("Expected no schema creation after a failed reset")
	}
}

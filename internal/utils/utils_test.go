package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/mysql-library-manager/pkg/models"
)

func TestSetupLogging(t *testing.T) {
	t.Setenv("LIBRARY_LOG_LEVEL", "")
	t.Setenv("MYSQL_LOG_LEVEL", "")

	// Test with default log level
	logger := SetupLogging("")
	if logger == nil {
		t.Fatal("Expected logger to be created, got nil")
	}
	if logger.Level != logrus.InfoLevel {
		t.Errorf("Expected default log level to be info, got %s", logger.Level)
	}

	// Test with specific log level
	logger = SetupLogging("debug")
	if logger.Level != logrus.DebugLevel {
		t.Errorf("Expected log level to be debug, got %s", logger.Level)
	}

	logger = SetupLogging("warn")
	if logger.Level != logrus.WarnLevel {
		t.Errorf("Expected log level to be warn, got %s", logger.Level)
	}

	logger = SetupLogging("error")
	if logger.Level != logrus.ErrorLevel {
		t.Errorf("Expected log level to be error, got %s", logger.Level)
	}

	// Test with invalid log level (should default to info)
	logger = SetupLogging("invalid")
	if logger.Level != logrus.InfoLevel {
		t.Errorf("Expected log level to be info for invalid input, got %s", logger.Level)
	}
}

func TestSetupLoggingFromEnvironment(t *testing.T) {
	t.Setenv("LIBRARY_LOG_LEVEL", "")
	t.Setenv("MYSQL_LOG_LEVEL", "warn")
	if logger := SetupLogging(""); logger.Level != logrus.WarnLevel {
		t.Errorf("Expected MYSQL_LOG_LEVEL to apply, got %s", logger.Level)
	}

	t.Setenv("LIBRARY_LOG_LEVEL", "debug")
	if logger := SetupLogging(""); logger.Level != logrus.DebugLevel {
		t.Errorf("Expected LIBRARY_LOG_LEVEL to win, got %s", logger.Level)
	}

	if logger := SetupLogging("error"); logger.Level != logrus.ErrorLevel {
		t.Errorf("Expected explicit level to win, got %s", logger.Level)
	}
}

func TestLoadEnvironmentVariables(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	t.Setenv("MYSQL_USER", "")
	t.Setenv("MYSQL_DATABASE", "")
	os.Unsetenv("MYSQL_USER")
	os.Unsetenv("MYSQL_DATABASE")

	envFile := filepath.Join(t.TempDir(), ".env")
	if LoadEnvironmentVariables(envFile, logger) {
		t.Error("Expected missing variables to be reported")
	}

	content := "MYSQL_USER=librarian\nMYSQL_DATABASE=library\n"
	if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if !LoadEnvironmentVariables(envFile, logger) {
		t.Error("Expected variables from the .env file to satisfy the check")
	}
	if got := os.Getenv("MYSQL_DATABASE"); got != "library" {
		t.Errorf("Expected MYSQL_DATABASE=library, got %q", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	// Test with environment variable set
	t.Setenv("TEST_ENV_INT", "42")
	value := GetEnvInt("TEST_ENV_INT", 10)
	if value != 42 {
		t.Errorf("Expected value to be 42, got %d", value)
	}

	// Test with invalid integer
	t.Setenv("TEST_ENV_INT", "not-an-int")
	value = GetEnvInt("TEST_ENV_INT", 10)
	if value != 10 {
		t.Errorf("Expected value to be 10 (default) for invalid input, got %d", value)
	}

	// Test with environment variable not set
	os.Unsetenv("TEST_ENV_INT")
	value = GetEnvInt("TEST_ENV_INT", 10)
	if value != 10 {
		t.Errorf("Expected value to be 10 (default), got %d", value)
	}
}

func TestResolveLogLevel(t *testing.T) {
	t.Setenv("LIBRARY_LOG_LEVEL", "")
	t.Setenv("MYSQL_LOG_LEVEL", "trace")

	tests := []struct {
		explicit string
		want     logrus.Level
	}{
		{"", logrus.TraceLevel},
		{"warning", logrus.WarnLevel},
		{"loud", logrus.InfoLevel},
	}
	for _, tt := range tests {
		if got := ResolveLogLevel(tt.explicit); got != tt.want {
			t.Errorf("ResolveLogLevel(%q) = %s, want %s", tt.explicit, got, tt.want)
		}
	}
}

func TestCheckConnectionParams(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		user     string
		database string
		port     string
		wantErr  string
	}{
		{"valid", "localhost", "user", "library", "3306", ""},
		{"missing host", "", "user", "library", "3306", "database host is required"},
		{"missing user", "localhost", "", "library", "3306", "database user is required"},
		{"missing database", "localhost", "user", "", "3306", "database database is required"},
		{"invalid port", "localhost", "user", "library", "not-a-port", `invalid port "not-a-port"`},
		{"port out of range", "localhost", "user", "library", "70000", `invalid port "70000"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckConnectionParams(tt.host, tt.user, tt.database, tt.port)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCheckConnectionParamsReportsEveryProblem(t *testing.T) {
	err := CheckConnectionParams("", "", "library", "0")
	if err == nil {
		t.Fatal("Expected an error")
	}
	for _, want := range []string{"host", "user", `invalid port "0"`} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected %q in %v", want, err)
		}
	}
}

func TestPrintTransactions(t *testing.T) {
	var buf bytes.Buffer
	PrintTransactions(&buf, []models.BorrowTransaction{
		{Title: "Dune", StudentName: "Ada", BorrowDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	})

	want := "Title | Member Name | Borrow Date\nDune | Ada | 2024-01-01\n"
	if buf.String() != want {
		t.Errorf("Expected %q, got %q", want, buf.String())
	}

	buf.Reset()
	PrintTransactions(&buf, nil)
	if !strings.Contains(buf.String(), "No transactions found.") {
		t.Errorf("Expected empty message, got %q", buf.String())
	}
}

func TestPrintMajorStats(t *testing.T) {
	var buf bytes.Buffer
	PrintMajorStats(&buf, []models.MajorStats{
		{Major: "Physics", TotalStudents: 3, TotalBorrows: 5, AvgBorrowsPerStudent: 1.67},
		{Major: "History", TotalStudents: 1, TotalBorrows: 0, AvgBorrowsPerStudent: 0},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d: %q", len(lines), buf.String())
	}
	if lines[1] != "Physics | 3 | 5 | 1.67" {
		t.Errorf("Unexpected row %q", lines[1])
	}
	if lines[2] != "History | 1 | 0 | 0.00" {
		t.Errorf("Unexpected row %q", lines[2])
	}
}

func TestPrintResultSet(t *testing.T) {
	var buf bytes.Buffer
	PrintResultSet(&buf, &models.ResultSet{
		Columns: []string{"id", "title", "borrowed", "category"},
		Rows: [][]interface{}{
			{int64(1), "Dune", time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC), nil},
		},
	})

	want := "id | title | borrowed | category\n1 | Dune | 2024-02-03 | NULL\n"
	if buf.String() != want {
		t.Errorf("Expected %q, got %q", want, buf.String())
	}

	buf.Reset()
	PrintResultSet(&buf, &models.ResultSet{Columns: []string{"id"}})
	if buf.String() != "No rows found.\n" {
		t.Errorf("Expected empty message, got %q", buf.String())
	}
}

func TestPrintImportSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintImportSummary(&buf, []*models.ImportStatus{
		{
			Success:          true,
			Table:            "books",
			File:             "books.csv",
			RecordsProcessed: 4,
			Errors:           []models.RowError{{RowIndex: 2, LineNumber: 4, Error: "bad year"}},
		},
		{
			Success: false,
			Table:   "loan",
			File:    "loan.csv",
			Errors:  []models.RowError{{RowIndex: -1, Error: "open loan.csv: no such file"}},
		},
	})

	out := buf.String()
	for _, want := range []string{
		"books <- books.csv: 4 records, 1 errors",
		"row 2 (line 4): bad year",
		"file: open loan.csv: no such file",
		"Total records inserted: 4",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{nil, "NULL"},
		{int64(7), "7"},
		{"text", "text"},
		{[]byte("raw"), "raw"},
		{time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), "2024-05-06"},
		{time.Date(2024, 5, 6, 13, 4, 5, 0, time.UTC), "2024-05-06 13:04:05"},
	}

	for _, tt := range tests {
		if got := FormatValue(tt.in); got != tt.want {
			t.Errorf("FormatValue(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

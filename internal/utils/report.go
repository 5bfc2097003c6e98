package utils

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/vitebski/mysql-library-manager/pkg/models"
)

const dateLayout = "2006-01-02"

// PrintSchemaStatus prints the outcome of a schema creation batch
func PrintSchemaStatus(w io.Writer, status *models.SchemaStatus) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 50))
	fmt.Fprintln(w, "SCHEMA CREATION SUMMARY")
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintf(w, "Tables created: %d\n", status.TablesCreatedCount)
	fmt.Fprintf(w, "Failed tables: %d\n", status.FailedTables)
	fmt.Fprintf(w, "Elapsed: %s\n", status.EndTime.Sub(status.StartTime).Round(time.Millisecond))

	if len(status.TablesCreated) > 0 {
		fmt.Fprintf(w, "\nCreated: %s\n", strings.Join(status.TablesCreated, ", "))
	}
	if len(status.Errors) > 0 {
		fmt.Fprintln(w, "\nErrors:")
		for _, e := range status.Errors {
			fmt.Fprintf(w, "  - %s: %s\n", e.Table, e.Error)
		}
	}

	fmt.Fprintln(w, strings.Repeat("=", 50))
}

// PrintResetStatus prints the outcome of a schema reset
func PrintResetStatus(w io.Writer, status *models.ResetStatus) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 50))
	fmt.Fprintf(w, "SCHEMA RESET (%s)\n", status.Strategy)
	fmt.Fprintln(w, strings.Repeat("=", 50))
	if status.Success {
		fmt.Fprintln(w, "✅ Reset completed")
	} else {
		fmt.Fprintf(w, "❌ Reset failed: %s\n", status.Error)
	}
	fmt.Fprintf(w, "Dropped triggers: %d\n", len(status.DroppedTriggers))
	fmt.Fprintf(w, "Dropped tables: %d\n", len(status.DroppedTables))
	if len(status.DroppedTables) > 0 {
		fmt.Fprintf(w, "  %s\n", strings.Join(status.DroppedTables, ", "))
	}
	fmt.Fprintln(w, strings.Repeat("=", 50))
}

// PrintImportSummary prints one line per imported file followed by its row errors
func PrintImportSummary(w io.Writer, statuses []*models.ImportStatus) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 50))
	fmt.Fprintln(w, "CSV IMPORT SUMMARY")
	fmt.Fprintln(w, strings.Repeat("=", 50))

	total := 0
	for _, status := range statuses {
		mark := "✅"
		if !status.Success {
			mark = "❌"
		}
		total += status.RecordsProcessed
		fmt.Fprintf(w, "%s %s <- %s: %d records, %d errors (%s)\n",
			mark, status.Table, status.File, status.RecordsProcessed, len(status.Errors),
			status.Duration().Round(time.Millisecond))

		for _, e := range status.Errors {
			if e.RowIndex < 0 {
				fmt.Fprintf(w, "    file: %s\n", e.Error)
				continue
			}
			fmt.Fprintf(w, "    row %d (line %d): %s\n", e.RowIndex, e.LineNumber, e.Error)
		}
	}

	fmt.Fprintf(w, "Total records inserted: %d\n", total)
	fmt.Fprintln(w, strings.Repeat("=", 50))
}

// PrintVerificationResults prints the row count of every table
func PrintVerificationResults(w io.Writer, counts map[string]int64) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 50))
	fmt.Fprintln(w, "TABLE VERIFICATION RESULTS")
	fmt.Fprintln(w, strings.Repeat("=", 50))

	tables := make([]string, 0, len(counts))
	for table := range counts {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	for _, table := range tables {
		fmt.Fprintf(w, "  - %s: %d records\n", table, counts[table])
	}

	fmt.Fprintln(w, strings.Repeat("=", 50))
}

// PrintResultSet prints a header line and one line per row, fields separated by " | "
func PrintResultSet(w io.Writer, rs *models.ResultSet) {
	if rs == nil || len(rs.Rows) == 0 {
		fmt.Fprintln(w, "No rows found.")
		return
	}

	fmt.Fprintln(w, strings.Join(rs.Columns, " | "))
	for _, row := range rs.Rows {
		fields := make([]string, len(row))
		for i, v := range row {
			fields[i] = FormatValue(v)
		}
		fmt.Fprintln(w, strings.Join(fields, " | "))
	}
}

// PrintTransactions prints borrow transactions
func PrintTransactions(w io.Writer, transactions []models.BorrowTransaction) {
	if len(transactions) == 0 {
		fmt.Fprintln(w, "No transactions found.")
		return
	}

	fmt.Fprintln(w, "Title | Member Name | Borrow Date")
	for _, t := range transactions {
		fmt.Fprintf(w, "%s | %s | %s\n", t.Title, t.StudentName, t.BorrowDate.Format(dateLayout))
	}
}

// PrintFrequency prints borrow counts per category and major
func PrintFrequency(w io.Writer, rows []models.BorrowFrequency) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No borrowing records found.")
		return
	}

	fmt.Fprintln(w, "Category | Major | Borrow Frequency")
	for _, r := range rows {
		fmt.Fprintf(w, "%s | %s | %d\n", r.Category, r.Major, r.Frequency)
	}
}

// PrintMajorStats prints borrowing aggregates per major
func PrintMajorStats(w io.Writer, rows []models.MajorStats) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No students found.")
		return
	}

	fmt.Fprintln(w, "Major | Total Students | Total Borrows | Avg Borrows per Student")
	for _, r := range rows {
		fmt.Fprintf(w, "%s | %d | %d | %.2f\n", r.Major, r.TotalStudents, r.TotalBorrows, r.AvgBorrowsPerStudent)
	}
}

// PrintFines prints fines
func PrintFines(w io.Writer, fines []models.Fine) {
	if len(fines) == 0 {
		fmt.Fprintln(w, "No fines found.")
		return
	}

	fmt.Fprintln(w, "Fine ID | Student ID | Amount | Reason | Fine Date")
	for _, f := range fines {
		fmt.Fprintf(w, "%s | %d | %.2f | %s | %s\n", f.FineID, f.StudentID, f.Amount, f.Reason, f.FineDate.Format(dateLayout))
	}
}

// FormatValue renders a scanned column value for display
func FormatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format(dateLayout)
		}
		return val.Format("2006-01-02 15:04:05")
	case []byte:
		return string(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

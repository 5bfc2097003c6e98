package models

import "time"

// Column represents a declared table column
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ForeignKey represents a foreign key relationship
type ForeignKey struct {
	Column           string `json:"column"`
	ReferencedTable  string `json:"referenced_table"`
	ReferencedColumn string `json:"referenced_column"`
	OnDelete         string `json:"on_delete,omitempty"`
}

// TableDefinition describes one table of the library schema
type TableDefinition struct {
	Name        string       `json:"name"`
	Columns     []Column     `json:"columns"`
	PrimaryKey  string       `json:"primary_key"`
	ForeignKeys []ForeignKey `json:"foreign_keys,omitempty"`
}

// HasColumn reports whether the table declares a column with the given name
func (td TableDefinition) HasColumn(name string) bool {
	for _, col := range td.Columns {
		if col.Name == name {
			return true
		}
	}
	return false
}

// TableError records a failure to create a single table
type TableError struct {
	Table string
	Error string
}

// SchemaStatus represents the result of a schema creation batch
type SchemaStatus struct {
	Success            bool
	TablesCreated      []string
	Errors             []TableError
	StartTime          time.Time
	EndTime            time.Time
	TablesCreatedCount int
	FailedTables       int
}

// ResetStrategy selects how a schema reset destroys existing objects
type ResetStrategy int

const (
	// ResetDropTables drops every trigger and table inside the schema
	ResetDropTables ResetStrategy = iota
	// ResetDropDatabase drops and recreates the whole database
	ResetDropDatabase
)

func (s ResetStrategy) String() string {
	switch s {
	case ResetDropDatabase:
		return "drop-database"
	default:
		return "drop-tables"
	}
}

// ResetStatus represents the result of a destructive schema reset
type ResetStatus struct {
	Success         bool
	Error           string
	Strategy        ResetStrategy
	DroppedTables   []string
	DroppedTriggers []string
	StartTime       time.Time
	EndTime         time.Time
}

// RowError describes a CSV row that could not be inserted
type RowError struct {
	RowIndex   int
	LineNumber int
	Error      string
	Data       map[string]string
}

// ImportStatus represents the result of a bulk CSV import
type ImportStatus struct {
	Success          bool
	Table            string
	File             string
	RecordsProcessed int
	Errors           []RowError
	StartTime        time.Time
	EndTime          time.Time
}

// Duration returns how long the import ran
func (s *ImportStatus) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// ResultSet holds the rows of an ad-hoc query in column order
type ResultSet struct {
	Columns []string
	Rows    [][]interface{}
}

// Book is a row of the books table
type Book struct {
	ID              int64
	Title           string
	Author          string
	PublicationYear *int64
	Category        *string
}

// Student is a row of the students table
type Student struct {
	ID    int64
	Name  string
	Major *string
	Year  *int64
}

// Loan is a row of the loan table
type Loan struct {
	RecordID   int64
	BookID     int64
	StudentID  int64
	BorrowDate time.Time
	ReturnDate *time.Time
}

// Fine is a row of the fine table
type Fine struct {
	FineID    string
	StudentID int64
	Amount    float64
	Reason    string
	FineDate  time.Time
}

// BorrowTransaction is a loan joined with its book title and student name
type BorrowTransaction struct {
	Title       string
	StudentName string
	BorrowDate  time.Time
}

// BorrowFrequency counts loans per book category and student major
type BorrowFrequency struct {
	Category  string
	Major     string
	Frequency int64
}

// MajorStats aggregates borrowing per student major
type MajorStats struct {
	Major                string
	TotalStudents        int64
	TotalBorrows         int64
	AvgBorrowsPerStudent float64
}

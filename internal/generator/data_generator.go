package generator

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jaswdr/faker"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/mysql-library-manager/internal/schema"
	"github.com/vitebski/mysql-library-manager/pkg/models"
)

const dateLayout = "2006-01-02"

var categories = []string{
	"Fiction", "Science", "History", "Mathematics", "Philosophy",
	"Computer Science", "Biography", "Poetry", "Economics", "Art",
}

var majors = []string{
	"Computer Science", "Physics", "Literature", "History", "Economics",
	"Mathematics", "Biology", "Philosophy",
}

// Options controls how many rows of each table are generated
type Options struct {
	Books    int
	Students int
	Loans    int
}

// DefaultOptions returns a small dataset suitable for manual testing
func DefaultOptions() Options {
	return Options{Books: 50, Students: 30, Loans: 120}
}

// DataGenerator generates fake library rows and writes them as CSV files
// accepted by the bulk importer
type DataGenerator struct {
	Faker  faker.Faker
	// Now bounds generated dates; loans are never borrowed or returned after it
	Now    time.Time
	Logger *logrus.Logger
}

// NewDataGenerator creates a generator whose output is fully determined by
// seed and now. Only the date of now is used.
func NewDataGenerator(seed int64, now time.Time, logger *logrus.Logger) *DataGenerator {
	now = now.UTC()
	return &DataGenerator{
		Faker:  faker.NewWithSeed(rand.NewSource(seed)),
		Now:    time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		Logger: logger,
	}
}

// Books generates n books with ids 1..n
func (dg *DataGenerator) Books(n int) []models.Book {
	books := make([]models.Book, 0, n)
	for i := 1; i <= n; i++ {
		year := int64(dg.Faker.IntBetween(1900, dg.Now.Year()))
		category := dg.Faker.RandomStringElement(categories)
		books = append(books, models.Book{
			ID:              int64(i),
			Title:           strings.TrimSuffix(dg.Faker.Lorem().Sentence(3), "."),
			Author:          dg.Faker.Person().Name(),
			PublicationYear: &year,
			Category:        &category,
		})
	}
	return books
}

// Students generates n students with ids 1..n
func (dg *DataGenerator) Students(n int) []models.Student {
	students := make([]models.Student, 0, n)
	for i := 1; i <= n; i++ {
		year := int64(dg.Faker.IntBetween(1, 4))
		major := dg.Faker.RandomStringElement(majors)
		students = append(students, models.Student{
			ID:    int64(i),
			Name:  dg.Faker.Person().Name(),
			Major: &major,
			Year:  &year,
		})
	}
	return students
}

// Loans generates n loans referencing the given books and students. Borrow
// dates fall within the last 120 days; roughly one loan in five stays
// unreturned and returns take up to 60 days, so some of them are late.
func (dg *DataGenerator) Loans(n int, books []models.Book, students []models.Student) []models.Loan {
	if len(books) == 0 || len(students) == 0 {
		return nil
	}

	loans := make([]models.Loan, 0, n)
	for i := 1; i <= n; i++ {
		borrowed := dg.Now.AddDate(0, 0, -dg.Faker.IntBetween(0, 120))
		loan := models.Loan{
			RecordID:   int64(i),
			BookID:     books[dg.Faker.IntBetween(0, len(books)-1)].ID,
			StudentID:  students[dg.Faker.IntBetween(0, len(students)-1)].ID,
			BorrowDate: borrowed,
		}

		if dg.Faker.IntBetween(1, 5) > 1 {
			returned := borrowed.AddDate(0, 0, dg.Faker.IntBetween(1, 60))
			if !returned.After(dg.Now) {
				loan.ReturnDate = &returned
			}
		}
		loans = append(loans, loan)
	}
	return loans
}

// WriteDataset generates a dataset and writes books.csv, students.csv and
// loan.csv into dir. It returns the written paths keyed by table name.
func (dg *DataGenerator) WriteDataset(dir string, opts Options) (map[string]string, error) {
	if opts.Books < 0 || opts.Students < 0 || opts.Loans < 0 {
		return nil, fmt.Errorf("row counts must not be negative: %+v", opts)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	books := dg.Books(opts.Books)
	students := dg.Students(opts.Students)
	loans := dg.Loans(opts.Loans, books, students)

	tables := map[string][][]string{
		schema.BooksTable:    bookRecords(books),
		schema.StudentsTable: studentRecords(students),
		schema.LoanTable:     loanRecords(loans),
	}

	paths := make(map[string]string, len(tables))
	for _, table := range []string{schema.BooksTable, schema.StudentsTable, schema.LoanTable} {
		path := filepath.Join(dir, table+".csv")
		if err := writeCSV(path, tables[table]); err != nil {
			return nil, err
		}
		dg.Logger.Infof("Wrote %d rows to %s", len(tables[table])-1, path)
		paths[table] = path
	}
	return paths, nil
}

func writeCSV(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func bookRecords(books []models.Book) [][]string {
	records := [][]string{{"id", "title", "author", "publication_year", "category"}}
	for _, b := range books {
		records = append(records, []string{
			strconv.FormatInt(b.ID, 10), b.Title, b.Author,
			optionalInt(b.PublicationYear), optionalString(b.Category),
		})
	}
	return records
}

func studentRecords(students []models.Student) [][]string {
	records := [][]string{{"id", "name", "major", "year"}}
	for _, s := range students {
		records = append(records, []string{
			strconv.FormatInt(s.ID, 10), s.Name, optionalString(s.Major), optionalInt(s.Year),
		})
	}
	return records
}

func loanRecords(loans []models.Loan) [][]string {
	records := [][]string{{"record_id", "book_id", "student_id", "borrow_date", "return_date"}}
	for _, l := range loans {
		returned := ""
		if l.ReturnDate != nil {
			returned = l.ReturnDate.Format(dateLayout)
		}
		records = append(records, []string{
			strconv.FormatInt(l.RecordID, 10),
			strconv.FormatInt(l.BookID, 10),
			strconv.FormatInt(l.StudentID, 10),
			l.BorrowDate.Format(dateLayout),
			returned,
		})
	}
	return records
}

// Empty cells are imported as NULL
func optionalInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func optionalString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

package library

import (
	"database/sql"
	"fmt"

	"github.com/vitebski/mysql-library-manager/pkg/models"
)

const unreturnedQuery = `
	SELECT b.title, s.name, l.borrow_date
	FROM loan l
	JOIN books b ON b.id = l.book_id
	JOIN students s ON s.id = l.student_id
	WHERE l.return_date IS NULL
	ORDER BY l.borrow_date, l.record_id
`

const recentQuery = `
	SELECT b.title, s.name, l.borrow_date
	FROM loan l
	JOIN books b ON b.id = l.book_id
	JOIN students s ON s.id = l.student_id
	ORDER BY l.borrow_date DESC, l.record_id DESC
	LIMIT ?
`

const frequencyQuery = `
	SELECT b.category, s.major, COUNT(*) AS frequency
	FROM loan l
	JOIN books b ON b.id = l.book_id
	JOIN students s ON s.id = l.student_id
	GROUP BY b.category, s.major
	ORDER BY frequency %s, b.category, s.major
`

const majorStatsQuery = `
	SELECT s.major,
		COUNT(DISTINCT s.id) AS total_students,
		COUNT(l.record_id) AS total_borrows,
		ROUND(COUNT(l.record_id) / COUNT(DISTINCT s.id), 2) AS avg_borrows
	FROM students s
	LEFT JOIN loan l ON l.student_id = s.id
	GROUP BY s.major
	ORDER BY avg_borrows %s, s.major
`

func direction(desc bool) string {
	if desc {
		return "DESC"
	}
	return "ASC"
}

// UnreturnedBooks lists every loan without a return date
func (l *Library) UnreturnedBooks() ([]models.BorrowTransaction, error) {
	var out []models.BorrowTransaction
	err := l.run(func(tx *sql.Tx) error {
		var err error
		out, err = scanTransactions(tx.Query(unreturnedQuery))
		return err
	})
	if err != nil {
		l.Logger.Errorf("Error listing unreturned books: %v", err)
		return nil, err
	}
	return out, nil
}

// RecentBorrowTransactions returns at most count loans, newest first
func (l *Library) RecentBorrowTransactions(count int) ([]models.BorrowTransaction, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCount, count)
	}
	if count == 0 {
		return nil, nil
	}

	var out []models.BorrowTransaction
	err := l.run(func(tx *sql.Tx) error {
		var err error
		out, err = scanTransactions(tx.Query(recentQuery, count))
		return err
	})
	if err != nil {
		l.Logger.Errorf("Error listing recent transactions: %v", err)
		return nil, err
	}
	return out, nil
}

func scanTransactions(rows *sql.Rows, err error) ([]models.BorrowTransaction, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.BorrowTransaction
	for rows.Next() {
		var t models.BorrowTransaction
		if err := rows.Scan(&t.Title, &t.StudentName, &t.BorrowDate); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// BorrowingFrequency counts loans per book category and student major.
// A limit of zero returns every group.
func (l *Library) BorrowingFrequency(desc bool, limit int) ([]models.BorrowFrequency, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCount, limit)
	}

	query := fmt.Sprintf(frequencyQuery, direction(desc))
	var args []interface{}
	if limit > 0 {
		query += "\tLIMIT ?\n"
		args = append(args, limit)
	}

	var out []models.BorrowFrequency
	err := l.run(func(tx *sql.Tx) error {
		rows, err := tx.Query(query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var category, major sql.NullString
			var f models.BorrowFrequency
			if err := rows.Scan(&category, &major, &f.Frequency); err != nil {
				return err
			}
			f.Category = category.String
			f.Major = major.String
			out = append(out, f)
		}
		return rows.Err()
	})
	if err != nil {
		l.Logger.Errorf("Error computing borrowing frequency: %v", err)
		return nil, err
	}
	return out, nil
}

// AvgBorrowsByMajor returns per major the number of students, their loans
// and the loans per student rounded to two decimals. Majors without loans
// report an average of zero.
func (l *Library) AvgBorrowsByMajor(desc bool) ([]models.MajorStats, error) {
	query := fmt.Sprintf(majorStatsQuery, direction(desc))

	var out []models.MajorStats
	err := l.run(func(tx *sql.Tx) error {
		rows, err := tx.Query(query)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var major sql.NullString
			var avg sql.NullFloat64
			var s models.MajorStats
			if err := rows.Scan(&major, &s.TotalStudents, &s.TotalBorrows, &avg); err != nil {
				return err
			}
			s.Major = major.String
			s.AvgBorrowsPerStudent = avg.Float64
			out = append(out, s)
		}
		return rows.Err()
	})
	if err != nil {
		l.Logger.Errorf("Error computing borrows by major: %v", err)
		return nil, err
	}
	return out, nil
}

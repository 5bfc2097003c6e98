package library

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/mysql-library-manager/pkg/models"
)

// Late return rule
const (
	LateReturnDays   = 30
	LateReturnAmount = 10.00
	LateReturnReason = "Late Return"
)

const dateLayout = "2006-01-02"

// DaysBetween counts calendar days from borrowed to returned
func DaysBetween(borrowed, returned time.Time) int {
	b := time.Date(borrowed.Year(), borrowed.Month(), borrowed.Day(), 0, 0, 0, 0, time.UTC)
	r := time.Date(returned.Year(), returned.Month(), returned.Day(), 0, 0, 0, 0, time.UTC)
	return int(r.Sub(b).Hours() / 24)
}

// IsLateReturn reports whether a loan returned on returned earns a fine
func IsLateReturn(borrowed, returned time.Time) bool {
	return DaysBetween(borrowed, returned) > LateReturnDays
}

// RecordReturn sets the return date of an outstanding loan. A return more
// than LateReturnDays after the borrow date creates a fine for the student,
// which is returned; otherwise the returned fine is nil.
func (l *Library) RecordReturn(recordID int64, returnDate time.Time) (*models.Fine, error) {
	var fine *models.Fine

	err := l.run(func(tx *sql.Tx) error {
		var studentID int64
		var borrowDate time.Time
		var returned sql.NullTime

		err := tx.QueryRow(
			"SELECT student_id, borrow_date, return_date FROM loan WHERE record_id = ? FOR UPDATE",
			recordID,
		).Scan(&studentID, &borrowDate, &returned)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: record %d", ErrLoanNotFound, recordID)
		}
		if err != nil {
			return fmt.Errorf("read loan %d: %w", recordID, err)
		}
		if returned.Valid {
			return fmt.Errorf("%w: record %d on %s", ErrLoanAlreadyReturned, recordID, returned.Time.Format(dateLayout))
		}
		if DaysBetween(borrowDate, returnDate) < 0 {
			return fmt.Errorf("%w: borrowed %s, returned %s", ErrReturnBeforeBorrow,
				borrowDate.Format(dateLayout), returnDate.Format(dateLayout))
		}

		if _, err := tx.Exec(
			"UPDATE loan SET return_date = ? WHERE record_id = ?",
			returnDate.Format(dateLayout), recordID,
		); err != nil {
			return fmt.Errorf("update loan %d: %w", recordID, err)
		}

		if !IsLateReturn(borrowDate, returnDate) {
			return nil
		}

		f := &models.Fine{
			FineID:    uuid.NewString(),
			StudentID: studentID,
			Amount:    LateReturnAmount,
			Reason:    LateReturnReason,
			FineDate:  returnDate,
		}
		if _, err := tx.Exec(
			"INSERT INTO fine (fine_id, student_id, amount, reason, fine_date) VALUES (?, ?, ?, ?, ?)",
			f.FineID, f.StudentID, f.Amount, f.Reason, f.FineDate.Format(dateLayout),
		); err != nil {
			return fmt.Errorf("insert fine for loan %d: %w", recordID, err)
		}
		fine = f
		return nil
	})
	if err != nil {
		l.Logger.Errorf("Error recording return of loan %d: %v", recordID, err)
		return nil, err
	}

	if fine != nil {
		l.Logger.WithFields(logrus.Fields{
			"record_id":  recordID,
			"student_id": fine.StudentID,
			"fine_id":    fine.FineID,
		}).Infof("Loan returned late, fined %.2f", fine.Amount)
	} else {
		l.Logger.Infof("Loan %d returned", recordID)
	}
	return fine, nil
}

// Fines lists fines ordered by date, for one student when studentID is not nil
func (l *Library) Fines(studentID *int64) ([]models.Fine, error) {
	query := "SELECT fine_id, student_id, amount, reason, fine_date FROM fine"
	var args []interface{}
	if studentID != nil {
		query += " WHERE student_id = ?"
		args = append(args, *studentID)
	}
	query += " ORDER BY fine_date, fine_id"

	var out []models.Fine
	err := l.run(func(tx *sql.Tx) error {
		rows, err := tx.Query(query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var f models.Fine
			if err := rows.Scan(&f.FineID, &f.StudentID, &f.Amount, &f.Reason, &f.FineDate); err != nil {
				return err
			}
			out = append(out, f)
		}
		return rows.Err()
	})
	if err != nil {
		l.Logger.Errorf("Error listing fines: %v", err)
		return nil, err
	}
	return out, nil
}

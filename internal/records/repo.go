package records

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"tutoring/internal/metrics"
	"tutoring/internal/store"
)

// Repository runs one statement per call on a connection of its own.
type Repository struct {
	db      *store.DB
	metrics *metrics.Metrics
}

// NewRepository creates a repo.
func NewRepository(db *store.DB, m *metrics.Metrics) *Repository {
	return &Repository{db: db, metrics: m}
}

// No ORDER BY anywhere: rows come back in whatever order the database returns them.
const (
	selectStudents   = `SELECT StudentID, FirstName, LastName, Email, EnrolledDate FROM Students`
	selectTeachers   = `SELECT TeacherID, FirstName, LastName, Email, HourlyRate FROM Teachers`
	selectAttendance = `SELECT AttendanceID, StudentID, LessonDate, TeacherID, IsPresent FROM Attendance`
	selectPayments   = `SELECT PaymentID, StudentID, Amount, PaymentDate, PaymentStatus FROM Payments`
	selectSalaries   = `SELECT SalaryID, TeacherID, Amount, PaymentDate, HoursWorked FROM Salaries`

	insertStudent    = `INSERT INTO Students (FirstName, LastName, Email, EnrolledDate) VALUES (?, ?, ?, ?)`
	insertTeacher    = `INSERT INTO Teachers (FirstName, LastName, Email, HourlyRate) VALUES (?, ?, ?, ?)`
	insertAttendance = `INSERT INTO Attendance (StudentID, LessonDate, TeacherID, IsPresent) VALUES (?, ?, ?, ?)`
	insertPayment    = `INSERT INTO Payments (StudentID, Amount, PaymentDate, PaymentStatus) VALUES (?, ?, ?, ?)`
	insertSalary     = `INSERT INTO Salaries (TeacherID, Amount, PaymentDate, HoursWorked) VALUES (?, ?, ?, ?)`

	// Payments and Salaries are joined row by row on the payment date, so a
	// date with several rows on both sides is summed over the cross product.
	selectSummary = `
		SELECT
			SUM(p.Amount) AS TotalRevenue,
			SUM(s.Amount) AS TotalSalaries,
			SUM(p.Amount) - SUM(s.Amount) AS NetProfit
		FROM Payments p
		JOIN Salaries s ON p.PaymentDate = s.PaymentDate
		WHERE p.PaymentStatus = 'Completed'
		AND p.PaymentDate >= ? AND p.PaymentDate < ?
	`
)

// withConn acquires a connection for the duration of fn and always releases it.
func (r *Repository) withConn(ctx context.Context, op string, fn func(*sql.Conn) error) (err error) {
	start := time.Now()
	defer func() {
		r.metrics.ObserveQuery(op, start)
		if err != nil {
			err = wrap(op, err)
			r.metrics.QueryFailed(op, string(KindOf(err)))
		}
	}()

	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(conn)
}

func (r *Repository) exec(ctx context.Context, op, query string, args ...any) error {
	return r.withConn(ctx, op, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, r.db.Rebind(query), args...)
		return err
	})
}

// list runs query and scans every row. It never returns a nil slice on success.
func list[T any](ctx context.Context, r *Repository, op, query string, scan func(*sql.Rows) (T, error)) ([]T, error) {
	out := []T{}
	err := r.withConn(ctx, op, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, r.db.Rebind(query))
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			item, err := scan(rows)
			if err != nil {
				return err
			}
			out = append(out, item)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListStudents returns every student.
func (r *Repository) ListStudents(ctx context.Context) ([]Student, error) {
	return list(ctx, r, "list students", selectStudents, func(rows *sql.Rows) (Student, error) {
		var s Student
		err := rows.Scan(&s.StudentID, &s.FirstName, &s.LastName, &s.Email, &s.EnrolledDate)
		return s, err
	})
}

// ListTeachers returns every teacher.
func (r *Repository) ListTeachers(ctx context.Context) ([]Teacher, error) {
	return list(ctx, r, "list teachers", selectTeachers, func(rows *sql.Rows) (Teacher, error) {
		var t Teacher
		err := rows.Scan(&t.TeacherID, &t.FirstName, &t.LastName, &t.Email, &t.HourlyRate)
		return t, err
	})
}

// ListAttendance returns every attendance row.
func (r *Repository) ListAttendance(ctx context.Context) ([]Attendance, error) {
	return list(ctx, r, "list attendance", selectAttendance, func(rows *sql.Rows) (Attendance, error) {
		var (
			a       Attendance
			present Flag
		)
		err := rows.Scan(&a.AttendanceID, &a.StudentID, &a.LessonDate, &a.TeacherID, &present)
		a.IsPresent = bool(present)
		return a, err
	})
}

// ListPayments returns every payment.
func (r *Repository) ListPayments(ctx context.Context) ([]Payment, error) {
	return list(ctx, r, "list payments", selectPayments, func(rows *sql.Rows) (Payment, error) {
		var p Payment
		err := rows.Scan(&p.PaymentID, &p.StudentID, &p.Amount, &p.PaymentDate, &p.PaymentStatus)
		return p, err
	})
}

// ListSalaries returns every salary payment.
func (r *Repository) ListSalaries(ctx context.Context) ([]Salary, error) {
	return list(ctx, r, "list salaries", selectSalaries, func(rows *sql.Rows) (Salary, error) {
		var s Salary
		err := rows.Scan(&s.SalaryID, &s.TeacherID, &s.Amount, &s.PaymentDate, &s.HoursWorked)
		return s, err
	})
}

// InsertStudent writes a student. StudentID is ignored.
func (r *Repository) InsertStudent(ctx context.Context, s Student) error {
	var enrolled any
	if s.EnrolledDate != nil {
		enrolled = *s.EnrolledDate
	}
	return r.exec(ctx, "create student", insertStudent, s.FirstName, s.LastName, s.Email, enrolled)
}

// InsertTeacher writes a teacher. TeacherID is ignored.
func (r *Repository) InsertTeacher(ctx context.Context, t Teacher) error {
	return r.exec(ctx, "create teacher", insertTeacher, t.FirstName, t.LastName, t.Email, t.HourlyRate)
}

// InsertAttendance writes an attendance row. AttendanceID is ignored.
func (r *Repository) InsertAttendance(ctx context.Context, a Attendance) error {
	return r.exec(ctx, "record attendance", insertAttendance, a.StudentID, a.LessonDate, a.TeacherID, a.IsPresent)
}

// InsertPayment writes a payment. PaymentID is ignored.
func (r *Repository) InsertPayment(ctx context.Context, p Payment) error {
	return r.exec(ctx, "record payment", insertPayment, p.StudentID, p.Amount, p.PaymentDate, p.PaymentStatus)
}

// InsertSalary writes a salary payment. SalaryID is ignored.
func (r *Repository) InsertSalary(ctx context.Context, s Salary) error {
	return r.exec(ctx, "record salary", insertSalary, s.TeacherID, s.Amount, s.PaymentDate, s.HoursWorked)
}

// FinancialSummary aggregates completed payments and same-day salaries inside w.
// Empty sums come back as zero.
func (r *Repository) FinancialSummary(ctx context.Context, w Window) (FinancialSummary, error) {
	var revenue, salaries, net decimal.NullDecimal
	err := r.withConn(ctx, "financial summary", func(conn *sql.Conn) error {
		row := conn.QueryRowContext(ctx, r.db.Rebind(selectSummary), w.From, w.To)
		return row.Scan(&revenue, &salaries, &net)
	})
	if err != nil {
		return FinancialSummary{}, err
	}
	return FinancialSummary{
		TotalRevenue:  orZero(revenue),
		TotalSalaries: orZero(salaries),
		NetProfit:     orZero(net),
	}, nil
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}

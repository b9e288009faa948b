package records

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entity names used in logs, metrics and events.
const (
	EntityStudent    = "student"
	EntityTeacher    = "teacher"
	EntityAttendance = "attendance"
	EntityPayment    = "payment"
	EntitySalary     = "salary"
)

// StatusCompleted is the payment status counted as revenue.
const StatusCompleted = "Completed"

// Student is a row of Students.
type Student struct {
	StudentID    int64
	FirstName    string
	LastName     string
	Email        string
	EnrolledDate *Date
}

// Teacher is a row of Teachers.
type Teacher struct {
	TeacherID  int64
	FirstName  string
	LastName   string
	Email      string
	HourlyRate decimal.Decimal
}

// Attendance is a row of Attendance.
type Attendance struct {
	AttendanceID int64
	StudentID    int64
	LessonDate   Date
	TeacherID    int64
	IsPresent    bool
}

// Payment is a row of Payments.
type Payment struct {
	PaymentID     int64
	StudentID     int64
	Amount        decimal.Decimal
	PaymentDate   Date
	PaymentStatus string
}

// Salary is a row of Salaries.
type Salary struct {
	SalaryID    int64
	TeacherID   int64
	Amount      decimal.Decimal
	PaymentDate Date
	HoursWorked decimal.Decimal
}

// FinancialSummary totals completed payments against salaries paid on the same dates.
type FinancialSummary struct {
	TotalRevenue  decimal.Decimal
	TotalSalaries decimal.Decimal
	NetProfit     decimal.Decimal
}

// Window is a half-open date range [From, To).
type Window struct {
	From Date
	To   Date
}

// MonthWindow covers the calendar month containing t.
func MonthWindow(t time.Time) Window {
	first := NewDate(t.Year(), t.Month(), 1)
	return Window{From: first, To: Date{first.AddDate(0, 1, 0)}}
}

// Contains reports whether d falls inside the window.
func (w Window) Contains(d Date) bool {
	return !d.Before(w.From.Time) && d.Before(w.To.Time)
}

// The New* types are create payloads. Pointer fields distinguish a missing
// field from a zero value; every field without omitempty is required.

// NewStudent is the payload for creating a student.
type NewStudent struct {
	FirstName    *string      `json:"FirstName" validate:"required"`
	LastName     *string      `json:"LastName" validate:"required"`
	Email        *string      `json:"Email" validate:"required"`
	EnrolledDate OptionalDate `json:"EnrolledDate"`
}

// NewTeacher is the payload for creating a teacher.
type NewTeacher struct {
	FirstName  *string          `json:"FirstName" validate:"required"`
	LastName   *string          `json:"LastName" validate:"required"`
	Email      *string          `json:"Email" validate:"required"`
	HourlyRate *decimal.Decimal `json:"HourlyRate" validate:"required"`
}

// NewAttendance is the payload for recording attendance.
type NewAttendance struct {
	StudentID  *int64 `json:"StudentID" validate:"required"`
	LessonDate *Date  `json:"LessonDate" validate:"required"`
	TeacherID  *int64 `json:"TeacherID" validate:"required"`
	IsPresent  *Flag  `json:"IsPresent" validate:"required"`
}

// NewPayment is the payload for recording a payment.
type NewPayment struct {
	StudentID     *int64           `json:"StudentID" validate:"required"`
	Amount        *decimal.Decimal `json:"Amount" validate:"required"`
	PaymentDate   *Date            `json:"PaymentDate" validate:"required"`
	PaymentStatus *string          `json:"PaymentStatus" validate:"required"`
}

// NewSalary is the payload for recording a salary payment.
type NewSalary struct {
	TeacherID   *int64           `json:"TeacherID" validate:"required"`
	Amount      *decimal.Decimal `json:"Amount" validate:"required"`
	PaymentDate *Date            `json:"PaymentDate" validate:"required"`
	HoursWorked *decimal.Decimal `json:"HoursWorked" validate:"required"`
}

package handler

import (
	"tutoring/internal/records"
)

// The views are the JSON shapes on the wire. Decimals go out as plain JSON
// numbers (float64), dates as YYYY-MM-DD, a missing date as null.

type studentView struct {
	StudentID    int64         `json:"StudentID"`
	FirstName    string        `json:"FirstName"`
	LastName     string        `json:"LastName"`
	Email        string        `json:"Email"`
	EnrolledDate *records.Date `json:"EnrolledDate"`
}

type teacherView struct {
	TeacherID  int64   `json:"TeacherID"`
	FirstName  string  `json:"FirstName"`
	LastName   string  `json:"LastName"`
	Email      string  `json:"Email"`
	HourlyRate float64 `json:"HourlyRate"`
}

type attendanceView struct {
	AttendanceID int64        `json:"AttendanceID"`
	StudentID    int64        `json:"StudentID"`
	LessonDate   records.Date `json:"LessonDate"`
	TeacherID    int64        `json:"TeacherID"`
	IsPresent    bool         `json:"IsPresent"`
}

type paymentView struct {
	PaymentID     int64        `json:"PaymentID"`
	StudentID     int64        `json:"StudentID"`
	Amount        float64      `json:"Amount"`
	PaymentDate   records.Date `json:"PaymentDate"`
	PaymentStatus string       `json:"PaymentStatus"`
}

type salaryView struct {
	SalaryID    int64        `json:"SalaryID"`
	TeacherID   int64        `json:"TeacherID"`
	Amount      float64      `json:"Amount"`
	PaymentDate records.Date `json:"PaymentDate"`
	HoursWorked float64      `json:"HoursWorked"`
}

type summaryView struct {
	TotalRevenue  float64 `json:"TotalRevenue"`
	TotalSalaries float64 `json:"TotalSalaries"`
	NetProfit     float64 `json:"NetProfit"`
}

// views maps rows with fn and always yields a non-nil slice so an empty
// table encodes as [].
func views[T, V any](rows []T, fn func(T) V) []V {
	out := make([]V, 0, len(rows))
	for _, r := range rows {
		out = append(out, fn(r))
	}
	return out
}

func studentJSON(s records.Student) studentView {
	return studentView{
		StudentID:    s.StudentID,
		FirstName:    s.FirstName,
		LastName:     s.LastName,
		Email:        s.Email,
		EnrolledDate: s.EnrolledDate,
	}
}

func teacherJSON(t records.Teacher) teacherView {
	return teacherView{
		TeacherID:  t.TeacherID,
		FirstName:  t.FirstName,
		LastName:   t.LastName,
		Email:      t.Email,
		HourlyRate: t.HourlyRate.InexactFloat64(),
	}
}

func attendanceJSON(a records.Attendance) attendanceView {
	return attendanceView{
		AttendanceID: a.AttendanceID,
		StudentID:    a.StudentID,
		LessonDate:   a.LessonDate,
		TeacherID:    a.TeacherID,
		IsPresent:    a.IsPresent,
	}
}

func paymentJSON(p records.Payment) paymentView {
	return paymentView{
		PaymentID:     p.PaymentID,
		StudentID:     p.StudentID,
		Amount:        p.Amount.InexactFloat64(),
		PaymentDate:   p.PaymentDate,
		PaymentStatus: p.PaymentStatus,
	}
}

func salaryJSON(s records.Salary) salaryView {
	return salaryView{
		SalaryID:    s.SalaryID,
		TeacherID:   s.TeacherID,
		Amount:      s.Amount.InexactFloat64(),
		PaymentDate: s.PaymentDate,
		HoursWorked: s.HoursWorked.InexactFloat64(),
	}
}

func summaryJSON(s records.FinancialSummary) summaryView {
	return summaryView{
		TotalRevenue:  s.TotalRevenue.InexactFloat64(),
		TotalSalaries: s.TotalSalaries.InexactFloat64(),
		NetProfit:     s.NetProfit.InexactFloat64(),
	}
}

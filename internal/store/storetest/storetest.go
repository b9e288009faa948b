// Package storetest provides a throwaway sqlite database with the service tables.
package storetest

import (
	"database/sql"
	"path/filepath"
	"testing"

	"tutoring/internal/metrics"
	"tutoring/internal/store"
)

// Schema mirrors the production tables closely enough for sqlite.
const Schema = `
CREATE TABLE Students (
	StudentID    INTEGER PRIMARY KEY AUTOINCREMENT,
	FirstName    TEXT NOT NULL,
	LastName     TEXT NOT NULL,
	Email        TEXT NOT NULL,
	EnrolledDate DATE
);

CREATE TABLE Teachers (
	TeacherID  INTEGER PRIMARY KEY AUTOINCREMENT,
	FirstName  TEXT NOT NULL,
	LastName   TEXT NOT NULL,
	Email      TEXT NOT NULL UNIQUE,
	HourlyRate DECIMAL(10,2) NOT NULL
);

CREATE TABLE Attendance (
	AttendanceID INTEGER PRIMARY KEY AUTOINCREMENT,
	StudentID    INTEGER NOT NULL,
	LessonDate   DATE NOT NULL,
	TeacherID    INTEGER NOT NULL,
	IsPresent    BIT NOT NULL
);

CREATE TABLE Payments (
	PaymentID     INTEGER PRIMARY KEY AUTOINCREMENT,
	StudentID     INTEGER NOT NULL,
	Amount        DECIMAL(10,2) NOT NULL,
	PaymentDate   DATE NOT NULL,
	PaymentStatus TEXT NOT NULL
);

CREATE TABLE Salaries (
	SalaryID    INTEGER PRIMARY KEY AUTOINCREMENT,
	TeacherID   INTEGER NOT NULL,
	Amount      DECIMAL(10,2) NOT NULL,
	PaymentDate DATE NOT NULL,
	HoursWorked DECIMAL(6,2) NOT NULL
);
`

// New opens a gateway on a fresh sqlite file under t.TempDir with Schema applied.
func New(t testing.TB, m *metrics.Metrics) *store.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tutoring.db")

	raw, err := sql.Open(store.DriverSQLite, path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if _, err := raw.Exec(Schema); err != nil {
		raw.Close()
		t.Fatalf("apply schema: %v", err)
	}
	raw.Close()

	db, err := store.Open(store.Config{Driver: store.DriverSQLite, DSN: path}, m)
	if err != nil {
		t.Fatalf("open gateway: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

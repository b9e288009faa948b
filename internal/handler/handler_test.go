package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"tutoring/internal/handler"
	"tutoring/internal/metrics"
	"tutoring/internal/records"
	"tutoring/internal/store"
	"tutoring/internal/store/storetest"
)

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type server struct {
	t      *testing.T
	router *gin.Engine
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newServer(t *testing.T, now time.Time) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	m := metrics.New()
	db := storetest.New(t, m)
	svc := records.NewService(records.NewRepository(db, m), records.Options{
		Window:  records.MonthWindow(time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)),
		Metrics: m,
		Logger:  quietLogger(),
		Now:     func() time.Time { return now },
	})
	h := handler.New(svc, db, nil, quietLogger())
	return &server{t: t, router: handler.Router(h, quietLogger(), m.Handler())}
}

func (s *server) do(method, path, body string) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *server) created(path, body, message string) {
	s.t.Helper()
	rec := s.do(http.MethodPost, path, body)
	if rec.Code != http.StatusCreated {
		s.t.Fatalf("POST %s: expected 201, got %d: %s", path, rec.Code, rec.Body.String())
	}
	var resp messageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		s.t.Fatalf("POST %s: decode: %v", path, err)
	}
	if resp.Message != message {
		s.t.Fatalf("POST %s: expected message %q, got %q", path, message, resp.Message)
	}
}

func (s *server) list(path string) []map[string]any {
	s.t.Helper()
	rec := s.do(http.MethodGet, path, "")
	if rec.Code != http.StatusOK {
		s.t.Fatalf("GET %s: expected 200, got %d: %s", path, rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		s.t.Fatalf("GET %s: expected json content type, got %s", path, ct)
	}
	var rows []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		s.t.Fatalf("GET %s: decode: %v", path, err)
	}
	return rows
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestEmptyTablesListAsEmptyArrays(t *testing.T) {
	s := newServer(t, time.Now())
	for _, path := range []string{"/students", "/teachers", "/attendance", "/payments", "/salaries"} {
		rec := s.do(http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s: expected 200, got %d", path, rec.Code)
		}
		if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
			t.Fatalf("GET %s: expected [], got %s", path, body)
		}
	}
}

func TestTeacherScenario(t *testing.T) {
	s := newServer(t, time.Now())
	s.created("/teachers", `{"FirstName":"Ada","LastName":"Lovelace","Email":"ada@example.com","HourlyRate":45.5}`, "Teacher created successfully")

	rows := s.list("/teachers")
	if len(rows) != 1 {
		t.Fatalf("expected one teacher, got %v", rows)
	}
	row := rows[0]
	if row["FirstName"] != "Ada" || row["LastName"] != "Lovelace" || row["Email"] != "ada@example.com" {
		t.Fatalf("unexpected teacher %v", row)
	}
	rate, ok := row["HourlyRate"].(float64)
	if !ok || !near(rate, 45.5) {
		t.Fatalf("expected numeric HourlyRate 45.5, got %#v", row["HourlyRate"])
	}
	if id, ok := row["TeacherID"].(float64); !ok || id < 1 {
		t.Fatalf("expected generated TeacherID, got %#v", row["TeacherID"])
	}
}

func TestStudentEnrolledDate(t *testing.T) {
	now := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	s := newServer(t, now)
	s.created("/students", `{"FirstName":"Grace","LastName":"Hopper","Email":"grace@example.com"}`, "Student created successfully")
	s.created("/students", `{"FirstName":"Alan","LastName":"Turing","Email":"alan@example.com","EnrolledDate":"2024-09-01"}`, "Student created successfully")

	dates := map[string]any{}
	for _, row := range s.list("/students") {
		dates[row["Email"].(string)] = row["EnrolledDate"]
	}
	if dates["grace@example.com"] != "2026-03-02" {
		t.Fatalf("expected request date, got %#v", dates["grace@example.com"])
	}
	if dates["alan@example.com"] != "2024-09-01" {
		t.Fatalf("expected supplied date, got %#v", dates["alan@example.com"])
	}
}

func TestNullEnrolledDateListsAsNull(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := metrics.New()
	db := storetest.New(t, m)
	conn, err := db.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	_, err = conn.ExecContext(context.Background(), `INSERT INTO Students (FirstName, LastName, Email, EnrolledDate) VALUES ('No', 'Date', 'nodate@example.com', NULL)`)
	conn.Close()
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := records.NewService(records.NewRepository(db, m), records.Options{Logger: quietLogger()})
	s := &server{t: t, router: handler.Router(handler.New(svc, db, nil, quietLogger()), quietLogger(), nil)}

	rec := s.do(http.MethodGet, "/students", "")
	if !strings.Contains(rec.Body.String(), `"EnrolledDate":null`) {
		t.Fatalf("expected null EnrolledDate, got %s", rec.Body.String())
	}
}

func TestExplicitNullEnrolledDateIsKept(t *testing.T) {
	s := newServer(t, time.Date(2025, time.August, 14, 9, 0, 0, 0, time.UTC))
	s.created("/students", `{"FirstName":"No","LastName":"Date","Email":"nodate@example.com","EnrolledDate":null}`, "Student created successfully")

	rows := s.list("/students")
	if len(rows) != 1 || rows[0]["EnrolledDate"] != nil {
		t.Fatalf("expected null EnrolledDate, got %v", rows)
	}
}

func TestAttendanceAcceptsNumericFlags(t *testing.T) {
	s := newServer(t, time.Now())
	s.created("/attendance", `{"StudentID":1,"LessonDate":"2025-08-05","TeacherID":2,"IsPresent":1}`, "Attendance recorded successfully")
	s.created("/attendance", `{"StudentID":1,"LessonDate":"2025-08-06","TeacherID":2,"IsPresent":0}`, "Attendance recorded successfully")

	seen := map[string]any{}
	for _, row := range s.list("/attendance") {
		seen[row["LessonDate"].(string)] = row["IsPresent"]
	}
	if seen["2025-08-05"] != true || seen["2025-08-06"] != false {
		t.Fatalf("unexpected attendance %v", seen)
	}
	rec := s.do(http.MethodPost, "/attendance", `{"StudentID":1,"LessonDate":"2025-08-07","TeacherID":2,"IsPresent":2}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for IsPresent 2, got %d", rec.Code)
	}
}

func TestAttendanceRoundTrip(t *testing.T) {
	s := newServer(t, time.Now())
	s.created("/attendance", `{"StudentID":1,"LessonDate":"2025-08-05","TeacherID":2,"IsPresent":true}`, "Attendance recorded successfully")
	s.created("/attendance", `{"StudentID":1,"LessonDate":"2025-08-06","TeacherID":2,"IsPresent":false}`, "Attendance recorded successfully")

	rows := s.list("/attendance")
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %v", rows)
	}
	seen := map[string]any{}
	for _, row := range rows {
		if _, ok := row["IsPresent"].(bool); !ok {
			t.Fatalf("expected JSON boolean IsPresent, got %#v", row["IsPresent"])
		}
		seen[row["LessonDate"].(string)] = row["IsPresent"]
	}
	if seen["2025-08-05"] != true || seen["2025-08-06"] != false {
		t.Fatalf("unexpected attendance %v", seen)
	}
}

func TestPaymentAndSalaryRoundTrip(t *testing.T) {
	s := newServer(t, time.Now())
	s.created("/payments", `{"StudentID":1,"Amount":120.75,"PaymentDate":"2025-08-10","PaymentStatus":"Completed"}`, "Payment recorded successfully")
	s.created("/salaries", `{"TeacherID":2,"Amount":90,"PaymentDate":"2025-08-10","HoursWorked":2.25}`, "Salary recorded successfully")

	payments := s.list("/payments")
	if len(payments) != 1 {
		t.Fatalf("expected one payment, got %v", payments)
	}
	p := payments[0]
	if amount, _ := p["Amount"].(float64); !near(amount, 120.75) || p["PaymentDate"] != "2025-08-10" || p["PaymentStatus"] != "Completed" || p["StudentID"] != float64(1) {
		t.Fatalf("unexpected payment %v", p)
	}

	salaries := s.list("/salaries")
	if len(salaries) != 1 {
		t.Fatalf("expected one salary, got %v", salaries)
	}
	sal := salaries[0]
	if amount, _ := sal["Amount"].(float64); !near(amount, 90) {
		t.Fatalf("unexpected salary amount %v", sal["Amount"])
	}
	if hours, _ := sal["HoursWorked"].(float64); !near(hours, 2.25) {
		t.Fatalf("unexpected hours %v", sal["HoursWorked"])
	}
}

func TestMissingFieldsAreServerErrors(t *testing.T) {
	s := newServer(t, time.Now())
	cases := map[string]string{
		"/students":   `{"LastName":"Hopper","Email":"grace@example.com"}`,
		"/teachers":   `{"FirstName":"Ada","LastName":"Lovelace","Email":"ada@example.com"}`,
		"/attendance": `{"StudentID":1,"LessonDate":"2025-08-05","TeacherID":2}`,
		"/payments":   `{"StudentID":1,"Amount":10,"PaymentDate":"2025-08-05"}`,
		"/salaries":   `{"TeacherID":1,"PaymentDate":"2025-08-05","HoursWorked":1}`,
	}
	for path, body := range cases {
		rec := s.do(http.MethodPost, path, body)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("POST %s: expected 500, got %d", path, rec.Code)
		}
		var resp errorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Error == "" {
			t.Fatalf("POST %s: expected error body, got %s", path, rec.Body.String())
		}
		if !strings.Contains(resp.Error, "is required") {
			t.Fatalf("POST %s: expected required-field message, got %q", path, resp.Error)
		}
	}
	if rows := s.list("/students"); len(rows) != 0 {
		t.Fatalf("failed creates must not insert, got %v", rows)
	}
}

func TestMalformedBodiesAreServerErrors(t *testing.T) {
	s := newServer(t, time.Now())
	cases := []struct{ path, body string }{
		{"/teachers", `{"FirstName":"Ada"`},
		{"/teachers", `{"FirstName":"Ada","LastName":"L","Email":"a@example.com","HourlyRate":"lots"}`},
		{"/attendance", `{"StudentID":"one","LessonDate":"2025-08-05","TeacherID":2,"IsPresent":true}`},
		{"/payments", `{"StudentID":1,"Amount":10,"PaymentDate":"05/08/2025","PaymentStatus":"Completed"}`},
		{"/students", ``},
	}
	for _, tc := range cases {
		rec := s.do(http.MethodPost, tc.path, tc.body)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("POST %s %q: expected 500, got %d", tc.path, tc.body, rec.Code)
		}
		var resp errorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Error == "" {
			t.Fatalf("POST %s: expected error body, got %s", tc.path, rec.Body.String())
		}
	}
}

func TestConstraintViolationIsServerError(t *testing.T) {
	s := newServer(t, time.Now())
	body := `{"FirstName":"Ada","LastName":"Lovelace","Email":"ada@example.com","HourlyRate":45.5}`
	s.created("/teachers", body, "Teacher created successfully")
	rec := s.do(http.MethodPost, "/teachers", body)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for duplicate email, got %d", rec.Code)
	}
}

func TestFinancialSummary(t *testing.T) {
	s := newServer(t, time.Now())

	zero := s.do(http.MethodGet, "/financial-summary", "")
	if zero.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", zero.Code)
	}
	if body := strings.TrimSpace(zero.Body.String()); body != `{"TotalRevenue":0,"TotalSalaries":0,"NetProfit":0}` {
		t.Fatalf("expected zeroed summary, got %s", body)
	}

	s.created("/payments", `{"StudentID":1,"Amount":150.5,"PaymentDate":"2025-08-15","PaymentStatus":"Completed"}`, "Payment recorded successfully")
	s.created("/salaries", `{"TeacherID":1,"Amount":60.25,"PaymentDate":"2025-08-15","HoursWorked":3}`, "Salary recorded successfully")
	s.created("/payments", `{"StudentID":1,"Amount":40,"PaymentDate":"2025-08-15","PaymentStatus":"Refunded"}`, "Payment recorded successfully")

	rec := s.do(http.MethodGet, "/financial-summary", "")
	var summary struct {
		TotalRevenue  *float64
		TotalSalaries *float64
		NetProfit     *float64
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if summary.TotalRevenue == nil || summary.TotalSalaries == nil || summary.NetProfit == nil {
		t.Fatalf("summary fields must never be null: %s", rec.Body.String())
	}
	if !near(*summary.TotalRevenue, 150.5) || !near(*summary.TotalSalaries, 60.25) || !near(*summary.NetProfit, 90.25) {
		t.Fatalf("unexpected summary %s", rec.Body.String())
	}
}

func TestSummaryIgnoresPaymentsOutsideWindow(t *testing.T) {
	s := newServer(t, time.Now())
	s.created("/payments", `{"StudentID":1,"Amount":100,"PaymentDate":"2025-09-01","PaymentStatus":"Completed"}`, "Payment recorded successfully")
	s.created("/salaries", `{"TeacherID":1,"Amount":50,"PaymentDate":"2025-09-01","HoursWorked":1}`, "Salary recorded successfully")

	rec := s.do(http.MethodGet, "/financial-summary", "")
	if body := strings.TrimSpace(rec.Body.String()); body != `{"TotalRevenue":0,"TotalSalaries":0,"NetProfit":0}` {
		t.Fatalf("expected zeroed summary, got %s", body)
	}
}

func TestUnknownRoutesAreNotFound(t *testing.T) {
	s := newServer(t, time.Now())
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/lessons"},
		{http.MethodDelete, "/students"},
		{http.MethodPost, "/financial-summary"},
	} {
		rec := s.do(tc.method, tc.path, "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s %s: expected 404, got %d", tc.method, tc.path, rec.Code)
		}
	}
}

func TestHealthzAndMetrics(t *testing.T) {
	s := newServer(t, time.Now())
	rec := s.do(http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"db":true`) {
		t.Fatalf("unexpected healthz %d %s", rec.Code, rec.Body.String())
	}

	s.do(http.MethodGet, "/students", "")
	rec = s.do(http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "tutoring_query_duration_seconds") {
		t.Fatalf("expected query metrics, got %d", rec.Code)
	}
}

type failingRecords struct {
	handler.Records
	err error
}

func (f failingRecords) ListTeachers(context.Context) ([]records.Teacher, error) { return nil, f.err }

type downPinger struct{}

func (downPinger) Ping(context.Context) error { return errors.New("down") }

func TestDatabaseFailuresLookLikeAnyOtherFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, cfgErr := store.Open(store.Config{Driver: store.DriverPostgres}, nil)
	recs := failingRecords{err: &records.Error{Kind: records.KindConfiguration, Op: "list teachers", Err: cfgErr}}
	r := handler.Router(handler.New(recs, downPinger{}, nil, quietLogger()), quietLogger(), nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teachers", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var resp errorResponse
	if err := json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error != "list teachers: database configuration: connection string not set" {
		t.Fatalf("unexpected error %q", resp.Error)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 from healthz, got %d", rec.Code)
	}
}

func TestPanicsBecomeServerErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	// failingRecords leaves every method but ListTeachers nil, so this panics.
	r := handler.Router(handler.New(failingRecords{}, nil, nil, quietLogger()), quietLogger(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/salaries", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"error"`) {
		t.Fatalf("expected JSON error body, got %s", rec.Body.String())
	}
}

func TestMissingConnectionStringFailsEveryRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, openErr := store.Open(store.Config{Driver: store.DriverPostgres, DSN: ""}, nil)
	db := store.Unavailable(openErr)
	svc := records.NewService(records.NewRepository(db, nil), records.Options{Logger: quietLogger()})
	s := &server{t: t, router: handler.Router(handler.New(svc, db, nil, quietLogger()), quietLogger(), nil)}

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/students", ""},
		{http.MethodGet, "/financial-summary", ""},
		{http.MethodPost, "/teachers", `{"FirstName":"Ada","LastName":"Lovelace","Email":"ada@example.com","HourlyRate":45.5}`},
	} {
		rec := s.do(tc.method, tc.path, tc.body)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("%s %s: expected 500, got %d", tc.method, tc.path, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "connection string not set") {
			t.Fatalf("%s %s: expected configuration message, got %s", tc.method, tc.path, rec.Body.String())
		}
	}
}

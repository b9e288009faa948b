package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"tutoring/internal/records"
)

// Records is the records service as seen by the HTTP layer.
type Records interface {
	ListStudents(ctx context.Context) ([]records.Student, error)
	ListTeachers(ctx context.Context) ([]records.Teacher, error)
	ListAttendance(ctx context.Context) ([]records.Attendance, error)
	ListPayments(ctx context.Context) ([]records.Payment, error)
	ListSalaries(ctx context.Context) ([]records.Salary, error)
	CreateStudent(ctx context.Context, in records.NewStudent) error
	CreateTeacher(ctx context.Context, in records.NewTeacher) error
	RecordAttendance(ctx context.Context, in records.NewAttendance) error
	RecordPayment(ctx context.Context, in records.NewPayment) error
	RecordSalary(ctx context.Context, in records.NewSalary) error
	FinancialSummary(ctx context.Context) (records.FinancialSummary, error)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the records API.
type Handler struct {
	records Records
	db      Pinger
	events  Pinger // nil when events are not backed by a remote store
	log     *slog.Logger
}

// New wires the handlers. events may be nil.
func New(r Records, db, events Pinger, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{records: r, db: db, events: events, log: log}
}

// ---------- Health ----------

func (h *Handler) Healthz(c *gin.Context) {
	ctx := c.Request.Context()
	dbHealthy := h.db != nil && h.db.Ping(ctx) == nil
	eventsHealthy := h.events == nil || h.events.Ping(ctx) == nil
	status := http.StatusOK
	if !dbHealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": statusText(dbHealthy && eventsHealthy), "db": dbHealthy, "events": eventsHealthy})
}

func statusText(ok bool) string {
	if ok {
		return "ok"
	}
	return "degraded"
}

// ---------- Students ----------

func (h *Handler) ListStudents(c *gin.Context) {
	rows, err := h.records.ListStudents(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, views(rows, studentJSON))
}

func (h *Handler) CreateStudent(c *gin.Context) {
	var in records.NewStudent
	if !h.bind(c, "create student", &in) {
		return
	}
	if err := h.records.CreateStudent(c.Request.Context(), in); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Student created successfully"})
}

// ---------- Teachers ----------

func (h *Handler) ListTeachers(c *gin.Context) {
	rows, err := h.records.ListTeachers(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, views(rows, teacherJSON))
}

func (h *Handler) CreateTeacher(c *gin.Context) {
	var in records.NewTeacher
	if !h.bind(c, "create teacher", &in) {
		return
	}
	if err := h.records.CreateTeacher(c.Request.Context(), in); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Teacher created successfully"})
}

// ---------- Attendance ----------

func (h *Handler) ListAttendance(c *gin.Context) {
	rows, err := h.records.ListAttendance(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, views(rows, attendanceJSON))
}

func (h *Handler) RecordAttendance(c *gin.Context) {
	var in records.NewAttendance
	if !h.bind(c, "record attendance", &in) {
		return
	}
	if err := h.records.RecordAttendance(c.Request.Context(), in); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Attendance recorded successfully"})
}

// ---------- Payments ----------

func (h *Handler) ListPayments(c *gin.Context) {
	rows, err := h.records.ListPayments(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, views(rows, paymentJSON))
}

func (h *Handler) RecordPayment(c *gin.Context) {
	var in records.NewPayment
	if !h.bind(c, "record payment", &in) {
		return
	}
	if err := h.records.RecordPayment(c.Request.Context(), in); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Payment recorded successfully"})
}

// ---------- Salaries ----------

func (h *Handler) ListSalaries(c *gin.Context) {
	rows, err := h.records.ListSalaries(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, views(rows, salaryJSON))
}

func (h *Handler) RecordSalary(c *gin.Context) {
	var in records.NewSalary
	if !h.bind(c, "record salary", &in) {
		return
	}
	if err := h.records.RecordSalary(c.Request.Context(), in); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Salary recorded successfully"})
}

// ---------- Financial summary ----------

func (h *Handler) FinancialSummary(c *gin.Context) {
	summary, err := h.records.FinancialSummary(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summaryJSON(summary))
}

// ---------- Errors ----------

// bind decodes the JSON body into dst. Decode failures are validation errors.
func (h *Handler) bind(c *gin.Context, op string, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("request body must be a JSON object")
		}
		h.fail(c, &records.Error{Kind: records.KindValidation, Op: op, Err: err})
		return false
	}
	return true
}

// fail is the single error boundary: every failure kind answers 500 with
// the error text.
func (h *Handler) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	h.log.Error("request failed",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"kind", string(records.KindOf(err)),
		"error", err,
	)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

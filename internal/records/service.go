package records

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"tutoring/internal/metrics"
	"tutoring/internal/queue"
)

// Service validates create payloads, writes them through the repository and
// announces each new record.
type Service struct {
	repo     *Repository
	events   queue.Queue
	window   Window
	validate *validator.Validate
	log      *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Options configures a Service. Zero values pick defaults.
type Options struct {
	Events  queue.Queue
	Window  Window
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// NewService creates a service backed by a repository.
func NewService(repo *Repository, opts Options) *Service {
	s := &Service{
		repo:     repo,
		events:   opts.Events,
		window:   opts.Window,
		validate: validator.New(),
		log:      opts.Logger,
		metrics:  opts.Metrics,
		now:      opts.Now,
	}
	if s.events == nil {
		s.events = queue.Discard{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.window.From.IsZero() {
		s.window = MonthWindow(time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC))
	}
	return s
}

// SummaryWindow is the fixed window used by FinancialSummary.
func (s *Service) SummaryWindow() Window { return s.window }

// ListStudents returns every student.
func (s *Service) ListStudents(ctx context.Context) ([]Student, error) {
	return s.repo.ListStudents(ctx)
}

// ListTeachers returns every teacher.
func (s *Service) ListTeachers(ctx context.Context) ([]Teacher, error) {
	return s.repo.ListTeachers(ctx)
}

// ListAttendance returns every attendance record.
func (s *Service) ListAttendance(ctx context.Context) ([]Attendance, error) {
	return s.repo.ListAttendance(ctx)
}

// ListPayments returns every payment.
func (s *Service) ListPayments(ctx context.Context) ([]Payment, error) {
	return s.repo.ListPayments(ctx)
}

// ListSalaries returns every salary payment.
func (s *Service) ListSalaries(ctx context.Context) ([]Salary, error) {
	return s.repo.ListSalaries(ctx)
}

// FinancialSummary computes the summary for the service's fixed window.
func (s *Service) FinancialSummary(ctx context.Context) (FinancialSummary, error) {
	return s.repo.FinancialSummary(ctx, s.window)
}

// CreateStudent inserts a student. A missing EnrolledDate becomes today's date;
// an explicit null is stored as NULL.
func (s *Service) CreateStudent(ctx context.Context, in NewStudent) error {
	const op = "create student"
	if err := s.validate.Struct(in); err != nil {
		return invalid(op, err)
	}
	enrolled := in.EnrolledDate.Date
	if !in.EnrolledDate.Set {
		today := DateOf(s.now().UTC())
		enrolled = &today
	}
	err := s.repo.InsertStudent(ctx, Student{
		FirstName:    *in.FirstName,
		LastName:     *in.LastName,
		Email:        *in.Email,
		EnrolledDate: enrolled,
	})
	return s.created(ctx, EntityStudent, err)
}

// CreateTeacher inserts a teacher.
func (s *Service) CreateTeacher(ctx context.Context, in NewTeacher) error {
	const op = "create teacher"
	if err := s.validate.Struct(in); err != nil {
		return invalid(op, err)
	}
	err := s.repo.InsertTeacher(ctx, Teacher{
		FirstName:  *in.FirstName,
		LastName:   *in.LastName,
		Email:      *in.Email,
		HourlyRate: *in.HourlyRate,
	})
	return s.created(ctx, EntityTeacher, err)
}

// RecordAttendance inserts an attendance row.
func (s *Service) RecordAttendance(ctx context.Context, in NewAttendance) error {
	const op = "record attendance"
	if err := s.validate.Struct(in); err != nil {
		return invalid(op, err)
	}
	err := s.repo.InsertAttendance(ctx, Attendance{
		StudentID:  *in.StudentID,
		LessonDate: *in.LessonDate,
		TeacherID:  *in.TeacherID,
		IsPresent:  bool(*in.IsPresent),
	})
	return s.created(ctx, EntityAttendance, err)
}

// RecordPayment inserts a payment.
func (s *Service) RecordPayment(ctx context.Context, in NewPayment) error {
	const op = "record payment"
	if err := s.validate.Struct(in); err != nil {
		return invalid(op, err)
	}
	err := s.repo.InsertPayment(ctx, Payment{
		StudentID:     *in.StudentID,
		Amount:        *in.Amount,
		PaymentDate:   *in.PaymentDate,
		PaymentStatus: *in.PaymentStatus,
	})
	return s.created(ctx, EntityPayment, err)
}

// RecordSalary inserts a salary payment.
func (s *Service) RecordSalary(ctx context.Context, in NewSalary) error {
	const op = "record salary"
	if err := s.validate.Struct(in); err != nil {
		return invalid(op, err)
	}
	err := s.repo.InsertSalary(ctx, Salary{
		TeacherID:   *in.TeacherID,
		Amount:      *in.Amount,
		PaymentDate: *in.PaymentDate,
		HoursWorked: *in.HoursWorked,
	})
	return s.created(ctx, EntitySalary, err)
}

// created counts a successful insert and publishes its event. Publish
// failures are logged only.
func (s *Service) created(ctx context.Context, entity string, err error) error {
	if err != nil {
		return err
	}
	s.metrics.RecordCreated(entity)
	evt := queue.NewEvent(queue.EventRecordCreated, entity)
	perr := s.events.Publish(ctx, evt)
	s.metrics.EventPublished(perr)
	if perr != nil {
		s.log.Warn("event publish failed", "entity", entity, "event_id", evt.ID, "error", perr)
	}
	return nil
}

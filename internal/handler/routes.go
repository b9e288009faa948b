package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"tutoring/internal/logger"
)

// Router wires every route onto a gin engine. metricsHandler may be nil.
func Router(h *Handler, log *slog.Logger, metricsHandler http.Handler) *gin.Engine {
	r := gin.New()

	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		h.fail(c, fmt.Errorf("internal error: %v", recovered))
	}))
	r.Use(logger.Gin(log, "/healthz", "/metrics"))

	r.GET("/healthz", h.Healthz)
	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}

	r.GET("/students", h.ListStudents)
	r.POST("/students", h.CreateStudent)

	r.GET("/teachers", h.ListTeachers)
	r.POST("/teachers", h.CreateTeacher)

	r.GET("/attendance", h.ListAttendance)
	r.POST("/attendance", h.RecordAttendance)

	r.GET("/payments", h.ListPayments)
	r.POST("/payments", h.RecordPayment)

	r.GET("/salaries", h.ListSalaries)
	r.POST("/salaries", h.RecordSalary)

	r.GET("/financial-summary", h.FinancialSummary)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	return r
}

package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// InitRouter wires the booking engine's HTTP surface.
func InitRouter(mode string, logger *zap.Logger, h *Handler) *gin.Engine {
	gin.SetMode(mode)

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	api := router.Group("/api")
	{
		api.POST("/schedules", h.CreateSchedule)
		api.GET("/schedules/:id", h.GetSchedule)
		api.GET("/schedules/:id/calendar", h.GetCalendar)
		api.DELETE("/schedules/:id", h.DeactivateSchedule)
		api.GET("/teachers/:id/schedules", h.GetTeacherSchedules)

		api.POST("/bookings/intent", h.CreateIntent)
		api.POST("/bookings/confirm", h.ConfirmBooking)
		api.GET("/bookings/handoff/:token", h.GetHandoff)
		api.POST("/bookings/:id/cancel", h.CancelBooking)
		api.GET("/students/:id/bookings", h.GetStudentBookings)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

// requestLogger logs every request; handlers stash the domain error under
// the "error" context key for it.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Duration("duration", time.Since(start)),
		}
		if msg := c.GetString("error"); msg != "" {
			fields = append(fields, zap.String("error", msg))
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error("request failed", fields...)
			return
		}
		logger.Info("request", fields...)
	}
}

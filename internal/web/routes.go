package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/web/handlers"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	recognizeHandler := handlers.NewRecognizeHandler(
		s.deps.Matcher, s.deps.Guard, s.deps.Detector, s.config.Matching.Threshold, s.deps.Metrics)
	attendanceHandler := handlers.NewAttendanceHandler(s.deps.Guard, s.deps.Days)
	galleryHandler := handlers.NewGalleryHandler(s.deps.Matcher.Gallery())

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.SecurityHeaders())

		// Recognition
		r.Post("/recognize", recognizeHandler.Recognize)

		// Attendance
		r.Get("/attendance", attendanceHandler.Summary)
		r.Post("/attendance", attendanceHandler.Mark)
		r.Get("/attendance/days", attendanceHandler.Days)

		// Gallery
		r.Get("/gallery", galleryHandler.List)
		r.Get("/gallery/{id}/neighbors", galleryHandler.Neighbors)
	})

	if s.deps.Metrics != nil {
		s.router.Handle("/metrics", s.deps.Metrics.Handler())
	}
}

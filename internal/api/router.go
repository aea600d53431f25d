package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the handler into a chi router.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", h.Health)
	r.Get("/contests.ics", h.ExportICS)

	r.Route("/api", func(r chi.Router) {
		r.Get("/contests", h.ListContests)
		r.Get("/contests/{id}", h.GetContest)
		r.Post("/contests/{id}/book", h.BookContest)
		r.Post("/refresh", h.Refresh)

		r.Get("/calendar", h.ListCalendar)
		r.Delete("/events/{id}", h.DeleteEvent)

		r.Get("/preferences/reminders", h.GetReminders)
		r.Put("/preferences/reminders", h.SetReminders)
	})

	return r
}

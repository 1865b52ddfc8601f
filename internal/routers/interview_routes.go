package routers

import (
	"time"

	"selectra/interview/internal/handlers"
	"selectra/interview/internal/middleware"
	"selectra/interview/internal/models"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// requestTimeout bounds the plain HTTP endpoints. The websocket route is
// registered outside it.
const requestTimeout = 60 * time.Second

func InterviewRoutes(router *chi.Mux, jwtSecret []byte, interviewHandler *handlers.InterviewHandler, resultHandler *handlers.ResultHandler) {
	router.Route("/api/v1/interviews/{token}", func(r chi.Router) {
		r.Use(middleware.Authenticate(jwtSecret))

		r.Get("/session/ws", interviewHandler.SessionWSHandler)

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(requestTimeout))

			r.Post("/session", interviewHandler.OpenSessionHandler)
			r.Get("/session", interviewHandler.GetSessionHandler)
			r.Delete("/session", interviewHandler.CloseSessionHandler)
			r.Post("/session/start", interviewHandler.StartHandler)
			r.With(middleware.ValidateRequest[*models.DraftRequest]()).Put("/session/draft", interviewHandler.DraftHandler)
			r.With(middleware.ValidateRequest[*models.SubmitRequest]()).Post("/session/submit", interviewHandler.SubmitHandler)
			r.Post("/session/retry", interviewHandler.RetryHandler)
			r.Get("/result", resultHandler.GetResultHandler)
		})
	})
}

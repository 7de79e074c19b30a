package handlers

import (
	"matrixTasks/internal/middleware"

	"github.com/go-chi/chi/v5"
)

// Mount вешает маршруты API; всё, кроме health, требует X-User-ID
func Mount(r chi.Router, tasks *TaskHandler, focus *FocusHandler, chat *ChatHandler) {
	r.Get("/health", tasks.HealthCheck)

	r.Group(func(r chi.Router) {
		r.Use(middleware.UserID)

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", tasks.ListTasks)
			r.Post("/", tasks.PostTask)
			r.Delete("/completed", tasks.ClearCompleted)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", tasks.GetTaskByID)
				r.Patch("/", tasks.UpdateTask)
				r.Delete("/", tasks.DeleteTaskByID)
				r.Post("/start", tasks.StartTracking())
				r.Post("/stop", tasks.StopTracking())
				r.Post("/complete", tasks.CompleteTask())
				r.Post("/restore", tasks.RestoreTask())
				r.Get("/time", tasks.TrackedTime)
			})
		})

		r.Get("/analytics", tasks.Analytics)

		r.Route("/focus", func(r chi.Router) {
			r.Get("/stats", focus.Stats)
			r.Get("/sessions", focus.History)
			r.Post("/sessions", focus.StartSession)

			r.Route("/sessions/current", func(r chi.Router) {
				r.Get("/", focus.CurrentSession)
				r.Post("/pause", focus.PauseSession)
				r.Post("/resume", focus.ResumeSession)
				r.Post("/interrupt", focus.Interrupt)
				r.Post("/note", focus.AddNote)
				r.Post("/end", focus.EndSession)
			})
		})

		r.Post("/chat", chat.Ask)
	})
}

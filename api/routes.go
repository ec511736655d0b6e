package main

import (
	"net/http"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		app.notFound(w, r, "Not found")
	})

	mux.HandleFunc("GET /healthcheck", app.healthCheckHandler)

	mux.HandleFunc("POST /auth/register", app.registerHandler)
	mux.HandleFunc("POST /auth/login", app.loginHandler)

	mux.HandleFunc("GET /tasks", app.requireAuth(app.listTasksHandler))
	mux.HandleFunc("POST /tasks", app.requireAuth(app.createTaskHandler))
	mux.HandleFunc("GET /tasks/{id}", app.requireAuth(app.getTaskHandler))
	mux.HandleFunc("PATCH /tasks/{id}", app.requireAuth(app.updateTaskHandler))
	mux.HandleFunc("DELETE /tasks/{id}", app.requireAuth(app.deleteTaskHandler))

	mux.HandleFunc("GET /activity", app.requireAuth(app.listActivityHandler))

	return app.recoverPanic(app.logRequest(app.enableCORS(mux)))
}

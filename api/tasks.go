package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

var errInvalidDueDate = errors.New("dueDate must be an RFC 3339 timestamp or a YYYY-MM-DD date")

func parseDueDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		t, err := time.Parse(layout, s)
		if err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, errInvalidDueDate
}

func (app *application) listTasksHandler(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromRequest(r)
	status := taskStatus(r.URL.Query().Get("status"))

	tasks, err := app.storage.listTasksForUser(r.Context(), claims.UserID, status)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	app.writeSuccess(w, r, http.StatusOK, tasks)
}

func (app *application) createTaskHandler(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromRequest(r)

	var input struct {
		Title       string     `json:"title"`
		Description *string    `json:"description"`
		Status      taskStatus `json:"status"`
		DueDate     *string    `json:"dueDate"`
	}
	err := readJSON(w, r, &input)
	if err != nil {
		app.badRequest(w, r, err.Error())
		return
	}

	t := &task{
		Title:  input.Title,
		Status: statusTodo,
		UserID: claims.UserID,
	}
	if input.Description != nil && *input.Description != "" {
		t.Description = input.Description
	}
	if input.Status != "" {
		t.Status = input.Status
	}

	v := newValidator()
	validateTitle(v, t.Title)
	validateStatus(v, t.Status)
	if input.DueDate != nil {
		t.DueDate, err = parseDueDate(*input.DueDate)
		v.checkCond(err == nil, "dueDate", errInvalidDueDate.Error())
	}
	if !v.valid() {
		app.badRequest(w, r, v.firstError())
		return
	}

	err = app.storage.insertTask(r.Context(), t)
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	app.activity.record(r.Context(), actionCreate, entityTask, &t.ID, map[string]string{"title": t.Title}, claims.UserID, &t.ID)

	app.writeSuccess(w, r, http.StatusCreated, t)
}

func (app *application) getTaskHandler(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromRequest(r)

	t, err := app.storage.getTaskForUser(r.Context(), r.PathValue("id"), claims.UserID)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	if t == nil {
		app.notFound(w, r, "Task not found")
		return
	}
	app.writeSuccess(w, r, http.StatusOK, t)
}

// applyTaskChanges copies the fields present in changes onto t. A field set to null clears it
// where the column is nullable.
func applyTaskChanges(t *task, changes map[string]json.RawMessage) *validator {
	v := newValidator()

	if raw, ok := changes["title"]; ok {
		var title *string
		err := json.Unmarshal(raw, &title)
		ok := err == nil && title != nil && notBlank(*title)
		v.checkCond(ok, "title", "Title cannot be empty")
		if ok {
			t.Title = *title
		}
	}
	if raw, ok := changes["description"]; ok {
		var description *string
		err := json.Unmarshal(raw, &description)
		v.checkCond(err == nil, "description", "Description must be a string or null")
		if err == nil {
			t.Description = description
		}
	}
	if raw, ok := changes["status"]; ok {
		var status taskStatus
		err := json.Unmarshal(raw, &status)
		ok := err == nil && status.valid()
		v.checkCond(ok, "status", "Status must be one of TODO, IN_PROGRESS, DONE")
		if ok {
			t.Status = status
		}
	}
	if raw, ok := changes["dueDate"]; ok {
		var s *string
		err := json.Unmarshal(raw, &s)
		switch {
		case err != nil:
			v.checkCond(false, "dueDate", "dueDate must be a string or null")
		case s == nil:
			t.DueDate = nil
		default:
			dueDate, err := parseDueDate(*s)
			v.checkCond(err == nil, "dueDate", errInvalidDueDate.Error())
			if err == nil {
				t.DueDate = dueDate
			}
		}
	}
	return v
}

func (app *application) updateTaskHandler(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromRequest(r)

	var changes map[string]json.RawMessage
	err := readJSON(w, r, &changes)
	if err != nil {
		app.badRequest(w, r, err.Error())
		return
	}
	if changes == nil {
		app.badRequest(w, r, "body must be a JSON object")
		return
	}

	t, err := app.storage.getTaskForUser(r.Context(), r.PathValue("id"), claims.UserID)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	if t == nil {
		app.notFound(w, r, "Task not found")
		return
	}

	v := applyTaskChanges(t, changes)
	if !v.valid() {
		app.badRequest(w, r, v.firstError())
		return
	}

	err = app.storage.updateTask(r.Context(), t)
	if err != nil {
		switch {
		case errors.Is(err, errRecordNotFound):
			app.notFound(w, r, "Task not found")
		default:
			app.serverError(w, r, err)
		}
		return
	}

	app.activity.record(r.Context(), actionUpdate, entityTask, &t.ID, map[string]any{"changes": changes}, claims.UserID, &t.ID)

	app.writeSuccess(w, r, http.StatusOK, t)
}

func (app *application) deleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromRequest(r)
	id := r.PathValue("id")

	t, err := app.storage.getTaskForUser(r.Context(), id, claims.UserID)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	if t == nil {
		app.notFound(w, r, "Task not found")
		return
	}

	// the entry goes in first so the title survives the row
	app.activity.record(r.Context(), actionDelete, entityTask, &t.ID, map[string]string{"title": t.Title}, claims.UserID, &t.ID)

	err = app.storage.deleteTask(r.Context(), id, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, errRecordNotFound):
			app.notFound(w, r, "Task not found")
		default:
			app.serverError(w, r, err)
		}
		return
	}

	app.writeSuccess(w, r, http.StatusOK, map[string]string{"message": "Task deleted successfully"})
}

package main

import (
	"errors"
	"net/http"
	"strconv"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 1000
)

func (app *application) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	app.writeSuccess(w, r, http.StatusOK, map[string]string{
		"status":      "available",
		"environment": app.config.Env,
		"version":     version,
	})
}

func (app *application) registerHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	err := readJSON(w, r, &input)
	if err != nil {
		app.badRequest(w, r, err.Error())
		return
	}

	v := newValidator()
	validateRegistration(v, input.Email, input.Password, input.Name)
	if !v.valid() {
		app.badRequest(w, r, v.firstError())
		return
	}

	existing, err := app.storage.getUserByEmail(r.Context(), input.Email)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	if existing != nil {
		app.conflict(w, r, "User already exists")
		return
	}

	hash, err := app.auth.hashPassword(input.Password)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	u := &user{
		Email:        input.Email,
		Name:         input.Name,
		PasswordHash: hash,
	}
	err = app.storage.insertUser(r.Context(), u)
	if err != nil {
		switch {
		case errors.Is(err, errDuplicateEmail):
			app.conflict(w, r, "User already exists")
		default:
			app.serverError(w, r, err)
		}
		return
	}

	token, err := app.auth.generateToken(u.ID, u.Email)
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	app.activity.record(r.Context(), actionRegister, entityUser, &u.ID, nil, u.ID, nil)
	app.sendWelcomeEmail(u)

	app.writeSuccess(w, r, http.StatusCreated, map[string]any{
		"user":  u,
		"token": token,
	})
}

func (app *application) loginHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	err := readJSON(w, r, &input)
	if err != nil {
		app.badRequest(w, r, err.Error())
		return
	}

	v := newValidator()
	validateLogin(v, input.Email, input.Password)
	if !v.valid() {
		app.badRequest(w, r, v.firstError())
		return
	}

	u, err := app.storage.getUserByEmail(r.Context(), input.Email)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	if u == nil {
		app.auth.burnPasswordCheck(input.Password)
		app.invalidCredentials(w, r)
		return
	}
	if !app.auth.verifyPassword(input.Password, u.PasswordHash) {
		app.invalidCredentials(w, r)
		return
	}

	token, err := app.auth.generateToken(u.ID, u.Email)
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	app.activity.record(r.Context(), actionLogin, entityUser, &u.ID, nil, u.ID, nil)

	app.writeSuccess(w, r, http.StatusOK, map[string]any{
		"user": map[string]string{
			"id":    u.ID,
			"email": u.Email,
			"name":  u.Name,
		},
		"token": token,
	})
}

func (app *application) listActivityHandler(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromRequest(r)

	limit := defaultActivityLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxActivityLimit {
			app.badRequest(w, r, "Limit must be an integer between 1 and 1000")
			return
		}
		limit = n
	}

	logs, err := app.storage.listActivityForUser(r.Context(), claims.UserID, limit)
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	app.writeSuccess(w, r, http.StatusOK, logs)
}

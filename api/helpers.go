package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// envelope is the body shape of every response.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// writeJSON sends body with the given status. An encoding failure becomes a bare 500; once the
// headers are out, a failed write can only be logged.
func (app *application) writeJSON(w http.ResponseWriter, r *http.Request, status int, body envelope) {
	data, err := json.Marshal(body)
	if err != nil {
		app.logger.Error("failed to encode response", "method", r.Method, "uri", r.URL.RequestURI(), "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	data = append(data, '\n')

	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, err = w.Write(data)
	if err != nil {
		app.logger.Error("failed to write response", "method", r.Method, "uri", r.URL.RequestURI(), "error", err)
	}
}

func (app *application) writeSuccess(w http.ResponseWriter, r *http.Request, status int, data any) {
	app.writeJSON(w, r, status, envelope{Success: true, Data: data})
}

func (app *application) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	app.writeJSON(w, r, status, envelope{Success: false, Error: message})
}

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Error(err.Error(), "method", r.Method, "uri", r.URL.RequestURI())
	app.writeError(w, r, http.StatusInternalServerError, "Internal server error")
}

func (app *application) badRequest(w http.ResponseWriter, r *http.Request, message string) {
	app.writeError(w, r, http.StatusBadRequest, message)
}

func (app *application) unauthorized(w http.ResponseWriter, r *http.Request) {
	app.writeError(w, r, http.StatusUnauthorized, "Unauthorized")
}

func (app *application) invalidCredentials(w http.ResponseWriter, r *http.Request) {
	app.writeError(w, r, http.StatusUnauthorized, "Invalid credentials")
}

func (app *application) notFound(w http.ResponseWriter, r *http.Request, message string) {
	app.writeError(w, r, http.StatusNotFound, message)
}

func (app *application) conflict(w http.ResponseWriter, r *http.Request, message string) {
	app.writeError(w, r, http.StatusConflict, message)
}

// readJSON decodes a single JSON value from the request body into dst. The returned errors are
// safe to show to clients.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	const maxBytes = 1 << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	dec := json.NewDecoder(r.Body)
	err := dec.Decode(dst)
	if err != nil {
		var (
			syntaxError        *json.SyntaxError
			unmarshalTypeError *json.UnmarshalTypeError
			maxBytesError      *http.MaxBytesError
		)
		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytesError.Limit)
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}
	return nil
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

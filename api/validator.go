package main

import (
	"strings"
)

const (
	minPasswordLength = 6
	// bcrypt rejects longer input
	maxPasswordLength = 72
)

// validator collects the first failure message per field. Handlers report only the first one.
type validator struct {
	errors map[string]string
	order  []string
}

func newValidator() *validator {
	return &validator{
		errors: make(map[string]string),
	}
}

func (v *validator) valid() bool {
	return len(v.errors) == 0
}

// firstError returns the message of the earliest failed check.
func (v *validator) firstError() string {
	if len(v.order) == 0 {
		return ""
	}
	return v.errors[v.order[0]]
}

func (v *validator) checkCond(cond bool, key, msg string) {
	if cond {
		return
	}
	if _, ok := v.errors[key]; !ok {
		v.errors[key] = msg
		v.order = append(v.order, key)
	}
}

func notBlank(s string) bool {
	return strings.TrimSpace(s) != ""
}

func validateRegistration(v *validator, email, password, name string) {
	v.checkCond(email != "" && password != "" && name != "", "required", "Email, password, and name are required")
	v.checkCond(len(password) >= minPasswordLength, "password", "Password must be at least 6 characters")
	v.checkCond(len(password) <= maxPasswordLength, "password", "Password must be at most 72 bytes")
}

func validateLogin(v *validator, email, password string) {
	v.checkCond(email != "" && password != "", "required", "Email and password are required")
}

func validateTitle(v *validator, title string) {
	v.checkCond(notBlank(title), "title", "Title is required")
}

func validateStatus(v *validator, status taskStatus) {
	v.checkCond(status.valid(), "status", "Status must be one of TODO, IN_PROGRESS, DONE")
}

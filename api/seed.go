package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const (
	demoEmail    = "demo@example.com"
	demoPassword = "demo123"
	demoName     = "Demo User"
)

type seedResult struct {
	user  *user
	tasks []*task
}

func demoDate(s string) *time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func strPtr(s string) *string {
	return &s
}

// seed creates the demo user if it is missing, then adds the sample tasks and their activity.
func seed(ctx context.Context, s *storage, a *auth) (*seedResult, error) {
	u, err := s.getUserByEmail(ctx, demoEmail)
	if err != nil {
		return nil, err
	}
	if u == nil {
		hash, err := a.hashPassword(demoPassword)
		if err != nil {
			return nil, err
		}
		u = &user{Email: demoEmail, Name: demoName, PasswordHash: hash}
		err = s.insertUser(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("create demo user: %w", err)
		}
		err = s.insertActivity(ctx, &activityLog{
			Action:   actionRegister,
			Entity:   entityUser,
			EntityID: &u.ID,
			UserID:   u.ID,
		})
		if err != nil {
			return nil, err
		}
	}

	tasks := []*task{
		{
			Title:       "Setup development environment",
			Description: strPtr("Install the toolchain, PostgreSQL, and set up the project"),
			Status:      statusDone,
			DueDate:     demoDate("2026-01-15"),
		},
		{
			Title:       "Build authentication system",
			Description: strPtr("Implement JWT-based authentication with login and register"),
			Status:      statusInProgress,
			DueDate:     demoDate("2026-01-20"),
		},
		{
			Title:       "Create task dashboard",
			Description: strPtr("Build the main dashboard with task list and filters"),
			Status:      statusTodo,
			DueDate:     demoDate("2026-01-25"),
		},
	}
	for _, t := range tasks {
		t.UserID = u.ID
		err = s.insertTask(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("create demo task %q: %w", t.Title, err)
		}
	}

	first := tasks[0]
	details, err := json.Marshal(map[string]string{"title": first.Title})
	if err != nil {
		return nil, err
	}
	err = s.insertActivity(ctx, &activityLog{
		Action:   actionCreate,
		Entity:   entityTask,
		EntityID: &first.ID,
		Details:  strPtr(string(details)),
		UserID:   u.ID,
		TaskID:   &first.ID,
	})
	if err != nil {
		return nil, err
	}

	return &seedResult{user: u, tasks: tasks}, nil
}

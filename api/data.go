package main

import "time"

type user struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

type taskStatus string

const (
	statusTodo       taskStatus = "TODO"
	statusInProgress taskStatus = "IN_PROGRESS"
	statusDone       taskStatus = "DONE"
)

func (s taskStatus) valid() bool {
	switch s {
	case statusTodo, statusInProgress, statusDone:
		return true
	}
	return false
}

type task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Status      taskStatus `json:"status"`
	DueDate     *time.Time `json:"dueDate"`
	UserID      string     `json:"userId"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Audit actions and entity names written to the activity log.
const (
	actionLogin    = "LOGIN"
	actionRegister = "REGISTER"
	actionCreate   = "CREATE"
	actionUpdate   = "UPDATE"
	actionDelete   = "DELETE"

	entityUser = "User"
	entityTask = "Task"
)

type activityLog struct {
	ID        string        `json:"id"`
	Action    string        `json:"action"`
	Entity    string        `json:"entity"`
	EntityID  *string       `json:"entityId"`
	Details   *string       `json:"details"`
	UserID    string        `json:"userId"`
	TaskID    *string       `json:"taskId"`
	CreatedAt time.Time     `json:"createdAt"`
	Task      *activityTask `json:"task"`
}

// activityTask is the slice of the referenced task joined into activity listings.
type activityTask struct {
	Title string `json:"title"`
}

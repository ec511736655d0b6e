package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migrate(context.Background(), db, "sqlite"))
	return db
}

// newTestClock returns a clock that advances one second per call.
func newTestClock() func() time.Time {
	var (
		mu sync.Mutex
		n  int
	)
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		n++
		return start.Add(time.Duration(n) * time.Second)
	}
}

func newTestStorage(t *testing.T) *storage {
	t.Helper()
	s := newStorage(newTestDB(t))
	s.now = newTestClock()
	return s
}

func newTestAuth(t *testing.T) *auth {
	t.Helper()
	a, err := newAuth(testSecret, time.Hour, bcrypt.MinCost)
	require.NoError(t, err)
	return a
}

func newTestApplication(t *testing.T) *application {
	t.Helper()

	cfg := defaultConfig()
	cfg.DB.Driver = "sqlite"
	cfg.DB.DSN = ":memory:"
	cfg.JWT.Secret = testSecret
	cfg.JWT.TTL = time.Hour
	cfg.BcryptCost = bcrypt.MinCost

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app, err := newApplication(cfg, newTestDB(t), logger)
	require.NoError(t, err)
	app.storage.now = newTestClock()
	return app
}

type testResponse struct {
	status int
	raw    []byte
	body   struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
}

func (tr *testResponse) decodeData(t *testing.T, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(tr.body.Data, dst), "data: %s", tr.body.Data)
}

func doRequest(t *testing.T, h http.Handler, method, path, token string, body any) *testResponse {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	res := &testResponse{status: rr.Code, raw: rr.Body.Bytes()}
	require.NoError(t, json.Unmarshal(res.raw, &res.body), "body: %s", res.raw)
	return res
}

type registered struct {
	User struct {
		ID        string    `json:"id"`
		Email     string    `json:"email"`
		Name      string    `json:"name"`
		CreatedAt time.Time `json:"createdAt"`
	} `json:"user"`
	Token string `json:"token"`
}

func registerUser(t *testing.T, h http.Handler, email string) registered {
	t.Helper()
	res := doRequest(t, h, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    email,
		"password": "secret123",
		"name":     "Test User",
	})
	require.Equal(t, http.StatusCreated, res.status, string(res.raw))
	var out registered
	res.decodeData(t, &out)
	return out
}

func createTask(t *testing.T, h http.Handler, token string, body map[string]any) task {
	t.Helper()
	res := doRequest(t, h, http.MethodPost, "/tasks", token, body)
	require.Equal(t, http.StatusCreated, res.status, string(res.raw))
	var out task
	res.decodeData(t, &out)
	return out
}

func listActivity(t *testing.T, h http.Handler, token string) []activityLog {
	t.Helper()
	res := doRequest(t, h, http.MethodGet, "/activity", token, nil)
	require.Equal(t, http.StatusOK, res.status, string(res.raw))
	var out []activityLog
	res.decodeData(t, &out)
	return out
}

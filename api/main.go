package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

const version = "1.0.0"

type application struct {
	config   config
	logger   *slog.Logger
	storage  *storage
	auth     *auth
	activity *activityRecorder
	mailer   *mailer
	wg       sync.WaitGroup
}

func newApplication(cfg config, db *sql.DB, logger *slog.Logger) (*application, error) {
	a, err := newAuth(cfg.JWT.Secret, cfg.JWT.TTL, cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	s := newStorage(db)
	app := &application{
		config:   cfg,
		logger:   logger,
		storage:  s,
		auth:     a,
		activity: &activityRecorder{storage: s, logger: logger},
	}
	if cfg.SMTP.Host != "" {
		app.mailer = newMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.Sender)
	}
	return app, nil
}

func (app *application) serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", app.config.Port),
		Handler:      app.routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelError),
	}

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		app.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		if waitErr := app.waitBackground(shutdownCtx); err == nil {
			err = waitErr
		}
		shutdownErr <- err
	}()

	app.logger.Info("starting server", "env", app.config.Env, "port", app.config.Port)
	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	err = <-shutdownErr
	if err != nil {
		return err
	}
	app.logger.Info("stopped server")
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCommand().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

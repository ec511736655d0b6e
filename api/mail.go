package main

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/go-mail/mail/v2"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const mailAttempts = 3

type mailer struct {
	dialer *mail.Dialer
	sender string
}

func newMailer(host string, port int, username string, password string, sender string) *mailer {
	dialer := mail.NewDialer(host, port, username, password)
	dialer.Timeout = 5 * time.Second
	return &mailer{
		dialer: dialer,
		sender: sender,
	}
}

type renderedMail struct {
	subject   string
	plainBody string
	htmlBody  string
}

func renderMail(templateFile string, data any) (*renderedMail, error) {
	tmpl, err := template.New("email").ParseFS(templateFS, "templates/"+templateFile)
	if err != nil {
		return nil, err
	}

	var subject, plainBody, htmlBody bytes.Buffer
	err = tmpl.ExecuteTemplate(&subject, "subject", data)
	if err != nil {
		return nil, err
	}
	err = tmpl.ExecuteTemplate(&plainBody, "plainBody", data)
	if err != nil {
		return nil, err
	}
	err = tmpl.ExecuteTemplate(&htmlBody, "htmlBody", data)
	if err != nil {
		return nil, err
	}
	return &renderedMail{
		subject:   subject.String(),
		plainBody: plainBody.String(),
		htmlBody:  htmlBody.String(),
	}, nil
}

func (m *mailer) send(to, templateFile string, data any) error {
	rendered, err := renderMail(templateFile, data)
	if err != nil {
		return err
	}

	msg := mail.NewMessage()
	msg.SetHeader("To", to)
	msg.SetHeader("From", m.sender)
	msg.SetHeader("Subject", rendered.subject)
	msg.SetBody("text/plain", rendered.plainBody)
	msg.AddAlternative("text/html", rendered.htmlBody)

	for i := 1; i <= mailAttempts; i++ {
		err = m.dialer.DialAndSend(msg)
		if err == nil {
			return nil
		}
		if i < mailAttempts {
			time.Sleep(time.Duration(i) * 500 * time.Millisecond)
		}
	}
	return fmt.Errorf("send mail to %s after %d attempts: %w", to, mailAttempts, err)
}

// background runs fn in a goroutine tracked by the server's shutdown wait.
func (app *application) background(fn func()) {
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		defer func() {
			if err := recover(); err != nil {
				app.logger.Error(fmt.Sprintf("%v", err))
			}
		}()
		fn()
	}()
}

// waitBackground blocks until every background goroutine has returned or ctx is done.
func (app *application) waitBackground(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		app.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("background tasks still running: %w", ctx.Err())
	}
}

func (app *application) sendWelcomeEmail(u *user) {
	if app.mailer == nil {
		return
	}
	data := map[string]string{"Name": u.Name, "Email": u.Email}
	app.background(func() {
		err := app.mailer.send(u.Email, "welcome.tmpl", data)
		if err != nil {
			app.logger.Error("failed to send welcome email", "user_id", u.ID, "error", err)
		}
	})
}

package services

import (
	"fmt"
	"log"
	"net/smtp"
	"strings"
	"time"
)

type EmailService struct {
	host        string
	port        string
	user        string
	pass        string
	from        string
	frontendURL string
	devMode     bool
}

func NewEmailService(host, port, user, pass, from, frontendURL string) *EmailService {
	devMode := host == "" || user == ""
	if devMode {
		log.Println("⚠ Email service running in DEV MODE (logging to console)")
	}
	return &EmailService{
		host:        host,
		port:        port,
		user:        user,
		pass:        pass,
		from:        from,
		frontendURL: frontendURL,
		devMode:     devMode,
	}
}

func (s *EmailService) SendSessionReminderEmail(to, name, subject string, scheduledAt time.Time, plannedMinutes int) error {
	emailSubject := fmt.Sprintf("Reminder: %s tutoring session at %s", subject, scheduledAt.Format("15:04"))
	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: 'Segoe UI', Arial, sans-serif; color: #1e293b;">
  <div style="max-width: 480px; margin: 40px auto;">
    <h2 style="margin: 0 0 16px;">Upcoming tutoring session</h2>
    <p style="margin: 0 0 8px;">Hi %s,</p>
    <p style="margin: 0 0 16px;">
      Your <strong>%s</strong> session starts at <strong>%s</strong> and is planned for %d minutes.
    </p>
    <a href="%s/sessions" style="display: inline-block; background: #6366f1; color: white; text-decoration: none; padding: 12px 32px; border-radius: 8px; font-weight: 600;">
      Open Tutoria
    </a>
  </div>
</body>
</html>`, name, subject, scheduledAt.Format("Mon 02 Jan 15:04"), plannedMinutes, s.frontendURL)

	return s.send(to, emailSubject, body)
}

func (s *EmailService) send(to, subject, htmlBody string) error {
	if s.devMode {
		log.Printf("📧 [DEV MODE] Email to %s: %s", to, subject)
		return nil
	}

	msg := strings.Join([]string{
		"From: " + s.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=\"UTF-8\"",
		"",
		htmlBody,
	}, "\r\n")

	auth := smtp.PlainAuth("", s.user, s.pass, s.host)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)

	if err := smtp.SendMail(addr, auth, s.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

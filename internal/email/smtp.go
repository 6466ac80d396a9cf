package email

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// SMTPSender delivers notifications over plain SMTP. Sends run in a
// goroutine; failures are logged, not returned, since by that point the
// export itself has already succeeded.
type SMTPSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

func NewSMTPSender(host string, port int, user, password, from string) *SMTPSender {
	return &SMTPSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
	}
}

func (s *SMTPSender) auth() smtp.Auth {
	if s.User != "" && s.Password != "" {
		return smtp.PlainAuth("", s.User, s.Password, s.Host)
	}
	return nil
}

func (s *SMTPSender) addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s *SMTPSender) SendDownloadLink(to, downloadURL, summary string) {
	go func() {
		subject := "Your export is ready"
		body := fmt.Sprintf("Hello,\n\nYour export job has completed.\n\n%s\nDownload Link:\n%s\n", summary, downloadURL)

		msg := fmt.Sprintf("To: %s\r\nSubject: %s\r\n\r\n%s\r\n", to, subject, body)

		slog.Info("Sending email via SMTP", "to", to, "host", s.Host)
		if err := smtp.SendMail(s.addr(), s.auth(), s.From, []string{to}, []byte(msg)); err != nil {
			slog.Error("Failed to send email", "to", to, "error", err)
			return
		}
		slog.Info("Email sent", "to", to)
	}()
}

func (s *SMTPSender) SendWithAttachment(to, filename string, content []byte, summary string) {
	go func() {
		subject := "Your export is ready (attached)"
		boundary := "tablecast-attachment-boundary"

		var msg strings.Builder
		fmt.Fprintf(&msg, "To: %s\r\n", to)
		fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
		msg.WriteString("MIME-Version: 1.0\r\n")
		fmt.Fprintf(&msg, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", boundary)

		fmt.Fprintf(&msg, "--%s\r\n", boundary)
		msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		fmt.Fprintf(&msg, "Hello,\n\nYour export job has completed; the document is attached.\n\n%s\r\n", summary)

		fmt.Fprintf(&msg, "--%s\r\n", boundary)
		msg.WriteString("Content-Type: application/octet-stream\r\n")
		msg.WriteString("Content-Transfer-Encoding: base64\r\n")
		fmt.Fprintf(&msg, "Content-Disposition: attachment; filename=%q\r\n\r\n", filename)
		msg.WriteString(base64.StdEncoding.EncodeToString(content))
		fmt.Fprintf(&msg, "\r\n--%s--\r\n", boundary)

		slog.Info("Sending email with attachment via SMTP", "to", to, "host", s.Host, "size", len(content))
		if err := smtp.SendMail(s.addr(), s.auth(), s.From, []string{to}, []byte(msg.String())); err != nil {
			slog.Error("Failed to send email", "to", to, "error", err)
			return
		}
		slog.Info("Email sent", "to", to)
	}()
}

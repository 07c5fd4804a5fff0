package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"github.com/hray3182/daymemory/internal/dday"
)

type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// EmailSender delivers reminders over SMTP with STARTTLS when offered.
type EmailSender struct {
	cfg  EmailConfig
	dial func(ctx context.Context, network, addr string) (net.Conn, error)
}

func NewEmailSender(cfg EmailConfig) *EmailSender {
	d := &net.Dialer{}
	return &EmailSender{cfg: cfg, dial: d.DialContext}
}

var emailTemplate = template.Must(template.New("reminder").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #333;">
  <h2 style="color: #e85a71;">{{.Label}} {{.Title}}</h2>
  <p><strong>{{.Date}}</strong>{{if .Recipient}} &middot; {{.Recipient}}{{end}}</p>
  <p>{{.Body}}</p>
  <p style="font-size: 12px; color: #999;">You are receiving this because reminders are enabled in DayMemory.</p>
</body>
</html>`))

func (s *EmailSender) Notify(ctx context.Context, msg Message) error {
	if msg.Contact.Email == "" {
		return classify("email", fmt.Errorf("no email address"))
	}

	body, err := buildEmail(s.cfg.From, msg)
	if err != nil {
		return classify("email", err)
	}
	return classify("email", s.send(ctx, msg.Contact.Email, body))
}

func (s *EmailSender) send(ctx context.Context, to string, body []byte) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	conn, err := s.dial(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
			return err
		}
	}
	if s.cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)); err != nil {
			return err
		}
	}
	if err := c.Mail(s.cfg.From); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}

	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(body); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

// buildEmail renders a multipart/alternative message with text and HTML parts.
func buildEmail(from string, msg Message) ([]byte, error) {
	var html bytes.Buffer
	err := emailTemplate.Execute(&html, map[string]string{
		"Label":     dday.Label(msg.DaysBefore),
		"Title":     msg.EventTitle,
		"Date":      msg.EventDate.Format(dday.DateLayout),
		"Recipient": msg.RecipientName,
		"Body":      msg.Body(),
	})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.Contact.Email)
	fmt.Fprintf(&buf, "Subject: %s\r\n", msg.Subject())
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", mw.Boundary())

	parts := []struct {
		contentType string
		body        []byte
	}{
		{"text/plain; charset=UTF-8", []byte(msg.Body())},
		{"text/html; charset=UTF-8", html.Bytes()},
	}
	for _, p := range parts {
		pw, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {p.contentType}})
		if err != nil {
			return nil, err
		}
		if _, err := pw.Write(p.body); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

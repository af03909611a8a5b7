// Package mail builds and sends SMTP email.
//
//	err := mail.To(order.Billing.Email).
//	    Subject("Your Order Has Been Confirmed - US Gears").
//	    Text(plain).
//	    HTML(rendered).
//	    Send(ctx)
package mail

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/hex"
	"errors"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"sync"
	"time"

	"github.com/usgears/storefront/config"
)

// ErrNotConfigured is returned when no SMTP username is set.
var ErrNotConfigured = errors.New("mail: MAIL_USERNAME not configured")

type SMTP struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

func defaultSMTP() SMTP {
	return SMTP{
		Host:     config.MailHost(),
		Port:     config.MailPort(),
		Username: config.MailUsername(),
		Password: config.MailPassword(),
		From:     config.MailFrom(),
		FromName: config.MailFromName(),
	}
}

// Message is a fluent email builder. A message may carry both a text and an
// HTML body; it is then sent as multipart/alternative.
type Message struct {
	to      []string
	replyTo string
	subject string
	text    string
	html    string
	cfg     SMTP
}

func To(addresses ...string) *Message {
	return &Message{to: addresses, cfg: defaultSMTP()}
}

func (m *Message) Subject(s string) *Message { m.subject = s; return m }
func (m *Message) Text(s string) *Message    { m.text = s; return m }
func (m *Message) HTML(s string) *Message    { m.html = s; return m }
func (m *Message) ReplyTo(a string) *Message { m.replyTo = a; return m }

// UseConfig overrides the SMTP settings for this message.
func (m *Message) UseConfig(cfg SMTP) *Message { m.cfg = cfg; return m }

func (m *Message) Recipients() []string { return append([]string(nil), m.to...) }
func (m *Message) SubjectLine() string  { return m.subject }
func (m *Message) TextBody() string     { return m.text }
func (m *Message) HTMLBody() string     { return m.html }

// Transport delivers a built message.
type Transport interface {
	Deliver(ctx context.Context, m *Message) error
}

var (
	transportMu sync.RWMutex
	transport   Transport = smtpTransport{}
)

// SetTransport swaps the delivery mechanism and returns a restore func.
func SetTransport(t Transport) (restore func()) {
	transportMu.Lock()
	prev := transport
	transport = t
	transportMu.Unlock()
	return func() {
		transportMu.Lock()
		transport = prev
		transportMu.Unlock()
	}
}

// Send validates the recipients and hands the message to the transport.
func (m *Message) Send(ctx context.Context) error {
	if len(m.to) == 0 {
		return errors.New("mail: no recipients")
	}
	for _, a := range m.to {
		if _, err := mail.ParseAddress(a); err != nil {
			return fmt.Errorf("mail: bad recipient %q: %w", a, err)
		}
	}
	if m.text == "" && m.html == "" {
		return errors.New("mail: empty body")
	}

	transportMu.RLock()
	t := transport
	transportMu.RUnlock()
	return t.Deliver(ctx, m)
}

type smtpTransport struct{}

func (smtpTransport) Deliver(ctx context.Context, m *Message) error {
	cfg := m.cfg
	if cfg.Username == "" {
		return ErrNotConfigured
	}

	raw := m.build(time.Now())
	addr := net.JoinHostPort(cfg.Host, cfg.Port)
	auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)

	dialer := &net.Dialer{Timeout: 10 * time.Second}
	var (
		conn net.Conn
		err  error
	)
	if cfg.Port == "465" {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: cfg.Host}}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("mail: dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("mail: handshake: %w", err)
	}
	defer client.Close()

	if cfg.Port != "465" {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: cfg.Host}); err != nil {
				return fmt.Errorf("mail: starttls: %w", err)
			}
		}
	}
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("mail: auth: %w", err)
	}
	if err := client.Mail(cfg.From); err != nil {
		return err
	}
	for _, rcpt := range m.to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("mail: rcpt %s: %w", rcpt, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

// build renders RFC 5322 headers and a quoted-printable body.
func (m *Message) build(now time.Time) []byte {
	from := (&mail.Address{Name: m.cfg.FromName, Address: m.cfg.From}).String()

	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(m.to, ", ") + "\r\n")
	if m.replyTo != "" {
		b.WriteString("Reply-To: " + m.replyTo + "\r\n")
	}
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", m.subject) + "\r\n")
	b.WriteString("Date: " + now.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")

	switch {
	case m.text != "" && m.html != "":
		boundary := newBoundary()
		b.WriteString(`Content-Type: multipart/alternative; boundary="` + boundary + "\"\r\n\r\n")
		writePart(&b, boundary, "text/plain", m.text)
		writePart(&b, boundary, "text/html", m.html)
		b.WriteString("--" + boundary + "--\r\n")
	case m.html != "":
		writeSingle(&b, "text/html", m.html)
	default:
		writeSingle(&b, "text/plain", m.text)
	}
	return []byte(b.String())
}

func writePart(b *strings.Builder, boundary, contentType, body string) {
	b.WriteString("--" + boundary + "\r\n")
	writeSingle(b, contentType, body)
	b.WriteString("\r\n")
}

func writeSingle(b *strings.Builder, contentType, body string) {
	b.WriteString("Content-Type: " + contentType + "; charset=\"UTF-8\"\r\n")
	b.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")
	qp := quotedprintable.NewWriter(b)
	qp.Write([]byte(body)) //nolint:errcheck
	qp.Close()
}

func newBoundary() string {
	buf := make([]byte, 12)
	_, _ = rand.Read(buf)
	return "usgears-" + hex.EncodeToString(buf)
}

package notify

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/agentstation/contactsync/pkg/constants"
	"github.com/agentstation/contactsync/pkg/errors"
	"github.com/agentstation/contactsync/pkg/logging"
	"github.com/agentstation/contactsync/pkg/report"
)

// SMTPConfig holds mail server settings.
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	Sender    string
	Recipient string // comma separated
	Subject   string
}

// Validate checks that mail can be addressed.
func (c SMTPConfig) Validate() error {
	if c.Host == "" {
		return errors.NewValidationError("smtp.host", c.Host, "is required")
	}
	if c.Sender == "" {
		return errors.NewValidationError("email.sender", c.Sender, "is required")
	}
	if len(c.recipients()) == 0 {
		return errors.NewValidationError("email.recipient", c.Recipient, "is required")
	}
	return nil
}

func (c SMTPConfig) recipients() []string {
	var out []string
	for _, r := range strings.Split(c.Recipient, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

// sendFunc matches smtp.SendMail.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTP emails the report as an HTML message.
type SMTP struct {
	cfg  SMTPConfig
	send sendFunc
	now  func() time.Time
}

// NewSMTP creates an email notifier.
func NewSMTP(cfg SMTPConfig) *SMTP {
	if cfg.Port == 0 {
		cfg.Port = 25
	}
	if cfg.Subject == "" {
		cfg.Subject = constants.ReportSubject
	}
	return &SMTP{cfg: cfg, send: smtp.SendMail, now: time.Now}
}

// Notify implements Notifier. An empty report is not sent.
func (s *SMTP) Notify(ctx context.Context, r *report.Report) error {
	logger := logging.FromContext(ctx)
	if !r.HasContent() {
		logger.Debug().Msg("Report is empty, not sending email")
		return nil
	}
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	logger.Info().Msg("Sending report email")

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	if err := s.send(addr, auth, s.cfg.Sender, s.cfg.recipients(), s.message(r)); err != nil {
		return fmt.Errorf("sending report email via %s: %w", addr, err)
	}
	return nil
}

func (s *SMTP) message(r *report.Report) []byte {
	var b bytes.Buffer
	header := func(k, v string) {
		fmt.Fprintf(&b, "%s: %s\r\n", k, v)
	}
	header("From", s.cfg.Sender)
	header("To", strings.Join(s.cfg.recipients(), ", "))
	header("Subject", mime.QEncoding.Encode("utf-8", s.cfg.Subject))
	header("Date", s.now().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/html; charset="utf-8"`)
	b.WriteString("\r\n")
	b.WriteString(r.HTML())
	b.WriteString("\r\n")
	return b.Bytes()
}

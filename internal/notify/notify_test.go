package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/contactsync/pkg/logging"
	"github.com/agentstation/contactsync/pkg/report"
)

type captured struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	msg  string
}

func fakeSend(c *captured, err error) sendFunc {
	return func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		c.addr, c.auth, c.from, c.to, c.msg = addr, a, from, to, string(msg)
		return err
	}
}

func sampleReport() *report.Report {
	r := report.New()
	r.Add(report.Entry{Kind: report.KindCreate, Outcome: report.OutcomeApplied, ID: "B", Message: "B: Bob added to Zoom."})
	r.Add(report.Entry{Kind: report.KindUpdate, Outcome: report.OutcomeFailed, ID: "C", Message: "Failed to update C: Carol <c> to Zoom. bad"})
	return r
}

func testConfig() SMTPConfig {
	return SMTPConfig{Host: "mail.local", Sender: "sync@example.com", Recipient: "ops@example.com, it@example.com"}
}

func TestSMTPNotify(t *testing.T) {
	var got captured
	n := NewSMTP(testConfig())
	n.send = fakeSend(&got, nil)
	n.now = func() time.Time { return time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC) }

	require.NoError(t, n.Notify(context.Background(), sampleReport()))

	assert.Equal(t, "mail.local:25", got.addr)
	assert.Nil(t, got.auth)
	assert.Equal(t, "sync@example.com", got.from)
	assert.Equal(t, []string{"ops@example.com", "it@example.com"}, got.to)
	assert.Contains(t, got.msg, "Subject: Zoom Contacts Update Report\r\n")
	assert.Contains(t, got.msg, "Content-Type: text/html")
	assert.Contains(t, got.msg, "To: ops@example.com, it@example.com\r\n")
	assert.True(t, strings.HasSuffix(got.msg,
		"B: Bob added to Zoom.<br>Failed to update C: Carol &lt;c&gt; to Zoom. bad<br>\r\n"))
}

func TestSMTPNotifyUsesAuth(t *testing.T) {
	var got captured
	cfg := testConfig()
	cfg.Port = 587
	cfg.Username = "user"
	cfg.Password = "pass"

	n := NewSMTP(cfg)
	n.send = fakeSend(&got, nil)
	require.NoError(t, n.Notify(context.Background(), sampleReport()))
	assert.Equal(t, "mail.local:587", got.addr)
	assert.NotNil(t, got.auth)
}

func TestSMTPSkipsEmptyReport(t *testing.T) {
	var got captured
	n := NewSMTP(SMTPConfig{})
	n.send = fakeSend(&got, errors.New("should not be called"))
	assert.NoError(t, n.Notify(context.Background(), report.New()))
	assert.Empty(t, got.addr)
}

func TestSMTPErrors(t *testing.T) {
	n := NewSMTP(SMTPConfig{Host: "mail.local"})
	err := n.Notify(context.Background(), sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email.sender")

	var got captured
	n = NewSMTP(testConfig())
	n.send = fakeSend(&got, errors.New("connection refused"))
	err = n.Notify(context.Background(), sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestLogNotifier(t *testing.T) {
	tl := logging.NewTestLogger(t)
	n := &Log{Logger: tl.Logger}

	require.NoError(t, n.Notify(context.Background(), sampleReport()))
	tl.AssertContains(t, "B: Bob added to Zoom.")
	tl.AssertContains(t, `"level":"warn"`)
	tl.AssertContains(t, "1 created, 0 updated, 0 deleted, 1 failed")
}

type failing struct{ err error }

func (f failing) Notify(context.Context, *report.Report) error { return f.err }

func TestMulti(t *testing.T) {
	tl := logging.NewTestLogger(t)
	m := Multi{failing{errors.New("smtp down")}, nil, &Log{Logger: tl.Logger}}

	err := m.Notify(context.Background(), sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
	tl.AssertContains(t, "B: Bob added to Zoom.")
}

package alerts

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/contactsync/internal/cmd/output"
)

func TestAlertString(t *testing.T) {
	a := NewError("Run aborted").WithError(errors.New("token endpoint unreachable"))
	assert.Equal(t, output.Error+" Run aborted: token endpoint unreachable", a.String())
	assert.Equal(t, "error", a.Level.String())
	assert.Equal(t, "unknown(9)", Level(9).String())
}

func TestWriterTable(t *testing.T) {
	var buf bytes.Buffer
	a := NewWarning("Deletes exceed the safety ratio").WithDetails("rerun with --force to apply")

	require.NoError(t, NewWriter(&buf, output.FormatTable).Write(a))
	assert.Equal(t, output.Warning+" Deletes exceed the safety ratio\n   rerun with --force to apply\n", buf.String())
}

func TestWriterStructured(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf, output.FormatJSON).Write(NewSuccess("Mirror reset")))
	assert.Contains(t, buf.String(), `"level": "success"`)
	assert.Contains(t, buf.String(), `"message": "Mirror reset"`)

	buf.Reset()
	require.NoError(t, NewWriter(&buf, output.FormatYAML).Write(NewInfo("No changes found.")))
	assert.Contains(t, buf.String(), "level: info")
}

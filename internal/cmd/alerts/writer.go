package alerts

import (
	"fmt"
	"io"

	"github.com/agentstation/contactsync/internal/cmd/output"
)

// Writer writes alerts in one output format.
type Writer struct {
	w      io.Writer
	format output.Format
}

// NewWriter creates a Writer. Table output is plain text; json and yaml emit
// one document per alert.
func NewWriter(w io.Writer, format output.Format) *Writer {
	return &Writer{w: w, format: format}
}

type alertData struct {
	Level   string   `json:"level" yaml:"level"`
	Message string   `json:"message" yaml:"message"`
	Details []string `json:"details,omitempty" yaml:"details,omitempty"`
	Error   string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// Write outputs a.
func (aw *Writer) Write(a *Alert) error {
	if aw.format == output.FormatJSON || aw.format == output.FormatYAML {
		data := alertData{Level: a.Level.String(), Message: a.Message, Details: a.Details}
		if a.Err != nil {
			data.Error = a.Err.Error()
		}
		return output.NewFormatter(aw.format).Format(aw.w, data)
	}

	if _, err := fmt.Fprintln(aw.w, a.String()); err != nil {
		return err
	}
	for _, detail := range a.Details {
		if _, err := fmt.Fprintf(aw.w, "   %s\n", detail); err != nil {
			return err
		}
	}
	return nil
}

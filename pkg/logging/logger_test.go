package logging_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/agentstation/contactsync/pkg/logging"
)

func TestDefaultLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	original := *logging.Default()
	t.Cleanup(func() { logging.SetDefault(original) })

	logging.SetDefault(zerolog.New(buf).Level(zerolog.InfoLevel))

	logging.Debug().Msg("debug message")
	logging.Info().Msg("info message")
	logging.Warn().Msg("warning message")

	output := buf.String()
	if !strings.Contains(output, "info message") {
		t.Errorf("Expected info message in output, got: %s", output)
	}
	if strings.Contains(output, "debug message") {
		t.Errorf("Debug message should be filtered at info level, got: %s", output)
	}
}

func TestContextLogger(t *testing.T) {
	testLogger := logging.NewTestLogger(t)

	ctx := logging.WithLogger(context.Background(), testLogger.Logger)
	ctx = logging.WithRunID(ctx, "run-42")
	ctx = logging.WithContactID(ctx, "1042")
	ctx = logging.WithAction(ctx, "update")

	logging.FromContext(ctx).Info().Msg("applied")

	testLogger.AssertContains(t, `"run_id":"run-42"`)
	testLogger.AssertContains(t, `"contact_id":"1042"`)
	testLogger.AssertContains(t, `"action":"update"`)
	testLogger.AssertContains(t, "applied")
}

func TestWithStage(t *testing.T) {
	testLogger := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), testLogger.Logger)

	logging.FromContext(logging.WithStage(ctx, "refresh")).Info().Msg("page fetched")
	logging.FromContext(ctx).Info().Msg("untagged")

	lines := testLogger.Lines()
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], `"stage":"refresh"`) {
		t.Errorf("expected stage field: %s", lines[0])
	}
	if strings.Contains(lines[1], `"stage"`) {
		t.Errorf("parent context should stay untagged: %s", lines[1])
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	//nolint:staticcheck // nil context is part of the contract
	if logging.FromContext(nil) != logging.Default() {
		t.Error("expected default logger for nil context")
	}
	if logging.FromContext(context.Background()) != logging.Default() {
		t.Error("expected default logger for bare context")
	}
}

func TestConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		want    string
		notWant string
	}{
		{name: "debug level", level: "debug", want: `"level":"debug"`},
		{name: "error level only", level: "error", want: `"level":"error"`, notWant: `"level":"info"`},
		{name: "invalid falls back to info", level: "chatty", want: `"level":"info"`, notWant: `"level":"debug"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := logging.NewLoggerFromConfig(&logging.Config{Level: tt.level, Format: "json", Output: "discard"})
			logger = logger.Output(buf)

			logger.Debug().Msg("debug")
			logger.Info().Msg("info")
			logger.Error().Msg("error")

			output := buf.String()
			if !strings.Contains(output, tt.want) {
				t.Errorf("expected %s in output: %s", tt.want, output)
			}
			if tt.notWant != "" && strings.Contains(output, tt.notWant) {
				t.Errorf("did not expect %s in output: %s", tt.notWant, output)
			}
		})
	}
}

func TestCaptureLoggingForTest(t *testing.T) {
	captured := logging.CaptureLoggingForTest(t)
	logging.Info().Str("contact_id", "7").Msg("captured")
	captured.AssertContains(t, "captured")
	captured.AssertNotContains(t, "not logged")
}

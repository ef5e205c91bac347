package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/typed-eventstore-go/eventstore"
	"github.com/AntonStoeckl/typed-eventstore-go/logging"
)

var (
	_ eventstore.Logger           = (*logging.Logger)(nil)
	_ eventstore.ContextualLogger = (*logging.Logger)(nil)
)

func Test_ParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, logging.ParseLevel(tt.input))
		})
	}
}

func Test_Logger_AddsRequestID(t *testing.T) {
	// setup
	var buf bytes.Buffer
	logger := logging.New(&buf, slog.LevelInfo, logging.FormatJSON)
	ctx := logging.WithRequestID(context.Background(), "req-42")

	// act
	logger.InfoContext(ctx, "handled request", logging.FieldStatus, 201)
	logger.InfoContext(context.Background(), "background work")

	// assert
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	assert.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), `"request_id":"req-42"`)
	assert.Contains(t, string(lines[0]), `"status":201`)
	assert.NotContains(t, string(lines[1]), "request_id")
}

func Test_Logger_TextFormatAndLevel(t *testing.T) {
	// setup
	var buf bytes.Buffer
	logger := logging.New(&buf, slog.LevelWarn, logging.FormatText)

	// act
	logger.DebugContext(context.Background(), "hidden")
	logger.Info("hidden too")
	logger.With("component", "httpapi").WarnContext(context.Background(), "shown")

	// assert
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "level=WARN msg=shown component=httpapi")
}

func Test_RequestID_Missing(t *testing.T) {
	assert.Empty(t, logging.RequestID(context.Background()))
}

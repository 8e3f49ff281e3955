package weclapp_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/fivetwenty-io/weclapp-client/pkg/weclapp"
	"github.com/stretchr/testify/assert"
)

func TestSlogLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := weclapp.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	logger.Debug("API Request", map[string]interface{}{"path": "/article", "method": "GET"})
	logger.Info("info message", nil)
	logger.Warn("warn message", nil)
	logger.Error("API Response Error", map[string]interface{}{"status_code": 500})

	out := buf.String()
	assert.Contains(t, out, `level=DEBUG msg="API Request" method=GET path=/article`)
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "status_code=500")
}

func TestNewSlogLogger_NilUsesDefault(t *testing.T) {
	t.Parallel()

	assert.NotNil(t, weclapp.NewSlogLogger(nil))

	var logger weclapp.Logger = weclapp.NopLogger{}
	logger.Info("discarded", nil)
}

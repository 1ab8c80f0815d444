package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	t.Run("json output respects level", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := Setup(Config{Level: "warn", Format: "json"}, &buf)
		require.NoError(t, err)

		logger.Info("dropped")
		slog.Default().With("component", "test").Warn("kept", "n", 1)

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "kept", line["msg"])
		assert.Equal(t, "test", line["component"])
		assert.NotContains(t, buf.String(), "dropped")
	})

	t.Run("text output by default", func(t *testing.T) {
		var buf bytes.Buffer
		_, err := Setup(DefaultConfig(), &buf)
		require.NoError(t, err)

		slog.Debug("hidden")
		slog.Info("shown")
		assert.Contains(t, buf.String(), "msg=shown")
		assert.NotContains(t, buf.String(), "hidden")
	})
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{}.Validate())
	assert.NoError(t, Config{Level: "DEBUG", Format: "JSON"}.Validate())
	assert.ErrorIs(t, Config{Level: "loud"}.Validate(), ErrInvalidConfig)
	assert.ErrorIs(t, Config{Format: "xml"}.Validate(), ErrInvalidConfig)

	_, err := Setup(Config{Format: "xml"}, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
